// Package report renders checker results for people: Markdown for terminals
// and review tools, HTML pages for sharing.
package report

import (
	"fmt"
	"html"
	"io"
	"strings"

	md "github.com/russross/blackfriday/v2"

	"github.com/roach88/seqcheck/internal/ir"
)

// statusOrder is the order statuses appear in the summary table.
var statusOrder = []ir.Status{ir.StatusOK, ir.StatusWarning, ir.StatusUndefined, ir.StatusError}

// Markdown renders res as a Markdown document: a status summary, then one
// section per occurrence with its failures, context, KPIs and step table.
func Markdown(res *ir.SequenceResult) string {
	var b strings.Builder
	f := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	f("# Sequence %s", res.Sequence)
	f("")
	if res.SpecHash != "" {
		f("Spec hash: `%s`", res.SpecHash)
		f("")
	}

	counts := res.Counts()
	f("| Status | Occurrences |")
	f("|---|---|")
	for _, s := range statusOrder {
		f("| %s | %d |", s, counts[s])
	}
	f("")

	if len(res.Occurrences) == 0 {
		f("No occurrences.")
	}

	for _, occ := range res.Occurrences {
		f("## %s #%d: %s", res.Sequence, occ.Instance, occ.Status)
		f("")
		f("Started at msg #%d (%d ms), %s.", occ.Start.MsgIndex, occ.Start.TimeMs, occ.Start.MsgText)
		f("")
		if len(occ.Failures) > 0 {
			f("Failures:")
			f("")
			for _, failure := range occ.Failures {
				f("- %s", escape(failure))
			}
			f("")
		}
		if len(occ.Context) > 0 {
			pairs := make([]string, len(occ.Context))
			for i, p := range occ.Context {
				pairs[i] = fmt.Sprintf("`%s=%s`", p.Key, p.Value)
			}
			f("Context: %s", strings.Join(pairs, ", "))
			f("")
		}
		if len(occ.KPIs) > 0 {
			f("| KPI | Value |")
			f("|---|---|")
			for _, k := range occ.KPIs {
				f("| %s | %s |", escape(k.Name), k.Value)
			}
			f("")
		}

		f("| Step | Title | Status | Msg | Time (ms) | Text |")
		f("|---|---|---|---|---|---|")
		writeSteps(&b, occ.Steps, 0)
		f("")
	}

	if len(res.Logs) > 0 {
		f("## Log")
		f("")
		f("```")
		for _, line := range res.Logs {
			f("%s", line)
		}
		f("```")
	}

	return b.String()
}

// writeSteps appends one table row per event and per child occurrence,
// indenting nested rows by depth.
func writeSteps(b *strings.Builder, steps []ir.StepResult, depth int) {
	indent := strings.Repeat("&nbsp;&nbsp;", depth)
	for _, step := range steps {
		key := step.Key
		if step.Via != "" {
			key += " via " + step.Via
		}
		if len(step.Events) == 0 && len(step.Occurrences) == 0 {
			fmt.Fprintf(b, "| %s%s | %s | | | | |\n", indent, key, escape(step.Name))
		}
		for _, ev := range step.Events {
			msg, at := "", ""
			if ev.Type != ir.EventMissing {
				msg = fmt.Sprintf("#%d", ev.MsgIndex)
				at = fmt.Sprintf("%d", ev.TimeMs)
			}
			fmt.Fprintf(b, "| %s%s | %s | %s | %s | %s | %s |\n",
				indent, key, escape(ev.Title), ev.Summary, msg, at, escape(ev.MsgText))
		}
		for _, child := range step.Occurrences {
			fmt.Fprintf(b, "| %s%s | %s #%d | %s | #%d | %d | %s |\n",
				indent, key, escape(child.Start.Title), child.Instance, child.Status,
				child.Start.MsgIndex, child.Start.TimeMs, escape(strings.Join(child.Failures, "; ")))
			writeSteps(b, child.Steps, depth+1)
		}
	}
}

// escape keeps table cells intact.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// RenderHTML renders the Markdown report of res as an HTML fragment.
func RenderHTML(res *ir.SequenceResult) []byte {
	return md.Run([]byte(Markdown(res)))
}

// RenderPage writes a complete HTML page for res. cssFiles are linked in
// the head in order.
func RenderPage(res *ir.SequenceResult, out io.Writer, cssFiles []string) error {
	title := html.EscapeString(res.Sequence)

	if _, err := fmt.Fprintf(out, `<!DOCTYPE html>
<html>
  <head>
  <meta charset="utf-8">
  <title>%s</title>
`, title); err != nil {
		return err
	}
	for _, css := range cssFiles {
		if _, err := fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", html.EscapeString(css)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(out, "  </head>\n  <body>\n<div class=\"report\">\n"); err != nil {
		return err
	}
	if _, err := out.Write(RenderHTML(res)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "</div>\n  </body>\n</html>\n")
	return err
}
