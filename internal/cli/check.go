package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uber-go/tally/v4"

	"github.com/roach88/seqcheck/internal/engine"
	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/report"
	"github.com/roach88/seqcheck/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Sequence string   // only check this sequence
	Save     bool     // store the runs in the database
	CSS      []string // stylesheets linked from html output
}

// CheckResult holds the outcome of checking one message file.
type CheckResult struct {
	Messages  int                  `json:"messages"`
	Sequences []*ir.SequenceResult `json:"sequences"`
	RunIDs    []string             `json:"run_ids,omitempty"`
}

// ErrorCount returns the number of occurrences with status error.
func (r *CheckResult) ErrorCount() int {
	n := 0
	for _, res := range r.Sequences {
		n += res.Counts()[ir.StatusError]
	}
	return n
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <spec> <messages>",
		Short: "Check a message stream against sequences",
		Long: `Check a message stream against every sequence of a spec.

The spec is a CUE, JSON or YAML file, or a directory of them. Messages
are read from a JSON array, JSON lines (.jsonl) or a YAML list.

Exit codes:
  0 - No occurrence ended with status error
  1 - At least one occurrence ended with status error
  2 - Command error (invalid paths, invalid sequence, etc.)

Examples:
  seqcheck check ./specs messages.json
  seqcheck check boot.cue messages.yaml --sequence boot --save
  seqcheck check boot.cue messages.jsonl --format html > report.html`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sequence, "sequence", "", "only check the named sequence")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the runs in the database (see --db)")
	cmd.Flags().StringSliceVar(&opts.CSS, "css", nil, "stylesheet to link from html output")

	return cmd
}

func runCheck(opts *CheckOptions, specPath, msgPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	specs, err := LoadSequences(specPath)
	if err == nil {
		specs, err = SelectSequences(specs, opts.Sequence)
	}
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if opts.Format == "html" && len(specs) > 1 {
		return outputCommandError(formatter, ErrCodeGeneric,
			fmt.Sprintf("html output renders one sequence, %d found: use --sequence", len(specs)))
	}

	msgs, err := LoadMessages(msgPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d sequence(s) from %s and %d message(s) from %s",
		len(specs), specPath, len(msgs), msgPath)

	// a snapshot-capable scope lets --verbose print the engine counters
	scope := tally.NewTestScope("seqcheck", nil)

	result := &CheckResult{
		Messages:  len(msgs),
		Sequences: make([]*ir.SequenceResult, 0, len(specs)),
	}
	for _, spec := range specs {
		checker, err := engine.New(spec,
			engine.WithLogger(opts.Logger()),
			engine.WithMetrics(scope),
		)
		if err != nil {
			return outputBuildError(formatter, err)
		}
		checker.ProcessAll(msgs)
		result.Sequences = append(result.Sequences, checker.Result())
	}
	logCounters(formatter, scope)

	if opts.Save {
		ids, err := saveRuns(cmd.Context(), opts.DB, msgPath, result, engine.UUIDv7Generator{})
		if err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
		}
		result.RunIDs = ids
		formatter.VerboseLog("Stored %d run(s) in %s", len(ids), opts.DB)
	}

	return outputCheckResult(formatter, opts, result)
}

// saveRuns stores every sequence result as one run.
func saveRuns(ctx context.Context, dbPath, source string, result *CheckResult, ids engine.RunIDGenerator) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	defer st.Close()

	var runIDs []string
	for _, res := range result.Sequences {
		run, err := store.NewRunRecord(ids.Generate(), source, int64(result.Messages), res)
		if err != nil {
			return nil, err
		}
		if err := st.WriteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
		runIDs = append(runIDs, run.ID)
	}
	return runIDs, nil
}

// logCounters prints the engine counters in verbose mode.
func logCounters(formatter *OutputFormatter, scope tally.TestScope) {
	if !formatter.Verbose {
		return
	}
	counters := scope.Snapshot().Counters()
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := counters[k]
		formatter.VerboseLog("metric %s %v = %d", c.Name(), c.Tags(), c.Value())
	}
}

func outputCheckResult(formatter *OutputFormatter, opts *CheckOptions, result *CheckResult) error {
	failed := result.ErrorCount()

	switch formatter.Format {
	case "json":
		response := CLIResponse{Status: "ok", Data: result}
		if failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_SEQUENCE_ERROR",
				Message: fmt.Sprintf("%d occurrence(s) with errors", failed),
			}
		}
		if err := formatter.Respond(response); err != nil {
			return err
		}
	case "markdown":
		for i, res := range result.Sequences {
			if i > 0 {
				fmt.Fprintln(formatter.Writer)
			}
			fmt.Fprint(formatter.Writer, report.Markdown(res))
		}
	case "html":
		if err := report.RenderPage(result.Sequences[0], formatter.Writer, opts.CSS); err != nil {
			return err
		}
	default:
		writeCheckText(formatter.Writer, DefaultStyles(), result)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d occurrence(s) with errors", failed))
	}
	return nil
}

func writeCheckText(w io.Writer, styles Styles, result *CheckResult) {
	fmt.Fprintf(w, "Checked %d message(s) against %d sequence(s)\n", result.Messages, len(result.Sequences))

	for _, res := range result.Sequences {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s: %d occurrence(s)\n",
			styles.Title.Render("Sequence"), res.Sequence, len(res.Occurrences))

		for _, occ := range res.Occurrences {
			fmt.Fprintf(w, "  #%d %s started at msg #%d (%d ms)\n",
				occ.Instance, styles.StatusBadge(occ.Status), occ.Start.MsgIndex, occ.Start.TimeMs)
			for _, f := range occ.Failures {
				fmt.Fprintf(w, "      - %s\n", f)
			}
			if len(occ.Context) > 0 {
				pairs := make([]string, len(occ.Context))
				for i, p := range occ.Context {
					pairs[i] = p.Key + "=" + p.Value
				}
				fmt.Fprintf(w, "      context: %s\n", strings.Join(pairs, ", "))
			}
			if len(occ.KPIs) > 0 {
				kpis := make([]string, len(occ.KPIs))
				for i, k := range occ.KPIs {
					kpis[i] = k.Name + "=" + k.Value
				}
				fmt.Fprintf(w, "      kpis: %s\n", strings.Join(kpis, ", "))
			}
		}
	}

	fmt.Fprintln(w)
	if failed := result.ErrorCount(); failed > 0 {
		fmt.Fprintln(w, styles.Error.Render(fmt.Sprintf("✗ %d occurrence(s) with errors", failed)))
		return
	}
	fmt.Fprintln(w, styles.OK.Render("✓ No error occurrences"))
}

// outputLoadError reports a spec or message loading failure.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
		return outputCommandError(formatter, loadErr.Code, msg)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputBuildError reports a sequence rejected at construction. The
// validation codes become the error details.
func outputBuildError(formatter *OutputFormatter, err error) error {
	var be *engine.BuildError
	if !errors.As(err, &be) {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	_ = formatter.Error(buildErrorCode(be), be.Error(), be.Errors)
	return WrapExitError(ExitCommandError, "invalid sequence", err)
}

func buildErrorCode(be *engine.BuildError) string {
	if len(be.Errors) > 0 {
		return be.Errors[0].Code
	}
	return ErrCodeGeneric
}

// outputCommandError writes the error and returns an ExitCommandError.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
