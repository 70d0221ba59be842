package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/ir"
	"github.com/roach88/seqcheck/internal/report"
	"github.com/roach88/seqcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Sequence string // only list runs of this sequence
	Run      string // show one run in full
}

// RunSummary is one stored run as listed by history.
type RunSummary struct {
	ID       string            `json:"id"`
	Sequence string            `json:"sequence"`
	Source   string            `json:"source"`
	Messages int64             `json:"messages"`
	SpecHash string            `json:"spec_hash"`
	Digest   string            `json:"result_digest"`
	Counts   map[ir.Status]int `json:"counts"`
}

// HistoryResult is the run listing with occurrence totals per status.
type HistoryResult struct {
	Runs   []RunSummary      `json:"runs"`
	Totals map[ir.Status]int `json:"totals"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show runs stored by check --save",
		Long: `List the runs stored in the database by "check --save", oldest first,
with occurrence counts per status. With --run one run is shown in full
in the selected output format.

Examples:
  seqcheck history --db runs.db
  seqcheck history --sequence boot
  seqcheck history --run 0190a5c2-... --format markdown`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sequence, "sequence", "", "only list runs of the named sequence")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the run with this id")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DB))
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Run != "" {
		return showRun(ctx, formatter, st, opts.Run)
	}
	return listRuns(ctx, formatter, st, opts.Sequence)
}

func listRuns(ctx context.Context, formatter *OutputFormatter, st *store.Store, sequence string) error {
	runs, err := st.ReadRuns(ctx, sequence)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	totals, err := st.CountByStatus(ctx, sequence)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	result := HistoryResult{
		Runs:   make([]RunSummary, 0, len(runs)),
		Totals: totals,
	}
	for _, run := range runs {
		result.Runs = append(result.Runs, RunSummary{
			ID:       run.ID,
			Sequence: run.Sequence,
			Source:   run.Source,
			Messages: run.Messages,
			SpecHash: run.SpecHash,
			Digest:   run.Digest,
			Counts:   run.Counts(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}

	styles := DefaultStyles()
	for _, run := range result.Runs {
		fmt.Fprintf(w, "%s  %s  %s, %d message(s)\n", run.ID, run.Sequence, run.Source, run.Messages)
		fmt.Fprintf(w, "    %s\n", formatCounts(styles, run.Counts))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d run(s): %s\n", len(result.Runs), formatCounts(styles, result.Totals))
	return nil
}

func showRun(ctx context.Context, formatter *OutputFormatter, st *store.Store, id string) error {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	switch formatter.Format {
	case "json":
		return formatter.Success(run.Result)
	case "markdown":
		fmt.Fprint(formatter.Writer, report.Markdown(&run.Result))
		return nil
	case "html":
		return report.RenderPage(&run.Result, formatter.Writer, nil)
	default:
		writeCheckText(formatter.Writer, DefaultStyles(), &CheckResult{
			Messages:  int(run.Messages),
			Sequences: []*ir.SequenceResult{&run.Result},
			RunIDs:    []string{run.ID},
		})
		return nil
	}
}

// formatCounts renders per status counts as badges, worst status last.
func formatCounts(styles Styles, counts map[ir.Status]int) string {
	out := ""
	for _, status := range []ir.Status{ir.StatusOK, ir.StatusWarning, ir.StatusUndefined, ir.StatusError} {
		if out != "" {
			out += "  "
		}
		out += fmt.Sprintf("%s %d", styles.StatusBadge(status), counts[status])
	}
	return out
}
