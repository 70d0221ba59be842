package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/engine"
	"github.com/roach88/seqcheck/internal/filter"
	"github.com/roach88/seqcheck/internal/ir"
)

// FiltersOptions holds flags for the filters command.
type FiltersOptions struct {
	*RootOptions
	Sequence string
}

// SequenceFilters lists the filters one sequence evaluates.
type SequenceFilters struct {
	Sequence string        `json:"sequence"`
	Filters  []FilterEntry `json:"filters"`
}

// FilterEntry is one filter with its display form.
type FilterEntry struct {
	Description string        `json:"description"`
	Spec        ir.FilterSpec `json:"spec"`
}

// NewFiltersCommand creates the filters command.
func NewFiltersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FiltersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filters <spec>",
		Short: "List the filters a spec evaluates",
		Long: `List every filter the sequences of a spec evaluate: step filters in
declaration order, then failure filters by name. A log viewer can use
the list to pre-filter the messages worth checking.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilters(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sequence, "sequence", "", "only list the named sequence")

	return cmd
}

func runFilters(opts *FiltersOptions, specPath string, cmd *cobra.Command) error {
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

	result := make([]SequenceFilters, 0, len(specs))
	for _, spec := range specs {
		checker, err := engine.New(spec, engine.WithLogger(opts.Logger()))
		if err != nil {
			return outputBuildError(formatter, err)
		}

		entry := SequenceFilters{Sequence: checker.Name(), Filters: []FilterEntry{}}
		for _, fs := range checker.Filters() {
			f, err := filter.New(fs)
			if err != nil {
				return outputCommandError(formatter, ErrCodeGeneric, err.Error())
			}
			entry.Filters = append(entry.Filters, FilterEntry{Description: f.String(), Spec: fs})
		}
		result = append(result, entry)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for i, seq := range result {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprintf(formatter.Writer, "Sequence %s: %d filter(s)\n", seq.Sequence, len(seq.Filters))
		for _, f := range seq.Filters {
			fmt.Fprintf(formatter.Writer, "  %s\n", f.Description)
		}
	}
	return nil
}
