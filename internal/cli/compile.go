package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledSequence is one normalized sequence with its content hash.
type CompiledSequence struct {
	Name     string          `json:"name"`
	SpecHash string          `json:"spec_hash"`
	Spec     ir.SequenceSpec `json:"spec"`
}

// CompilationResult holds the compiled sequences.
type CompilationResult struct {
	Sequences []CompiledSequence `json:"sequences"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spec>",
		Short: "Compile sequences to normalized JSON",
		Long: `Compile a CUE, JSON or YAML spec to normalized sequences.

Every sequence is validated and printed with its spec hash. Two specs
that differ only in formatting or key order produce the same hash.
With --output the sequences are written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	specs, err := LoadSequences(specPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d sequence(s) in %s", len(specs), specPath)

	// invalid sequences are not written out
	if validation := validateAll(specs, formatter); !validation.Valid {
		return outputValidationErrors(formatter, validation)
	}

	result := &CompilationResult{Sequences: make([]CompiledSequence, 0, len(specs))}
	for _, spec := range specs {
		hash, err := ir.SpecHash(spec)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		formatter.VerboseLog("Compiled sequence: %s (%s)", spec.Name, hash)
		result.Sequences = append(result.Sequences, CompiledSequence{
			Name:     spec.Name,
			SpecHash: hash,
			Spec:     spec,
		})
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeSequencesToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d sequence(s)\n\n", len(result.Sequences))

	fmt.Fprintln(formatter.Writer, "Sequences:")
	for _, seq := range result.Sequences {
		fmt.Fprintf(formatter.Writer, "  %s: %d step(s), %d failure(s), %d kpi(s), hash %s\n",
			seq.Name, len(seq.Spec.Steps), len(seq.Spec.Failures), len(seq.Spec.KPIs), shortHash(seq.SpecHash))
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote sequences to %s\n", outputFile)
	}

	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// writeSequencesToFile writes the compilation result as indented JSON.
func writeSequencesToFile(result *CompilationResult, filename string) error {
	// indented for readability; hashes are computed on canonical JSON
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sequences: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
