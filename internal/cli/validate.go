package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seqcheck/internal/compiler"
	"github.com/roach88/seqcheck/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool            `json:"valid"`
	Sequences []string        `json:"sequences"`
	Errors    []SequenceError `json:"errors,omitempty"`
}

// SequenceError is a validation error tagged with its sequence.
type SequenceError struct {
	Sequence string `json:"sequence"`
	compiler.ValidationError
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec>",
		Short: "Validate sequences without checking messages",
		Long: `Validate the sequences of a spec file or directory.

Compiles every sequence and applies the construction rules: step kinds,
cardinalities, filters, failures, KPI references and the first step
being able to start an occurrence. All violations are reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specPath string, cmd *cobra.Command) error {
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

	result := validateAll(specs, formatter)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateAll validates every sequence and collects all errors.
func validateAll(specs []ir.SequenceSpec, formatter *OutputFormatter) ValidationResult {
	result := ValidationResult{
		Valid:     true,
		Sequences: make([]string, 0, len(specs)),
	}

	seen := make(map[string]bool, len(specs))
	for i := range specs {
		spec := &specs[i]
		formatter.VerboseLog("Validating sequence: %s", spec.Name)
		result.Sequences = append(result.Sequences, spec.Name)

		if spec.Name != "" && seen[spec.Name] {
			result.Errors = append(result.Errors, SequenceError{
				Sequence: spec.Name,
				ValidationError: compiler.ValidationError{
					Field:   "name",
					Message: fmt.Sprintf("duplicate sequence name %q", spec.Name),
					Code:    ErrCodeGeneric,
				},
			})
		}
		seen[spec.Name] = true

		for _, ve := range compiler.Validate(spec) {
			result.Errors = append(result.Errors, SequenceError{Sequence: spec.Name, ValidationError: ve})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d sequence(s) valid\n", len(result.Sequences))
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := formatter.Respond(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "sequence %q\n", err.Sequence)
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
