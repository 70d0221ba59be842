package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text" | "markdown" | "html"
	Config  string // explicit config file
	DB      string // run database path

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "markdown", "html"}

// Logger returns the command logger. Before the root command has run it
// falls back to slog.Default.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// NewRootCommand creates the root command for the seqcheck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "seqcheck",
		Short: "seqcheck - DLT log sequence checker",
		Long: `Check DLT log message streams against declarative sequences.

A sequence lists the messages expected in order, with cardinalities,
alternatives, parallel branches and failure messages. Every match of
its first steps opens an occurrence which ends as ok, warning, undefined
or error.

Settings are read from flags, SEQCHECK_* environment variables and
seqcheck.yaml in the working directory or $HOME/.config/seqcheck.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, cmd, opts); err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text|markdown|html)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default seqcheck.yaml)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "seqcheck.db", "run database path")

	// Add subcommands
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewFiltersCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// loadConfig layers the config file and environment under the parsed
// flags and copies the merged global settings back into opts.
// Precedence: flag, env, file, default.
func loadConfig(v *viper.Viper, cmd *cobra.Command, opts *RootOptions) error {
	v.SetEnvPrefix("SEQCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if opts.Config != "" {
		v.SetConfigFile(opts.Config)
	} else {
		v.SetConfigName("seqcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "seqcheck"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.Config != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	opts.Verbose = v.GetBool("verbose")
	opts.Format = v.GetString("format")
	opts.DB = v.GetString("db")
	return nil
}

// newLogger returns a text logger on w; verbose lowers the level to Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
