// Package cli implements the marks command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// UsageError reports a missing or malformed command-line argument.
// The process exits with status 2 for these.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err was caused by bad arguments.
func IsUsageError(err error) bool {
	var uerr *UsageError
	return errors.As(err, &uerr)
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "marks",
		Short: "Build frame-correction reports from facility work files",
		Long: `Marks reconciles per-shot frame-correction logs against a storage
manifest, compresses corrected frames into ranges and writes the result
to the catalog database, a CSV, an annotated spreadsheet or an EDL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{msg: err.Error()}
	})

	root.AddCommand(newReportCmd(&verbose))
	root.AddCommand(newServeCmd(&verbose))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
