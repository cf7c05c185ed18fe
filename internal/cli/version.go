package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-marks/internal/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", styleBrand.Render("marks"), styleVersion.Render(config.Version))
			printField(w, "Commit", config.GitCommit)
			printField(w, "Built", config.BuildTime)
			printField(w, "OS/Arch", runtime.GOOS+"/"+runtime.GOARCH)
			printField(w, "Go", runtime.Version())
		},
	}
}
