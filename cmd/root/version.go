package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LucasSabena/codemobile-sub001/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", AppName, version.Version)
			fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			return nil
		},
	}
}
