package root

import (
	"fmt"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "models [provider]",
		Short:     "List providers and their models",
		GroupID:   "core",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: provider.IDs(),
		RunE:      runModels,
	}
}

func runModels(cmd *cobra.Command, args []string) error {
	descriptors := provider.All()
	if len(args) == 1 {
		desc, ok := provider.Lookup(args[0])
		if !ok {
			return &provider.ConfigError{ProviderID: args[0], Reason: "unknown provider"}
		}
		descriptors = []provider.Descriptor{desc}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tNAME\tCONTEXT\tAUTH")
	for _, d := range descriptors {
		for _, m := range d.Models {
			window := "-"
			if m.ContextWindow > 0 {
				window = units.CustomSize("%.4g%s", float64(m.ContextWindow), 1000, []string{"", "k", "M"})
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, m.ID, m.Name, window, d.Auth)
		}
	}
	return w.Flush()
}
