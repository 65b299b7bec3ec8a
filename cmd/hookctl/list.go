package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func listCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered hooks in dispatch order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOOK\tPRIORITY\tARITY\tCALLBACK")

			table := root.mesh.Table()
			for _, name := range table.Names() {
				for _, reg := range table.Registrations(name) {
					fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", name, reg.Priority, reg.Arity, reg.Key)
				}
			}

			return w.Flush()
		},
	}
}
