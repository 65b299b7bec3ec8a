package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const actionShortDescription = `Run an action`
const actionLongDescription = `Command "action"

Run every callback of the named action with the given arguments and print
how many times the action ran, nested runs included.
`

func actionCommand(root *rootCommand) *cobra.Command {
	var times int

	cmd := &cobra.Command{
		Use:   "action <name> [args...]",
		Short: actionShortDescription,
		Long:  actionLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			for i := 0; i < times; i++ {
				if err := root.mesh.DoAction(name, stringsToAny(args[1:])...); err != nil {
					return err
				}
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", name, root.mesh.DidAction(name))
			return err
		},
	}

	cmd.Flags().IntVarP(&times, "times", "n", 1, "how many times to run the action")

	return cmd
}
