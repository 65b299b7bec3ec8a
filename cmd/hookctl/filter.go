package main

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

const filterShortDescription = `Apply a filter to a value`
const filterLongDescription = `Command "filter"

Thread a value through every callback of the named filter and print the
result. Extra arguments are passed to the callbacks after the value.
`

func filterCommand(root *rootCommand) *cobra.Command {
	var valueType string

	cmd := &cobra.Command{
		Use:   "filter <name> <value> [args...]",
		Short: filterShortDescription,
		Long:  filterLongDescription,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := convertValue(args[1], valueType)
			if err != nil {
				return err
			}

			out, err := root.mesh.ApplyFilters(args[0], value, stringsToAny(args[2:])...)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cast.ToString(out))
			return err
		},
	}

	cmd.Flags().StringVarP(&valueType, "type", "t", "string", "value type: string, int, float or bool")

	return cmd
}

func convertValue(raw, valueType string) (any, error) {
	switch valueType {
	case "string", "":
		return raw, nil
	case "int":
		return cast.ToIntE(raw)
	case "float":
		return cast.ToFloat64E(raw)
	case "bool":
		return cast.ToBoolE(raw)
	default:
		return nil, fmt.Errorf("unknown value type %q", valueType)
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
