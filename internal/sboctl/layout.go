package sboctl

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "layout",
		Short:   "Print where sample callables are stored for each inline capacity",
		Example: "  sboctl layout",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			header := fmt.Sprintf("%-10s %5s %-8s", "callable", "size", "class")
			for _, c := range capacities {
				header += fmt.Sprintf(" %-7s", "B="+c)
			}
			fmt.Fprintln(out, header)
			for _, s := range samples() {
				fmt.Fprintln(out, s.row())
			}
			return nil
		},
	}
}
