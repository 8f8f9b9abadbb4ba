package app

import (
	"fmt"

	"github.com/spf13/cobra"

	notify "github.com/olandr/splitnotify"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands accepted by watch --commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range notify.Commands() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
