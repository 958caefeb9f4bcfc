package tui

import (
	"github.com/spf13/cobra"

	"github.com/sinhabinayak2207/extrawork/internal/util"
)

// ShouldUseTUI returns true if the command should use interactive TUI
// mode: its output is a terminal and neither --no-interactive nor --json
// is set.
func ShouldUseTUI(cmd *cobra.Command) bool {
	noInteractive, _ := cmd.Flags().GetBool("no-interactive")
	asJSON, _ := cmd.Flags().GetBool("json")
	return util.Interactive(cmd.OutOrStdout(), noInteractive, asJSON)
}
