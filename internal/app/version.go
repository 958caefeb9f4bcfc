package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the showcasectl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "showcasectl %s\n", appVersion)
		},
	}
}
