package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd returns the portfolio command with all subcommands attached.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portfolio",
		Short:         "Portfolio API service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ServeCmd())
	root.AddCommand(CreateAdminCmd())
	return root
}
