package cli

import (
	"github.com/spf13/cobra"
)

var Version = "dev"

// NewRootCmd assembles the pawshome command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pawshome",
		Short:         "PawsHome - pet adoption and fundraising API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
