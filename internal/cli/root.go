package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pypiview",
		Short: "Browse package archives hosted on a package index",
		Long: `Pypiview is a read-only web front end for package indexes such as
PyPI: list the archive files published for a package, inspect an archive's
metadata and file listing, and view individual files with syntax
highlighting.

Archives are downloaded once and cached on disk; the cache grows without
bound and cleanup is the operator's responsibility.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewInspectCmd())

	return rootCmd
}
