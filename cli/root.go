// Package cli holds the qforum command tree: the HTTP server, its database
// chores and the offline single-user client.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cppla/qforum/config"
	"github.com/cppla/qforum/forum"
)

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "qforum",
		Short: "A minimal question and answer forum",
		Long: `qforum runs a small Q&A forum: users, topics, questions and replies.
"qforum serve" starts the REST API; "qforum local" drives an offline,
single-user copy stored on this machine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				config.DefaultConfigPath = configPath
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (default config/config.json)")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newLocalCommand(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+forum.Message(err)))
		os.Exit(1)
	}
}
