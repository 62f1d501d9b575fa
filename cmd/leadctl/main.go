// Command leadctl talks to a leadbook server from the terminal: bulk CSV
// imports, exports, listing, and minting development tokens.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadbook/internal/client"
)

const defaultURL = "http://localhost:8080"

var (
	apiClient *client.Client
	flagURL   string
	flagToken string
	flagActor string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leadctl",
		Short: "Command line client for the leadbook buyer API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveEnv()
			apiClient = client.New(flagURL, client.WithToken(flagToken), client.WithActor(flagActor))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Server URL (env: LEADBOOK_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token (env: LEADBOOK_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "Actor id sent when the server runs without auth")

	tokenCmd := newTokenCmd()
	tokenCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // no server involved

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newListCmd())
	return rootCmd
}

// resolveEnv fills flags left at their defaults from the environment.
func resolveEnv() {
	if flagURL == defaultURL {
		if v := os.Getenv("LEADBOOK_URL"); v != "" {
			flagURL = v
		}
	}
	if flagToken == "" {
		flagToken = os.Getenv("LEADBOOK_TOKEN")
	}
}
