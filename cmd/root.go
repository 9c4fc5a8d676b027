// Package cmd provides the command-line interface of the query bot: an interactive chat
// session and the HTTP server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "querybot",
	Short:         "Conversational natural-language front end for SQL databases",
	Long:          `querybot turns natural-language questions into SQL over a Postgres, DuckDB or SQLite database, asking for clarification when the table, columns or filters are unclear.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before reading the environment")
	rootCmd.AddCommand(chatCmd, serveCmd)
}
