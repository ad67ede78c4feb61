package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:          "wirechat-presence",
	Short:        "Chat presence and room broadcast server",
	SilenceUsage: true,
	RunE:         runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $WIRECHAT_CONFIG_DEFAULT_PATH or ./config.yaml)")
	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
