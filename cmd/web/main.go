// Package main provides the jobify web front end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// version is overridden at build time with -ldflags "-X main.version=...".
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jobify",
	Short: "Jobify is a job application tracker",
	Long: `Jobify serves the job tracker's pages in front of the Jobify REST API.
Pages load their data through a shared cache and follow the API's session.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML); JOBIFY_* variables and .env are read regardless")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("jobify " + version)
	},
}
