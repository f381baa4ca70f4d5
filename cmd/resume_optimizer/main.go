// Package main provides the resume_optimizer CLI: interactive optimization
// runs, offline patch application and the HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "resume_optimizer",
	Short: "Tailor a resume to a job description with reviewable patches",
	Long: `resume_optimizer compares a resume with a job description, proposes edits,
asks which ones to apply and exports the patched resume.

Configuration can be loaded from a JSON file using --config. Command-line flags override config file values.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
