// Package main is the entry point for the mailgate HTTP email gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/mailgate/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mailgate",
	Short: "HTTP gateway for templated transactional email",
	Long: `mailgate accepts send requests over HTTP, renders them into a
templated HTML email and hands the result to a mail provider
(AWS SES, Resend, Mailgun, Microsoft Graph or stdout).

Example:
  mailgate serve                       # Run with environment configuration
  mailgate serve --config mailgate.yaml
  mailgate render message.md           # Preview the rendered HTML`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file (optional)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
