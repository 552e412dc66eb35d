// Package cmd contains all CLI commands for echoctl.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-echo-server/pkg/envelope"
	"github.com/sirosfoundation/go-echo-server/pkg/client"
)

var (
	// Global flags
	serverURL string
	output    string
	timeout   time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "echoctl",
	Short: "CLI tool for calling the echo server",
	Long: `echoctl is a command-line client for the echo server API.

Examples:
  # Check server health
  echoctl status

  # Echo a name
  echoctl get alice

  # Send data with POST, PUT or DELETE
  echoctl post alice "some data"

Environment Variables:
  ECHO_URL  Base URL of the echo server (default: http://localhost:8000)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "url", "u", getEnvOrDefault("ECHO_URL", "http://localhost:8000"), "Echo server base URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newClient() *client.Client {
	return client.New(serverURL).WithTimeout(timeout)
}

// printEnvelope writes env in the selected output format
func printEnvelope(w io.Writer, env *envelope.Output) error {
	if output == "json" {
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format response: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	status := "ok"
	if !env.Result {
		status = "failed"
	}
	_, err := fmt.Fprintf(w, "%s (code %d): %s\n", status, env.Code, env.Description)
	return err
}
