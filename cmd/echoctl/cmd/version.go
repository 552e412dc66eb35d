package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-echo-server/internal/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the echoctl version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "echoctl %s (%s)\n", api.Version, api.ServiceName)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
