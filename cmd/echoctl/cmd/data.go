package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-echo-server/pkg/envelope"
	"github.com/sirosfoundation/go-echo-server/pkg/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		env, err := newClient().Status(ctx)
		return report(cmd, env, err)
	},
}

var getCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Echo a name with GET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		env, err := newClient().Get(ctx, args[0])
		return report(cmd, env, err)
	},
}

// mutationCmd builds the post/put/delete commands, which only differ by method
func mutationCmd(use, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [name] [data]",
		Short: "Send data with " + method,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			env, err := newClient().Mutate(ctx, method, args[0], args[1])
			return report(cmd, env, err)
		},
	}
}

// report prints the envelope of a call, including failed envelopes
func report(cmd *cobra.Command, env *envelope.Output, err error) error {
	var apiErr *client.APIError
	if err != nil && !errors.As(err, &apiErr) {
		return err
	}
	if perr := printEnvelope(cmd.OutOrStdout(), env); perr != nil {
		return perr
	}
	return err
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(mutationCmd("post", http.MethodPost))
	rootCmd.AddCommand(mutationCmd("put", http.MethodPut))
	rootCmd.AddCommand(mutationCmd("delete", http.MethodDelete))
}
