// Command pixelbridge is a line client for a running pixelbridged. It sends
// one command per invocation and prints the JSON result, which makes it
// usable from shell scripts and for poking at a live server.
//
// Usage:
//
//	pixelbridge call version
//	pixelbridge call Image.new '[640, 480, 0]'
//	pixelbridge call Image.get_width --kwargs '{"image": 1}'
//	pixelbridge shutdown
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelbridge/pixelbridge/pkg/client"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:     "pixelbridge",
		Short:   "Send commands to a running pixelbridged",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&addr, "addr", client.DefaultAddr, "server address")
	root.AddCommand(newCallCmd(&addr))
	root.AddCommand(newShutdownCmd(&addr))
	return root
}

func newCallCmd(addr *string) *cobra.Command {
	var kwargsJSON string

	cmd := &cobra.Command{
		Use:   "call <api_path> [args-json]",
		Short: "Invoke an API path and print the result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, argv []string) error {
			var args []any
			if len(argv) == 2 {
				if err := json.Unmarshal([]byte(argv[1]), &args); err != nil {
					return fmt.Errorf("args must be a JSON array: %w", err)
				}
			}
			var kwargs map[string]any
			if kwargsJSON != "" {
				if err := json.Unmarshal([]byte(kwargsJSON), &kwargs); err != nil {
					return fmt.Errorf("--kwargs must be a JSON object: %w", err)
				}
			}

			c, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.CallAPI(argv[0], args, kwargs)
			if err != nil {
				return err
			}
			if len(result) == 0 {
				result = json.RawMessage("null")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&kwargsJSON, "kwargs", "", "keyword arguments as a JSON object")
	return cmd
}

func newShutdownCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask the server to stop",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := client.Dial(*addr)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Shutdown()
		},
	}
}
