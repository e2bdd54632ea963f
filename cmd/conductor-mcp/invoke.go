package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pitabwire/conductor-mcp/internal/dispatch"
	"github.com/pitabwire/conductor-mcp/internal/gateway"
)

// errInvocationFailed signals a failed envelope that was already printed.
var errInvocationFailed = errors.New("invocation failed")

func newInvokeCmd(opts *rootOptions) *cobra.Command {
	var rawArgs string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "invoke <operation>",
		Short: "Run one operation and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arguments map[string]any
			if s := strings.TrimSpace(rawArgs); s != "" {
				if err := json.Unmarshal([]byte(s), &arguments); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}

			cfg, logger, cat, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			gw := gateway.New(cfg.Backend,
				gateway.WithLogger(logger),
				gateway.WithUserAgent(userAgent()),
			)
			d := dispatch.New(cat, gw, dispatch.WithLogger(logger))
			name := args[0]
			env := d.Invoke(cmd.Context(), name, arguments)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(env); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, env.Text(name))
			}
			if !env.Succeeded {
				return errInvocationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", `arguments as a JSON object, e.g. '{"status":"RUNNING"}'`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result envelope as JSON")
	return cmd
}
