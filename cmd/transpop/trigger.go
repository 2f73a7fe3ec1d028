package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/bridge"
	"github.com/oukeidos/transpop/internal/events"
)

// newTriggerCmd presses the translate shortcut on a running backend. Bind it
// to a global hotkey in the desktop environment.
func newTriggerCmd(root *rootOptions) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send the translate shortcut to a running `transpop serve`",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = root.cfg.BridgeURL()
			}
			ctx, stop := signalContext()
			defer stop()

			client, err := bridge.Dial(ctx, url)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Emit(events.ShortcutTriggered, nil); err != nil {
				return fmt.Errorf("failed to send shortcut: %w", err)
			}
			return nil
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&url, "backend", "", "Backend ws:// URL (default from TRANSPOP_LISTEN_ADDR)")
	return cmd
}
