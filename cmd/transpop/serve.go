package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/backend"
	"github.com/oukeidos/transpop/internal/bridge"
	"github.com/oukeidos/transpop/internal/cleanup"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/safe"
	"github.com/oukeidos/transpop/internal/selection"
	"github.com/oukeidos/transpop/internal/settings"
	"github.com/oukeidos/transpop/internal/window"
)

type serveOptions struct {
	addr    string
	noWatch bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend that windows and the CLI connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, &opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from TRANSPOP_LISTEN_ADDR)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the clipboard for new selections")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	prefs, err := root.settings()
	if err != nil {
		return err
	}
	cfg := root.cfg
	addr := cfg.ListenAddr
	if opts.addr != "" {
		addr = opts.addr
	}

	ctx, stop := signalContext()
	defer stop()

	srv := bridge.NewServer(nil)
	svc := backend.New(backend.Options{
		Resolver:      newResolver(cfg, prefs),
		Prefs:         prefs,
		Emitter:       srv,
		Windows:       window.NewRemote(srv),
		ReadSelection: selection.ReadClipboard,
		Debounce:      cfg.ShortcutDebounce,
	})
	srv.SetInvoker(svc)

	// Selections seen locally reach the service and every connected window.
	local := events.NewBus()
	if err := svc.Attach(ctx, srv); err != nil {
		return err
	}
	if err := svc.Attach(ctx, local); err != nil {
		return err
	}
	cleanup.Register("backend", func() error {
		svc.Close()
		srv.Close()
		return nil
	})

	if !opts.noWatch {
		watcher := selection.NewWatcher(selection.ReadClipboard, events.Tee{local, srv}, func() bool {
			return prefs.BoolWithFallback(settings.KeyDoubleClickEnabled, false)
		}, 0)
		safe.Go("serve.selection-watcher", func() { watcher.Run(ctx) })
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on ws://%s%s\n", addr, bridge.Path)
	return srv.ListenAndServe(ctx, addr)
}
