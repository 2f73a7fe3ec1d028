package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/spf13/pflag"

	"github.com/oukeidos/transpop/internal/backend"
	"github.com/oukeidos/transpop/internal/bridge"
	"github.com/oukeidos/transpop/internal/cleanup"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/config"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/provider"
	"github.com/oukeidos/transpop/internal/selection"
	"github.com/oukeidos/transpop/internal/settings"
	"github.com/oukeidos/transpop/internal/window"
)

// appTheme bumps the text size for the small popup windows.
type appTheme struct{ fyne.Theme }

func (m appTheme) Size(n fyne.ThemeSizeName) float32 {
	if n == theme.SizeNameText {
		return 15
	}
	return theme.DefaultTheme().Size(n)
}

type options struct {
	backend string
	debug   bool
}

func parseFlags(args []string) (options, error) {
	opts := options{}
	fs := pflag.NewFlagSet("transpop-gui", pflag.ContinueOnError)
	fs.StringVar(&opts.backend, "backend", "", "Connect to a running `transpop serve` (optionally at this ws:// URL) instead of running the backend in-process")
	fs.Lookup("backend").NoOptDefVal = "default"
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// shell is where the windows get shortcut and selection events from.
type shell interface {
	events.Source
	events.Emitter
}

type gui struct {
	app     fyne.App
	cfg     *config.Config
	prefs   settings.Preferences
	windows *fyneWindows

	shell    shell
	invoker  command.Invoker
	settings *settings.Manager

	main  *mainView
	popup *popupView
	icon  *iconView

	panicNoticeOnce sync.Once
}

func newGUI(a fyne.App, cfg *config.Config) *gui {
	return &gui{
		app:     a,
		cfg:     cfg,
		prefs:   a.Preferences(),
		windows: newFyneWindows(),
	}
}

func endpoints(cfg *config.Config) provider.Endpoints {
	return provider.Endpoints{OpenAI: cfg.OpenAIBaseURL, Groq: cfg.GroqBaseURL, Ollama: cfg.OllamaURL}
}

// startLocal runs the backend in this process. It also serves the bridge so
// `transpop trigger` and the CLI can reach it; a busy port only costs that.
func (g *gui) startLocal(ctx context.Context) error {
	bus := events.NewBus()
	srv := bridge.NewServer(nil)
	svc := backend.New(backend.Options{
		Resolver:      provider.NewDefault(backend.Keys(g.prefs, g.cfg.AllowEnvKeys), endpoints(g.cfg)),
		Prefs:         g.prefs,
		Emitter:       events.Tee{bus, srv},
		Windows:       g.windows,
		ReadSelection: selection.ReadClipboard,
		Debounce:      g.cfg.ShortcutDebounce,
	})
	srv.SetInvoker(svc)
	if err := svc.Attach(ctx, bus); err != nil {
		return err
	}
	if err := svc.Attach(ctx, srv); err != nil {
		return err
	}
	cleanup.Register("backend", func() error {
		svc.Close()
		srv.Close()
		return nil
	})

	g.safeGo("gui.bridge", func() {
		if err := srv.ListenAndServe(ctx, g.cfg.ListenAddr); err != nil {
			logger.Warn("Bridge not started; `transpop trigger` will not reach this app", "error", err)
		}
	})

	watcher := selection.NewWatcher(selection.ReadClipboard, bus, func() bool {
		return g.prefs.BoolWithFallback(settings.KeyDoubleClickEnabled, false)
	}, 0)
	g.safeGo("gui.selection-watcher", func() { watcher.Run(ctx) })

	g.shell = bus
	g.invoker = svc
	return nil
}

// startRemote connects to a backend in another process.
func (g *gui) startRemote(ctx context.Context, url string) error {
	if url == "default" {
		url = g.cfg.BridgeURL()
	}
	client, err := bridge.Dial(ctx, url)
	if err != nil {
		return err
	}
	unsub, err := window.Serve(client, g.windows)
	if err != nil {
		client.Close()
		return err
	}
	if _, err := client.Listen(events.AppShutdown, func(any) {
		logger.Info("Backend shut down")
		g.safeDo("gui.quit", g.app.Quit)
	}); err != nil {
		unsub()
		client.Close()
		return err
	}
	cleanup.Register("bridge-client", func() error {
		unsub()
		return client.Close()
	})
	g.safeGo("gui.bridge-watch", func() {
		select {
		case <-client.Done():
			if ctx.Err() == nil {
				logger.Warn("Lost the backend connection")
				g.safeDo("gui.quit", g.app.Quit)
			}
		case <-ctx.Done():
		}
	})

	g.shell = client
	g.invoker = client
	return nil
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := logger.ParseLevel(cfg.LogLevel)
	if opts.debug {
		level = logger.LevelDebug
	}
	logger.Init(level, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := app.NewWithID("com.transpop.app")
	a.Settings().SetTheme(appTheme{Theme: theme.DefaultTheme()})
	a.SetIcon(theme.DocumentIcon())

	g := newGUI(a, cfg)
	if opts.backend != "" {
		err = g.startRemote(ctx, opts.backend)
	} else {
		err = g.startLocal(ctx)
	}
	if err != nil {
		return err
	}
	g.settings = settings.NewManager(g.prefs, g.invoker)
	g.settings.Load()

	if err := g.buildWindows(ctx); err != nil {
		return err
	}
	cleanup.Register("windows", func() error {
		cancel()
		g.close()
		return nil
	})

	g.main.win.ShowAndRun()
	return nil
}

// buildWindows creates the three windows and registers them by label.
func (g *gui) buildWindows(ctx context.Context) error {
	var err error
	if g.main, err = newMainView(ctx, g); err != nil {
		return err
	}
	if g.popup, err = newPopupView(ctx, g); err != nil {
		return err
	}
	if g.icon, err = newIconView(g); err != nil {
		return err
	}
	g.windows.register(window.Main, g.main.win)
	g.windows.register(window.Popup, g.popup.win)
	g.windows.register(window.SelectionIcon, g.icon.win)
	return nil
}

func (g *gui) close() {
	if g.icon != nil {
		g.icon.close()
	}
	if g.popup != nil {
		g.popup.close()
	}
	if g.main != nil {
		g.main.close()
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Unrecovered GUI panic", "scope", "main", "panic", fmt.Sprint(r))
			os.Exit(1)
		}
	}()

	err = run(opts)
	if cleanupErr := cleanup.RunAll(); err == nil {
		err = cleanupErr
	}
	if err != nil {
		logger.Error("transpop-gui failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
