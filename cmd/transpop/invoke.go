package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/bridge"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/coordinator"
	"github.com/oukeidos/transpop/internal/langdetect"
	"github.com/oukeidos/transpop/internal/language"
	"github.com/oukeidos/transpop/internal/metadata"
	"github.com/oukeidos/transpop/internal/settings"
	"github.com/oukeidos/transpop/internal/state"
)

// autoSource asks for language detection instead of a fixed source.
const autoSource = "auto"

type invokeOptions struct {
	provider string
	model    string
	source   string
	target   string
	backend  string
}

// fixedSettings is a settings snapshot taken once per CLI run.
type fixedSettings settings.AppSettings

func (f fixedSettings) Current() settings.AppSettings { return settings.AppSettings(f) }

func newInvokeCmd(root *rootOptions, mode state.Mode) *cobra.Command {
	opts := invokeOptions{}
	cmd := &cobra.Command{
		Use:     string(mode) + " [text...]",
		Short:   mode.Title() + " text (reads stdin when no text is given)",
		Example: fmt.Sprintf(invokeExample, mode),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd, root, mode, args, &opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Provider ("+strings.Join(metadata.ProviderNames(), ", ")+"); default from settings")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name; default from settings or the provider default")
	cmd.Flags().StringVar(&opts.source, "source", language.English.Code, "Source language code or label, or \"auto\" to detect it")
	cmd.Flags().StringVar(&opts.target, "target", "", "Target language code or label (default: the other of English/Vietnamese)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Send the request to a running `transpop serve` (optionally at this ws:// URL)")
	cmd.Flags().Lookup("backend").NoOptDefVal = "default"
	return cmd
}

// languages resolves the source/target flags for text.
func (o *invokeOptions) languages(text string) (language.Config, error) {
	var src language.Descriptor
	if strings.EqualFold(strings.TrimSpace(o.source), autoSource) {
		d, ok := langdetect.New(0).Detect(text)
		if !ok {
			return language.Config{}, fmt.Errorf("could not detect the source language; pass --source")
		}
		src = d
	} else {
		d, err := resolveLanguage(o.source)
		if err != nil {
			return language.Config{}, err
		}
		src = d
	}

	var dst language.Descriptor
	if strings.TrimSpace(o.target) == "" {
		dst = language.DefaultConfig().Counterpart(src.Code)
	} else {
		d, err := resolveLanguage(o.target)
		if err != nil {
			return language.Config{}, err
		}
		dst = d
	}
	return language.Config{Source: src, Target: dst}, nil
}

// effective applies the provider and model flags over the saved settings.
// A provider override drops the saved model unless --model is also given.
func (o *invokeOptions) effective(saved settings.AppSettings) (settings.AppSettings, error) {
	s := saved
	if o.provider != "" {
		p, ok := metadata.LookupProvider(o.provider)
		if !ok {
			return s, fmt.Errorf("unknown provider %q (valid: %s)", o.provider, strings.Join(metadata.ProviderNames(), ", "))
		}
		if p.Name != s.Provider.Name {
			s.Model = ""
		}
		s.Provider = p
	}
	if o.model != "" {
		s.Model = o.model
	}
	s.Model = metadata.ResolveModel(s.Provider.Name, s.Model)
	return s, nil
}

func runInvoke(cmd *cobra.Command, root *rootOptions, mode state.Mode, args []string, opts *invokeOptions) error {
	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is empty")
	}

	prefs, err := root.settings()
	if err != nil {
		return err
	}
	current, err := opts.effective(settings.Load(prefs))
	if err != nil {
		return err
	}
	langs, err := opts.languages(text)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var inv command.Invoker
	if opts.backend != "" {
		url := opts.backend
		if url == "default" {
			url = root.cfg.BridgeURL()
		}
		client, err := bridge.Dial(ctx, url)
		if err != nil {
			return err
		}
		defer client.Close()
		inv = client
	} else {
		svc := inProcessBackend(root, prefs)
		defer svc.Close()
		inv = svc
	}

	store := state.NewStore()
	store.SetLanguage(langs)
	c := coordinator.New(store, inv,
		coordinator.WithSettings(fixedSettings(current)),
		coordinator.WithPolicy(root.cfg.Policy()),
	)
	defer c.Close()

	out, err := c.Run(ctx, mode, text, coordinator.FromCLI)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
