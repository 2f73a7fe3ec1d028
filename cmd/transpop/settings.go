package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/settings"
)

// settingKeys are the names accepted by `settings set`.
var settingKeys = []string{"provider", "model", "shortcut-window", "selection-icon", "prompt", "api-key"}

type settingsOptions struct {
	mode string
	yes  bool
}

func newSettingsCmd(root *rootOptions) *cobra.Command {
	opts := settingsOptions{}
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change provider, model, prompt and shortcut settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsShow(cmd, root)
		},
	}
	cmd.SetUsageTemplate(groupUsageTemplate)

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved settings (default if no action given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsShow(cmd, root)
		},
	}
	show.SetUsageTemplate(subcommandUsageTemplate)

	set := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Change one setting (" + strings.Join(settingKeys, ", ") + ")",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(cmd, root, &opts, args)
		},
	}
	set.SetUsageTemplate(subcommandUsageTemplate)
	set.Flags().StringVar(&opts.mode, "mode", "", "Mode the custom prompt applies to (translate, correct or refine)")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Remove every saved setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsReset(cmd, root, &opts)
		},
	}
	reset.SetUsageTemplate(subcommandUsageTemplate)
	reset.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Reset without asking")

	cmd.AddCommand(show, set, reset)
	return cmd
}

func runSettingsShow(cmd *cobra.Command, root *rootOptions) error {
	prefs, err := root.settings()
	if err != nil {
		return err
	}
	s := settings.Load(prefs)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Settings file:    %s\n", prefs.Path())
	fmt.Fprintf(out, "Provider:         %s\n", s.Provider.Name)
	fmt.Fprintf(out, "Model:            %s\n", s.Model)
	fmt.Fprintf(out, "Shortcut window:  %s\n", s.ShortcutWindowType)
	fmt.Fprintf(out, "Selection icon:   %t\n", s.DoubleClickEnabled)
	if s.Prompt != nil {
		fmt.Fprintf(out, "Custom prompt:    %s (%d chars)\n", s.Prompt.Type, len([]rune(s.Prompt.Value)))
	} else {
		fmt.Fprintln(out, "Custom prompt:    none")
	}
	if s.Provider.NeedsKey {
		fmt.Fprintf(out, "API key:          %s\n", keyStatus(s))
	}
	return nil
}

// keyStatus describes where the current provider's key would come from
// without printing it.
func keyStatus(s settings.AppSettings) string {
	name := s.Provider.Name
	if getStatus(name) {
		return "set (source=Keychain)"
	}
	if s.APIKey != "" {
		return maskKey(s.APIKey) + " (source=settings file)"
	}
	if _, ok := getEnvKey(name); ok {
		return "set (source=Environment Variable)"
	}
	return "not set (run `transpop env setup --service " + name + "`)"
}

func runSettingsSet(cmd *cobra.Command, root *rootOptions, opts *settingsOptions, args []string) error {
	key := strings.ToLower(args[0])
	value := ""
	if len(args) > 1 {
		value = args[1]
	}
	if key != "api-key" && key != "prompt" && len(args) < 2 {
		return fmt.Errorf("a value is required for %s", key)
	}

	prefs, err := root.settings()
	if err != nil {
		return err
	}
	svc := inProcessBackend(root, prefs)
	defer svc.Close()
	m := settings.NewManager(prefs, svc)
	current := m.Load()

	switch key {
	case "provider":
		if err := m.SetProvider(value); err != nil {
			return err
		}
	case "model":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("model is empty")
		}
		m.SetModel(strings.TrimSpace(value))
	case "shortcut-window":
		t, err := settings.ParseShortcutWindowType(value)
		if err != nil {
			return err
		}
		m.SetShortcutWindowType(t)
	case "selection-icon":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("selection-icon takes true or false: %w", err)
		}
		m.SetDoubleClickEnabled(v)
	case "prompt":
		if err := setPrompt(m, opts.mode, value); err != nil {
			return err
		}
	case "api-key":
		if !current.Provider.NeedsKey {
			return fmt.Errorf("provider %s does not use an API key", current.Provider.Name)
		}
		if value == "" {
			if !isTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("API key is required (pass it as an argument or run in a terminal)")
			}
			value, err = promptForKey(fmt.Sprintf("%s API Key: ", current.Provider.Label))
			if err != nil {
				return fmt.Errorf("error reading key: %w", err)
			}
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("API key is empty")
		}
		m.SetAPIKey(strings.TrimSpace(value))
	default:
		sorted := append([]string(nil), settingKeys...)
		sort.Strings(sorted)
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(sorted, ", "))
	}

	if !m.Save(context.Background()) {
		return fmt.Errorf("failed to save settings (run with --debug for details)")
	}
	if err := prefs.Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", prefs.Path(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s.\n", key)
	return nil
}

// setPrompt sets the custom prompt for mode; an empty value clears it.
func setPrompt(m *settings.Manager, mode, value string) error {
	if strings.TrimSpace(value) == "" {
		return m.SetPrompt(nil)
	}
	if !command.IsTextCommand(mode) {
		return fmt.Errorf("--mode must be translate, correct or refine")
	}
	return m.SetPrompt(&settings.Prompt{Type: mode, Value: value})
}

func runSettingsReset(cmd *cobra.Command, root *rootOptions, opts *settingsOptions) error {
	prefs, err := root.settings()
	if err != nil {
		return err
	}
	ok, err := confirmer().Confirm(fmt.Sprintf("Remove every setting in %s?", prefs.Path()), opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	if err := prefs.Clear(); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings reset.")
	return nil
}
