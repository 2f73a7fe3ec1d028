package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/cleanup"
	"github.com/oukeidos/transpop/internal/config"
	"github.com/oukeidos/transpop/internal/files"
	"github.com/oukeidos/transpop/internal/kvstore"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/state"
	"github.com/oukeidos/transpop/internal/version"
)

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags and what they resolve to.
type rootOptions struct {
	debug        bool
	logFilePath  string
	settingsPath string

	cfg   *config.Config
	prefs *kvstore.FileStore
}

func newRootCmd() *cobra.Command {
	root := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "transpop",
		Short: "Translate, correct and refine selected text with a language model",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)

	cmd.PersistentFlags().BoolVar(&root.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&root.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.PersistentFlags().StringVar(&root.settingsPath, "settings", "", "Settings file (default ~/.transpop/settings.yaml)")

	cmd.AddCommand(
		newServeCmd(root),
		newInvokeCmd(root, state.Translate),
		newInvokeCmd(root, state.Correct),
		newInvokeCmd(root, state.Refine),
		newTriggerCmd(root),
		newSettingsCmd(root),
		newEnvCmd(),
		newListCmd(),
		newAboutCmd(),
		newVersionCmd(),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.Short = "Generate the autocompletion script for the specified shell"
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}

	return cmd
}

// init loads the environment config and starts logging. It runs before
// every command.
func (r *rootOptions) init() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r.cfg = cfg

	level := logger.ParseLevel(cfg.LogLevel)
	if r.debug {
		level = logger.LevelDebug
	}
	if r.logFilePath == "" {
		logger.Init(level, nil)
		return nil
	}
	if err := files.RejectSymlinkPath(r.logFilePath); err != nil {
		return err
	}
	f, err := os.OpenFile(r.logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	cleanup.Register("log-file", f.Close)
	logger.Init(level, f)
	return nil
}

// settings opens the settings file once per process.
func (r *rootOptions) settings() (*kvstore.FileStore, error) {
	if r.prefs != nil {
		return r.prefs, nil
	}
	path := r.settingsPath
	if path == "" && r.cfg != nil {
		path = r.cfg.SettingsPath
	}
	prefs, err := openSettings(path)
	if err != nil {
		return nil, err
	}
	r.prefs = prefs
	return prefs, nil
}
