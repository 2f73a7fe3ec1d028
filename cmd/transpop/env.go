package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/auth"
)

type envOptions struct {
	service string
}

func newEnvCmd() *cobra.Command {
	opts := envOptions{}
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage API keys in OS Keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, &opts)
		},
	}

	cmd.SetUsageTemplate(groupUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.service, "service", "gemini", "Service to manage ("+strings.Join(auth.Services(), ", ")+")")

	cmd.AddCommand(
		newEnvSetupCmd(&opts),
		newEnvDeleteCmd(&opts),
		newEnvStatusCmd(&opts),
	)
	return cmd
}

func newEnvSetupCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save API key to keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvDeleteCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete key from keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvDelete(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvStatusCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show key status (default if no action given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func (o *envOptions) resolve() (string, error) {
	svc := strings.ToLower(strings.TrimSpace(o.service))
	if !auth.Supports(svc) {
		return "", fmt.Errorf("invalid service %q. Must be one of: %s", o.service, strings.Join(auth.Services(), ", "))
	}
	return svc, nil
}

func runEnvSetup(cmd *cobra.Command, opts *envOptions) error {
	svc, err := opts.resolve()
	if err != nil {
		return err
	}
	if !isTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("env setup needs an interactive terminal")
	}
	promptKey, err := promptForKey(fmt.Sprintf("%s API Key: ", svc))
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	key := strings.TrimSpace(promptKey)
	if key == "" {
		return fmt.Errorf("API key is required for setup")
	}
	if err := saveKey(svc, key); err != nil {
		return fmt.Errorf("error saving key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key to keychain.\n", svc)
	return nil
}

func runEnvDelete(cmd *cobra.Command, opts *envOptions) error {
	svc, err := opts.resolve()
	if err != nil {
		return err
	}
	if err := deleteKey(svc); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s API key from keychain.\n", svc)
	return nil
}

func runEnvStatus(cmd *cobra.Command, opts *envOptions) error {
	svc, err := opts.resolve()
	if err != nil {
		return err
	}

	if getStatus(svc) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Found (source=Keychain)\n", svc)
		return nil
	}
	if envKey, ok := getEnvKey(svc); ok && envKey != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Found (source=Environment Variable; set TRANSPOP_ALLOW_ENV_KEYS=false to ignore it)\n", svc)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Not Found (keychain empty, env not set)\n", svc)
	return nil
}
