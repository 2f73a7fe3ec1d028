package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/transpop/internal/language"
	"github.com/oukeidos/transpop/internal/metadata"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported languages, providers and models",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Supported Languages:")
			for _, l := range language.Supported() {
				fmt.Fprintf(out, "  %-35s [%s]\n", l.Label, l.Code)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Providers:")
			for _, p := range metadata.Providers {
				key := ""
				if p.NeedsKey {
					key = " (API key)"
				}
				fmt.Fprintf(out, "  %-10s default %-24s%s\n", p.Name, p.DefaultModel, key)
				fmt.Fprintf(out, "             models: %s\n", strings.Join(p.Models, ", "))
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
