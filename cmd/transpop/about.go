package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "transpop: translate, correct and refine selected text with a language model")
			fmt.Fprintln(out, "https://github.com/oukeidos/transpop")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cmd.Root().Version)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
