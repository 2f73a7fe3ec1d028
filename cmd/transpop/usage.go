package main

import "strings"

// usageSections follows the usage lines of every template.
const usageSections = `{{if .HasExample}}Examples:
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

func usageTemplate(lines ...string) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	for _, l := range lines {
		b.WriteString("  " + l + "\n")
	}
	b.WriteString("\n")
	b.WriteString(usageSections)
	return b.String()
}

var (
	rootUsageTemplate = usageTemplate(
		"transpop translate|correct|refine [text...|-] [flags]",
		"transpop serve [flags]",
		"{{.CommandPath}} [command]",
	)
	groupUsageTemplate      = usageTemplate("{{.UseLine}}", "{{.CommandPath}} [command]")
	subcommandUsageTemplate = usageTemplate("{{.UseLine}}")
)

const invokeExample = `  transpop %[1]s "Xin chào các bạn"
  pbpaste | transpop %[1]s --source auto
  transpop %[1]s --backend --provider groq -- "text"`
