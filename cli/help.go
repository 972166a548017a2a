package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const maxWidth = 72
const minWidth = 40

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	sectionStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("208"))
	commandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	flagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	italicStyle  = lipgloss.NewStyle().Italic(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// getTerminalWidth returns the terminal width capped at maxWidth.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minWidth {
		return maxWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps text to the specified width, preserving existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}

	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}

		var line string
		for _, word := range strings.Fields(paragraph) {
			if line == "" {
				line = word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// SetStyledHelp applies the styled help output to a command.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// ApplyStyledHelpRecursive applies styled help and usage to a command and
// all its subcommands. Call it after every subcommand has been added.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(styledUsageFunc)
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// styledUsageFunc prints nothing; errors are reported by PrintError.
func styledUsageFunc(cmd *cobra.Command) error {
	return nil
}

// PrintError prints a styled error message to stderr with help hint.
func PrintError(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errorStyle.Render("Error:"), err.Error())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", mutedStyle.Render(fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())))
}

// parseDescription splits a command's long description into main text and examples.
func parseDescription(long string) (description string, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

func renderExamples(w io.Writer, examples string) {
	for _, line := range strings.Split(examples, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(trimmed, "#"):
			fmt.Fprintln(w, " "+mutedStyle.Render(trimmed))
		default:
			fmt.Fprintln(w, "   "+styleCommandLine(trimmed))
		}
	}
}

// styleCommandLine highlights the flags of an example command.
func styleCommandLine(line string) string {
	parts := strings.Fields(line)
	for i, part := range parts {
		if strings.HasPrefix(part, "-") {
			parts[i] = flagStyle.Render(part)
		}
	}
	return strings.Join(parts, " ")
}

func styledHelpFunc(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()
	width := getTerminalWidth() - 2

	fmt.Fprintln(w, " "+titleStyle.Render(strings.ToUpper(cmd.CommandPath())))

	var description, examples string
	if cmd.Long != "" {
		description, examples = parseDescription(cmd.Long)
	} else {
		description = cmd.Short
	}

	if cmd.Short != "" {
		for _, line := range strings.Split(wrapText(cmd.Short, width), "\n") {
			fmt.Fprintln(w, " "+italicStyle.Render(line))
		}
	}
	if description != "" && description != cmd.Short {
		fmt.Fprintln(w)
		for _, line := range strings.Split(wrapText(description, width), "\n") {
			fmt.Fprintln(w, " "+line)
		}
	}

	if cmd.Runnable() || cmd.HasSubCommands() {
		fmt.Fprintln(w, "\n "+sectionStyle.Render("USAGE"))
		if cmd.Runnable() {
			fmt.Fprintf(w, " %s\n", cmd.UseLine())
		}
		if cmd.HasSubCommands() {
			fmt.Fprintf(w, " %s [command]\n", cmd.CommandPath())
		}
	}

	if cmd.HasAvailableSubCommands() {
		maxLen := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() && len(sub.Name()) > maxLen {
				maxLen = len(sub.Name())
			}
		}

		fmt.Fprintln(w, "\n "+sectionStyle.Render("COMMANDS"))
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				padding := strings.Repeat(" ", maxLen-len(sub.Name()))
				fmt.Fprintf(w, " %s%s  %s\n", commandStyle.Render(sub.Name()), padding, sub.Short)
			}
		}
	}

	var visibleFlags []*pflag.Flag
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			visibleFlags = append(visibleFlags, f)
		}
	})
	if len(visibleFlags) > 0 {
		fmt.Fprintln(w, "\n "+sectionStyle.Render("FLAGS"))
		maxFlagLen := 0
		for _, f := range visibleFlags {
			if n := len(formatFlagName(f)); n > maxFlagLen {
				maxFlagLen = n
			}
		}
		for _, f := range visibleFlags {
			flagStr := formatFlagName(f)
			padding := strings.Repeat(" ", maxFlagLen-len(flagStr))
			usage := f.Usage
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0s" {
				usage += mutedStyle.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
			}
			fmt.Fprintf(w, " %s%s  %s\n", flagStyle.Render(flagStr), padding, usage)
		}
	}

	exampleText := cmd.Example
	if exampleText == "" {
		exampleText = examples
	}
	if exampleText != "" {
		fmt.Fprintln(w, "\n "+sectionStyle.Render("EXAMPLES"))
		renderExamples(w, exampleText)
	}

	if cmd.HasSubCommands() {
		fmt.Fprintf(w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

// formatFlagName returns a formatted flag string like "-f, --flag" or "--flag".
func formatFlagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return fmt.Sprintf("    --%s", f.Name)
}
