package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PrettyLogger prints styled, human-facing status lines. It is for command
// output, not diagnostics.
type PrettyLogger struct {
	writer io.Writer
	styles PrettyStyles
}

type PrettyStyles struct {
	Success lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
}

func DefaultPrettyStyles() PrettyStyles {
	return PrettyStyles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true), // Green
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),            // Blue
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),            // Yellow
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),  // Red
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),             // Gray
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true), // Cyan
	}
}

func NewPrettyLogger() *PrettyLogger {
	return &PrettyLogger{
		writer: os.Stdout,
		styles: DefaultPrettyStyles(),
	}
}

func (p *PrettyLogger) WithWriter(w io.Writer) *PrettyLogger {
	p.writer = w
	return p
}

func (p *PrettyLogger) Success(message string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Success.Render("✓"),
		p.styles.Success.Render(message))
}

func (p *PrettyLogger) InfoPretty(message string) {
	fmt.Fprintf(p.writer, "%s\n", p.styles.Info.Render(message))
}

func (p *PrettyLogger) WarnPretty(message string) {
	fmt.Fprintf(p.writer, "%s %s\n",
		p.styles.Warning.Render("⚠"),
		p.styles.Warning.Render(message))
}

func (p *PrettyLogger) ErrorPretty(message string, err error) {
	fmt.Fprintf(p.writer, "%s %s",
		p.styles.Error.Render("✗"),
		p.styles.Error.Render(message))
	if err != nil {
		fmt.Fprintf(p.writer, ": %s", p.styles.Error.Render(err.Error()))
	}
	fmt.Fprintln(p.writer)
}

// Field prints an aligned key-value pair.
func (p *PrettyLogger) Field(key string, value interface{}) {
	fmt.Fprintf(p.writer, "  %s %s\n",
		p.styles.Key.Render(fmt.Sprintf("%-10s", key+":")),
		p.styles.Value.Render(fmt.Sprint(value)))
}

func (p *PrettyLogger) Divider() {
	fmt.Fprintln(p.writer, p.styles.Key.Render(strings.Repeat("─", 40)))
}
