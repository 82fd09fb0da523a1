package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#E0457B")
	accentColor  = lipgloss.Color("#FFA500")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	WarnStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

func keyValue(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(fmt.Sprint(value)))
}

// table renders rows as left-aligned padded columns
func table(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = cellStyle.Inherit(style).Width(widths[i] + 2).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	fmt.Fprintln(w, render(header, KeyStyle))
	for _, row := range rows {
		fmt.Fprintln(w, render(row, lipgloss.NewStyle()))
	}
}
