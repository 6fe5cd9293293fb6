package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	TimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	NameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	OKStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	WarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// Header prints a styled section title.
func Header(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, HeaderStyle.Render(fmt.Sprintf(format, args...)))
}

// Row prints one time-prefixed line.
func Row(w io.Writer, when, name, detail string) {
	line := TimeStyle.Render(when) + NameStyle.Render(name)
	if detail != "" {
		line += " " + DimStyle.Render(detail)
	}
	fmt.Fprintln(w, line)
}

// Span formats a UTC interval as local wall-clock time.
func Span(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format("15:04") + "-" + end.In(loc).Format("15:04")
}
