package warnings

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var headerColor = lipgloss.Color("11")

// Report prints the end-of-run warnings block.
func Report(w io.Writer, items []Warning, noColor bool) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(w)
	fmt.Fprintln(w, stylize(rule, noColor))
	fmt.Fprintln(w, stylize(strings.Repeat(" ", 16)+"<<<< Warnings >>>>", noColor))
	fmt.Fprintln(w, stylize(rule, noColor))
	fmt.Fprintln(w)

	if len(items) == 0 {
		fmt.Fprintln(w, ">>> No warnings found!")
		return
	}
	for i, it := range items {
		fmt.Fprintln(w, stylize(fmt.Sprintf("#### Warning #%d", i), noColor))
		fmt.Fprintln(w, it.String())
		fmt.Fprintln(w)
	}
}

func stylize(text string, noColor bool) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Foreground(headerColor).Render(text)
}
