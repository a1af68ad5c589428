// Package ui renders sync results for the terminal: status, diffs, errors
// and a spinner around long-running remote operations.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Truncate truncates s to maxLen runes, ending with an ellipsis.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// PadRight pads s with spaces to the given display width.
func PadRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// RenderKeyValue renders a "key value" pair with styles.
func RenderKeyValue(styles Styles, key, value string) string {
	return styles.KeyBind.Render(PadRight(key, 10)) + " " + styles.KeyDesc.Render(value)
}

// JoinNonEmpty joins the non-empty items with sep.
func JoinNonEmpty(sep string, items ...string) string {
	var filtered []string
	for _, item := range items {
		if item != "" {
			filtered = append(filtered, item)
		}
	}
	return strings.Join(filtered, sep)
}
