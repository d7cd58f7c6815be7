// Package ui renders human-readable command output.
package ui

import "fmt"

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolArrow   = "→"
)

// Successf returns a formatted success line.
func Successf(format string, args ...interface{}) string {
	return SymbolSuccess + " " + fmt.Sprintf(format, args...)
}

// Errorf returns a formatted error line.
func Errorf(format string, args ...interface{}) string {
	return SymbolError + " " + fmt.Sprintf(format, args...)
}

// Warningf returns a formatted warning line.
func Warningf(format string, args ...interface{}) string {
	return SymbolWarning + " " + fmt.Sprintf(format, args...)
}

// Infof returns a formatted info line.
func Infof(format string, args ...interface{}) string {
	return SymbolInfo + " " + fmt.Sprintf(format, args...)
}

// Header returns a styled section header.
func Header(msg string) string {
	return Bold.Render(msg)
}

// Key returns an accent-styled record key, file path or catalog name.
func Key(s string) string {
	return Accent.Render(s)
}

// Hint returns muted hint text.
func Hint(msg string) string {
	return Muted.Render(msg)
}

// Count formats n with the singular or plural noun: "1 place", "3 places".
func Count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
