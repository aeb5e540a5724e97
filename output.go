package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/gocolly/colly/v2"
)

// Color definitions
var (
	// Success messages (green)
	colorSuccess = color.New(color.FgGreen).SprintFunc()

	// Skip/warning messages (yellow)
	colorWarn = color.New(color.FgYellow).SprintFunc()

	// Error messages (red)
	colorError = color.New(color.FgRed).SprintFunc()

	// Info messages (cyan)
	colorInfo = color.New(color.FgCyan).SprintFunc()

	// Dim messages (gray)
	colorDim = color.New(color.Faint).SprintFunc()
)

// Output prefixes
const (
	prefixSaved    = "✓"
	prefixSkipped  = "⚠"
	prefixError    = "✗"
	prefixVisiting = "→"
	prefixInfo     = "ℹ"
)

// logSuccess prints a success message
func logSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", colorSuccess(prefixSaved), msg)
}

// logSkip prints a skip message
func logSkip(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", colorWarn(prefixSkipped), msg)
}

// logWarn prints a warning message (alias for logSkip)
func logWarn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", colorWarn(prefixSkipped), msg)
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", colorError(prefixError), msg)
}

// logVisit prints a URL visit message
func logVisit(url string) {
	fmt.Printf("%s %s\n", colorInfo(prefixVisiting), colorDim(url))
}

// logInfo prints an informational message
func logInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", colorInfo(prefixInfo), msg)
}

// logDim prints a dimmed message
func logDim(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(colorDim(msg))
}

// isAlreadyVisitedError checks if the error is because URL was already visited
func isAlreadyVisitedError(err error) bool {
	return errors.Is(err, colly.ErrAlreadyVisited)
}
