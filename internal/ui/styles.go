package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorCached = 114 // green
	colorFetch  = 179 // amber
	colorError  = 203 // red
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderCached returns s styled for builds served from the cache.
func RenderCached(s string) string { return render(colorCached, s) }

// RenderFetched returns s styled for builds fetched from the server.
func RenderFetched(s string) string { return render(colorFetch, s) }

// RenderError returns s styled as an error.
func RenderError(s string) string { return render(colorError, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
