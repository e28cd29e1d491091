package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"

	"github.com/serwidlick/backstage/logs"
)

// Colors
var (
	// Level colors
	debugColor = lipgloss.Color("8")  // Gray
	infoColor  = lipgloss.Color("14") // Cyan
	warnColor  = lipgloss.Color("11") // Yellow
	errColor   = lipgloss.Color("9")  // Red

	// UI colors
	headerBg       = lipgloss.Color("235")
	statusBg       = lipgloss.Color("236")
	helpBg         = lipgloss.Color("234")
	connectedColor = lipgloss.Color("10") // Green
	dimColor       = lipgloss.Color("8")

	// Tag colors (for log lines)
	tagColorList = []lipgloss.Color{
		lipgloss.Color("14"),  // Cyan
		lipgloss.Color("13"),  // Magenta
		lipgloss.Color("12"),  // Blue
		lipgloss.Color("11"),  // Yellow
		lipgloss.Color("10"),  // Green
		lipgloss.Color("208"), // Orange
		lipgloss.Color("207"), // Pink
		lipgloss.Color("159"), // Light blue
		lipgloss.Color("156"), // Light green
	}
)

// Styles
var (
	// Level styles
	debugStyle = lipgloss.NewStyle().
			Foreground(debugColor)

	infoStyle = lipgloss.NewStyle().
			Foreground(infoColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	errStyle = lipgloss.NewStyle().
			Foreground(errColor).
			Bold(true)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1).
			MarginBottom(1)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	// Help overlay style
	helpStyle = lipgloss.NewStyle().
			Background(helpBg).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Connection indicator styles
	connectedStyle = lipgloss.NewStyle().
			Foreground(connectedColor).
			Bold(true)

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(errColor).
				Bold(true)

	// Dim style for timestamps
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	// Tag colors for log lines
	tagColors []lipgloss.Style
)

func init() {
	// Initialize tag color styles
	for _, color := range tagColorList {
		tagColors = append(tagColors, lipgloss.NewStyle().Foreground(color))
	}
}

// levelStyle returns the style for a log level
func levelStyle(level logs.Level) lipgloss.Style {
	switch level {
	case logs.LevelDebug:
		return debugStyle
	case logs.LevelInfo:
		return infoStyle
	case logs.LevelWarn:
		return warnStyle
	case logs.LevelError:
		return errStyle
	default:
		return lipgloss.NewStyle()
	}
}

// tagStyle returns a stable color for a tag. Tags are an open set, so the
// color is picked by hash rather than by position in a known list.
func tagStyle(tag string) lipgloss.Style {
	h := fnv.New32a()
	h.Write([]byte(tag))
	return tagColors[int(h.Sum32())%len(tagColors)]
}
