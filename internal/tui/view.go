package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/serwidlick/backstage/logs"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Connecting to backstage..."
	}

	switch m.mode {
	case ModeHelp:
		return m.helpView()
	default:
		return m.mainView()
	}
}

// mainView renders the main TUI layout
func (m Model) mainView() string {
	var sb strings.Builder

	// Level panel at top
	sb.WriteString(m.levelPanel())
	sb.WriteString("\n")

	// Main log viewport
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	// Status bar at bottom
	sb.WriteString(m.statusBar())

	return sb.String()
}

// levelPanel renders the header: connection state, console state, and the
// level keys with the active minimum highlighted
func (m Model) levelPanel() string {
	var items []string

	if m.connected {
		items = append(items, connectedStyle.Render("backstage"))
	} else {
		items = append(items, disconnectedStyle.Render("backstage (disconnected)"))
	}

	if m.enabled {
		items = append(items, "console on")
	} else {
		items = append(items, dimStyle.Render("console off"))
	}
	if m.serverPaused {
		items = append(items, warnStyle.Render("live view paused"))
	}

	for i := logs.LevelDebug; i <= logs.LevelError; i++ {
		name := fmt.Sprintf("%d:%s", int(i)+1, i)
		if m.levelFiltered && m.minLevel == i {
			name = fmt.Sprintf("[%s+]", name)
		}
		items = append(items, levelStyle(i).Render(name))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(items, "  "))
	return headerStyle.Render(header)
}

// formatEntry formats a single log entry for display
func formatEntry(entry logs.Entry) string {
	ts := dimStyle.Render(entry.Timestamp.Format("15:04:05"))
	level := levelStyle(entry.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(entry.Level.String())))
	tag := tagStyle(entry.Tag).Render(fmt.Sprintf("%-10s", entry.Tag))

	return fmt.Sprintf("%s %s %s %s", ts, level, tag, entry.Message)
}

// statusBar renders the bottom status bar
func (m Model) statusBar() string {
	var left, right string

	// Left side: mode/filter info
	switch m.mode {
	case ModeFilter:
		left = "Filter: " + m.textInput.View()
	default:
		switch {
		case m.lastActionError != nil:
			left = m.lastAction + " failed: " + truncateError(m.lastActionError, maxErrorDisplayLen)
		case m.lastAction != "":
			left = m.lastAction
		case m.searchPattern != "":
			left = fmt.Sprintf("Filter: %s (ESC to clear)", m.searchPattern)
		case m.levelFiltered:
			left = fmt.Sprintf("Showing: %s and above (ESC to clear)", m.minLevel)
		default:
			left = "? for help"
		}
	}

	// Right side: follow mode and counts
	followIndicator := "[FOLLOW]"
	if !m.followMode {
		followIndicator = "[SCROLL]"
	}
	right = fmt.Sprintf("%s %d/%d lines (%d on server)",
		followIndicator, len(m.filteredEntries()), len(m.entries), m.serverCount)

	// Calculate widths
	leftWidth := m.width - len(right) - 4
	if leftWidth < 0 {
		leftWidth = 0
	}

	leftPart := statusStyle.Width(leftWidth).Render(left)
	rightPart := statusStyle.Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPart, "  ", rightPart)
}

// helpView renders the help overlay
func (m Model) helpView() string {
	help := `
Backstage - Live Tail

Navigation:
  j/↓        Scroll down
  k/↑        Scroll up (pauses auto-follow)
  g/Home     Go to top (pauses auto-follow)
  G/End      Go to bottom (resumes auto-follow)
  PgUp/PgDn  Page up/down
  F          Toggle auto-follow mode

Filtering:
  1-4        Minimum level (toggle): 1 debug, 2 info, 3 warn, 4 error
  /          Substring filter (message and tag)
  ESC        Clear filters

Console:
  p          Pause/resume the live view on the server
  c          Clear the log store

Other:
  ?          Toggle help
  q/Ctrl+C   Quit (console keeps running)

Press any key to close help...
`

	return helpStyle.Render(help)
}
