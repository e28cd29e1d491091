package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/serwidlick/backstage/logs"
)

// nearBottomThreshold is the scroll percentage (0.0-1.0) at which we consider
// the viewport to be "near" the bottom for auto-follow purposes.
const nearBottomThreshold = 0.98

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
		m.updateViewport()

	case EntryMsg:
		m.handleEntry(logs.Entry(msg))

	case StatusMsg:
		m.connected = true
		m.serverPaused = msg.Paused
		m.enabled = msg.Enabled
		m.serverCount = msg.Entries

	case StatusErrMsg:
		m.connected = false

	case StreamClosedMsg:
		m.streamClosed = true
		m.lastAction = "stream closed"
		m.lastActionError = msg.Err

	case TickMsg:
		cmds = append(cmds, fetchStatus(m.client), tickCmd())

	case ActionResultMsg:
		m.lastAction = msg.Action
		m.lastActionError = msg.Err
		cmds = append(cmds, actionClearCmd(), fetchStatus(m.client))

	case ActionClearMsg:
		m.lastAction = ""
		m.lastActionError = nil
	}

	// Handle viewport updates
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	// Handle text input if in filter mode
	if m.mode == ModeFilter {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle mode-specific keys first
	switch m.mode {
	case ModeFilter:
		cmd := m.handleFilterKey(msg)
		return m, cmd
	case ModeHelp:
		m.handleHelpKey(msg)
		return m, nil
	}

	// Normal mode keys
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "p":
		// Toggle live-view pause on the server
		client := m.client
		if m.serverPaused {
			return m, func() tea.Msg {
				return ActionResultMsg{Action: "resumed", Err: client.Resume()}
			}
		}
		return m, func() tea.Msg {
			return ActionResultMsg{Action: "paused", Err: client.Pause()}
		}

	case "c":
		// Clear both the local scrollback and the server store
		m.entries = make([]logs.Entry, 0)
		m.updateViewport()
		client := m.client
		return m, func() tea.Msg {
			return ActionResultMsg{Action: "cleared", Err: client.Clear()}
		}
	}

	// Handle common navigation keys
	if m.handleNavigationKey(msg) {
		return m, nil
	}

	return m, nil
}

// handleFilterKey handles keys in filter mode
func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		m.textInput.Blur()
		m.searchPattern = ""
		m.updateViewport()
		return nil

	case "enter":
		m.searchPattern = m.textInput.Value()
		m.mode = ModeNormal
		m.textInput.Blur()
		m.updateViewport()
		return nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	// Live update filter
	m.searchPattern = m.textInput.Value()
	m.updateViewport()
	return cmd
}

// handleHelpKey handles keys in help mode
func (m *Model) handleHelpKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc", "?", "q", "enter":
		m.mode = ModeNormal
	}
}

// handleNavigationKey handles common navigation keys.
// Returns true if the key was handled.
func (m *Model) handleNavigationKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "?":
		m.mode = ModeHelp
		return true

	case "/":
		m.mode = ModeFilter
		m.textInput.SetValue(m.searchPattern)
		m.textInput.Focus()
		return true

	case "1", "2", "3", "4":
		// Minimum level filter (toggle)
		level := logs.Level(int(msg.String()[0] - '1'))
		if m.levelFiltered && m.minLevel == level {
			m.levelFiltered = false
		} else {
			m.minLevel = level
			m.levelFiltered = true
		}
		m.updateViewport()
		return true

	case "esc":
		// Clear filters
		m.levelFiltered = false
		m.searchPattern = ""
		m.updateViewport()
		return true

	case "up", "k":
		m.viewport.LineUp(1)
		m.followMode = false
		return true

	case "down", "j":
		m.viewport.LineDown(1)
		return true

	case "pgup":
		m.viewport.HalfViewUp()
		m.followMode = false
		return true

	case "pgdown":
		m.viewport.HalfViewDown()
		return true

	case "home", "g":
		m.viewport.GotoTop()
		m.followMode = false
		return true

	case "end", "G":
		m.viewport.GotoBottom()
		m.followMode = true
		return true

	case "F":
		m.followMode = !m.followMode
		if m.followMode {
			m.viewport.GotoBottom()
		}
		return true
	}

	return false
}

// handleWindowSize handles window resize messages
func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 2 // Level panel
	footerHeight := 2 // Status bar
	verticalMargins := headerHeight + footerHeight

	viewportHeight := msg.Height - verticalMargins
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.viewport.YPosition = headerHeight
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
}

// handleEntry handles a new log entry message
func (m *Model) handleEntry(entry logs.Entry) {
	// Check if we're at/near bottom BEFORE adding new content
	wasNearBottom := m.isNearBottom()

	m.entries = append(m.entries, entry)
	// Keep only last entries - create new slice to release memory from old entries
	if len(m.entries) > maxEntries {
		newEntries := make([]logs.Entry, maxEntries)
		copy(newEntries, m.entries[len(m.entries)-maxEntries:])
		m.entries = newEntries
	}
	m.updateViewport()

	// If user was at bottom, re-enable follow mode and stay at bottom
	if wasNearBottom {
		m.followMode = true
		m.viewport.GotoBottom()
	} else if m.followMode {
		m.viewport.GotoBottom()
	}
}

// isNearBottom checks if the viewport is at or near the bottom
func (m *Model) isNearBottom() bool {
	if m.viewport.AtBottom() {
		return true
	}
	return m.viewport.ScrollPercent() >= nearBottomThreshold
}

// updateViewport updates the viewport content
func (m *Model) updateViewport() {
	var lines []string

	for _, entry := range m.filteredEntries() {
		lines = append(lines, formatEntry(entry))
	}

	content := strings.Join(lines, "\n")
	m.viewport.SetContent(content)
}

// filteredEntries returns log entries after applying filters
func (m *Model) filteredEntries() []logs.Entry {
	var result []logs.Entry

	for _, entry := range m.entries {
		// Level filter
		if m.levelFiltered && entry.Level < m.minLevel {
			continue
		}

		// String filter (on message and tag)
		if m.searchPattern != "" {
			matchesMessage := containsIgnoreCase(entry.Message, m.searchPattern)
			matchesTag := containsIgnoreCase(entry.Tag, m.searchPattern)
			if !matchesMessage && !matchesTag {
				continue
			}
		}

		result = append(result, entry)
	}

	return result
}

// containsIgnoreCase performs a case-insensitive substring search
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// truncateError truncates an error message to maxLen characters
func truncateError(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxLen {
		return msg[:maxLen-3] + "..."
	}
	return msg
}
