package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/serwidlick/backstage/logs"
	"github.com/serwidlick/backstage/web"
)

// maxEntries is the maximum number of log entries to keep in memory
const maxEntries = 1000

// maxErrorDisplayLen is the maximum length of error messages in the status bar
const maxErrorDisplayLen = 60

// statusPollInterval is how often the TUI refreshes server status
const statusPollInterval = 2 * time.Second

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeFilter
	ModeHelp
)

// Model is the bubbletea model for the live tail view
type Model struct {
	// Dependencies
	client StreamClient

	// State
	entries []logs.Entry

	// UI components
	viewport  viewport.Model
	textInput textinput.Model

	// Mode
	mode Mode

	// Filtering
	minLevel      logs.Level // Minimum level to show (1-4 keys)
	levelFiltered bool       // Whether a minimum level is active
	searchPattern string     // Current substring filter

	// Auto-scroll
	followMode bool // Auto-scroll to bottom on new entries

	// Server state from the last status poll
	connected    bool
	streamClosed bool
	serverPaused bool
	enabled      bool
	serverCount  int

	// Last action result for feedback
	lastAction      string
	lastActionError error

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewModel creates a new TUI model
func NewModel(client StreamClient) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 100
	ti.Width = 40

	return Model{
		client:     client,
		entries:    make([]logs.Entry, 0),
		textInput:  ti,
		mode:       ModeNormal,
		followMode: true,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatus(m.client),
		tickCmd(),
	)
}

// EntryMsg is sent when a new log entry arrives from the stream
type EntryMsg logs.Entry

// StatusMsg is sent when a status poll succeeds
type StatusMsg *web.StatusResponse

// StatusErrMsg is sent when a status poll fails
type StatusErrMsg struct {
	Err error
}

// StreamClosedMsg is sent when the entry stream ends
type StreamClosedMsg struct {
	Err error
}

// TickMsg is sent periodically
type TickMsg time.Time

// ActionResultMsg is sent when a pause/resume/clear request completes
type ActionResultMsg struct {
	Action string
	Err    error
}

// ActionClearMsg is sent to clear the action result after a delay
type ActionClearMsg struct{}

// actionClearDelay is how long to show an action result before clearing
const actionClearDelay = 3 * time.Second

// actionClearCmd returns a command that clears the action result after a delay
func actionClearCmd() tea.Cmd {
	return tea.Tick(actionClearDelay, func(t time.Time) tea.Msg {
		return ActionClearMsg{}
	})
}

// fetchStatus returns a command that polls the console status endpoint
func fetchStatus(client StreamClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		if err != nil {
			return StatusErrMsg{Err: err}
		}
		return StatusMsg(status)
	}
}

// tickCmd returns a command that ticks periodically
func tickCmd() tea.Cmd {
	return tea.Tick(statusPollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
