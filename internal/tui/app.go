package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/serwidlick/backstage/logs"
	"github.com/serwidlick/backstage/web"
)

// StreamClient is the interface for the TUI's API interactions.
// It consolidates the console API operations the live tail needs.
type StreamClient interface {
	GetStatus() (*web.StatusResponse, error)
	StreamEntries(ctx context.Context, fn func(web.EntryResponse)) error
	Pause() error
	Resume() error
	Clear() error
}

// Run starts the live tail TUI connected to a console API
func Run(client StreamClient) error {
	model := NewModel(client)
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())

	// Start a goroutine to forward streamed entries to the TUI
	go forwardEntries(ctx, p, client)

	_, err := p.Run()

	// Cleanup: cancel context to stop the forwarder goroutine
	cancel()

	return err
}

// forwardEntries streams log entries from the API and sends them to the TUI
// program. It exits when the context is cancelled or the stream ends. There
// is no automatic reconnect; the closed state is surfaced in the status bar.
func forwardEntries(ctx context.Context, p *tea.Program, client StreamClient) {
	err := client.StreamEntries(ctx, func(resp web.EntryResponse) {
		p.Send(EntryMsg(toEntry(resp)))
	})
	if ctx.Err() != nil {
		// The TUI is shutting down; nobody is listening anymore
		return
	}
	p.Send(StreamClosedMsg{Err: err})
}

// toEntry converts an API response entry to the domain type the TUI renders
func toEntry(resp web.EntryResponse) logs.Entry {
	ts, err := time.Parse(time.RFC3339Nano, resp.Timestamp)
	if err != nil {
		ts = time.Now() // Fallback for malformed timestamps
	}
	level, err := logs.ParseLevel(resp.Level)
	if err != nil {
		level = logs.LevelInfo
	}
	return logs.Entry{
		Timestamp: ts,
		Level:     level,
		Tag:       resp.Tag,
		Message:   resp.Message,
		Stack:     resp.Stack,
	}
}
