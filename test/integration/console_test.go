package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/gate"
	"github.com/serwidlick/backstage/internal/cli"
	"github.com/serwidlick/backstage/persist"
	"github.com/serwidlick/backstage/web"
)

func TestQueryFlow(t *testing.T) {
	skipShort(t)

	console, client, _ := startStack(t, backstage.Options{DefaultEnabled: true}, web.Options{})

	logger := console.Logger()
	logger.Info("service started")
	logger.Tagged("db").Error("query failed")

	logs, err := client.GetLogs(cli.QueryParams{})
	requireNoError(t, err, "querying logs")

	if logs.TotalCount != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.TotalCount)
	}
	// Pages are newest first
	if logs.Entries[0].Message != "query failed" {
		t.Errorf("expected newest entry first, got %q", logs.Entries[0].Message)
	}
	if logs.Entries[0].Tag != "db" {
		t.Errorf("expected tag 'db', got %q", logs.Entries[0].Tag)
	}

	filtered, err := client.GetLogs(cli.QueryParams{MinLevel: "error"})
	requireNoError(t, err, "querying with level filter")
	if filtered.TotalCount != 1 {
		t.Errorf("expected 1 error entry, got %d", filtered.TotalCount)
	}
}

func TestGateUnlockFlow(t *testing.T) {
	skipShort(t)

	console, client, baseURL := startStack(t, backstage.Options{
		Gate: gate.Config{Passcode: "1234"},
	}, web.Options{})

	// Disabled console hides the log surfaces
	if _, err := client.GetLogs(cli.QueryParams{}); err == nil || !strings.Contains(err.Error(), "console_disabled") {
		t.Fatalf("expected console_disabled error, got %v", err)
	}

	// Five taps inside the window reach the unlocking state
	for i := 0; i < 5; i++ {
		resp, err := http.Post(baseURL+"/api/v1/gate/tap", "application/json", nil)
		requireNoError(t, err, "tapping gate")
		resp.Body.Close()
	}

	// The passcode completes the unlock and enables the console
	body, err := json.Marshal(web.PasscodeRequest{Code: "1234"})
	requireNoError(t, err, "encoding passcode")
	resp, err := http.Post(baseURL+"/api/v1/gate/passcode", "application/json", bytes.NewReader(body))
	requireNoError(t, err, "submitting passcode")
	var unlock web.UnlockResponse
	requireNoError(t, json.NewDecoder(resp.Body).Decode(&unlock), "decoding unlock response")
	resp.Body.Close()

	if !unlock.Unlocked {
		t.Fatalf("expected gate to unlock, got state %q", unlock.Gate.State)
	}

	waitFor(t, time.Second, console.Enabled, "console enabled after unlock")

	if _, err := client.GetLogs(cli.QueryParams{}); err != nil {
		t.Fatalf("expected logs to be reachable after unlock: %v", err)
	}
}

func TestStreamDelivery(t *testing.T) {
	skipShort(t)

	console, client, _ := startStack(t, backstage.Options{DefaultEnabled: true}, web.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan web.EntryResponse, 16)
	streamDone := make(chan error, 1)
	go func() {
		streamDone <- client.StreamLogs(ctx, cli.QueryParams{MinLevel: "warn"}, func(e web.EntryResponse) {
			received <- e
		})
	}()

	waitFor(t, 2*time.Second, func() bool {
		return console.Status().Subscribers > 0
	}, "stream subscriber registered")

	logger := console.Logger()
	logger.Debug("below the stream filter")
	logger.Warn("pool saturated")

	select {
	case entry := <-received:
		if entry.Message != "pool saturated" {
			t.Fatalf("expected the warn entry, got %q", entry.Message)
		}
		if entry.Level != "warn" {
			t.Errorf("expected level warn, got %q", entry.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no entry arrived on the stream")
	}

	cancel()
	select {
	case err := <-streamDone:
		requireNoError(t, err, "stream shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
}

func TestPauseSuspendsLiveViewOnly(t *testing.T) {
	skipShort(t)

	console, client, _ := startStack(t, backstage.Options{DefaultEnabled: true}, web.Options{})

	requireNoError(t, client.Pause(), "pausing")

	status, err := client.GetStatus()
	requireNoError(t, err, "reading status")
	if !status.Paused {
		t.Fatal("expected paused status")
	}

	// The store keeps recording while the live view is suspended
	console.Logger().Info("recorded while paused")

	logs, err := client.GetLogs(cli.QueryParams{})
	requireNoError(t, err, "querying logs")
	if logs.TotalCount != 1 {
		t.Errorf("expected entry recorded during pause, got %d entries", logs.TotalCount)
	}

	requireNoError(t, client.Resume(), "resuming")
	status, err = client.GetStatus()
	requireNoError(t, err, "reading status after resume")
	if status.Paused {
		t.Fatal("expected resumed status")
	}
}

func TestClearEmptiesStore(t *testing.T) {
	skipShort(t)

	console, client, _ := startStack(t, backstage.Options{DefaultEnabled: true}, web.Options{})

	console.Logger().Info("one")
	console.Logger().Info("two")

	requireNoError(t, client.Clear(), "clearing store")

	logs, err := client.GetLogs(cli.QueryParams{})
	requireNoError(t, err, "querying logs")
	if logs.TotalCount != 0 {
		t.Errorf("expected empty store, got %d entries", logs.TotalCount)
	}
}

func TestEnabledFlagSurvivesRestart(t *testing.T) {
	skipShort(t)

	flag := &persist.MemoryStore{}
	console, client, _ := startStack(t, backstage.Options{
		DefaultEnabled: true,
		Flag:           flag,
	}, web.Options{})

	requireNoError(t, client.SetEnabled(false), "disabling console")
	if console.Enabled() {
		t.Fatal("expected console disabled")
	}

	// A fresh console sharing the flag store keeps the stored decision
	// even though its default says enabled
	restarted, err := backstage.New(backstage.Options{
		DefaultEnabled: true,
		Flag:           flag,
	})
	requireNoError(t, err, "building second console")
	requireNoError(t, restarted.Start(context.Background()), "starting second console")
	defer restarted.Close(context.Background())

	if restarted.Enabled() {
		t.Fatal("expected persisted flag to override the default")
	}
}

func TestAuthTokenRequired(t *testing.T) {
	skipShort(t)

	_, client, baseURL := startStack(t, backstage.Options{DefaultEnabled: true}, web.Options{Token: "hush"})

	if _, err := client.GetStatus(); err != nil {
		t.Fatalf("expected authorized client to work: %v", err)
	}

	bare := cli.NewClient(baseURL, "")
	if _, err := bare.GetStatus(); err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
