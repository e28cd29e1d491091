package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serwidlick/backstage"
	"github.com/serwidlick/backstage/internal/cli"
	"github.com/serwidlick/backstage/web"
)

// startStack builds and starts a console, serves its API over a test
// listener, and returns a client pointed at it. Everything is torn down
// when the test finishes.
func startStack(t *testing.T, opts backstage.Options, webOpts web.Options) (*backstage.Console, *cli.Client, string) {
	t.Helper()

	console, err := backstage.New(opts)
	requireNoError(t, err, "building console")
	requireNoError(t, console.Start(context.Background()), "starting console")

	server := httptest.NewServer(web.NewHandler(console, webOpts))

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := console.Close(ctx); err != nil {
			t.Errorf("closing console: %v", err)
		}
	})

	return console, cli.NewClient(server.URL, webOpts.Token), server.URL
}

// requireNoError fails the test if err is not nil
func requireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// waitFor polls until the condition holds or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// skipShort skips the test if -short flag is provided
func skipShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
