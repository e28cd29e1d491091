package capture

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serwidlick/backstage/logs"
)

// correlationID pulls the [xxxxxxxx] prefix out of a net entry message
func correlationID(t *testing.T, msg string) string {
	t.Helper()
	start := strings.Index(msg, "[")
	end := strings.Index(msg, "]")
	require.True(t, start == 0 && end > start, "message %q should start with a correlation id", msg)
	return msg[start+1 : end]
}

func TestRoundTripper_RequestAndResponseShareID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &recorder{}
	client := &http.Client{Transport: NewRoundTripper(nil, rec)}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	entries := rec.all()
	require.Len(t, entries, 2)

	req, done := entries[0], entries[1]
	assert.Equal(t, logs.LevelDebug, req.Level)
	assert.Equal(t, NetworkTag, req.Tag)
	assert.Equal(t, logs.LevelInfo, done.Level)
	assert.Contains(t, done.Message, "200")

	assert.Equal(t, correlationID(t, req.Message), correlationID(t, done.Message))
}

func TestRoundTripper_LevelTracksStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	rec := &recorder{}
	client := &http.Client{Transport: NewRoundTripper(nil, rec)}

	for _, path := range []string{"/ok", "/missing", "/broken"} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	var levels []logs.Level
	for _, e := range rec.all() {
		if e.Level != logs.LevelDebug { // skip request entries
			levels = append(levels, e.Level)
		}
	}
	assert.Equal(t, []logs.Level{logs.LevelInfo, logs.LevelWarn, logs.LevelError}, levels)
}

func TestRoundTripper_TransportErrorRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	rec := &recorder{}
	client := &http.Client{Transport: NewRoundTripper(nil, rec)}

	_, err := client.Get(srv.URL)
	require.Error(t, err)

	entries := rec.all()
	require.Len(t, entries, 2)
	assert.Equal(t, logs.LevelError, entries[1].Level)
	assert.Equal(t, correlationID(t, entries[0].Message), correlationID(t, entries[1].Message))
}

func TestRoundTripper_ConcurrentRequestsKeepIDsStraight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &recorder{}
	client := &http.Client{Transport: NewRoundTripper(nil, rec)}

	var wg sync.WaitGroup
	const workers = 20
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(srv.URL)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	entries := rec.all()
	require.Len(t, entries, workers*2)

	// Every ID appears exactly twice: one request entry, one completion
	counts := make(map[string]int)
	for _, e := range entries {
		counts[correlationID(t, e.Message)]++
	}
	assert.Len(t, counts, workers)
	for id, n := range counts {
		assert.Equal(t, 2, n, "id %s", id)
	}
}
