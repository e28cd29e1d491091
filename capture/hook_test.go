package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serwidlick/backstage/logs"
)

func TestChainErrorHook_RecordsAndChains(t *testing.T) {
	rec := &recorder{}
	var prevErr error
	prev := func(err error, stack []byte) { prevErr = err }

	hook := ChainErrorHook(prev, rec)
	boom := errors.New("boom")
	hook(boom, []byte("stack here"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, logs.LevelError, entries[0].Level)
	assert.Equal(t, FrameworkTag, entries[0].Tag)
	assert.Equal(t, "boom", entries[0].Message)
	assert.Equal(t, "stack here", entries[0].Stack)

	// The previous hook is never swallowed
	assert.Equal(t, boom, prevErr)
}

func TestChainErrorHook_NilPrevIsFine(t *testing.T) {
	rec := &recorder{}
	hook := ChainErrorHook(nil, rec)

	hook(errors.New("solo"), nil)
	assert.Len(t, rec.all(), 1)
}

func TestChainErrorHook_NilErrorStillChains(t *testing.T) {
	rec := &recorder{}
	called := false
	hook := ChainErrorHook(func(err error, stack []byte) { called = true }, rec)

	hook(nil, nil)
	assert.Empty(t, rec.all())
	assert.True(t, called)
}

func TestGuard_PanicBecomesEntryAndError(t *testing.T) {
	rec := &recorder{}

	err := Guard(rec, func() error {
		panic("kaboom")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, logs.LevelError, entries[0].Level)
	assert.Equal(t, AsyncTag, entries[0].Tag)
	assert.Equal(t, "kaboom", entries[0].Message)
	assert.NotEmpty(t, entries[0].Stack)
}

func TestGuard_PassesResultsThrough(t *testing.T) {
	rec := &recorder{}

	assert.NoError(t, Guard(rec, func() error { return nil }))

	sentinel := errors.New("ordinary failure")
	err := Guard(rec, func() error { return sentinel })
	assert.Equal(t, sentinel, err)

	// Returned errors are normal control flow, not captures
	assert.Empty(t, rec.all())
}

func TestGo_RecoversBackgroundPanic(t *testing.T) {
	rec := &recorder{}
	done := make(chan struct{})

	Go(rec, func() error {
		defer close(done)
		panic("background")
	})

	<-done
	// The deferred close runs before Guard's recover finishes its
	// append, so poll briefly
	assert.Eventually(t, func() bool {
		return len(rec.all()) == 1
	}, time.Second, 10*time.Millisecond)
}
