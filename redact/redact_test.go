package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serwidlick/backstage/logs"
)

func TestNewEngine_InvalidPatternFailsFast(t *testing.T) {
	_, err := NewEngine(Options{Rules: []Rule{{Name: "bad", Pattern: "(unclosed"}}})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = NewEngine(Options{Rules: []Rule{{Name: "empty"}}})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestNewEngine_HashModeRequiresSalt(t *testing.T) {
	_, err := NewEngine(Options{Mode: ModeHash})
	assert.ErrorIs(t, err, ErrMissingSalt)

	_, err = NewEngine(Options{Mode: ModeHash, Salt: "pepper"})
	assert.NoError(t, err)
}

func TestNewEngine_UnknownMode(t *testing.T) {
	_, err := NewEngine(Options{Mode: "rot13"})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestApply_MaskReplacesMatches(t *testing.T) {
	e, err := NewEngine(Options{Rules: []Rule{{Name: "email", Pattern: `[\w.+-]+@[\w-]+\.\w+`}}})
	require.NoError(t, err)

	in := logs.New(logs.LevelInfo, "user bob@example.com logged in")
	out := e.Apply(in)

	assert.Equal(t, "user [REDACTED:email] logged in", out.Message)
	// The input is untouched; redaction produces a new entry
	assert.Equal(t, "user bob@example.com logged in", in.Message)
}

func TestApply_RedactsStackToo(t *testing.T) {
	e, err := NewEngine(Options{Rules: []Rule{{Name: "token", Pattern: `tok_\w+`}}})
	require.NoError(t, err)

	in := logs.New(logs.LevelError, "auth failed for tok_abc123",
		logs.WithStack("handler.go:42 token=tok_abc123"))
	out := e.Apply(in)

	assert.NotContains(t, out.Message, "tok_abc123")
	assert.NotContains(t, out.Stack, "tok_abc123")
	assert.Contains(t, in.Stack, "tok_abc123")
}

func TestApply_HashIsDeterministicAndSalted(t *testing.T) {
	e1, err := NewEngine(Options{Mode: ModeHash, Salt: "s1", Rules: []Rule{{Name: "num", Pattern: `\d{4}`}}})
	require.NoError(t, err)
	e2, err := NewEngine(Options{Mode: ModeHash, Salt: "s2", Rules: []Rule{{Name: "num", Pattern: `\d{4}`}}})
	require.NoError(t, err)

	a := e1.Apply(logs.New(logs.LevelInfo, "card 1234"))
	b := e1.Apply(logs.New(logs.LevelInfo, "card 1234"))
	c := e2.Apply(logs.New(logs.LevelInfo, "card 1234"))

	assert.Equal(t, a.Message, b.Message)
	assert.NotEqual(t, a.Message, c.Message)
	assert.True(t, strings.HasPrefix(a.Message, "card [SHA256:"))
	assert.NotContains(t, a.Message, "1234")
}

func TestApply_NoRulesIsIdentity(t *testing.T) {
	e, err := NewEngine(Options{})
	require.NoError(t, err)

	in := logs.New(logs.LevelInfo, "password=hunter2")
	out := e.Apply(in)
	assert.Equal(t, in, out)
}

func TestDefaultRules(t *testing.T) {
	e, err := NewEngine(Options{Rules: DefaultRules()})
	require.NoError(t, err)

	out := e.Apply(logs.New(logs.LevelInfo, `login with password="hunter2" ok`))
	assert.NotContains(t, out.Message, "hunter2")

	out = e.Apply(logs.New(logs.LevelDebug, "Authorization: Bearer abc.def.ghi"))
	assert.NotContains(t, out.Message, "abc.def.ghi")

	out = e.Apply(logs.New(logs.LevelDebug, "api_key=sk_live_xyz"))
	assert.NotContains(t, out.Message, "sk_live_xyz")
}
