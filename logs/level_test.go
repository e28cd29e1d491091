package logs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Ordering(t *testing.T) {
	assert.True(t, LevelDebug < LevelInfo)
	assert.True(t, LevelInfo < LevelWarn)
	assert.True(t, LevelWarn < LevelError)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	l, err = ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, LevelError, l)

	l, err = ParseLevel(" warning ")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestLevel_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(LevelWarn)
	require.NoError(t, err)
	assert.Equal(t, `"warn"`, string(data))

	var l Level
	require.NoError(t, json.Unmarshal([]byte(`"error"`), &l))
	assert.Equal(t, LevelError, l)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &l))
}
