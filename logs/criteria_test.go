package logs

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levelPtr(l Level) *Level {
	return &l
}

func TestQuery_EmptyStore(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	entries, total := s.Query(Criteria{})
	assert.Empty(t, entries)
	assert.Equal(t, 0, total)

	entries, total = s.Query(Criteria{Tag: "net", Limit: 5})
	assert.Empty(t, entries)
	assert.Equal(t, 0, total)
}

func TestQuery_MinLevelFloor(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeTagged(LevelDebug, "app", "a"))
	s.Append(makeTagged(LevelError, "net", "b"))
	s.Append(makeTagged(LevelWarn, "net", "c"))

	entries, total := s.Query(Criteria{MinLevel: levelPtr(LevelWarn)})
	require.Equal(t, 2, total)
	assert.Equal(t, "b", entries[0].Message)
	assert.Equal(t, "c", entries[1].Message)
}

func TestQuery_NilMinLevelMeansNoFloor(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeTagged(LevelDebug, "app", "a"))
	s.Append(makeTagged(LevelError, "app", "b"))

	_, total := s.Query(Criteria{})
	assert.Equal(t, 2, total)
}

func TestQuery_FilterConjunction(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeTagged(LevelError, "app", "level ok, tag wrong"))
	s.Append(makeTagged(LevelDebug, "net", "tag ok, level low"))
	s.Append(makeTagged(LevelWarn, "net", "both ok"))
	s.Append(makeTagged(LevelError, "net", "both ok too"))

	entries, total := s.Query(Criteria{MinLevel: levelPtr(LevelWarn), Tag: "net"})
	require.Equal(t, 2, total)
	for _, e := range entries {
		assert.True(t, e.Level >= LevelWarn)
		assert.Equal(t, "net", e.Tag)
	}
}

func TestQuery_TagExactMatch(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeTagged(LevelInfo, "net", "a"))
	s.Append(makeTagged(LevelInfo, "network", "b"))

	entries, total := s.Query(Criteria{Tag: "net"})
	require.Equal(t, 1, total)
	assert.Equal(t, "a", entries[0].Message)
}

func TestQuery_TagFold(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeTagged(LevelInfo, "Net", "a"))

	_, total := s.Query(Criteria{Tag: "net"})
	assert.Equal(t, 0, total)

	_, total = s.Query(Criteria{Tag: "net", TagFold: true})
	assert.Equal(t, 1, total)
}

func TestQuery_TextSubstring(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeEntry("connection refused"))
	s.Append(makeEntry("listening on :8080"))

	entries, total := s.Query(Criteria{Text: "refused"})
	require.Equal(t, 1, total)
	assert.Equal(t, "connection refused", entries[0].Message)
}

func TestQuery_TextCaseInsensitiveByDefault(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeEntry("Connection Refused"))

	_, total := s.Query(Criteria{Text: "connection"})
	assert.Equal(t, 1, total)

	_, total = s.Query(Criteria{Text: "connection", CaseSensitive: true})
	assert.Equal(t, 0, total)
}

func TestQuery_TextMatchesTagAndStack(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(New(LevelError, "boom", WithTag("worker"), WithStack("goroutine 12 [running]")))

	_, total := s.Query(Criteria{Text: "worker"})
	assert.Equal(t, 1, total)

	_, total = s.Query(Criteria{Text: "goroutine 12"})
	assert.Equal(t, 1, total)
}

func TestQuery_Regex(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeEntry("request took 12ms"))
	s.Append(makeEntry("request took 340ms"))

	_, total := s.Query(Criteria{Text: `took \d{3}ms`, Regex: true})
	assert.Equal(t, 1, total)
}

func TestQuery_InvalidRegexFallsBackToSubstring(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeEntry("call (abc failed"))
	s.Append(makeEntry("call abc ok"))

	// "(abc" does not compile; the query must not error and must
	// behave exactly like a substring search for the literal text
	reEntries, reTotal := s.Query(Criteria{Text: "(abc", Regex: true})
	subEntries, subTotal := s.Query(Criteria{Text: "(abc"})

	assert.Equal(t, subTotal, reTotal)
	assert.Equal(t, subEntries, reEntries)
	require.Equal(t, 1, reTotal)
	assert.Equal(t, "call (abc failed", reEntries[0].Message)
}

func TestQuery_OverlongPatternMatchedAsSubstring(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	long := make([]byte, MaxTextLength+1)
	for i := range long {
		long[i] = 'a'
	}
	s.Append(makeEntry(string(long)))

	_, total := s.Query(Criteria{Text: string(long), Regex: true})
	assert.Equal(t, 1, total)
}

func TestQuery_TimeRange(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Append(New(LevelInfo, "old", WithTime(base.Add(-time.Hour))))
	s.Append(New(LevelInfo, "mid", WithTime(base)))
	s.Append(New(LevelInfo, "new", WithTime(base.Add(time.Hour))))

	entries, total := s.Query(Criteria{Since: base})
	require.Equal(t, 2, total)
	assert.Equal(t, "mid", entries[0].Message)

	entries, total = s.Query(Criteria{Until: base})
	require.Equal(t, 2, total)
	assert.Equal(t, "old", entries[0].Message)

	entries, total = s.Query(Criteria{Since: base, Until: base})
	require.Equal(t, 1, total)
	assert.Equal(t, "mid", entries[0].Message)
}

func TestQuery_InsertionOrderWithoutPagination(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeTagged(LevelDebug, "app", "a"))
	s.Append(makeTagged(LevelError, "net", "b"))
	s.Append(makeTagged(LevelWarn, "net", "c"))

	entries, total := s.Query(Criteria{MinLevel: levelPtr(LevelWarn)})
	require.Equal(t, 2, total)
	assert.Equal(t, "b", entries[0].Message)
	assert.Equal(t, "c", entries[1].Message)
}

func TestQuery_PaginationNewestFirst(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 20})

	for i := 1; i <= 10; i++ {
		s.Append(makeEntry(strconv.Itoa(i)))
	}

	entries, total := s.Query(Criteria{Limit: 3})
	require.Equal(t, 10, total)
	assert.Equal(t, "10", entries[0].Message)
	assert.Equal(t, "9", entries[1].Message)
	assert.Equal(t, "8", entries[2].Message)

	entries, total = s.Query(Criteria{Limit: 3, Offset: 3})
	require.Equal(t, 10, total)
	assert.Equal(t, "7", entries[0].Message)
	assert.Equal(t, "6", entries[1].Message)
	assert.Equal(t, "5", entries[2].Message)
}

func TestQuery_TotalCountIsUnpaginated(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 20})

	for i := 0; i < 10; i++ {
		s.Append(makeTagged(LevelWarn, "net", "w"))
		s.Append(makeTagged(LevelInfo, "app", "i"))
	}

	entries, total := s.Query(Criteria{Tag: "net", Limit: 4})
	assert.Len(t, entries, 4)
	assert.Equal(t, 10, total)
}

func TestQuery_OffsetBeyondResults(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeEntry("only"))

	entries, total := s.Query(Criteria{Offset: 5, Limit: 5})
	assert.Empty(t, entries)
	assert.Equal(t, 1, total)
}

func TestQuery_NegativePaginationTreatedAsZero(t *testing.T) {
	s := NewStore(StoreOptions{Capacity: 10})

	s.Append(makeEntry("a"))
	s.Append(makeEntry("b"))

	entries, total := s.Query(Criteria{Limit: -1, Offset: -3})
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, total)
}

func TestFilterEntries_EmptyCriteriaCopies(t *testing.T) {
	in := []Entry{makeEntry("a"), makeEntry("b")}

	out := FilterEntries(in, Criteria{})
	require.Len(t, out, 2)

	out[0].Message = "mutated"
	assert.Equal(t, "a", in[0].Message)
}
