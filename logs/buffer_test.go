package logs

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeEntry(msg string) Entry {
	return New(LevelInfo, msg)
}

func makeTagged(level Level, tag, msg string) Entry {
	return New(level, msg, WithTag(tag))
}

func TestRingBuffer_Write_Read(t *testing.T) {
	b := NewRingBuffer(5)

	b.Write(makeEntry("1"))
	b.Write(makeEntry("2"))
	b.Write(makeEntry("3"))

	entries := b.Read()
	assert.Len(t, entries, 3)
	assert.Equal(t, "1", entries[0].Message)
	assert.Equal(t, "2", entries[1].Message)
	assert.Equal(t, "3", entries[2].Message)
}

func TestRingBuffer_Overflow(t *testing.T) {
	b := NewRingBuffer(3)

	b.Write(makeEntry("1"))
	b.Write(makeEntry("2"))
	b.Write(makeEntry("3"))
	b.Write(makeEntry("4")) // Overwrites "1"

	entries := b.Read()
	assert.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].Message)
	assert.Equal(t, "3", entries[1].Message)
	assert.Equal(t, "4", entries[2].Message)
}

func TestRingBuffer_OverflowKeepsLastK(t *testing.T) {
	b := NewRingBuffer(4)

	// K+M appends must retain exactly the last K in relative order
	for i := 1; i <= 10; i++ {
		b.Write(makeEntry(strconv.Itoa(i)))
	}

	entries := b.Read()
	assert.Len(t, entries, 4)
	assert.Equal(t, "7", entries[0].Message)
	assert.Equal(t, "8", entries[1].Message)
	assert.Equal(t, "9", entries[2].Message)
	assert.Equal(t, "10", entries[3].Message)
}

func TestRingBuffer_ReadLast(t *testing.T) {
	b := NewRingBuffer(10)

	for i := 1; i <= 5; i++ {
		b.Write(makeEntry(strconv.Itoa(i)))
	}

	entries := b.ReadLast(3)
	assert.Len(t, entries, 3)
	assert.Equal(t, "3", entries[0].Message)
	assert.Equal(t, "4", entries[1].Message)
	assert.Equal(t, "5", entries[2].Message)
}

func TestRingBuffer_ReadLast_MoreThanExists(t *testing.T) {
	b := NewRingBuffer(10)

	b.Write(makeEntry("1"))
	b.Write(makeEntry("2"))

	entries := b.ReadLast(10)
	assert.Len(t, entries, 2)
}

func TestRingBuffer_ReadLast_AfterOverflow(t *testing.T) {
	b := NewRingBuffer(3)

	b.Write(makeEntry("1"))
	b.Write(makeEntry("2"))
	b.Write(makeEntry("3"))
	b.Write(makeEntry("4"))
	b.Write(makeEntry("5"))

	entries := b.ReadLast(2)
	assert.Len(t, entries, 2)
	assert.Equal(t, "4", entries[0].Message)
	assert.Equal(t, "5", entries[1].Message)
}

func TestRingBuffer_Empty(t *testing.T) {
	b := NewRingBuffer(5)

	entries := b.Read()
	assert.Nil(t, entries)
	assert.Equal(t, 0, b.Count())
}

func TestRingBuffer_Clear(t *testing.T) {
	b := NewRingBuffer(5)

	b.Write(makeEntry("1"))
	b.Write(makeEntry("2"))
	b.Clear()

	entries := b.Read()
	assert.Nil(t, entries)
	assert.Equal(t, 0, b.Count())
}

func TestRingBuffer_Concurrent(t *testing.T) {
	b := NewRingBuffer(100)

	var wg sync.WaitGroup
	numWriters := 10
	writesPerWriter := 100

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				b.Write(makeEntry("msg"))
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = b.Read()
				_ = b.ReadLast(10)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, b.Count())
}

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	assert.Equal(t, DefaultCapacity, b.Capacity())

	b2 := NewRingBuffer(-5)
	assert.Equal(t, DefaultCapacity, b2.Capacity())
}
