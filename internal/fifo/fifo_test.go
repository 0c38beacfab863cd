package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openoptiga/optigatrust/internal/crc"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	f := New(8)
	n := f.Write([]byte("hello"), nil)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, f.Occupied())

	buf := make([]byte, 5)
	read := f.Read(buf)
	assert.Equal(t, 5, read)
	assert.Equal(t, "hello", string(buf))
	assert.Equal(t, 0, f.Occupied())
}

func TestWriteStopsAtCapacity(t *testing.T) {
	f := New(4) // one slot always reserved to distinguish full from empty
	n := f.Write([]byte("abcdef"), nil)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, f.Space())
}

func TestWriteFoldsIntoCRC(t *testing.T) {
	f := New(8)
	var sum crc.CRC16
	f.Write([]byte{10}, &sum)
	assert.Equal(t, crc.Of([]byte{10}), sum)
}

func TestWrapsAroundBuffer(t *testing.T) {
	f := New(4)
	f.Write([]byte{1, 2, 3}, nil)
	buf := make([]byte, 2)
	f.Read(buf)
	f.Write([]byte{4, 5}, nil)

	out := make([]byte, 3)
	n := f.Read(out)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{3, 4, 5}, out)
}

func TestAltReadDoesNotAdvanceCommittedPosition(t *testing.T) {
	f := New(8)
	f.Write([]byte("abcdef"), nil)

	moved := f.AltBegin(0)
	assert.Equal(t, 0, moved)

	peek := make([]byte, 3)
	n := f.AltRead(peek)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(peek))
	assert.Equal(t, 6, f.Occupied()) // committed read position untouched
}

func TestAltFinishCommitsAndFoldsCRC(t *testing.T) {
	f := New(8)
	f.Write([]byte("abcdef"), nil)
	f.AltBegin(0)

	peek := make([]byte, 3)
	f.AltRead(peek)

	var sum crc.CRC16
	f.AltFinish(&sum)
	assert.Equal(t, crc.Of([]byte("abc")), sum)
	assert.Equal(t, 3, f.Occupied())

	rest := make([]byte, 3)
	n := f.Read(rest)
	assert.Equal(t, 3, n)
	assert.Equal(t, "def", string(rest))
}

func TestAltOccupiedTracksBytesAheadOfCursor(t *testing.T) {
	f := New(8)
	f.Write([]byte("abcdef"), nil)
	f.AltBegin(2)
	assert.Equal(t, 4, f.AltOccupied())
}

func TestResetEmptiesBuffer(t *testing.T) {
	f := New(8)
	f.Write([]byte("abc"), nil)
	f.Reset()
	assert.Equal(t, 0, f.Occupied())
	assert.Equal(t, 7, f.Space())
}
