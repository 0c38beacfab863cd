// Package fifo implements a circular byte buffer used to stage data that
// crosses an APDU boundary: pkg/command's CalcHashStream stages hash input
// through it and drains it in chunks, one APDU per chunk.
package fifo

import "github.com/openoptiga/optigatrust/internal/crc"

// Fifo is a circular byte buffer with an optional "alternate" read cursor
// used to scan ahead (e.g. to checksum a block before committing to having
// sent it) without disturbing the committed read position.
type Fifo struct {
	buffer     []byte
	writePos   int
	readPos    int
	altReadPos int
}

// New allocates a Fifo with the given capacity in bytes.
func New(size int) *Fifo {
	return &Fifo{buffer: make([]byte, size)}
}

// Reset empties the buffer.
func (f *Fifo) Reset() {
	f.readPos = 0
	f.writePos = 0
}

// Space returns the number of bytes that can still be written.
func (f *Fifo) Space() int {
	left := f.readPos - f.writePos - 1
	if left < 0 {
		left += len(f.buffer)
	}
	return left
}

// Occupied returns the number of bytes available to read.
func (f *Fifo) Occupied() int {
	occupied := f.writePos - f.readPos
	if occupied < 0 {
		occupied += len(f.buffer)
	}
	return occupied
}

// Write copies as much of buffer as fits and returns the number of bytes
// written. If crc is non-nil, every written byte is folded into it.
func (f *Fifo) Write(buffer []byte, crc *crc.CRC16) int {
	written := 0
	for _, b := range buffer {
		next := f.writePos + 1
		if next == f.readPos || (next == len(f.buffer) && f.readPos == 0) {
			break
		}
		f.buffer[f.writePos] = b
		written++
		if crc != nil {
			crc.Single(b)
		}
		if next == len(f.buffer) {
			f.writePos = 0
		} else {
			f.writePos = next
		}
	}
	return written
}

// Read copies up to len(buffer) bytes out of the fifo and returns the count.
func (f *Fifo) Read(buffer []byte) int {
	read := 0
	for i := range buffer {
		if f.readPos == f.writePos {
			break
		}
		buffer[i] = f.buffer[f.readPos]
		read++
		f.readPos++
		if f.readPos == len(f.buffer) {
			f.readPos = 0
		}
	}
	return read
}

// AltBegin positions the alternate read cursor offset bytes ahead of the
// committed read position (clamped to the occupied region) and returns how
// far it actually moved.
func (f *Fifo) AltBegin(offset int) int {
	f.altReadPos = f.readPos
	i := offset
	for ; i > 0; i-- {
		if f.altReadPos == f.writePos {
			break
		}
		f.altReadPos++
		if f.altReadPos == len(f.buffer) {
			f.altReadPos = 0
		}
	}
	return offset - i
}

// AltRead reads from the alternate cursor without advancing the committed
// read position.
func (f *Fifo) AltRead(buffer []byte) int {
	read := 0
	for i := range buffer {
		if f.altReadPos == f.writePos {
			break
		}
		buffer[i] = f.buffer[f.altReadPos]
		read++
		f.altReadPos++
		if f.altReadPos == len(f.buffer) {
			f.altReadPos = 0
		}
	}
	return read
}

// AltFinish commits the alternate cursor as the new read position. If crc is
// non-nil, every byte between the old and new read position is folded into
// it in order.
func (f *Fifo) AltFinish(crc *crc.CRC16) {
	if crc == nil {
		f.readPos = f.altReadPos
		return
	}
	for f.readPos != f.altReadPos {
		crc.Single(f.buffer[f.readPos])
		f.readPos++
		if f.readPos == len(f.buffer) {
			f.readPos = 0
		}
	}
}

// AltOccupied returns how many bytes remain ahead of the alternate cursor.
func (f *Fifo) AltOccupied() int {
	occupied := f.writePos - f.altReadPos
	if occupied < 0 {
		occupied += len(f.buffer)
	}
	return occupied
}
