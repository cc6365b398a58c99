// Package postings implements the level-0 accumulator: the in-RAM,
// uncompressed buffer of postings indexed since a shard's last commit.
package postings

import (
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/internal/pool"
)

// NilPointer marks the end of a term's posting linked list (offset 0 is
// never a valid record start since the arena reserves its first four bytes
// as a sentinel).
const NilPointer uint32 = 0

// Arena is the shared byte buffer holding every term's level-0 postings as
// a singly-linked list of fixed-prefix records, addressed by 4-byte
// offsets rather than individually allocated nodes.
type Arena struct {
	buf              *pool.ByteBuffer
	growthIncrement  int
	fullThresholdPct int
}

// NewArena creates an arena with the given initial size and growth
// increment. The increment is applied whenever free space drops to
// size/16 (fullThresholdPct=16, the fixed threshold from the level-0
// accumulator's growth rule).
func NewArena(initialSize, growthIncrement int) *Arena {
	buf := pool.NewByteBuffer(initialSize)
	buf.Extend(4) // reserve offset 0 as the NilPointer sentinel

	return &Arena{buf: buf, growthIncrement: growthIncrement, fullThresholdPct: 16}
}

// Len returns the arena's current write offset.
func (a *Arena) Len() int {
	return a.buf.Len()
}

// Reset clears the arena back to its sentinel-only state, preserving its
// allocated capacity for reuse across the next indexing interval.
func (a *Arena) Reset() {
	a.buf.Reset()
	a.buf.Extend(4)
}

// ensureRoom grows the arena by growthIncrement if fewer than 1/16th of
// its capacity remains free.
func (a *Arena) ensureRoom(need int) {
	free := a.buf.Cap() - a.buf.Len()
	if free < a.buf.Cap()/a.fullThresholdPct || free < need {
		a.buf.GrowBy(a.growthIncrement)
	}
}

// Append writes record to the arena and returns the offset it was written
// at, growing the arena first if it is nearly full.
func (a *Arena) Append(record []byte) uint32 {
	a.ensureRoom(len(record))
	offset := uint32(a.buf.Len())
	a.buf.MustWrite(record)

	return offset
}

// Bytes returns the arena's backing buffer. Callers must not retain slices
// into it across a Reset.
func (a *Arena) Bytes() []byte {
	return a.buf.Bytes()
}

// PatchNextPointer overwrites the 4-byte next-pointer field at the start
// of the record at offset, linking it to next. This is how a term's tail
// record is extended when a new posting is appended.
func (a *Arena) PatchNextPointer(offset uint32, next uint32, engine endian.EndianEngine) {
	engine.PutUint32(a.buf.Bytes()[offset:offset+4], next)
}
