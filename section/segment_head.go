package section

import (
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
)

// SegmentHead is one 8-byte slot in a level frame's segment-head table. The
// engine builds every segment body in memory first and writes the S filled
// slots right after the level header, ahead of the bodies, so a reader can
// locate segment k's body without scanning the ones before it.
type SegmentHead struct {
	// SegmentBlockLength is the byte length of the segment's body, not
	// including its key-head rows.
	SegmentBlockLength uint32
	// SegmentKeyCount is the number of key-head rows at the start of the
	// segment body.
	SegmentKeyCount uint32
}

// Bytes serializes the segment head into SegmentHeadSize bytes.
func (s SegmentHead) Bytes(engine endian.EndianEngine) []byte {
	buf := make([]byte, SegmentHeadSize)
	engine.PutUint32(buf[0:4], s.SegmentBlockLength)
	engine.PutUint32(buf[4:8], s.SegmentKeyCount)

	return buf
}

// ParseSegmentHead reads a SegmentHead from data.
func ParseSegmentHead(data []byte, engine endian.EndianEngine) (SegmentHead, error) {
	if len(data) < SegmentHeadSize {
		return SegmentHead{}, errs.ErrInvalidHeaderSize
	}

	return SegmentHead{
		SegmentBlockLength: engine.Uint32(data[0:4]),
		SegmentKeyCount:    engine.Uint32(data[4:8]),
	}, nil
}

// ParseSegmentHeads reads count consecutive SegmentHead slots from data.
func ParseSegmentHeads(data []byte, count int, engine endian.EndianEngine) ([]SegmentHead, error) {
	if len(data) < count*SegmentHeadSize {
		return nil, errs.ErrInvalidHeaderSize
	}

	heads := make([]SegmentHead, count)
	for i := 0; i < count; i++ {
		h, err := ParseSegmentHead(data[i*SegmentHeadSize:], engine)
		if err != nil {
			return nil, err
		}
		heads[i] = h
	}

	return heads, nil
}
