package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Qualifier encoding constants. A 2-byte qualifier carries a second
// offset in its top 12 bits; a 4-byte qualifier whose top nibble is set
// carries a millisecond offset in the following 22 bits. The low nibble
// of the last byte holds the flags in both layouts.
const (
	// AnnotationPrefix marks an odd-length qualifier as an annotation.
	AnnotationPrefix byte = 0x01

	// FlagFloat is set when the value bytes hold a floating point number.
	FlagFloat byte = 0x08

	flagsMask    byte = 0x0F
	valueLenMask byte = 0x07
	msByteFlag   byte = 0xF0
)

// SecondMask covers the high 32 bits of a timestamp. A timestamp with
// any of them set is in milliseconds; otherwise it is in seconds.
const SecondMask uint64 = 0xFFFFFFFF00000000

// IsMillisecond reports whether ts is a millisecond-resolution timestamp.
func IsMillisecond(ts int64) bool {
	return uint64(ts)&SecondMask != 0
}

// peelQualifier decodes one sub-qualifier starting at idx, returning the
// offset normalized to milliseconds, the flag nibble and the number of
// qualifier bytes consumed. Second offsets stay below 3600 because rows
// anchor on the hour, so a top nibble of 0xF can only mean milliseconds.
func peelQualifier(q []byte, idx int) (offsetMs int64, flags byte, width int, err error) {
	if idx < len(q) && q[idx]&msByteFlag == msByteFlag {
		if idx+4 > len(q) {
			return 0, 0, 0, fmt.Errorf("truncated millisecond qualifier at byte %d", idx)
		}
		v := binary.BigEndian.Uint32(q[idx : idx+4])
		return int64((v & 0x0FFFFFC0) >> 6), byte(v) & flagsMask, 4, nil
	}
	if idx+2 > len(q) {
		return 0, 0, 0, fmt.Errorf("truncated qualifier at byte %d", idx)
	}
	v := binary.BigEndian.Uint16(q[idx : idx+2])
	return int64(v>>4) * 1000, byte(v) & flagsMask, 2, nil
}

// Cell is one decoded data point: a single sub-qualifier and its value
// bytes, sliced out of the parent column.
type Cell struct {
	Qualifier []byte
	Value     []byte
}

func (c Cell) flags() byte {
	return c.Qualifier[len(c.Qualifier)-1] & flagsMask
}

// IsInteger reports whether the value bytes hold an integer.
func (c Cell) IsInteger() bool {
	return c.flags()&FlagFloat == 0
}

// IsMillisecond reports whether the cell's qualifier carries a
// millisecond offset.
func (c Cell) IsMillisecond() bool {
	return len(c.Qualifier) > 0 && c.Qualifier[0]&msByteFlag == msByteFlag
}

// OffsetMillis returns the cell's offset from its row's base time, in
// milliseconds regardless of the qualifier's native resolution.
func (c Cell) OffsetMillis() int64 {
	off, _, _, _ := peelQualifier(c.Qualifier, 0)
	return off
}

// AbsoluteTimestamp combines the row base time with the cell offset in
// the qualifier's native unit: a millisecond qualifier yields a
// millisecond timestamp even over a second-resolution base. Display
// conversions never change this.
func (c Cell) AbsoluteTimestamp(baseTime int64) int64 {
	off := c.OffsetMillis()
	if IsMillisecond(baseTime) {
		return baseTime + off
	}
	if c.IsMillisecond() {
		return baseTime*1000 + off
	}
	return baseTime + off/1000
}

// ValueString renders the value bytes per the float flag and their width.
func (c Cell) ValueString() (string, error) {
	v := c.Value
	if c.IsInteger() {
		switch len(v) {
		case 1:
			return strconv.FormatInt(int64(int8(v[0])), 10), nil
		case 2:
			return strconv.FormatInt(int64(int16(binary.BigEndian.Uint16(v))), 10), nil
		case 4:
			return strconv.FormatInt(int64(int32(binary.BigEndian.Uint32(v))), 10), nil
		case 8:
			return strconv.FormatInt(int64(binary.BigEndian.Uint64(v)), 10), nil
		}
		return "", fmt.Errorf("invalid integer value width %d", len(v))
	}
	switch len(v) {
	case 4:
		f := math.Float32frombits(binary.BigEndian.Uint32(v))
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case 8:
		f := math.Float64frombits(binary.BigEndian.Uint64(v))
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("invalid float value width %d", len(v))
}
