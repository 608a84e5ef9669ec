package codec

import (
	"encoding/binary"
	"math"
)

// Encoders for the row key and qualifier formats. The memory backend
// builds its fixtures with these; decoding what they produce is exact.

// EncodeRowKey assembles a raw row key from pre-resolved uids.
func EncodeRowKey(metricID []byte, baseTime int64, tagPairs [][2][]byte) []byte {
	key := make([]byte, 0, keyPrefixLen+len(tagPairs)*tagPairWidth)
	key = append(key, metricID...)
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], uint32(baseTime))
	key = append(key, ts[:]...)
	for _, pair := range tagPairs {
		key = append(key, pair[0]...)
		key = append(key, pair[1]...)
	}
	return key
}

// EncodeSecondQualifier builds a 2-byte qualifier for a second offset.
func EncodeSecondQualifier(offsetSeconds int64, flags byte) []byte {
	var q [2]byte
	binary.BigEndian.PutUint16(q[:], uint16(offsetSeconds)<<4|uint16(flags))
	return q[:]
}

// EncodeMillisQualifier builds a 4-byte qualifier for a millisecond offset.
func EncodeMillisQualifier(offsetMillis int64, flags byte) []byte {
	var q [4]byte
	binary.BigEndian.PutUint32(q[:], 0xF0000000|uint32(offsetMillis)<<6|uint32(flags))
	return q[:]
}

// EncodeInt returns the shortest big-endian encoding of v and the flag
// nibble declaring its width.
func EncodeInt(v int64) ([]byte, byte) {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return []byte{byte(v)}, 0
	case v >= math.MinInt16 && v <= math.MaxInt16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		return b[:], 1
	case v >= math.MinInt32 && v <= math.MaxInt32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		return b[:], 3
	default:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		return b[:], 7
	}
}

// EncodeFloat returns the 8-byte encoding of v and its flag nibble.
func EncodeFloat(v float64) ([]byte, byte) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:], FlagFloat | 7
}

// Compact concatenates cells into one compacted column, preserving
// emission order.
func Compact(cells []Cell) Column {
	var col Column
	for _, c := range cells {
		col.Qualifier = append(col.Qualifier, c.Qualifier...)
		col.Value = append(col.Value, c.Value...)
	}
	return col
}
