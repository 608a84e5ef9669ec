package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/basekick-labs/tsdump/internal/uid"
)

// Row key layout: metric uid, 4-byte big-endian base time in seconds,
// then contiguous fixed-width (tag key uid, tag value uid) pairs.
const (
	baseTimeWidth = 4
	keyPrefixLen  = uid.MetricWidth + baseTimeWidth
	tagPairWidth  = uid.TagKeyWidth + uid.TagValueWidth
)

// RowTimespan is the number of seconds of data anchored on one row.
const RowTimespan = 3600

// Tag is one resolved tag pair, in row key order.
type Tag struct {
	Key   string
	Value string
}

// RowKey is a decoded row key. Raw keeps the original bytes for
// diagnostics and delete requests.
type RowKey struct {
	Raw      []byte
	Metric   string
	BaseTime int64
	Tags     []Tag
}

// DecodeRowKey splits a raw row key and resolves every uid in it. Any
// uid the resolver does not know fails the decode; the row is then
// unreadable and must not be treated as empty.
func DecodeRowKey(key []byte, r uid.Resolver) (*RowKey, error) {
	if len(key) < keyPrefixLen+tagPairWidth {
		return nil, fmt.Errorf("row key too short: %d bytes", len(key))
	}
	if (len(key)-keyPrefixLen)%tagPairWidth != 0 {
		return nil, fmt.Errorf("row key has %d trailing bytes after the last tag pair",
			(len(key)-keyPrefixLen)%tagPairWidth)
	}

	metric, err := r.MetricName(key[:uid.MetricWidth])
	if err != nil {
		return nil, err
	}

	rk := &RowKey{
		Raw:      key,
		Metric:   metric,
		BaseTime: int64(binary.BigEndian.Uint32(key[uid.MetricWidth:keyPrefixLen])),
	}
	for i := keyPrefixLen; i < len(key); i += tagPairWidth {
		name, err := r.TagKeyName(key[i : i+uid.TagKeyWidth])
		if err != nil {
			return nil, err
		}
		value, err := r.TagValueName(key[i+uid.TagKeyWidth : i+tagPairWidth])
		if err != nil {
			return nil, err
		}
		rk.Tags = append(rk.Tags, Tag{Key: name, Value: value})
	}
	return rk, nil
}

// BaseTimeOf aligns a timestamp down to its row's base time in seconds.
func BaseTimeOf(ts int64) int64 {
	if IsMillisecond(ts) {
		ts /= 1000
	}
	return ts - ts%RowTimespan
}
