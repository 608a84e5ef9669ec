package uid

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies which uid namespace an id belongs to.
type Kind string

const (
	Metric   Kind = "metrics"
	TagKey   Kind = "tagk"
	TagValue Kind = "tagv"
)

// Fixed uid widths in bytes. Row key decoding depends on these being
// stable across the whole store.
const (
	MetricWidth   = 3
	TagKeyWidth   = 3
	TagValueWidth = 3
)

// Resolver maps fixed-width binary ids back to human-readable names.
// Resolution is total: an unknown id is an error, never an empty name.
type Resolver interface {
	MetricName(id []byte) (string, error)
	TagKeyName(id []byte) (string, error)
	TagValueName(id []byte) (string, error)
}

// ResolutionError reports an id with no assigned name. A row containing
// such an id is unreadable and must not be treated as empty.
type ResolutionError struct {
	Kind Kind
	ID   []byte
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no name for %s uid %v", e.Kind, e.ID)
}

// EncodeID writes a uid as a big-endian fixed-width byte slice.
func EncodeID(v uint32, width int) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return buf[4-width:]
}
