package codec

import "fmt"

// Column is one stored qualifier/value pair attached to a row key.
type Column struct {
	Qualifier []byte
	Value     []byte
}

// Kind tags the result of classifying a column.
type Kind int

const (
	// KindPoint is a single data point.
	KindPoint Kind = iota
	// KindCompacted packs several data points into one column.
	KindCompacted
	// KindAnnotation is a free-text record at a time offset.
	KindAnnotation
	// KindOpaque is an unrecognized odd-length column. Only its raw
	// bytes may be shown; it is never decoded numerically.
	KindOpaque
)

// Decoded is the classified form of a column. Cells is populated for
// KindPoint and KindCompacted, Annotation for KindAnnotation.
type Decoded struct {
	Kind       Kind
	Cells      []Cell
	Annotation *Annotation
}

// MalformedColumnError reports a column whose byte layout violates the
// expected encoding. It signals store corruption, not a per-cell issue:
// no partial decode of the column is ever returned alongside it.
type MalformedColumnError struct {
	Reason string
	Column Column
}

func (e *MalformedColumnError) Error() string {
	return fmt.Sprintf("malformed column (qualifier %v, value %v): %s",
		e.Column.Qualifier, e.Column.Value, e.Reason)
}

func malformed(col Column, format string, args ...interface{}) error {
	return &MalformedColumnError{Reason: fmt.Sprintf(format, args...), Column: col}
}

// DecodeColumn classifies a column. Classification order: odd qualifier
// length means a non-point column (annotation if prefixed, opaque
// otherwise); length 2, or 4 with the millisecond nibble, is a single
// point; anything else is a compacted column.
func DecodeColumn(col Column) (Decoded, error) {
	q := col.Qualifier
	if len(q) == 0 {
		return Decoded{}, malformed(col, "empty qualifier")
	}
	if len(q)%2 != 0 {
		if q[0] == AnnotationPrefix {
			a, err := ParseAnnotation(col)
			if err != nil {
				return Decoded{}, err
			}
			return Decoded{Kind: KindAnnotation, Annotation: &a}, nil
		}
		return Decoded{Kind: KindOpaque}, nil
	}
	if IsSinglePointQualifier(q) {
		cell, err := ParseSingleValue(col)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Kind: KindPoint, Cells: []Cell{cell}}, nil
	}
	cells, err := ExtractDataPoints(col)
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{Kind: KindCompacted, Cells: cells}, nil
}

// IsSinglePointQualifier reports whether q is the qualifier of exactly
// one data point rather than a compacted column.
func IsSinglePointQualifier(q []byte) bool {
	return len(q) == 2 || len(q) == 4 && q[0]&msByteFlag == msByteFlag
}

// ParseSingleValue decodes a column holding exactly one data point. The
// value length must match the length declared in the flag nibble.
func ParseSingleValue(col Column) (Cell, error) {
	q := col.Qualifier
	if len(q) != 2 && !(len(q) == 4 && q[0]&msByteFlag == msByteFlag) {
		return Cell{}, malformed(col, "not a single-point qualifier")
	}
	_, flags, _, err := peelQualifier(q, 0)
	if err != nil {
		return Cell{}, malformed(col, "%v", err)
	}
	if want := int(flags&valueLenMask) + 1; len(col.Value) != want {
		return Cell{}, malformed(col, "value is %d bytes, flags declare %d", len(col.Value), want)
	}
	return Cell{Qualifier: q, Value: col.Value}, nil
}

// ExtractDataPoints peels every cell out of a compacted column in
// emission order. Both the qualifier and value buffers must be consumed
// exactly; any mismatch aborts the whole column's decode.
func ExtractDataPoints(col Column) ([]Cell, error) {
	q, v := col.Qualifier, col.Value
	var cells []Cell
	qi, vi := 0, 0
	for qi < len(q) {
		_, flags, width, err := peelQualifier(q, qi)
		if err != nil {
			return nil, malformed(col, "%v", err)
		}
		n := int(flags&valueLenMask) + 1
		if vi+n > len(v) {
			return nil, malformed(col, "value buffer exhausted at cell %d", len(cells))
		}
		cells = append(cells, Cell{Qualifier: q[qi : qi+width], Value: v[vi : vi+n]})
		qi += width
		vi += n
	}
	if vi != len(v) {
		return nil, malformed(col, "%d trailing value bytes", len(v)-vi)
	}
	return cells, nil
}

// Annotation is a free-text record stored under a prefixed odd-length
// qualifier. Its timestamp derives from the offset encoded after the
// prefix byte and is unrelated to any numeric cell.
type Annotation struct {
	Qualifier []byte
	Value     []byte
}

// ParseAnnotation decodes an annotation column. The bytes after the
// prefix must form exactly one sub-qualifier; a bare prefix byte is a
// valid annotation at offset zero.
func ParseAnnotation(col Column) (Annotation, error) {
	q := col.Qualifier
	if len(q) == 0 || q[0] != AnnotationPrefix {
		return Annotation{}, malformed(col, "missing annotation prefix")
	}
	if len(q) > 1 {
		_, _, width, err := peelQualifier(q, 1)
		if err != nil {
			return Annotation{}, malformed(col, "%v", err)
		}
		if 1+width != len(q) {
			return Annotation{}, malformed(col, "annotation qualifier is %d bytes, want %d", len(q), 1+width)
		}
	}
	return Annotation{Qualifier: q, Value: col.Value}, nil
}

// OffsetMillis returns the annotation's offset from the row base time.
func (a Annotation) OffsetMillis() int64 {
	if len(a.Qualifier) < 2 {
		return 0
	}
	off, _, _, _ := peelQualifier(a.Qualifier, 1)
	return off
}

// IsMillisecond reports whether the annotation's sub-qualifier carries
// a millisecond offset.
func (a Annotation) IsMillisecond() bool {
	return len(a.Qualifier) > 1 && a.Qualifier[1]&msByteFlag == msByteFlag
}

// Timestamp combines the row base time with the annotation offset in
// the sub-qualifier's native unit, like Cell.AbsoluteTimestamp.
func (a Annotation) Timestamp(baseTime int64) int64 {
	if IsMillisecond(baseTime) {
		return baseTime + a.OffsetMillis()
	}
	if a.IsMillisecond() {
		return baseTime*1000 + a.OffsetMillis()
	}
	return baseTime + a.OffsetMillis()/1000
}

// Text interprets the annotation payload as text.
func (a Annotation) Text() string {
	return string(a.Value)
}
