// Package dump renders decoded rows either in a human-readable debug
// format or in a line-per-point import format that can be fed back into
// an ingestion path.
package dump

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/basekick-labs/tsdump/internal/codec"
)

// ErrIllegalData marks a single-point column that failed to decode.
// A malformed simple point indicates store corruption worth stopping
// for, so callers abort the whole run on it.
var ErrIllegalData = errors.New("illegal data point")

// Formatter writes rows in one of the two output modes. Each row's
// output is assembled in full before being written, so rows reach the
// writer as a unit.
type Formatter struct {
	w            io.Writer
	importFormat bool
	buf          bytes.Buffer
}

func NewFormatter(w io.Writer, importFormat bool) *Formatter {
	return &Formatter{w: w, importFormat: importFormat}
}

// WriteRow renders every column of one row. Any malformed column aborts
// with an error and nothing from this row is written; rows already
// written stand (see DESIGN.md on the abort policy).
func (f *Formatter) WriteRow(rk *codec.RowKey, columns []codec.Column) error {
	f.buf.Reset()

	if !f.importFormat {
		fmt.Fprintf(&f.buf, "%v %s %d (%s) %s\n",
			rk.Raw, rk.Metric, rk.BaseTime, date(rk.BaseTime), debugTags(rk.Tags))
	}

	for _, col := range columns {
		decoded, err := codec.DecodeColumn(col)
		if err != nil {
			if codec.IsSinglePointQualifier(col.Qualifier) {
				return fmt.Errorf("%w: %v", ErrIllegalData, err)
			}
			return err
		}
		if err := f.column(rk, col, decoded); err != nil {
			return err
		}
	}

	_, err := f.w.Write(f.buf.Bytes())
	return err
}

func (f *Formatter) column(rk *codec.RowKey, col codec.Column, decoded codec.Decoded) error {
	switch decoded.Kind {
	case codec.KindOpaque:
		if !f.importFormat {
			fmt.Fprintf(&f.buf, "  %v\t[Not a data point]\n", col.Value)
		}
	case codec.KindAnnotation:
		if !f.importFormat {
			a := decoded.Annotation
			ts := a.Timestamp(rk.BaseTime)
			offset := a.OffsetMillis()
			if !codec.IsMillisecond(ts) {
				offset /= 1000
			}
			fmt.Fprintf(&f.buf, "  %v\t%v\t%d\t%s\t%d\t(%s)\n",
				a.Qualifier, a.Value, offset, a.Text(), ts, date(ts))
		}
	case codec.KindPoint:
		return f.cell(rk, decoded.Cells[0], "  ")
	case codec.KindCompacted:
		if !f.importFormat {
			fmt.Fprintf(&f.buf, "  %v\t%v = %d values:\n",
				col.Qualifier, col.Value, len(decoded.Cells))
		}
		for _, cell := range decoded.Cells {
			if err := f.cell(rk, cell, "    "); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Formatter) cell(rk *codec.RowKey, cell codec.Cell, indent string) error {
	ts := cell.AbsoluteTimestamp(rk.BaseTime)
	if f.importFormat {
		value, err := cell.ValueString()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIllegalData, err)
		}
		fmt.Fprintf(&f.buf, "%s %d %s%s\n", rk.Metric, ts, value, importTags(rk.Tags))
		return nil
	}

	// Second-resolution rows display the offset in seconds; the stored
	// timestamp is never rescaled.
	offset := cell.OffsetMillis()
	if !codec.IsMillisecond(ts) {
		offset /= 1000
	}
	kind := "l"
	if !cell.IsInteger() {
		kind = "f"
	}
	fmt.Fprintf(&f.buf, "%s%v\t%v\t%d\t%s\t%d\t(%s)\n",
		indent, cell.Qualifier, cell.Value, offset, kind, ts, date(ts))
	return nil
}

func debugTags(tags []codec.Tag) string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, tag := range tags {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tag.Key)
		b.WriteByte('=')
		b.WriteString(tag.Value)
	}
	b.WriteByte('}')
	return b.String()
}

func importTags(tags []codec.Tag) string {
	var b bytes.Buffer
	for _, tag := range tags {
		b.WriteByte(' ')
		b.WriteString(tag.Key)
		b.WriteByte('=')
		b.WriteString(tag.Value)
	}
	return b.String()
}

// date renders a timestamp as a human-readable UTC date in the
// timestamp's native resolution.
func date(ts int64) string {
	var t time.Time
	if codec.IsMillisecond(ts) {
		t = time.UnixMilli(ts)
	} else {
		t = time.Unix(ts, 0)
	}
	return t.UTC().Format(time.UnixDate)
}
