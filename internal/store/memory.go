package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/basekick-labs/tsdump/internal/codec"
	"github.com/basekick-labs/tsdump/internal/uid"
)

// Memory is an in-memory store backend. Rows are indexed by raw key and
// kept in key order, so a metric-uid prefix scan walks a contiguous
// range. Safe for concurrent scans and deletes.
type Memory struct {
	mu       sync.RWMutex
	uids     *uid.Registry
	rows     map[string][]codec.Column
	keys     []string // sorted raw keys
	pageSize int
}

// DefaultPageSize bounds a cursor page when none is configured.
const DefaultPageSize = 128

func NewMemory(pageSize int) *Memory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Memory{
		uids:     uid.NewRegistry(),
		rows:     make(map[string][]codec.Column),
		pageSize: pageSize,
	}
}

// UIDs exposes the backend's uid registry, which doubles as the
// resolver for keys this backend returns.
func (m *Memory) UIDs() *uid.Registry { return m.uids }

func (m *Memory) tagPairs(tags map[string]string) [][2][]byte {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([][2][]byte, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, [2][]byte{
			m.uids.GetOrCreate(uid.TagKey, k),
			m.uids.GetOrCreate(uid.TagValue, tags[k]),
		})
	}
	return pairs
}

// AddColumn appends a raw column to the row anchored at the base time
// covering ts. Fixture-level entry point; the Add*Point helpers build
// well-formed columns on top of it.
func (m *Memory) AddColumn(metric string, ts int64, tags map[string]string, col codec.Column) {
	base := codec.BaseTimeOf(ts)
	key := codec.EncodeRowKey(m.uids.GetOrCreate(uid.Metric, metric), base, m.tagPairs(tags))

	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	if _, ok := m.rows[k]; !ok {
		i := sort.SearchStrings(m.keys, k)
		m.keys = append(m.keys, "")
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = k
	}
	m.rows[k] = append(m.rows[k], col)
}

func (m *Memory) addPoint(metric string, ts int64, value []byte, flags byte, tags map[string]string) {
	base := codec.BaseTimeOf(ts)
	var q []byte
	if codec.IsMillisecond(ts) {
		q = codec.EncodeMillisQualifier(ts-base*1000, flags)
	} else {
		q = codec.EncodeSecondQualifier(ts-base, flags)
	}
	m.AddColumn(metric, ts, tags, codec.Column{Qualifier: q, Value: value})
}

// AddIntPoint stores one integer data point at ts (seconds, or
// milliseconds when ts exceeds the 32-bit range).
func (m *Memory) AddIntPoint(metric string, ts, value int64, tags map[string]string) {
	v, flags := codec.EncodeInt(value)
	m.addPoint(metric, ts, v, flags, tags)
}

// AddFloatPoint stores one floating point data point at ts.
func (m *Memory) AddFloatPoint(metric string, ts int64, value float64, tags map[string]string) {
	v, flags := codec.EncodeFloat(value)
	m.addPoint(metric, ts, v, flags, tags)
}

// AddAnnotation stores a free-text annotation at ts.
func (m *Memory) AddAnnotation(metric string, ts int64, text string, tags map[string]string) {
	base := codec.BaseTimeOf(ts)
	var sub []byte
	if codec.IsMillisecond(ts) {
		sub = codec.EncodeMillisQualifier(ts-base*1000, 0)
	} else {
		sub = codec.EncodeSecondQualifier(ts-base, 0)
	}
	q := append([]byte{codec.AnnotationPrefix}, sub...)
	m.AddColumn(metric, ts, tags, codec.Column{Qualifier: q, Value: []byte(text)})
}

// RowCount returns the number of stored rows.
func (m *Memory) RowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *Memory) matches(key []byte, q Query, metricID []byte) bool {
	if !bytes.HasPrefix(key, metricID) {
		return false
	}
	rk, err := codec.DecodeRowKey(key, m.uids)
	if err != nil {
		return false
	}
	// A row matches when its hour window overlaps the query window.
	if rk.BaseTime+codec.RowTimespan <= q.Start || rk.BaseTime > q.End {
		return false
	}
	for k, v := range q.Tags {
		found := false
		for _, tag := range rk.Tags {
			if tag.Key == k && tag.Value == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Scan snapshots the matching keys up front; rows deleted while the
// cursor is open are skipped when their page is fetched.
func (m *Memory) Scan(ctx context.Context, q Query) (Cursor, error) {
	metricID, ok := m.uids.LookupID(uid.Metric, q.Metric)
	if !ok {
		return nil, fmt.Errorf("unknown metric: %q", q.Metric)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []string
	for _, k := range m.keys {
		if m.matches([]byte(k), q, metricID) {
			matched = append(matched, k)
		}
	}
	return &memoryCursor{store: m, keys: matched}, nil
}

func (m *Memory) Delete(ctx context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := string(key)
	if _, ok := m.rows[k]; !ok {
		return nil
	}
	delete(m.rows, k)
	i := sort.SearchStrings(m.keys, k)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	return nil
}

func (m *Memory) SuggestMetrics(ctx context.Context, prefix string, max int) ([]string, error) {
	return m.uids.SuggestMetrics(prefix, max), nil
}

type memoryCursor struct {
	store *Memory
	keys  []string
	next  int
}

func (c *memoryCursor) NextPage(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.next >= len(c.keys) {
		return nil, nil
	}
	end := c.next + c.store.pageSize
	if end > len(c.keys) {
		end = len(c.keys)
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	page := make([]Row, 0, end-c.next)
	for _, k := range c.keys[c.next:end] {
		cols, ok := c.store.rows[k]
		if !ok {
			continue // deleted since the scan started
		}
		page = append(page, Row{Key: []byte(k), Columns: cols})
	}
	c.next = end
	return page, nil
}
