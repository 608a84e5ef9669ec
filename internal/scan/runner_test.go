package scan

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basekick-labs/tsdump/internal/codec"
	"github.com/basekick-labs/tsdump/internal/dump"
	"github.com/basekick-labs/tsdump/internal/store"
)

// seedStore fills a memory backend with a deterministic data set:
// sys.cpu.user 3 rows, sys.cpu.sys 2 rows, sys.mem.free 1 row,
// web.hits 2 rows.
func seedStore(pageSize int) *store.Memory {
	m := store.NewMemory(pageSize)
	tags := map[string]string{"host": "web01"}
	for hour := int64(0); hour < 3; hour++ {
		m.AddIntPoint("sys.cpu.user", 1356998400+hour*3600, hour, tags)
	}
	for hour := int64(0); hour < 2; hour++ {
		m.AddFloatPoint("sys.cpu.sys", 1356998400+hour*3600, 0.5, tags)
		m.AddIntPoint("web.hits", 1356998400+hour*3600, 100+hour, tags)
	}
	m.AddIntPoint("sys.mem.free", 1356998400, 4096, tags)
	return m
}

func wideQuery(metric string) store.Query {
	return store.Query{Metric: metric, Start: 0, End: 2000000000, Aggregator: "sum"}
}

func newTestRunner(m *store.Memory) *Runner {
	return NewRunner(m, m.UIDs(), zerolog.Nop())
}

func TestRunnerCountsRows(t *testing.T) {
	m := seedStore(2)
	r := newTestRunner(m)

	rows, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")}, Options{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
	assert.Equal(t, 8, m.RowCount(), "scanning does not modify the store")
}

func TestRunnerMultipleQueries(t *testing.T) {
	m := seedStore(2)
	r := newTestRunner(m)

	queries := []store.Query{wideQuery("sys.cpu.user"), wideQuery("web.hits")}
	rows, err := r.Run(context.Background(), queries, Options{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rows)
}

func TestRunnerDelete(t *testing.T) {
	m := seedStore(2)
	r := newTestRunner(m)

	rows, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")},
		Options{Delete: true, Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
	assert.Equal(t, 5, m.RowCount())

	rows, err = r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")}, Options{Quiet: true})
	require.NoError(t, err)
	assert.Zero(t, rows, "deleted rows are gone on rescan")
}

func TestRunnerImportOutput(t *testing.T) {
	m := seedStore(2)
	r := newTestRunner(m)

	var out bytes.Buffer
	rows, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")},
		Options{ImportFormat: true, Out: &out})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "sys.cpu.user 1356998400 0 host=web01", lines[0])
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "sys.cpu.user "), "line %q", line)
		assert.True(t, strings.HasSuffix(line, " host=web01"), "line %q", line)
	}
}

func TestRunnerImportKeepsMillisecondTimestamps(t *testing.T) {
	// Millisecond points land in second-base rows; their import lines
	// must carry the full millisecond timestamps, not truncated seconds.
	m := store.NewMemory(2)
	tags := map[string]string{"host": "web01"}
	m.AddIntPoint("app.latency", 1356998400500, 12, tags)
	m.AddIntPoint("app.latency", 1356998400900, 15, tags)
	r := newTestRunner(m)

	var out bytes.Buffer
	rows, err := r.Run(context.Background(), []store.Query{wideQuery("app.latency")},
		Options{ImportFormat: true, Out: &out})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	assert.Equal(t,
		"app.latency 1356998400500 12 host=web01\n"+
			"app.latency 1356998400900 15 host=web01\n",
		out.String())
}

func TestRunnerMalformedColumnAborts(t *testing.T) {
	m := seedStore(2)
	// Flags declare a 1-byte value, two stored.
	m.AddColumn("sys.cpu.user", 1357009200, map[string]string{"host": "web01"},
		codec.Column{Qualifier: codec.EncodeSecondQualifier(0, 0), Value: []byte{1, 2}})
	r := newTestRunner(m)

	var out bytes.Buffer
	_, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")},
		Options{Out: &out})
	require.Error(t, err)
	assert.ErrorIs(t, err, dump.ErrIllegalData)
	assert.Contains(t, err.Error(), "row key", "diagnostic context names the row")
}

func TestRunnerQuietSkipsDecode(t *testing.T) {
	m := seedStore(2)
	m.AddColumn("sys.cpu.user", 1357009200, map[string]string{"host": "web01"},
		codec.Column{Qualifier: codec.EncodeSecondQualifier(0, 0), Value: []byte{1, 2}})
	r := newTestRunner(m)

	rows, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")},
		Options{Delete: true, Quiet: true})
	require.NoError(t, err, "quiet mode never decodes columns")
	assert.Equal(t, int64(4), rows)
}

func TestRunnerProgressTicks(t *testing.T) {
	m := seedStore(2)
	var logs bytes.Buffer
	r := NewRunner(m, m.UIDs(), zerolog.New(&logs))
	r.ProgressInterval = -time.Nanosecond // every row is past the deadline

	_, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")},
		Options{Delete: true, Quiet: true})
	require.NoError(t, err)

	s := logs.String()
	assert.Contains(t, s, "Still deleting")
	assert.Contains(t, s, `"metric":"sys.cpu.user"`)
	assert.Contains(t, s, `"rows_touched"`)
}

func TestRunnerNoProgressWithoutDelete(t *testing.T) {
	m := seedStore(2)
	var logs bytes.Buffer
	r := NewRunner(m, m.UIDs(), zerolog.New(&logs))
	r.ProgressInterval = -time.Nanosecond

	_, err := r.Run(context.Background(), []store.Query{wideQuery("sys.cpu.user")}, Options{Quiet: true})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "Still deleting")
}

func TestRunnerContextCancelled(t *testing.T) {
	m := seedStore(2)
	r := newTestRunner(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, []store.Query{wideQuery("sys.cpu.user")}, Options{Quiet: true})
	assert.Error(t, err)
}
