// Package store defines the narrow contract this tool needs from the
// underlying time-series store, and ships an in-memory backend that
// implements it for tests and development runs. Real deployments put a
// remote client behind the same interfaces.
package store

import (
	"context"
	"fmt"

	"github.com/basekick-labs/tsdump/internal/codec"
	"github.com/basekick-labs/tsdump/internal/uid"
)

// Query selects rows for one metric over a time window. Start and End
// are epoch seconds. The aggregator is carried for the remote store's
// benefit and never evaluated here.
type Query struct {
	Metric     string
	Tags       map[string]string
	Start      int64
	End        int64
	Aggregator string
}

// Row is one stored row: its raw key and every column attached to it.
type Row struct {
	Key     []byte
	Columns []codec.Column
}

// Cursor pages through the rows matched by one query. NextPage returns
// (nil, nil) once the scan is exhausted; an empty non-nil page is legal
// and simply contributes no rows.
type Cursor interface {
	NextPage(ctx context.Context) ([]Row, error)
}

// Client is the store surface the scan-delete pipeline consumes. All
// methods must tolerate concurrent calls from the batch worker pool.
type Client interface {
	Scan(ctx context.Context, q Query) (Cursor, error)
	Delete(ctx context.Context, key []byte) error
	SuggestMetrics(ctx context.Context, prefix string, max int) ([]string, error)
}

// Open returns a client for the configured backend and table, plus the
// uid resolver for the keys it serves.
func Open(backend, table string, pageSize int) (Client, uid.Resolver, error) {
	if table == "" {
		return nil, nil, fmt.Errorf("storage table not configured")
	}
	switch backend {
	case "memory":
		m := NewMemory(pageSize)
		return m, m.UIDs(), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", backend)
	}
}
