package uid

import (
	"sort"
	"sync"
)

// Registry is an in-memory bidirectional uid table. It backs the memory
// store backend and tests; real deployments resolve against the store's
// uid tables through the same Resolver interface.
type Registry struct {
	mu      sync.RWMutex
	byName  map[Kind]map[string][]byte
	byID    map[Kind]map[string]string // string(id) -> name
	nextID  map[Kind]uint32
	metrics []string // sorted metric names for suggestion
}

func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[Kind]map[string][]byte),
		byID:   make(map[Kind]map[string]string),
		nextID: make(map[Kind]uint32),
	}
	for _, k := range []Kind{Metric, TagKey, TagValue} {
		r.byName[k] = make(map[string][]byte)
		r.byID[k] = make(map[string]string)
		r.nextID[k] = 1
	}
	return r
}

func width(kind Kind) int {
	switch kind {
	case Metric:
		return MetricWidth
	case TagKey:
		return TagKeyWidth
	default:
		return TagValueWidth
	}
}

// GetOrCreate returns the uid assigned to name, assigning the next free
// one on first use.
func (r *Registry) GetOrCreate(kind Kind, name string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[kind][name]; ok {
		return id
	}
	id := EncodeID(r.nextID[kind], width(kind))
	r.nextID[kind]++
	r.byName[kind][name] = id
	r.byID[kind][string(id)] = name
	if kind == Metric {
		i := sort.SearchStrings(r.metrics, name)
		r.metrics = append(r.metrics, "")
		copy(r.metrics[i+1:], r.metrics[i:])
		r.metrics[i] = name
	}
	return id
}

// LookupID returns the uid for a name, or false if none is assigned.
func (r *Registry) LookupID(kind Kind, name string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[kind][name]
	return id, ok
}

func (r *Registry) name(kind Kind, id []byte) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.byID[kind][string(id)]; ok {
		return name, nil
	}
	return "", &ResolutionError{Kind: kind, ID: append([]byte(nil), id...)}
}

func (r *Registry) MetricName(id []byte) (string, error)   { return r.name(Metric, id) }
func (r *Registry) TagKeyName(id []byte) (string, error)   { return r.name(TagKey, id) }
func (r *Registry) TagValueName(id []byte) (string, error) { return r.name(TagValue, id) }

// SuggestMetrics returns up to max metric names starting with prefix,
// in sorted order.
func (r *Registry) SuggestMetrics(prefix string, max int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	i := sort.SearchStrings(r.metrics, prefix)
	for ; i < len(r.metrics) && len(out) < max; i++ {
		if len(r.metrics[i]) < len(prefix) || r.metrics[i][:len(prefix)] != prefix {
			break
		}
		out = append(out, r.metrics[i])
	}
	return out
}
