// Package dedupe remembers game ids already rated in a run.
//
// Merged datasets can carry the same game more than once. Rating a game twice
// would move both players twice, so repeats are dropped before processing.
package dedupe

import (
	"context"
)

// defaultMaxSize bounds the remembered ids unless configured otherwise.
const defaultMaxSize = 50000

// Deduper records seen game ids. Implementations are used by a single
// goroutine, like the rating engine itself.
type Deduper interface {
	// SeenAndRecord checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id int64) bool

	Size() int64
}

// inMemoryDeduper keeps ids in a map. In bounded mode a ring of insertion
// order decides which id is forgotten when the bound is reached.
type inMemoryDeduper struct {
	seen    map[int64]struct{}
	ring    []int64 // insertion order, bounded mode only
	next    int     // ring slot written next
	maxSize int     // maximum number of ids (0 or negative = UNBOUNDED)
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[int64]struct{})
	if d.maxSize > 0 {
		d.ring = make([]int64, 0, d.maxSize)
	}

	return d
}

// SeenAndRecord checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id int64) bool {
	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.ring) < d.maxSize {
			d.ring = append(d.ring, id)
		} else {
			// Forget the oldest id.
			delete(d.seen, d.ring[d.next])
			d.ring[d.next] = id
			d.next = (d.next + 1) % d.maxSize
		}
	}
	d.seen[id] = struct{}{}
	return false
}

// Size returns the current number of remembered ids.
func (d *inMemoryDeduper) Size() int64 {
	return int64(len(d.seen))
}
