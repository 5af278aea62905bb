// Package dedupe tracks recently seen keys within a sliding time window.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is how long a key suppresses repeats.
const DefaultWindow = 30 * time.Minute

// Deduper records when keys were last seen.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was recorded less than one
	// window before at. Returns true for a repeat, which is not recorded.
	// Otherwise it records at and returns false.
	SeenAndRecord(ctx context.Context, key string, at time.Time) bool

	// Record stores at for key unconditionally, e.g. when rebuilding from storage.
	Record(ctx context.Context, key string, at time.Time)

	// Reset forgets every key.
	Reset(ctx context.Context)

	Size() int64
}

// entry is one key in the recency list. Front of the list is the oldest.
type entry struct {
	key  string
	seen time.Time
}

// inMemoryDeduper implements Deduper with a map plus a recency list.
// For bounded mode (maxSize > 0) expired keys are swept first and then the
// least recently seen key is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	window  time.Duration
	maxSize int // 0 or negative = unbounded
	index   map[string]*list.Element
	order   *list.List
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		window:  DefaultWindow,
		maxSize: 0,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.index = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		// Clock skew can put at before the stored time; that still counts.
		if at.Sub(el.Value.(*entry).seen) < d.window {
			return true
		}
	}
	d.record(key, at)
	return false
}

func (d *inMemoryDeduper) Record(ctx context.Context, key string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok && el.Value.(*entry).seen.After(at) {
		return
	}
	d.record(key, at)
}

// record must be called with d.mu held.
func (d *inMemoryDeduper) record(key string, at time.Time) {
	if el, ok := d.index[key]; ok {
		el.Value.(*entry).seen = at
		d.order.MoveToBack(el)
		return
	}
	if d.maxSize > 0 && len(d.index) >= d.maxSize {
		d.sweep(at)
		if len(d.index) >= d.maxSize {
			d.remove(d.order.Front())
		}
	}
	d.index[key] = d.order.PushBack(&entry{key: key, seen: at})
	d.size.Add(1)
}

// sweep drops keys that fell out of the window relative to now.
func (d *inMemoryDeduper) sweep(now time.Time) {
	for el := d.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(*entry).seen) >= d.window {
			d.remove(el)
		}
		el = next
	}
}

func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.index, el.Value.(*entry).key)
	d.order.Remove(el)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Reset(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.index = make(map[string]*list.Element)
	d.order.Init()
	d.size.Store(0)
}

// Size returns the current number of keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Key joins an ip and a path into a dedupe key.
func Key(ip, path string) string {
	return ip + "\x00" + path
}
