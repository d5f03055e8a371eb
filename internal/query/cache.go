// internal/query/cache.go
//
// Cache associates ordered keys with server data. A value stays fresh until a
// mutation invalidates it; invalidation is tag based: every entry carries a
// set of tags (its first key segment plus any declared extras) and a mutation
// names the tags it dirties. Values are only ever replaced wholesale by a
// refetch, never patched in place.

package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key is an ordered list of primitive segments, e.g. Key{"users", id, "pto"}.
type Key []any

// String returns the canonical form used for equality.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, seg := range k {
		parts[i] = fmt.Sprint(seg)
	}
	return strings.Join(parts, "/")
}

// Root returns the first segment as a tag, or "" for an empty key.
func (k Key) Root() Tag {
	if len(k) == 0 {
		return ""
	}
	return Tag(fmt.Sprint(k[0]))
}

// Tag names a family of cache entries.
type Tag string

// Result is what a read hands back to the panel.
type Result[T any] struct {
	Data      T
	IsLoading bool
	Disabled  bool
	Fresh     bool
}

type entry struct {
	key   Key
	value any
	fresh bool
	tags  map[Tag]struct{}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	inflight    map[string]bool
	group       singleflight.Group
	subscribers map[int]func(Key)
	nextSub     int
	// generation advances on every invalidation; a fetch that started before
	// an invalidation stores its value as stale.
	generation uint64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries:     map[string]*entry{},
		inflight:    map[string]bool{},
		subscribers: map[int]func(Key){},
	}
}

type readConfig struct {
	enabled bool
	tags    []Tag
}

// ReadOption customizes a single read.
type ReadOption func(*readConfig)

// Enabled gates fetching. A disabled read never calls the fetcher.
func Enabled(on bool) ReadOption {
	return func(rc *readConfig) { rc.enabled = on }
}

// WithTags attaches extra invalidation tags to the entry.
func WithTags(tags ...Tag) ReadOption {
	return func(rc *readConfig) { rc.tags = append(rc.tags, tags...) }
}

// Fetcher loads the value for one key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Read returns the cached value for key when fresh, otherwise fetches it.
// Concurrent reads of an equal key share one in-flight fetch.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], opts ...ReadOption) (Result[T], error) {
	rc := readConfig{enabled: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&rc)
		}
	}
	var zero T
	if !rc.enabled {
		return Result[T]{Data: zero, Disabled: true}, nil
	}
	id := key.String()

	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.fresh {
		value, _ := e.value.(T)
		c.mu.Unlock()
		return Result[T]{Data: value, Fresh: true}, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(id, func() (any, error) {
		// A caller that missed the previous flight may arrive after it stored.
		c.mu.Lock()
		if e, ok := c.entries[id]; ok && e.fresh {
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()
		gen := c.begin(id)
		defer c.finish(id)
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value, rc.tags, gen)
		return value, nil
	})
	if err != nil {
		return Result[T]{Data: zero}, err
	}
	value, _ := v.(T)
	return Result[T]{Data: value, Fresh: true}, nil
}

// Snapshot returns whatever is cached for key without fetching, with
// IsLoading set while a fetch for key is in flight.
func Snapshot[T any](c *Cache, key Key) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := Result[T]{IsLoading: c.inflight[key.String()]}
	if e, ok := c.entries[key.String()]; ok {
		res.Data, _ = e.value.(T)
		res.Fresh = e.fresh
	}
	return res
}

func (c *Cache) begin(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[id] = true
	return c.generation
}

func (c *Cache) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

func (c *Cache) store(key Key, value any, extra []Tag, gen uint64) {
	tags := map[Tag]struct{}{}
	if root := key.Root(); root != "" {
		tags[root] = struct{}{}
	}
	for _, t := range extra {
		if t != "" {
			tags[t] = struct{}{}
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = &entry{key: key, value: value, fresh: gen == c.generation, tags: tags}
}

// Peek returns the cached value without fetching. ok is false when nothing is
// cached for key; fresh is false after invalidation.
func Peek[T any](c *Cache, key Key) (value T, fresh bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key.String()]
	if !exists {
		return value, false, false
	}
	value, _ = e.value.(T)
	return value, e.fresh, true
}

// IsLoading reports whether a fetch for key is in flight.
func (c *Cache) IsLoading(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[key.String()]
}

// Invalidate marks every entry carrying any of tags stale and notifies
// subscribers once per affected key. It returns the affected keys.
func (c *Cache) Invalidate(tags ...Tag) []Key {
	want := map[Tag]struct{}{}
	for _, t := range tags {
		if t != "" {
			want[t] = struct{}{}
		}
	}
	if len(want) == 0 {
		return nil
	}
	c.mu.Lock()
	c.generation++
	var hit []Key
	for _, e := range c.entries {
		for t := range e.tags {
			if _, ok := want[t]; ok {
				e.fresh = false
				hit = append(hit, e.key)
				break
			}
		}
	}
	subs := c.subscriberList()
	c.mu.Unlock()
	sortKeys(hit)
	notify(subs, hit)
	return hit
}

// InvalidateKey marks one exact key stale.
func (c *Cache) InvalidateKey(key Key) bool {
	c.mu.Lock()
	c.generation++
	e, ok := c.entries[key.String()]
	if ok {
		e.fresh = false
	}
	subs := c.subscriberList()
	c.mu.Unlock()
	if ok {
		notify(subs, []Key{key})
	}
	return ok
}

// Subscribe registers fn to run after each invalidated key. Mounted consumers
// use it to refetch. The returned func cancels the subscription.
func (c *Cache) Subscribe(fn func(Key)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// caller holds c.mu
func (c *Cache) subscriberList() []func(Key) {
	ids := make([]int, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Key), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subscribers[id])
	}
	return out
}

func notify(subs []func(Key), keys []Key) {
	for _, k := range keys {
		for _, fn := range subs {
			fn(k)
		}
	}
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
