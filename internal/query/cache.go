package query

import (
	"context"
	"sync"
	"time"

	"github.com/kwalsh/bookshelf/internal/async"
)

// Key identifies one cached resource: a resource name plus an optional
// argument, e.g. {"list-items", ""} or {"book", bookID}.
type Key struct {
	Resource string
	Arg      string
}

// String renders the key for diagnostics.
func (k Key) String() string {
	if k.Arg == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Arg
}

// Fetcher loads the authoritative value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Options control freshness and retry behavior for a cache entry.
type Options struct {
	// StaleTime is how long a fetched value is served without refetching.
	// Zero means every new subscription refetches.
	StaleTime time.Duration
	// CacheTime is how long an entry without subscribers is retained.
	// Zero means the default of five minutes.
	CacheTime time.Duration
	// Retry is how many extra fetch attempts follow a failure.
	Retry int
	// ShouldRetry filters which failures are retried. Nil retries all.
	ShouldRetry func(error) bool
}

const defaultCacheTime = 5 * time.Minute

// Result is a snapshot of a cache entry as seen by a subscriber. HasData
// distinguishes a genuine value from the zero value: a stale entry being
// refetched keeps its previous data while Status reads pending.
type Result struct {
	Status  async.Status
	Data    any
	HasData bool
	Err     error
}

type entry struct {
	key         Key
	opts        Options
	data        any
	hasData     bool
	status      async.Status
	err         error
	lastFetched time.Time
	invalid     bool
	inflight    bool
	fetcher     Fetcher
	fetchCtx    context.Context
	subs        map[int]*Subscription
	evict       *time.Timer
}

func (e *entry) result() Result {
	return Result{Status: e.status, Data: e.data, HasData: e.hasData, Err: e.err}
}

func (e *entry) fresh(now time.Time) bool {
	return e.hasData && !e.invalid && now.Sub(e.lastFetched) <= e.opts.StaleTime
}

// Cache is the process-wide query cache. Construct with New; one instance
// lives for the whole app, and tests build isolated instances freely.
type Cache struct {
	mu       sync.Mutex
	defaults Options
	entries  map[Key]*entry
	nextSub  int
	now      func() time.Time
}

// New returns an empty cache with the given default options.
func New(defaults Options) *Cache {
	if defaults.CacheTime <= 0 {
		defaults.CacheTime = defaultCacheTime
	}
	return &Cache{
		defaults: defaults,
		entries:  map[Key]*entry{},
		now:      time.Now,
	}
}

// Subscription is one subscriber's live handle on a cache entry. Close it
// when the owning component goes away.
type Subscription struct {
	c        *Cache
	key      Key
	id       int
	onChange func(Result)
	closed   bool
}

// Subscribe registers interest in key. If no fresh entry exists a fetch is
// started, unless one is already in flight for the key (late subscribers
// join it). onChange, if non-nil, fires after every entry change; it runs
// outside the cache lock and must not block.
func (c *Cache) Subscribe(ctx context.Context, key Key, fetcher Fetcher, opts Options, onChange func(Result)) *Subscription {
	merged := c.merge(opts)

	c.mu.Lock()
	e := c.ensure(key, merged)
	e.fetcher = fetcher
	e.fetchCtx = ctx
	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}
	c.nextSub++
	sub := &Subscription{c: c, key: key, id: c.nextSub, onChange: onChange}
	e.subs[sub.id] = sub

	start := fetcher != nil && !e.inflight && !e.fresh(c.now())
	if start {
		e.inflight = true
		e.status = async.StatusPending
		e.err = nil
	}
	c.mu.Unlock()

	if start {
		go c.fetch(ctx, key, e, fetcher, merged)
	}
	return sub
}

// Result returns the current snapshot for the subscription's key. A key
// whose entry was evicted or cleared reads as idle.
func (s *Subscription) Result() Result {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	e, ok := s.c.entries[s.key]
	if !ok {
		return Result{Status: async.StatusIdle}
	}
	return e.result()
}

// Close unregisters the subscription. When the last subscriber leaves, the
// entry is evicted after its cache time elapses.
func (s *Subscription) Close() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	e, ok := s.c.entries[s.key]
	if !ok {
		return
	}
	delete(e.subs, s.id)
	if len(e.subs) == 0 {
		s.c.scheduleEvictLocked(e)
	}
}

// Get returns the cached value for key, if any.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// SetOption tweaks a single SetQueryData call.
type SetOption func(*Options)

// WithStaleTime overrides the seeded entry's stale time.
func WithStaleTime(d time.Duration) SetOption {
	return func(o *Options) { o.StaleTime = d }
}

// SetQueryData seeds or overwrites the value for key without a fetch, e.g.
// pre-populating book entries from a search result.
func (c *Cache) SetQueryData(key Key, value any, opts ...SetOption) {
	merged := c.defaults
	for _, opt := range opts {
		opt(&merged)
	}

	c.mu.Lock()
	e := c.ensure(key, merged)
	e.opts.StaleTime = merged.StaleTime
	e.data = value
	e.hasData = true
	e.status = async.StatusResolved
	e.err = nil
	e.invalid = false
	e.lastFetched = c.now()
	if len(e.subs) == 0 && e.evict == nil {
		c.scheduleEvictLocked(e)
	}
	subs := subscribers(e)
	res := e.result()
	c.mu.Unlock()

	notify(subs, res)
}

// Update atomically applies fn to the cached value for key. fn receives the
// current value (ok reports whether one exists) and returns the replacement;
// returning false leaves the entry untouched. The read and the write happen
// under one lock acquisition, so concurrent updates never lose each other's
// writes. fn runs with the cache locked and must not call back into it.
func (c *Cache) Update(key Key, fn func(old any, ok bool) (any, bool)) {
	c.mu.Lock()
	e, exists := c.entries[key]
	var (
		old     any
		hasData bool
	)
	if exists {
		old, hasData = e.data, e.hasData
	}
	next, commit := fn(old, hasData)
	if !commit {
		c.mu.Unlock()
		return
	}
	if !exists {
		e = c.ensure(key, c.defaults)
	}
	e.data = next
	e.hasData = true
	e.status = async.StatusResolved
	e.err = nil
	e.invalid = false
	e.lastFetched = c.now()
	if len(e.subs) == 0 && e.evict == nil {
		c.scheduleEvictLocked(e)
	}
	subs := subscribers(e)
	res := e.result()
	c.mu.Unlock()

	notify(subs, res)
}

// Invalidate marks every entry of the resource stale. Entries with active
// subscribers refetch immediately; idle entries refetch on next subscribe.
func (c *Cache) Invalidate(resource string) {
	c.invalidate(func(k Key) bool { return k.Resource == resource })
}

// InvalidateKey marks a single entry stale.
func (c *Cache) InvalidateKey(key Key) {
	c.invalidate(func(k Key) bool { return k == key })
}

func (c *Cache) invalidate(match func(Key) bool) {
	type refetch struct {
		e    *entry
		ctx  context.Context
		f    Fetcher
		opts Options
	}
	var refetches []refetch

	c.mu.Lock()
	for k, e := range c.entries {
		if !match(k) {
			continue
		}
		e.invalid = true
		if len(e.subs) > 0 && !e.inflight && e.fetcher != nil {
			e.inflight = true
			e.status = async.StatusPending
			e.err = nil
			refetches = append(refetches, refetch{e: e, ctx: e.fetchCtx, f: e.fetcher, opts: e.opts})
		}
	}
	c.mu.Unlock()

	for _, r := range refetches {
		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		go c.fetch(ctx, r.e.key, r.e, r.f, r.opts)
	}
}

// Clear evicts every entry. Results of fetches still in flight are dropped
// when they land. Called on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	var subs []*Subscription
	for _, e := range c.entries {
		if e.evict != nil {
			e.evict.Stop()
		}
		subs = append(subs, subscribers(e)...)
	}
	c.entries = map[Key]*entry{}
	c.mu.Unlock()

	notify(subs, Result{Status: async.StatusIdle})
}

// Len reports how many entries the cache holds.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fetch(ctx context.Context, key Key, e *entry, fetcher Fetcher, opts Options) {
	var (
		data any
		err  error
	)
	for attempt := 0; ; attempt++ {
		data, err = fetcher(ctx)
		if err == nil || attempt >= opts.Retry {
			break
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			break
		}
	}

	c.mu.Lock()
	// The entry may have been cleared or replaced while the fetch was in
	// flight; a stale result must not resurrect it.
	if c.entries[key] != e {
		c.mu.Unlock()
		return
	}
	e.inflight = false
	if err != nil {
		e.status = async.StatusRejected
		e.err = err
	} else {
		e.status = async.StatusResolved
		e.err = nil
		e.data = data
		e.hasData = true
		e.invalid = false
		e.lastFetched = c.now()
	}
	subs := subscribers(e)
	res := e.result()
	c.mu.Unlock()

	notify(subs, res)
}

func (c *Cache) ensure(key Key, opts Options) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			key:    key,
			opts:   opts,
			status: async.StatusIdle,
			subs:   map[int]*Subscription{},
		}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) scheduleEvictLocked(e *entry) {
	cacheTime := e.opts.CacheTime
	if cacheTime <= 0 {
		cacheTime = defaultCacheTime
	}
	if e.evict != nil {
		e.evict.Stop()
	}
	e.evict = time.AfterFunc(cacheTime, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		cur, ok := c.entries[e.key]
		if !ok || cur != e || len(cur.subs) > 0 {
			return
		}
		delete(c.entries, e.key)
	})
}

func (c *Cache) merge(opts Options) Options {
	merged := c.defaults
	if opts.StaleTime != 0 {
		merged.StaleTime = opts.StaleTime
	}
	if opts.CacheTime != 0 {
		merged.CacheTime = opts.CacheTime
	}
	if opts.Retry != 0 {
		merged.Retry = opts.Retry
	}
	if opts.ShouldRetry != nil {
		merged.ShouldRetry = opts.ShouldRetry
	}
	return merged
}

func subscribers(e *entry) []*Subscription {
	out := make([]*Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		out = append(out, s)
	}
	return out
}

func notify(subs []*Subscription, res Result) {
	for _, s := range subs {
		if s.onChange != nil {
			s.onChange(res)
		}
	}
}
