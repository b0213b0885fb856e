package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

// entry owns one live *sql.DB handle. A freshly reserved entry has a nil db
// until the handshake completes; ready is closed either way, with err set on
// failure. Readiness and the map slot are guarded by the pool mutex.
type entry struct {
	db         *sql.DB
	err        error
	ready      chan struct{}
	owner      int64
	createdAt  time.Time
	lastAccess time.Time
}

func (e *entry) pending() bool { return e.db == nil && e.err == nil }

// inUse asks the handle itself how many connections are checked out. The
// live counter, not bookkeeping, decides whether an entry may be destroyed.
func (e *entry) inUse() int {
	if e.db == nil {
		return 0
	}
	return e.db.Stats().InUse
}

// Stats are the pool's observability counters.
type Stats struct {
	Hits            int64
	Misses          int64
	Evictions       int64
	ForcedEvictions int64
	Swept           int64
}

// Pool is a bounded cache of live connection handles keyed by connection
// identity. Entries are created lazily, refreshed on every acquisition, and
// reclaimed by LRU eviction under capacity pressure or by the background
// sweep once idle past the TTL. An entry with checked-out connections is
// never reclaimed.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats

	maxEntries     int
	connsPerHandle int
	idleTTL        time.Duration
	pingTimeout    time.Duration

	sweepStop chan struct{}
	sweepDone chan struct{}

	// seams for tests
	openFn func(ctx context.Context, spec ConnectionSpec) (*sql.DB, error)
	now    func() time.Time
}

// New creates a pool capped at maxEntries handles, each owning at most
// connsPerHandle live connections, with entries idle past idleTTL eligible
// for the sweep.
func New(maxEntries, connsPerHandle int, idleTTL time.Duration) *Pool {
	p := &Pool{
		entries:        make(map[string]*entry),
		maxEntries:     maxEntries,
		connsPerHandle: connsPerHandle,
		idleTTL:        idleTTL,
		pingTimeout:    30 * time.Second,
		now:            time.Now,
	}
	p.openFn = p.openHandle
	return p
}

// Acquire returns the live handle for the spec, creating it if needed. The
// owner is recorded for targeted cleanup at logout. Blocks at most until ctx
// expires, including when another caller is mid-handshake on the same key.
func (p *Pool) Acquire(ctx context.Context, spec ConnectionSpec, owner int64) (*sql.DB, error) {
	key := spec.Key()

	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		p.stats.Hits++
		e.lastAccess = p.now()
		ready := e.ready
		p.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.db, nil
	}

	// Miss: make room first, then reserve the slot so concurrent acquirers
	// of the same key wait instead of double-connecting.
	p.stats.Misses++
	if len(p.entries) >= p.maxEntries {
		if err := p.evictLocked(); err != nil {
			p.mu.Unlock()
			return nil, err
		}
	}
	e := &entry{
		ready:      make(chan struct{}),
		owner:      owner,
		createdAt:  p.now(),
		lastAccess: p.now(),
	}
	p.entries[key] = e
	p.mu.Unlock()

	// Handshake outside the lock; the network round trip must not serialize
	// unrelated acquisitions.
	db, err := p.openFn(ctx, spec)

	p.mu.Lock()
	if err != nil {
		delete(p.entries, key)
		e.err = err
	} else {
		e.db = db
		e.lastAccess = p.now()
	}
	p.mu.Unlock()
	close(e.ready)

	if err != nil {
		return nil, err
	}
	return db, nil
}

// evictLocked frees one slot. Preference order: least-recently-accessed idle
// entry; failing that, the globally oldest ready entry (forced, logged as a
// warning). Pending entries are untouchable. Caller holds p.mu.
func (p *Pool) evictLocked() error {
	var idleKey, oldestKey string
	var idle, oldest *entry

	for key, e := range p.entries {
		if e.pending() {
			continue
		}
		if oldest == nil || e.lastAccess.Before(oldest.lastAccess) {
			oldestKey, oldest = key, e
		}
		if e.inUse() > 0 {
			continue
		}
		if idle == nil || e.lastAccess.Before(idle.lastAccess) {
			idleKey, idle = key, e
		}
	}

	if idle != nil {
		p.stats.Evictions++
		p.removeLocked(idleKey, idle)
		return nil
	}
	if oldest != nil {
		// Capacity under load: every handle has work in flight. Closing the
		// oldest lets sql.DB finish checked-out connections as they release.
		logger.Error.Printf("pool at capacity with no idle entries, force-evicting oldest (in_use=%d)", oldest.inUse())
		p.stats.ForcedEvictions++
		p.removeLocked(oldestKey, oldest)
		return nil
	}
	return core.ErrPoolExhausted
}

func (p *Pool) removeLocked(key string, e *entry) {
	delete(p.entries, key)
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			logger.Error.Printf("pool: closing evicted handle: %v", err)
		}
	}
}

// EvictOwner closes all of the owner's idle handles. Called at logout.
// Handles with in-flight queries are left for the sweep; logout must not
// fail because of a query started moments earlier.
func (p *Pool) EvictOwner(owner int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, e := range p.entries {
		if e.owner != owner || e.pending() || e.inUse() > 0 {
			continue
		}
		p.removeLocked(key, e)
	}
}

// StartSweep launches the background reclaim loop.
func (p *Pool) StartSweep(interval time.Duration) {
	p.sweepStop = make(chan struct{})
	p.sweepDone = make(chan struct{})

	go func() {
		defer close(p.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.sweepStop:
				return
			case <-ticker.C:
				n := p.sweepIdle()
				if n > 0 {
					logger.Info.Printf("pool sweep closed %d idle handle(s)", n)
				}
			}
		}
	}()
}

// StopSweep cancels the sweep loop and waits for it to drain.
func (p *Pool) StopSweep() {
	if p.sweepStop == nil {
		return
	}
	close(p.sweepStop)
	<-p.sweepDone
	p.sweepStop = nil
}

// sweepIdle disposes entries idle beyond the TTL that are confirmed idle by
// the live counter. Returns the number closed.
func (p *Pool) sweepIdle() int {
	cutoff := p.now().Add(-p.idleTTL)

	p.mu.Lock()
	var victims []*sql.DB
	for key, e := range p.entries {
		if e.pending() || e.inUse() > 0 || e.lastAccess.After(cutoff) {
			continue
		}
		delete(p.entries, key)
		victims = append(victims, e.db)
		p.stats.Swept++
	}
	p.mu.Unlock()

	for _, db := range victims {
		if err := db.Close(); err != nil {
			logger.Error.Printf("pool: closing swept handle: %v", err)
		}
	}
	return len(victims)
}

// Close stops the sweep and disposes every handle. Shutdown only.
func (p *Pool) Close() {
	p.StopSweep()

	p.mu.Lock()
	var victims []*sql.DB
	for key, e := range p.entries {
		if e.db != nil {
			victims = append(victims, e.db)
		}
		delete(p.entries, key)
	}
	p.mu.Unlock()

	for _, db := range victims {
		_ = db.Close()
	}
}

// Len reports the number of cached entries, pending included.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pool) openHandle(ctx context.Context, spec ConnectionSpec) (*sql.DB, error) {
	driver, err := DriverFor(spec.Technology)
	if err != nil {
		return nil, err
	}
	if spec.Driver != "" {
		driver = spec.Driver
	}
	dsn, err := spec.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle (%s): %w", driver, err)
	}
	db.SetMaxOpenConns(p.connsPerHandle)
	db.SetMaxIdleConns(p.connsPerHandle)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
