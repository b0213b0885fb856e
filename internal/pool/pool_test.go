package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

// stubDriver hands out no-op connections. The tests only need sql.DB
// bookkeeping (Stats().InUse via db.Conn), never real statements.
type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (*stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("statements not supported")
}
func (*stubConn) Close() error              { return nil }
func (*stubConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

func init() {
	sql.Register("pooltest", stubDriver{})
}

func TestMain(m *testing.M) {
	logger.InitDiscard()
	m.Run()
}

// fakeClock lets tests move the pool's idea of time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestPool(t *testing.T, maxEntries int, idleTTL time.Duration) (*Pool, *fakeClock) {
	t.Helper()

	p := New(maxEntries, 2, idleTTL)
	clock := newFakeClock()
	p.now = clock.Now
	p.openFn = func(ctx context.Context, spec ConnectionSpec) (*sql.DB, error) {
		return sql.Open("pooltest", spec.Key())
	}
	t.Cleanup(p.Close)
	return p, clock
}

func spec(user, server, database string) ConnectionSpec {
	return ConnectionSpec{
		Technology: "sqlite",
		Username:   user,
		Password:   "pw",
		Server:     server,
		Database:   database,
	}
}

func TestAcquire_MissThenHit(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	db1, err := p.Acquire(ctx, spec("alice", "srv1", "db1"), 1)
	require.NoError(t, err)

	db2, err := p.Acquire(ctx, spec("alice", "srv1", "db1"), 1)
	require.NoError(t, err)

	assert.Same(t, db1, db2, "same spec should reuse the handle")
	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, p.Len())
}

func TestAcquire_DistinctSpecsGetDistinctHandles(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	db1, err := p.Acquire(ctx, spec("alice", "srv1", "db1"), 1)
	require.NoError(t, err)

	// Same user different database, and different user same database.
	db2, err := p.Acquire(ctx, spec("alice", "srv1", "db2"), 1)
	require.NoError(t, err)
	db3, err := p.Acquire(ctx, spec("bob", "srv1", "db1"), 2)
	require.NoError(t, err)

	assert.NotSame(t, db1, db2)
	assert.NotSame(t, db1, db3)
	assert.Equal(t, 3, p.Len())
}

func TestAcquire_HandshakeFailureIsNotCached(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	bad := errors.New("login failed")
	p.openFn = func(ctx context.Context, spec ConnectionSpec) (*sql.DB, error) {
		return nil, bad
	}

	_, err := p.Acquire(ctx, spec("alice", "srv1", "db1"), 1)
	require.ErrorIs(t, err, bad)
	assert.Equal(t, 0, p.Len(), "failed handshake must not leave an entry behind")

	// A retry with working credentials succeeds.
	p.openFn = func(ctx context.Context, spec ConnectionSpec) (*sql.DB, error) {
		return sql.Open("pooltest", spec.Key())
	}
	_, err = p.Acquire(ctx, spec("alice", "srv1", "db1"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Stats().Misses)
}

func TestAcquire_ConcurrentSameKeySingleHandshake(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	var opens atomic.Int64
	gate := make(chan struct{})
	p.openFn = func(ctx context.Context, spec ConnectionSpec) (*sql.DB, error) {
		opens.Add(1)
		<-gate
		return sql.Open("pooltest", spec.Key())
	}

	const workers = 8
	results := make(chan *sql.DB, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, err := p.Acquire(ctx, spec("alice", "srv1", "db1"), 1)
			results <- db
			errs <- err
		}()
	}

	// Give the goroutines time to pile up on the pending entry, then
	// release the single handshake.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	var first *sql.DB
	for db := range results {
		if first == nil {
			first = db
			continue
		}
		assert.Same(t, first, db, "all waiters should get the one handle")
	}
	assert.Equal(t, int64(1), opens.Load(), "only one handshake for the key")
}

func TestEvict_LeastRecentlyUsedIdle(t *testing.T) {
	p, clock := newTestPool(t, 2, time.Hour)
	ctx := context.Background()

	_, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = p.Acquire(ctx, spec("alice", "srv1", "b"), 1)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	// Touch "a" so "b" becomes least recently used.
	_, err = p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = p.Acquire(ctx, spec("alice", "srv1", "c"), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, int64(1), p.Stats().Evictions)

	// "a" survived; acquiring it again is a hit.
	before := p.Stats().Hits
	_, err = p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	assert.Equal(t, before+1, p.Stats().Hits)
}

func TestEvict_NeverPicksEntryWithCheckedOutConns(t *testing.T) {
	p, clock := newTestPool(t, 2, time.Hour)
	ctx := context.Background()

	// "a" is oldest AND busy; "b" is newer but idle.
	dbA, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	conn, err := dbA.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	clock.Advance(time.Minute)
	_, err = p.Acquire(ctx, spec("alice", "srv1", "b"), 1)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = p.Acquire(ctx, spec("alice", "srv1", "c"), 1)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, int64(0), stats.ForcedEvictions)

	// The busy entry is still cached.
	before := p.Stats().Hits
	_, err = p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	assert.Equal(t, before+1, p.Stats().Hits)
}

func TestEvict_ForcedWhenEveryEntryBusy(t *testing.T) {
	p, _ := newTestPool(t, 1, time.Hour)
	ctx := context.Background()

	dbA, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	conn, err := dbA.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = p.Acquire(ctx, spec("alice", "srv1", "b"), 1)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.ForcedEvictions)
	assert.Equal(t, 1, p.Len())
}

func TestEvict_AllPendingExhaustsPool(t *testing.T) {
	p, clock := newTestPool(t, 1, time.Hour)
	ctx := context.Background()

	// A reservation mid-handshake cannot be evicted.
	p.mu.Lock()
	p.entries["pending-key"] = &entry{
		ready:      make(chan struct{}),
		createdAt:  clock.Now(),
		lastAccess: clock.Now(),
	}
	p.mu.Unlock()

	_, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.ErrorIs(t, err, core.ErrPoolExhausted)
}

func TestEvictOwner_ClosesOnlyIdleOwnedEntries(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	dbBusy, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	conn, err := dbBusy.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = p.Acquire(ctx, spec("alice", "srv1", "b"), 1)
	require.NoError(t, err)
	_, err = p.Acquire(ctx, spec("bob", "srv1", "c"), 2)
	require.NoError(t, err)

	p.EvictOwner(1)

	// The busy handle and the other owner's handle remain.
	assert.Equal(t, 2, p.Len())
	hits := p.Stats().Hits
	_, err = p.Acquire(ctx, spec("bob", "srv1", "c"), 2)
	require.NoError(t, err)
	assert.Equal(t, hits+1, p.Stats().Hits)
}

func TestSweepIdle_ReclaimsExpiredIdleOnly(t *testing.T) {
	p, clock := newTestPool(t, 10, time.Minute)
	ctx := context.Background()

	_, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)
	dbBusy, err := p.Acquire(ctx, spec("alice", "srv1", "b"), 1)
	require.NoError(t, err)
	conn, err := dbBusy.Conn(ctx)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, p.sweepIdle(), "only the idle expired entry is swept")
	assert.Equal(t, 1, p.Len())

	// Once the connection is returned, the survivor is sweepable too.
	require.NoError(t, conn.Close())
	assert.Equal(t, 1, p.sweepIdle())
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, int64(2), p.Stats().Swept)
}

func TestSweepIdle_FreshEntriesSurvive(t *testing.T) {
	p, clock := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	_, err := p.Acquire(ctx, spec("alice", "srv1", "a"), 1)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	assert.Equal(t, 0, p.sweepIdle())
	assert.Equal(t, 1, p.Len())
}

func TestStartStopSweep(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)

	p.StartSweep(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	p.StopSweep()

	// Idempotent; a second stop must not panic or block.
	p.StopSweep()
}

func TestClose_DisposesEverything(t *testing.T) {
	p, _ := newTestPool(t, 10, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Acquire(ctx, spec("alice", "srv1", fmt.Sprintf("db%d", i)), 1)
		require.NoError(t, err)
	}

	p.Close()
	assert.Equal(t, 0, p.Len())
}
