package cooldown

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, store Store, cfg Config) (*Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	m, err := New(context.Background(), store, cfg, WithClock(clock.Now))
	require.NoError(t, err)
	return m, clock
}

func pingRequest() Request {
	return Request{Scope: PerUser, UserID: "u1", ActionID: "command_ping", Duration: "5 s"}
}

func TestManager_EndToEnd(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t, newMemStore(), Config{})

	_, err := m.Start(ctx, pingRequest())
	require.NoError(t, err)

	d, err := m.CanRunAction(pingRequest())
	require.NoError(t, err)
	require.False(t, d.Allowed())
	msg, denied := d.Denied()
	require.True(t, denied)
	assert.Regexp(t, regexp.MustCompile(`[45]s\.$`), msg)
	assert.NotContains(t, msg, Placeholder)

	clock.Advance(6 * time.Second)
	d, err = m.CanRunAction(pingRequest())
	require.NoError(t, err)
	assert.True(t, d.Allowed())
}

func TestManager_DenialUsesRequestMessage(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil, Config{Message: "config {time}"})

	req := pingRequest()
	req.Message = "slow down, {time} left"
	_, err := m.Start(ctx, req)
	require.NoError(t, err)

	d, err := m.CanRunAction(req)
	require.NoError(t, err)
	msg, _ := d.Denied()
	assert.Equal(t, "slow down, 5s left", msg)

	req.Message = ""
	d, _ = m.CanRunAction(req)
	msg, _ = d.Denied()
	assert.Equal(t, "config 5s", msg)
}

func TestManager_LazyExpiryDoesNotRereadStore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, clock := newTestManager(t, store, Config{})

	req := Request{Scope: PerGuild, GuildID: "g1", ActionID: "command_announce", Duration: "10 m"}
	_, err := m.Start(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, store.len())

	clock.Advance(11 * time.Minute)
	loads := store.loads

	d, err := m.CanRunAction(req)
	require.NoError(t, err)
	assert.True(t, d.Allowed())
	assert.Equal(t, 0, m.Len())

	d, err = m.CanRunAction(req)
	require.NoError(t, err)
	assert.True(t, d.Allowed())
	assert.Equal(t, loads, store.loads)
	// the stale durable record waits for the next sweep
	assert.Equal(t, 1, store.len())

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, store.len())
}

func TestManager_BypassOwners(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(t, store, Config{OwnerBypass: true, OwnerIDs: []string{"owner"}})

	other := Request{Scope: Global, UserID: "u2", ActionID: "command_ping", Duration: "1 h"}
	_, err := m.Start(ctx, other)
	require.NoError(t, err)

	owner := other
	owner.UserID = "owner"
	d, err := m.CanRunAction(owner)
	require.NoError(t, err)
	assert.True(t, d.Allowed(), "owner ignores the existing global window")

	before := m.Len()
	h, err := m.Start(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, before, m.Len())
	assert.Empty(t, h.Key())
	require.NoError(t, h.Cancel(ctx))
	require.NoError(t, h.UpdateExpiry(ctx, time.Now().Add(time.Hour)))

	d, _ = m.CanRunAction(other)
	assert.False(t, d.Allowed(), "bypassed handle must not touch the shared window")
}

func TestManager_BypassFlagOff(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil, Config{OwnerBypass: false, OwnerIDs: []string{"owner"}})

	req := Request{Scope: PerUser, UserID: "owner", ActionID: "command_ping", Duration: 30}
	_, err := m.Start(ctx, req)
	require.NoError(t, err)
	d, _ := m.CanRunAction(req)
	assert.False(t, d.Allowed())
}

func TestManager_StartValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(t, store, Config{})

	_, err := m.Start(ctx, Request{Scope: "hourly", UserID: "u1", ActionID: "a", Duration: 5})
	var unknown *UnknownScopeError
	assert.ErrorAs(t, err, &unknown)

	_, err = m.Start(ctx, Request{Scope: PerUser, UserID: "u1", ActionID: "a", Duration: "5 weeks"})
	var malformed *MalformedDurationError
	assert.ErrorAs(t, err, &malformed)

	for _, s := range []Scope{PerGuild, PerUserPerGuild} {
		_, err = m.Start(ctx, Request{Scope: s, UserID: "u1", ActionID: "a", Duration: "1 d"})
		var invalid *InvalidScopeError
		assert.ErrorAs(t, err, &invalid)

		_, err = m.CanRunAction(Request{Scope: s, UserID: "u1", ActionID: "a"})
		assert.ErrorAs(t, err, &invalid)
	}

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, store.len())
}

func TestManager_DurabilityThreshold(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, clock := newTestManager(t, store, Config{})

	short := Request{Scope: PerUser, UserID: "u1", ActionID: "command_ping", Duration: "4 m"}
	h, err := m.Start(ctx, short)
	require.NoError(t, err)
	_, ok := store.get(h.Key())
	assert.False(t, ok, "windows under the threshold stay in memory")

	exact := Request{Scope: PerUser, UserID: "u1", ActionID: "command_exact", Duration: 300}
	h2, err := m.Start(ctx, exact)
	require.NoError(t, err)
	_, ok = store.get(h2.Key())
	assert.True(t, ok, "threshold is inclusive on start")

	target := clock.Now().Add(10 * time.Minute)
	require.NoError(t, h.UpdateExpiry(ctx, target))
	got, ok := store.get(h.Key())
	require.True(t, ok, "extended window is promoted")
	assert.True(t, got.Equal(target))
}

func TestManager_UpdateExpiryThresholdIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, clock := newTestManager(t, store, Config{DurableThreshold: time.Minute})

	req := Request{Scope: Global, ActionID: "command_x", Duration: 10}
	_, err := m.Start(ctx, req)
	require.NoError(t, err)

	require.NoError(t, m.UpdateExpiry(ctx, req, clock.Now().Add(time.Minute)))
	assert.Equal(t, 0, store.len())

	require.NoError(t, m.UpdateExpiry(ctx, req, clock.Now().Add(time.Minute+time.Second)))
	assert.Equal(t, 1, store.len())
}

func TestManager_CancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(t, store, Config{})

	req := Request{Scope: PerUserPerGuild, UserID: "u1", GuildID: "g1", ActionID: "command_daily", Duration: "1 d"}
	h, err := m.Start(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, store.len())

	require.NoError(t, h.Cancel(ctx))
	require.NoError(t, h.Cancel(ctx))
	assert.Equal(t, 0, store.len())

	d, _ := m.CanRunAction(req)
	assert.True(t, d.Allowed())
}

func TestManager_StartOverwrites(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t, nil, Config{})

	req := pingRequest()
	req.Duration = "1 h"
	_, err := m.Start(ctx, req)
	require.NoError(t, err)

	req.Duration = "10 s"
	_, err = m.Start(ctx, req)
	require.NoError(t, err)

	clock.Advance(11 * time.Second)
	d, _ := m.CanRunAction(req)
	assert.True(t, d.Allowed(), "last writer wins")
}

func TestManager_LoadPurgesAndRehydrates(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newMemStore()
	store.records["u1-command_daily"] = clock.Now().Add(time.Hour)
	store.records["u2-command_daily"] = clock.Now().Add(-time.Hour)

	m, err := New(ctx, store, Config{}, WithClock(clock.Now))
	require.NoError(t, err)

	assert.Equal(t, 1, store.len())
	assert.Equal(t, 1, m.Len())

	d, err := m.CanRunAction(Request{Scope: PerUser, UserID: "u1", ActionID: "command_daily"})
	require.NoError(t, err)
	msg, denied := d.Denied()
	require.True(t, denied)
	assert.Contains(t, msg, "1h 0m 0s")
}

func TestManager_LoadFailure(t *testing.T) {
	store := newMemStore()
	store.failOn["load_all"] = errors.New("disk gone")

	_, err := New(context.Background(), store, Config{})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load_all", se.Op)
	assert.Equal(t, "cooldown store load_all: disk gone", err.Error())
}

func TestStoreError_NamesKeyWhenSet(t *testing.T) {
	err := &StoreError{Op: "upsert", Key: "u1-command_daily", Err: errors.New("boom")}
	assert.Equal(t, `cooldown store upsert "u1-command_daily": boom`, err.Error())
}

func TestManager_StartRejectsOverflowingDuration(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newMemStore(), Config{})

	for _, d := range []any{"110000 d", int64(1) << 40} {
		req := Request{Scope: PerUser, UserID: "u1", ActionID: "command_daily", Duration: d}
		h, err := m.Start(ctx, req)
		var malformed *MalformedDurationError
		require.ErrorAs(t, err, &malformed, "%v", d)
		assert.Equal(t, "too large", malformed.Reason)
		assert.Nil(t, h)
	}
	assert.Zero(t, m.Len())

	// the longest representable window is still enforced
	req := Request{Scope: PerUser, UserID: "u1", ActionID: "command_daily", Duration: "100000 d"}
	_, err := m.Start(ctx, req)
	require.NoError(t, err)
	d, err := m.CanRunAction(req)
	require.NoError(t, err)
	assert.False(t, d.Allowed())
}

func TestManager_StoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(t, store, Config{})
	boom := errors.New("boom")
	store.failOn["upsert"] = boom

	req := Request{Scope: PerUser, UserID: "u1", ActionID: "command_daily", Duration: "1 d"}
	h, err := m.Start(ctx, req)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, h, "handle still returned so the caller can refund")

	d, _ := m.CanRunAction(req)
	assert.False(t, d.Allowed(), "cache keeps the write-through state")

	store.failOn["delete"] = boom
	assert.ErrorIs(t, m.Cancel(ctx, req), boom)
}

func TestManager_RemainingAndSnapshot(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t, nil, Config{})

	_, err := m.Start(ctx, Request{Scope: Global, ActionID: "b", Duration: "10 m"})
	require.NoError(t, err)
	_, err = m.Start(ctx, Request{Scope: Global, ActionID: "a", Duration: 30})
	require.NoError(t, err)

	rem, ok, err := m.Remaining(Request{Scope: Global, ActionID: "a"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, rem)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Key)
	assert.False(t, snap[0].Durable)
	assert.True(t, snap[1].Durable)

	clock.Advance(time.Minute)
	assert.Len(t, m.Snapshot(), 1)
}

func TestHandle_Extend(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil, Config{})

	h, err := m.Start(ctx, Request{Scope: PerUser, UserID: "u1", ActionID: "command_x", Duration: 30})
	require.NoError(t, err)
	require.NoError(t, h.Extend(ctx, 30*time.Second))

	rem, ok, _ := m.Remaining(h.Request())
	require.True(t, ok)
	assert.Equal(t, time.Minute, rem)

	var nilHandle *Handle
	assert.NoError(t, nilHandle.Extend(ctx, time.Second))
	assert.NoError(t, nilHandle.Cancel(ctx))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newMemStore(), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := Request{Scope: PerGuild, GuildID: "g1", ActionID: "command_announce", Duration: "10 m"}
			if i%2 == 0 {
				_, _ = m.Start(ctx, req)
			} else {
				_, _ = m.CanRunAction(req)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 0, m.locks.size())
}
