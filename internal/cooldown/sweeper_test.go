package cooldown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRunSweeper_DeletesExpiredAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	clock := newFakeClock()
	m, err := New(context.Background(), store, Config{}, WithClock(clock.Now))
	require.NoError(t, err)

	store.records["old"] = clock.Now().Add(time.Minute)
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunSweeper(ctx, m, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return store.len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRunSweeper_DisabledInterval(t *testing.T) {
	m, err := New(context.Background(), nil, Config{})
	require.NoError(t, err)
	assert.NoError(t, RunSweeper(context.Background(), m, 0))
}

type failureCounter struct {
	nopRecorder
	failed atomic.Int32
}

func (f *failureCounter) StoreFailed(string) { f.failed.Add(1) }

func TestRunSweeper_SurvivesStoreErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	clock := newFakeClock()
	rec := &failureCounter{}
	m, err := New(context.Background(), store, Config{}, WithClock(clock.Now), WithRecorder(rec))
	require.NoError(t, err)

	store.mu.Lock()
	store.records["old"] = clock.Now().Add(time.Minute)
	store.failOn["delete_expired"] = errors.New("disk full")
	store.mu.Unlock()
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunSweeper(ctx, m, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return rec.failed.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, store.len())

	store.mu.Lock()
	delete(store.failOn, "delete_expired")
	store.mu.Unlock()
	require.Eventually(t, func() bool { return store.len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
