package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/keshon/cmdguard/datastore"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/internal/metrics"
)

func newManager(t *testing.T) *cooldown.Manager {
	t.Helper()
	m, err := cooldown.New(context.Background(), nil, cooldown.Config{})
	require.NoError(t, err)
	for _, req := range []cooldown.Request{
		{Scope: cooldown.PerUser, UserID: "u1", ActionID: "command_ping", Duration: "5 s"},
		{Scope: cooldown.PerGuild, GuildID: "g1", ActionID: "command_announce", Duration: "10 m"},
	} {
		_, err := m.Start(context.Background(), req)
		require.NoError(t, err)
	}
	return m
}

func TestHealthz(t *testing.T) {
	srv := New("", newManager(t), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthz_StoreStats(t *testing.T) {
	ds, err := datastore.New(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	defer ds.Close()
	require.NoError(t, ds.Set("cooldown:u1-command_daily", "2999-01-01T00:00:00Z"))
	require.NoError(t, ds.SaveToFile())

	srv := New("", newManager(t), nil, zerolog.Nop(), WithStore("datastore", func() any { return ds.Stats() }))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
		Store  struct {
			Driver string          `json:"driver"`
			Stats  datastore.Stats `json:"stats"`
		} `json:"store"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "datastore", body.Store.Driver)
	assert.Equal(t, 1, body.Store.Stats.Keys)
	assert.True(t, body.Store.Stats.Saved)
}

func TestCooldowns(t *testing.T) {
	srv := New("", newManager(t), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cooldowns", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count     int          `json:"count"`
		Cooldowns []windowView `json:"cooldowns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "g1-command_announce", body.Cooldowns[0].Key)
	assert.True(t, body.Cooldowns[0].Durable)
	assert.Equal(t, "u1-command_ping", body.Cooldowns[1].Key)
	assert.False(t, body.Cooldowns[1].Durable)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cooldowns?prefix=u1-", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newManager(t)
	metrics.RegisterActive(reg, m)

	srv := New("", m, reg, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cmdguard_cooldown_windows_cached 2")
}

func TestMetricsNotMountedWithoutGatherer(t *testing.T) {
	srv := New("", newManager(t), nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := New(addr, newManager(t), nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	http.DefaultClient.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
