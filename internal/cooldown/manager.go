// Package cooldown tracks rate-limit windows for command invocations.
//
// Every active window lives in an in-process cache that is authoritative for
// decisions. Windows at or above the durability threshold are mirrored into a
// Store so they survive restarts; shorter ones are lost on restart.
package cooldown

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDurableThreshold is the minimum window length mirrored to the Store.
const DefaultDurableThreshold = 300 * time.Second

// Config is read once at construction.
type Config struct {
	// Message is the denial template; it must contain Placeholder once.
	Message string
	// OwnerBypass lets OwnerIDs skip every cooldown.
	OwnerBypass bool
	OwnerIDs    []string
	// DurableThreshold defaults to DefaultDurableThreshold when zero or
	// negative. Use a nil Store to keep every window in memory.
	DurableThreshold time.Duration
}

// Request identifies a cooldown window and, for Start, how long it lasts.
type Request struct {
	Scope    Scope
	UserID   string
	ActionID string
	GuildID  string
	// Duration is seconds as an integer, a time.Duration, or a string like "10 m".
	Duration any
	// Message overrides the configured denial template.
	Message string
}

// Key derives the request's window key.
func (r Request) Key() (string, error) {
	return Key(r.Scope, r.UserID, r.ActionID, r.GuildID)
}

// Decision is the outcome of CanRunAction.
type Decision struct {
	denied  bool
	message string
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool { return !d.denied }

// Denied returns the rendered denial message when the action is blocked.
func (d Decision) Denied() (string, bool) { return d.message, d.denied }

func allow() Decision          { return Decision{} }
func deny(msg string) Decision { return Decision{denied: true, message: msg} }

// Recorder observes manager activity. internal/metrics provides a Prometheus one.
type Recorder interface {
	Decision(actionID string, allowed bool)
	Started(scope Scope, durable bool)
	StoreFailed(op string)
}

type nopRecorder struct{}

func (nopRecorder) Decision(string, bool) {}
func (nopRecorder) Started(Scope, bool)   {}
func (nopRecorder) StoreFailed(string)    {}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for load and store events.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.rec = r }
}

// Manager owns the window cache and is the sole writer of durable records.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	cache  map[string]time.Time
	store  Store
	locks  *keyLocks
	cfg    Config
	owners map[string]struct{}
	now    func() time.Time
	log    zerolog.Logger
	rec    Recorder
}

// New builds a Manager, purges expired durable records and loads the rest
// into the cache. A nil store keeps every window in memory only.
func New(ctx context.Context, store Store, cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if cfg.DurableThreshold <= 0 {
		cfg.DurableThreshold = DefaultDurableThreshold
	}

	m := &Manager{
		cache:  make(map[string]time.Time),
		store:  store,
		locks:  newKeyLocks(),
		cfg:    cfg,
		owners: make(map[string]struct{}, len(cfg.OwnerIDs)),
		now:    time.Now,
		log:    zerolog.Nop(),
		rec:    nopRecorder{},
	}
	for _, id := range cfg.OwnerIDs {
		m.owners[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	now := m.now()
	purged, err := m.store.DeleteExpired(ctx, now)
	if err != nil {
		m.rec.StoreFailed("delete_expired")
		return &StoreError{Op: "delete_expired", Err: err}
	}

	records, err := m.store.LoadAll(ctx)
	if err != nil {
		m.rec.StoreFailed("load_all")
		return &StoreError{Op: "load_all", Err: err}
	}

	m.mu.Lock()
	for _, r := range records {
		if r.Expires.After(now) {
			m.cache[r.ID] = r.Expires
		}
	}
	loaded := len(m.cache)
	m.mu.Unlock()

	m.log.Info().Int("purged", purged).Int("loaded", loaded).Msg("Cooldowns restored from store")
	return nil
}

func (m *Manager) bypassed(userID string) bool {
	if !m.cfg.OwnerBypass || userID == "" {
		return false
	}
	_, ok := m.owners[userID]
	return ok
}

// Start opens a window for req and returns a handle bound to it. Owners with
// bypass get a handle whose methods do nothing. The cache entry is replaced
// unconditionally; windows of at least DurableThreshold are also upserted
// into the store.
func (m *Manager) Start(ctx context.Context, req Request) (*Handle, error) {
	if m.bypassed(req.UserID) {
		return &Handle{m: m, req: req, bypass: true}, nil
	}
	if !req.Scope.Valid() {
		return nil, &UnknownScopeError{Scope: req.Scope}
	}

	secs, err := ParseSeconds(req.Duration)
	if err != nil {
		return nil, err
	}
	if secs > maxSeconds {
		return nil, &MalformedDurationError{Value: req.Duration, Reason: "too large"}
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}

	d := time.Duration(secs) * time.Second
	expires := m.now().Add(d)
	durable := m.store != nil && d >= m.cfg.DurableThreshold

	unlock := m.locks.lock(key)
	defer unlock()

	m.mu.Lock()
	m.cache[key] = expires
	m.mu.Unlock()

	h := &Handle{m: m, req: req, key: key}
	m.rec.Started(req.Scope, durable)

	if durable {
		if err := m.store.Upsert(ctx, Record{ID: key, Expires: expires}); err != nil {
			m.rec.StoreFailed("upsert")
			return h, &StoreError{Op: "upsert", Key: key, Err: err}
		}
	}
	return h, nil
}

// CanRunAction decides whether req may proceed. It reads only the cache.
// An expired entry is dropped on sight; its durable record, if any, stays
// until the next sweep.
func (m *Manager) CanRunAction(req Request) (Decision, error) {
	if m.bypassed(req.UserID) {
		m.rec.Decision(req.ActionID, true)
		return allow(), nil
	}

	key, err := req.Key()
	if err != nil {
		return Decision{}, err
	}

	now := m.now()
	m.mu.Lock()
	expires, ok := m.cache[key]
	if ok && now.After(expires) {
		delete(m.cache, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		m.rec.Decision(req.ActionID, true)
		return allow(), nil
	}

	tmpl := req.Message
	if tmpl == "" {
		tmpl = m.cfg.Message
	}
	m.rec.Decision(req.ActionID, false)
	return deny(Render(tmpl, expires.Sub(now))), nil
}

// Cancel removes the window for req from the cache and the store.
func (m *Manager) Cancel(ctx context.Context, req Request) error {
	key, err := req.Key()
	if err != nil {
		return err
	}

	unlock := m.locks.lock(key)
	defer unlock()

	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, key); err != nil {
		m.rec.StoreFailed("delete")
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// UpdateExpiry moves the window for req to expires. If the new remaining time
// exceeds DurableThreshold the record is upserted, which promotes short
// windows that were never persisted.
func (m *Manager) UpdateExpiry(ctx context.Context, req Request, expires time.Time) error {
	key, err := req.Key()
	if err != nil {
		return err
	}

	unlock := m.locks.lock(key)
	defer unlock()

	m.mu.Lock()
	m.cache[key] = expires
	m.mu.Unlock()

	if m.store == nil || expires.Sub(m.now()) <= m.cfg.DurableThreshold {
		return nil
	}
	if err := m.store.Upsert(ctx, Record{ID: key, Expires: expires}); err != nil {
		m.rec.StoreFailed("upsert")
		return &StoreError{Op: "upsert", Key: key, Err: err}
	}
	return nil
}

// Remaining reports the time left on req's window without mutating anything.
func (m *Manager) Remaining(req Request) (time.Duration, bool, error) {
	key, err := req.Key()
	if err != nil {
		return 0, false, err
	}
	now := m.now()

	m.mu.Lock()
	expires, ok := m.cache[key]
	m.mu.Unlock()

	if !ok || now.After(expires) {
		return 0, false, nil
	}
	return expires.Sub(now), true, nil
}

// Sweep deletes expired durable records. The cache is left to lazy expiry.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		m.rec.StoreFailed("delete_expired")
		return 0, &StoreError{Op: "delete_expired", Err: err}
	}
	return n, nil
}

// Window is a point-in-time view of an active cache entry.
type Window struct {
	Key       string        `json:"key"`
	ExpiresAt time.Time     `json:"expires_at"`
	Remaining time.Duration `json:"remaining"`
	Durable   bool          `json:"durable"`
}

// Snapshot lists unexpired windows sorted by key. Durable marks windows long
// enough to have been mirrored; it is not a read of the store.
func (m *Manager) Snapshot() []Window {
	now := m.now()

	m.mu.Lock()
	out := make([]Window, 0, len(m.cache))
	for k, exp := range m.cache {
		if now.After(exp) {
			continue
		}
		rem := exp.Sub(now)
		out = append(out, Window{Key: k, ExpiresAt: exp, Remaining: rem, Durable: rem >= m.cfg.DurableThreshold})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of cache entries, expired ones included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// Owners returns the configured bypass owner ids.
func (m *Manager) Owners() []string {
	return slices.Clone(m.cfg.OwnerIDs)
}
