// Package jobmgr runs named background jobs with cancellation, lifecycle
// reporting and in-memory tracking.
//
//	jm := jobmgr.NewManager(func(ev jobmgr.Event) {
//	    log.Info().Str("job", ev.Name).Str("state", string(ev.State)).Send()
//	})
//	_ = jm.StartAsync(ctx, "sweeper", func(ctx context.Context) error {
//	    return cooldown.RunSweeper(ctx, m, time.Minute)
//	})
//	...
//	jm.StopAll()
//
// No retries and no persistence. A job is forgotten once its runner returns.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Event is a job lifecycle transition. Err is set for StateError.
type Event struct {
	Name  string
	State State
	Err   error
}

// StatusReporter receives lifecycle events. It is called from job goroutines.
type StatusReporter func(Event)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*job
	wg       sync.WaitGroup
	reporter StatusReporter
}

// NewManager creates a Manager. reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*job),
		reporter: reporter,
	}
}

// StartSync runs runner in the calling goroutine.
func (m *Manager) StartSync(ctx context.Context, name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.report(Event{Name: name, State: StateRunning})
	err := runner(ctx)
	m.finish(name, err)
	return err
}

// StartAsync runs runner in its own goroutine under a child of ctx. Starting
// a name that is already running is an error.
func (m *Manager) StartAsync(ctx context.Context, name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' is already running", name)
	}
	ctx, cancel := context.WithCancel(ctx)
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer close(j.done)
		defer cancel()

		m.report(Event{Name: name, State: StateRunning})
		err := runner(ctx)
		m.finish(name, err)

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels a running job and waits for its runner to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every job and waits for all runners to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for name, j := range m.jobs {
		j.cancel()
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// List returns the running job names, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	m.mu.Unlock()

	sort.Strings(out)
	return out
}

// Status is a one-line summary such as "Running jobs: status, sweeper".
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) finish(name string, err error) {
	if err != nil {
		m.report(Event{Name: name, State: StateError, Err: err})
		return
	}
	m.report(Event{Name: name, State: StateDone})
}

func (m *Manager) report(ev Event) {
	if m.reporter != nil {
		m.reporter(ev)
	}
}
