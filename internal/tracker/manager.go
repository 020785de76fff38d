package tracker

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

// Manager owns the set of active trackers. Entries are ordered by
// insertion and unique by job id: adding a job that is already tracked
// returns the existing tracker instead of opening a second channel.
type Manager struct {
	client Client
	opts   Opts
	logger *log.Logger

	mu       sync.Mutex
	order    []string
	trackers map[string]*Tracker
	updates  chan Update
}

// NewManager builds an empty manager. All trackers it creates share
// opts and fan their updates into a single channel.
func NewManager(client Client, opts Opts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Manager{
		client:   client,
		opts:     opts,
		logger:   opts.Logger,
		trackers: make(map[string]*Tracker),
		updates:  make(chan Update, 64),
	}
}

// Updates returns the fan-in channel of tracker observations.
func (m *Manager) Updates() <-chan Update { return m.updates }

// Add registers an entry and starts its tracker. A duplicate job id
// returns the already-running tracker unchanged.
func (m *Manager) Add(entry Entry) *Tracker {
	m.mu.Lock()
	if existing, ok := m.trackers[entry.JobID]; ok {
		m.mu.Unlock()
		return existing
	}
	t := newTracker(entry, m.client, m.updates, m.opts)
	m.trackers[entry.JobID] = t
	m.order = append(m.order, entry.JobID)
	m.mu.Unlock()

	t.start()
	return t
}

// AddAll registers entries in order, preserving batch submission
// order in the collection.
func (m *Manager) AddAll(entries []Entry) []*Tracker {
	trackers := make([]*Tracker, 0, len(entries))
	for _, e := range entries {
		trackers = append(trackers, m.Add(e))
	}
	return trackers
}

// Get returns the tracker for a job id, if tracked.
func (m *Manager) Get(jobID string) (*Tracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[jobID]
	return t, ok
}

// Remove drops an entry and disposes its tracker exactly once.
// Removing an unknown id is a no-op.
func (m *Manager) Remove(jobID string) {
	m.mu.Lock()
	t, ok := m.trackers[jobID]
	if ok {
		delete(m.trackers, jobID)
		for i, id := range m.order {
			if id == jobID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if ok {
		t.Dispose()
	}
}

// Clear disposes and drops every tracker.
func (m *Manager) Clear() {
	m.mu.Lock()
	dropped := make([]*Tracker, 0, len(m.trackers))
	for _, id := range m.order {
		dropped = append(dropped, m.trackers[id])
	}
	m.order = nil
	m.trackers = make(map[string]*Tracker)
	m.mu.Unlock()

	for _, t := range dropped {
		t.Dispose()
	}
}

// Trackers returns the tracked set in insertion order.
func (m *Manager) Trackers() []*Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Tracker, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.trackers[id])
	}
	return out
}

// Entries returns the tracked entries in insertion order.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.trackers[id].Entry())
	}
	return out
}

// Len reports how many jobs are tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
