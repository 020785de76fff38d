// Package tracker follows download jobs from submission to a terminal
// state. A Tracker owns at most one live progress channel per job and
// decides terminal actions; the Manager aggregates trackers for
// presentation.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/music-downloader-hub/tunepull/internal/stream"
)

// Client covers the backend operations a tracker performs. It is
// satisfied by services.DownloadsClient.
type Client interface {
	Status(ctx context.Context, jobID string) (*services.Job, error)
	Progress(ctx context.Context, jobID string) (*models.ProgressSnapshot, error)
	Cancel(ctx context.Context, jobID string) error
	SaveArchive(ctx context.Context, jobID, path string) error
	EventsURL(jobID string) string
	HTTPClient() *http.Client
}

// State is a tracker's lifecycle position. It extends the backend's
// job statuses with the pre-query Initializing state.
type State string

const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

func stateFor(status models.JobStatus) State {
	switch status {
	case models.JobCompleted:
		return StateCompleted
	case models.JobFailed:
		return StateFailed
	case models.JobCancelled:
		return StateCancelled
	default:
		return StateRunning
	}
}

// Entry identifies one tracked download in the manager's collection.
type Entry struct {
	JobID       string
	DisplayName string
	FormatLabel string
}

// Update is a tracker observation fanned in to the manager's updates
// channel. Err carries recoverable failures worth showing the user.
type Update struct {
	JobID    string
	State    State
	Progress *models.ProgressSnapshot
	Err      error
}

// Opts configures a tracker's environment.
type Opts struct {
	// OutputDir receives fetched archives.
	OutputDir string
	// AutoOpen opens the archive with the OS handler after the
	// automatic fetch.
	AutoOpen bool
	Stream   stream.Opts
	Logger   *log.Logger
}

// Tracker drives a single job from attach to terminal state.
type Tracker struct {
	entry  Entry
	client Client
	opts   Opts
	logger *log.Logger
	sink   chan<- Update

	mu       sync.Mutex
	state    State
	progress *models.ProgressSnapshot
	channel  *stream.Channel

	fetchOnce sync.Once
	fetched   bool

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// newTracker builds a tracker without starting it. The Manager starts
// trackers so the running set stays unique per job id.
func newTracker(entry Entry, client Client, sink chan<- Update, opts Opts) *Tracker {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Stream.HTTPClient == nil {
		opts.Stream.HTTPClient = client.HTTPClient()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		entry:  entry,
		client: client,
		opts:   opts,
		logger: opts.Logger,
		sink:   sink,
		state:  StateInitializing,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Entry returns the identifying record for this tracker.
func (t *Tracker) Entry() Entry { return t.entry }

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns the most recent snapshot, or nil before any
// progress was observed.
func (t *Tracker) Progress() *models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Fetched reports whether the automatic archive retrieval has fired.
func (t *Tracker) Fetched() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetched
}

// Done is closed when the tracker's goroutine has stopped.
func (t *Tracker) Done() <-chan struct{} { return t.done }

func (t *Tracker) start() {
	go t.run()
}

func (t *Tracker) run() {
	defer close(t.done)

	job, err := t.client.Status(t.ctx, t.entry.JobID)
	switch {
	case err != nil:
		if t.ctx.Err() != nil {
			return
		}
		// A failed one-shot query does not mean streaming will fail.
		t.logger.Warn("initial status query failed, streaming anyway", "job", t.entry.JobID, "err", err)
		t.notifyErr(err)
	case job.Status.IsTerminal():
		// Jobs that finished before attach get no channel and no
		// automatic retrieval.
		t.transition(stateFor(job.Status), nil)
		return
	default:
		t.transition(StateRunning, nil)
	}

	ch := stream.New(t.client.EventsURL(t.entry.JobID), t.entry.JobID, t.client, t.opts.Stream)
	t.mu.Lock()
	if t.ctx.Err() != nil {
		t.mu.Unlock()
		ch.Dispose()
		return
	}
	t.channel = ch
	t.mu.Unlock()

	for {
		select {
		case <-t.ctx.Done():
			ch.Dispose()
			return
		case ev, ok := <-ch.Events():
			if !ok {
				return
			}
			t.observe(ev)
		}
	}
}

func (t *Tracker) observe(ev stream.Event) {
	switch ev.Type {
	case stream.EventStart:
		t.transition(StateRunning, nil)
	case stream.EventProgress:
		t.transition(StateRunning, ev.Progress)
	case stream.EventEnd:
		state := stateFor(ev.Status)
		if t.transition(state, nil) && state == StateCompleted {
			t.autoFetch()
		}
	}
}

// transition records a state change and emits an update, reporting
// whether the change was applied. The first terminal state wins: once
// reached, every later signal is ignored, including stale terminal
// events still buffered on a disposed channel.
func (t *Tracker) transition(next State, snap *models.ProgressSnapshot) bool {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return false
	}
	t.state = next
	if snap != nil {
		t.progress = snap
	}
	t.mu.Unlock()

	t.emit(Update{JobID: t.entry.JobID, State: next, Progress: snap})
	return true
}

// autoFetch retrieves the archive at most once per tracker, no matter
// how many terminal signals arrive.
func (t *Tracker) autoFetch() {
	t.fetchOnce.Do(func() {
		t.mu.Lock()
		t.fetched = true
		t.mu.Unlock()

		path, err := t.saveArchive(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			t.logger.Error("automatic archive retrieval failed", "job", t.entry.JobID, "err", err)
			t.notifyErr(err)
			return
		}
		t.logger.Info("archive saved", "job", t.entry.JobID, "path", path)
		if t.opts.AutoOpen {
			if err := shared.OpenBrowser(path); err != nil {
				t.logger.Warn("could not open archive", "path", path, "err", err)
			}
		}
	})
}

// Fetch retrieves the archive on user request. The one-shot latch only
// guards the automatic retrieval; completed jobs may be fetched again
// at any time.
func (t *Tracker) Fetch(ctx context.Context) (string, error) {
	if t.State() != StateCompleted {
		return "", fmt.Errorf("%w: job %s has not completed", shared.ErrValidation, t.entry.JobID)
	}
	return t.saveArchive(ctx)
}

func (t *Tracker) saveArchive(ctx context.Context) (string, error) {
	path := filepath.Join(t.opts.OutputDir, archiveName(t.entry.DisplayName, t.entry.JobID))
	if err := t.client.SaveArchive(ctx, t.entry.JobID, path); err != nil {
		return "", err
	}
	return path, nil
}

// Cancel requests cancellation of a running job. On a successful
// round trip the local state moves to Cancelled immediately rather
// than waiting for the stream to confirm.
func (t *Tracker) Cancel(ctx context.Context) error {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return fmt.Errorf("%w: job %s is already %s", shared.ErrJobTerminal, t.entry.JobID, t.state)
	}
	t.mu.Unlock()

	if err := t.client.Cancel(ctx, t.entry.JobID); err != nil {
		t.notifyErr(err)
		return err
	}

	t.mu.Lock()
	ch := t.channel
	t.channel = nil
	t.mu.Unlock()
	if ch != nil {
		ch.Dispose()
	}
	t.transition(StateCancelled, nil)
	return nil
}

// Dispose stops the tracker. Safe to call from any state and any
// number of times.
func (t *Tracker) Dispose() {
	t.once.Do(func() {
		t.cancel()
		t.mu.Lock()
		ch := t.channel
		t.channel = nil
		t.mu.Unlock()
		if ch != nil {
			ch.Dispose()
		}
	})
}

func (t *Tracker) notifyErr(err error) {
	t.emit(Update{JobID: t.entry.JobID, State: t.State(), Err: err})
}

// emit never blocks: a slow or absent consumer must not stall the
// tracker's event loop.
func (t *Tracker) emit(u Update) {
	if t.sink == nil {
		return
	}
	select {
	case t.sink <- u:
	default:
	}
}

// archiveName derives a filesystem-safe archive file name, falling
// back to the job id when the display name is unusable.
func archiveName(displayName, jobID string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = jobID
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "..", "-")
	return replacer.Replace(name) + ".zip"
}
