package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/music-downloader-hub/tunepull/internal/stream"
)

// fakeBackend implements Client against an in-process event stream.
type fakeBackend struct {
	server *httptest.Server

	httpClient *http.Client

	mu        sync.Mutex
	status    models.JobStatus
	statusErr error
	cancelErr error
	saves     []string
	cancels   int

	streamHits atomic.Int32
}

func newFakeBackend(status models.JobStatus, payloads []string, hold chan struct{}) *fakeBackend {
	f := &fakeBackend{status: status}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.streamHits.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, p := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", p)
			flusher.Flush()
		}
		if hold != nil {
			<-hold
		}
	}))
	return f
}

func (f *fakeBackend) Status(_ context.Context, jobID string) (*services.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &services.Job{JobID: jobID, Status: f.status}, nil
}

func (f *fakeBackend) Progress(context.Context, string) (*models.ProgressSnapshot, error) {
	return &models.ProgressSnapshot{Phase: "downloading", Percent: 10}, nil
}

func (f *fakeBackend) Cancel(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return f.cancelErr
}

func (f *fakeBackend) SaveArchive(_ context.Context, _ string, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, path)
	return nil
}

func (f *fakeBackend) EventsURL(string) string { return f.server.URL }

func (f *fakeBackend) HTTPClient() *http.Client {
	if f.httpClient != nil {
		return f.httpClient
	}
	return http.DefaultClient
}

func (f *fakeBackend) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func waitDone(t *testing.T, tr *Tracker) {
	t.Helper()
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not finish")
	}
}

func TestTrackerLifecycle(t *testing.T) {
	t.Run("Completes And Fetches Once", func(t *testing.T) {
		backend := newFakeBackend(models.JobRunning, []string{
			`{"type":"start"}`,
			`{"type":"progress","phase":"downloading","percent":50}`,
			`{"type":"end","status":"completed"}`,
		}, nil)
		defer backend.server.Close()

		tr := newTracker(Entry{JobID: "job-1", DisplayName: "Test Song"}, backend, nil, Opts{OutputDir: t.TempDir()})
		tr.start()
		waitDone(t, tr)

		if tr.State() != StateCompleted {
			t.Errorf("got state %s, want %s", tr.State(), StateCompleted)
		}
		if !tr.Fetched() {
			t.Error("expected automatic archive retrieval")
		}
		if n := backend.saveCount(); n != 1 {
			t.Errorf("got %d archive saves, want 1", n)
		}

		// Later terminal signals must not fire the retrieval again.
		tr.autoFetch()
		tr.autoFetch()
		if n := backend.saveCount(); n != 1 {
			t.Errorf("got %d archive saves after duplicate signals, want 1", n)
		}

		// The latch never blocks a user-initiated fetch.
		path, err := tr.Fetch(context.Background())
		if err != nil {
			t.Fatalf("manual fetch: %v", err)
		}
		if filepath.Base(path) != "Test Song.zip" {
			t.Errorf("got archive name %q, want %q", filepath.Base(path), "Test Song.zip")
		}
		if n := backend.saveCount(); n != 2 {
			t.Errorf("got %d archive saves after manual fetch, want 2", n)
		}
	})

	t.Run("Terminal On Attach Skips Channel And Fetch", func(t *testing.T) {
		backend := newFakeBackend(models.JobCompleted, nil, nil)
		defer backend.server.Close()

		tr := newTracker(Entry{JobID: "job-2", DisplayName: "Old Song"}, backend, nil, Opts{OutputDir: t.TempDir()})
		tr.start()
		waitDone(t, tr)

		if tr.State() != StateCompleted {
			t.Errorf("got state %s, want %s", tr.State(), StateCompleted)
		}
		if n := backend.streamHits.Load(); n != 0 {
			t.Errorf("got %d stream connections, want 0", n)
		}
		if backend.saveCount() != 0 {
			t.Error("jobs completed before attach must not auto-fetch")
		}

		if _, err := tr.Fetch(context.Background()); err != nil {
			t.Fatalf("manual fetch: %v", err)
		}
		if backend.saveCount() != 1 {
			t.Error("manual fetch should retrieve the archive")
		}
	})

	t.Run("Streams Despite Status Query Failure", func(t *testing.T) {
		backend := newFakeBackend(models.JobRunning, []string{
			`{"type":"start"}`,
			`{"type":"end","status":"failed"}`,
		}, nil)
		defer backend.server.Close()
		backend.statusErr = errors.New("connection refused")

		tr := newTracker(Entry{JobID: "job-3"}, backend, nil, Opts{OutputDir: t.TempDir()})
		tr.start()
		waitDone(t, tr)

		if n := backend.streamHits.Load(); n == 0 {
			t.Error("expected a stream connection after the failed status query")
		}
		if tr.State() != StateFailed {
			t.Errorf("got state %s, want %s", tr.State(), StateFailed)
		}
		if backend.saveCount() != 0 {
			t.Error("failed jobs must not fetch archives")
		}
	})

	t.Run("Stream Inherits The Backend HTTP Client", func(t *testing.T) {
		backend := newFakeBackend(models.JobRunning, nil, nil)
		defer backend.server.Close()
		backend.httpClient = &http.Client{Timeout: 42 * time.Second}

		tr := newTracker(Entry{JobID: "job-6"}, backend, nil, Opts{OutputDir: t.TempDir()})
		if tr.opts.Stream.HTTPClient != backend.httpClient {
			t.Error("expected the stream to reuse the backend's HTTP client")
		}
	})

	t.Run("Fetch Requires Completion", func(t *testing.T) {
		backend := newFakeBackend(models.JobFailed, nil, nil)
		defer backend.server.Close()

		tr := newTracker(Entry{JobID: "job-4"}, backend, nil, Opts{OutputDir: t.TempDir()})
		tr.start()
		waitDone(t, tr)

		if _, err := tr.Fetch(context.Background()); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("got %v, want %v", err, shared.ErrValidation)
		}
	})
}

func TestTrackerCancel(t *testing.T) {
	hold := make(chan struct{})
	backend := newFakeBackend(models.JobRunning, []string{`{"type":"start"}`}, hold)
	defer backend.server.Close()
	defer close(hold)

	tr := newTracker(Entry{JobID: "job-5", DisplayName: "Slow Song"}, backend, nil, Opts{
		OutputDir: t.TempDir(),
		Stream:    stream.Opts{ReconnectBase: time.Millisecond},
	})
	tr.start()

	deadline := time.Now().Add(5 * time.Second)
	for tr.State() != StateRunning {
		if time.Now().After(deadline) {
			t.Fatal("tracker never reached running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("Local Transition", func(t *testing.T) {
		if err := tr.Cancel(context.Background()); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if tr.State() != StateCancelled {
			t.Errorf("got state %s, want %s", tr.State(), StateCancelled)
		}
		if backend.cancels != 1 {
			t.Errorf("got %d cancel calls, want 1", backend.cancels)
		}
	})

	t.Run("Terminal Rejects Second Cancel", func(t *testing.T) {
		if err := tr.Cancel(context.Background()); !errors.Is(err, shared.ErrJobTerminal) {
			t.Errorf("got %v, want %v", err, shared.ErrJobTerminal)
		}
		if backend.cancels != 1 {
			t.Errorf("got %d cancel calls, want 1", backend.cancels)
		}
	})

	t.Run("Stale End Event Cannot Override Cancellation", func(t *testing.T) {
		// An end event still buffered on the disposed channel arrives
		// after the user cancelled. The first terminal state wins.
		tr.observe(stream.Event{Type: stream.EventEnd, Status: models.JobCompleted})
		if tr.State() != StateCancelled {
			t.Errorf("got state %s, want %s", tr.State(), StateCancelled)
		}
		if backend.saveCount() != 0 {
			t.Error("a cancelled job must never auto-fetch its archive")
		}
	})

	tr.Dispose()
	waitDone(t, tr)
}

func TestArchiveName(t *testing.T) {
	cases := []struct {
		name    string
		display string
		jobID   string
		want    string
	}{
		{"Plain", "Shape of You", "j1", "Shape of You.zip"},
		{"Path Separators", "AC/DC: Back in Black", "j2", "AC-DC- Back in Black.zip"},
		{"Empty Falls Back To Job ID", "  ", "j3", "j3.zip"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := archiveName(tc.display, tc.jobID); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestManager(t *testing.T) {
	backend := newFakeBackend(models.JobCompleted, nil, nil)
	defer backend.server.Close()

	mgr := NewManager(backend, Opts{OutputDir: t.TempDir()})

	t.Run("Add Deduplicates By Job ID", func(t *testing.T) {
		a := mgr.Add(Entry{JobID: "job-1", DisplayName: "First"})
		b := mgr.Add(Entry{JobID: "job-1", DisplayName: "Duplicate"})
		if a != b {
			t.Error("expected the existing tracker for a duplicate job id")
		}
		if mgr.Len() != 1 {
			t.Errorf("got %d entries, want 1", mgr.Len())
		}
	})

	t.Run("AddAll Preserves Order", func(t *testing.T) {
		mgr.AddAll([]Entry{
			{JobID: "job-2", DisplayName: "Second"},
			{JobID: "job-3", DisplayName: "Third"},
		})
		entries := mgr.Entries()
		want := []string{"job-1", "job-2", "job-3"}
		if len(entries) != len(want) {
			t.Fatalf("got %d entries, want %d", len(entries), len(want))
		}
		for i, id := range want {
			if entries[i].JobID != id {
				t.Errorf("entry %d: got %s, want %s", i, entries[i].JobID, id)
			}
		}
	})

	t.Run("Remove Disposes Tracker", func(t *testing.T) {
		tr, ok := mgr.Get("job-2")
		if !ok {
			t.Fatal("job-2 should be tracked")
		}
		mgr.Remove("job-2")
		waitDone(t, tr)
		if _, ok := mgr.Get("job-2"); ok {
			t.Error("job-2 should be gone")
		}
		mgr.Remove("job-2")
		if mgr.Len() != 2 {
			t.Errorf("got %d entries, want 2", mgr.Len())
		}
	})

	t.Run("Clear Empties Collection", func(t *testing.T) {
		mgr.Clear()
		if mgr.Len() != 0 {
			t.Errorf("got %d entries, want 0", mgr.Len())
		}
	})
}
