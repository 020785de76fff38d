package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/repositories"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

type fakeResolver struct {
	mu      sync.Mutex
	failFor map[string]error
	holdFor map[string]chan struct{}
	catalog models.FormatCatalog
}

func (r *fakeResolver) Resolve(_ context.Context, _ string, hint string) (*formats.Resolution, error) {
	r.mu.Lock()
	hold := r.holdFor[hint]
	failure := r.failFor[hint]
	catalog := r.catalog
	r.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if failure != nil {
		return nil, failure
	}
	return &formats.Resolution{
		Name:    hint,
		Formats: catalog,
		Default: formats.DefaultKey(catalog),
	}, nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []services.DownloadRequest
	err      error
}

func (s *fakeSubmitter) CreateBatch(_ context.Context, items []services.DownloadRequest) ([]services.JobRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.requests = items
	refs := make([]services.JobRef, len(items))
	for i := range items {
		refs[i] = services.JobRef{JobID: fmt.Sprintf("job-%d", i+1)}
	}
	return refs, nil
}

func testCatalog() models.FormatCatalog {
	return models.FormatCatalog{
		AAC:        "256kbps",
		Lossless:   "24-bit/44.1kHz ALAC",
		HiRes:      "24-bit/192kHz ALAC",
		DolbyAtmos: "Not Available",
		DolbyAudio: "Not Available",
	}
}

func setupStore(t *testing.T, resolver *fakeResolver, submitter *fakeSubmitter) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(
		repositories.NewQueueItemRepository(db),
		repositories.NewQueueGroupRepository(db),
		resolver,
		submitter,
		nil,
	)
}

func song(trackID int64, name string) models.Song {
	return models.Song{
		TrackID:      trackID,
		TrackName:    name,
		ArtistName:   "Test Artist",
		TrackViewURL: fmt.Sprintf("https://music.apple.com/us/album/x/1?i=%d", trackID),
	}
}

func TestStoreEnqueue(t *testing.T) {
	resolver := &fakeResolver{
		catalog: testCatalog(),
		failFor: map[string]error{"Broken": errors.New("debug probe failed")},
	}
	store := setupStore(t, resolver, &fakeSubmitter{})
	ctx := context.Background()

	t.Run("Resolves To Ready With Default Format", func(t *testing.T) {
		item, err := store.Enqueue(ctx, song(1, "Shape of You"))
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if item.Status != models.ItemLoading {
			t.Errorf("got status %s, want %s on creation", item.Status, models.ItemLoading)
		}
		if !item.Selected {
			t.Error("new items start selected")
		}

		store.Wait()
		got, err := store.Get(item.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != models.ItemReady {
			t.Fatalf("got status %s, want %s", got.Status, models.ItemReady)
		}
		if got.ChosenFormat != models.FormatHiRes {
			t.Errorf("got default format %s, want %s", got.ChosenFormat, models.FormatHiRes)
		}
	})

	t.Run("Deduplicates By Track ID", func(t *testing.T) {
		first, _ := store.Enqueue(ctx, song(2, "Duplicate Me"))
		store.Wait()
		second, err := store.Enqueue(ctx, song(2, "Duplicate Me"))
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		if first.ID != second.ID {
			t.Error("expected the existing item for a duplicate track")
		}

		items, _ := store.Items()
		count := 0
		for _, it := range items {
			if it.Song.TrackID == 2 {
				count++
			}
		}
		if count != 1 {
			t.Errorf("got %d items for track 2, want 1", count)
		}
	})

	t.Run("Resolution Failure Keeps Item In Error", func(t *testing.T) {
		item, err := store.Enqueue(ctx, song(3, "Broken"))
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		store.Wait()

		got, err := store.Get(item.ID)
		if err != nil {
			t.Fatalf("errored item must stay in the queue: %v", err)
		}
		if got.Status != models.ItemError {
			t.Errorf("got status %s, want %s", got.Status, models.ItemError)
		}
		if !strings.Contains(got.Error, "debug probe failed") {
			t.Errorf("got error %q, want the resolution failure", got.Error)
		}
	})
}

func TestStoreSelection(t *testing.T) {
	resolver := &fakeResolver{catalog: testCatalog()}
	store := setupStore(t, resolver, &fakeSubmitter{})
	ctx := context.Background()

	a, _ := store.Enqueue(ctx, song(1, "A"))
	store.Enqueue(ctx, song(2, "B"))
	store.Wait()

	t.Run("Toggle", func(t *testing.T) {
		if err := store.ToggleSelected(a.ID); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		got, _ := store.Get(a.ID)
		if got.Selected {
			t.Error("expected item unselected after toggle")
		}
	})

	t.Run("SelectAll And UnselectAll", func(t *testing.T) {
		if err := store.SelectAll(); err != nil {
			t.Fatalf("select all: %v", err)
		}
		items, _ := store.Items()
		for _, it := range items {
			if !it.Selected {
				t.Errorf("item %s not selected", it.Song.TrackName)
			}
		}

		if err := store.UnselectAll(); err != nil {
			t.Fatalf("unselect all: %v", err)
		}
		items, _ = store.Items()
		for _, it := range items {
			if it.Selected {
				t.Errorf("item %s still selected", it.Song.TrackName)
			}
		}
	})

	t.Run("SetChosenFormat Requires Availability", func(t *testing.T) {
		if err := store.SetChosenFormat(a.ID, models.FormatDolbyAtmos); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("got %v, want %v for an unavailable format", err, shared.ErrValidation)
		}
		if err := store.SetChosenFormat(a.ID, models.FormatAAC); err != nil {
			t.Fatalf("set chosen format: %v", err)
		}
		got, _ := store.Get(a.ID)
		if got.ChosenFormat != models.FormatAAC {
			t.Errorf("got %s, want %s", got.ChosenFormat, models.FormatAAC)
		}
	})
}

func TestStoreGroups(t *testing.T) {
	resolver := &fakeResolver{catalog: testCatalog()}
	store := setupStore(t, resolver, &fakeSubmitter{})
	ctx := context.Background()

	item, _ := store.Enqueue(ctx, song(1, "Grouped"))
	store.Wait()

	t.Run("Default Names Count Up", func(t *testing.T) {
		g1, err := store.CreateGroup("")
		if err != nil {
			t.Fatalf("create group: %v", err)
		}
		if g1.Name != "Queue 1" {
			t.Errorf("got %q, want %q", g1.Name, "Queue 1")
		}
		g2, _ := store.CreateGroup("")
		if g2.Name != "Queue 2" {
			t.Errorf("got %q, want %q", g2.Name, "Queue 2")
		}
	})

	t.Run("Assign And Delete Keeps Item", func(t *testing.T) {
		groups, _ := store.Groups()
		target := groups[0]

		if err := store.AssignItemToGroup(item.ID, target.ID); err != nil {
			t.Fatalf("assign: %v", err)
		}
		if err := store.DeleteGroup(target.ID); err != nil {
			t.Fatalf("delete group: %v", err)
		}

		got, err := store.Get(item.ID)
		if err != nil {
			t.Fatalf("item deleted with its group: %v", err)
		}
		if got.GroupID != "" {
			t.Errorf("got group %q, want ungrouped", got.GroupID)
		}
	})

	t.Run("Assign To Missing Group Fails", func(t *testing.T) {
		if err := store.AssignItemToGroup(item.ID, "nope"); !errors.Is(err, shared.ErrGroupNotFound) {
			t.Errorf("got %v, want %v", err, shared.ErrGroupNotFound)
		}
	})
}

func TestStoreSubmit(t *testing.T) {
	hold := make(chan struct{})
	resolver := &fakeResolver{
		catalog: testCatalog(),
		holdFor: map[string]chan struct{}{"Still Loading": hold},
	}
	submitter := &fakeSubmitter{}
	store := setupStore(t, resolver, submitter)
	ctx := context.Background()

	store.Enqueue(ctx, song(1, "First"))
	store.Enqueue(ctx, song(2, "Second"))
	store.Enqueue(ctx, song(3, "Third"))
	store.Enqueue(ctx, song(4, "Still Loading"))

	// Only the first three can settle while the fourth is held open.
	for _, name := range []string{"First", "Second", "Third"} {
		waitReady(t, store, name)
	}

	t.Run("Submits Ready Items In Order", func(t *testing.T) {
		entries, err := store.Submit(ctx, Scope{})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want 3", len(entries))
		}

		wantNames := []string{"First", "Second", "Third"}
		for i, e := range entries {
			if e.DisplayName != wantNames[i] {
				t.Errorf("entry %d: got %q, want %q", i, e.DisplayName, wantNames[i])
			}
			if e.JobID != fmt.Sprintf("job-%d", i+1) {
				t.Errorf("entry %d: got job %q, want job-%d", i, e.JobID, i+1)
			}
			if e.FormatLabel == "" {
				t.Errorf("entry %d missing format label", i)
			}
		}
		if len(submitter.requests) != 3 {
			t.Fatalf("got %d requests, want 3", len(submitter.requests))
		}
		for i, req := range submitter.requests {
			if !req.Song || req.URL == "" {
				t.Errorf("request %d malformed: %+v", i, req)
			}
		}
	})

	t.Run("Selected Scope Filters", func(t *testing.T) {
		if err := store.UnselectAll(); err != nil {
			t.Fatalf("unselect: %v", err)
		}
		if _, err := store.Submit(ctx, Scope{SelectedOnly: true}); !errors.Is(err, shared.ErrNoReadyItems) {
			t.Errorf("got %v, want %v", err, shared.ErrNoReadyItems)
		}

		items, _ := store.Items()
		if err := store.ToggleSelected(items[1].ID); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		entries, err := store.Submit(ctx, Scope{SelectedOnly: true})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if len(entries) != 1 || entries[0].DisplayName != "Second" {
			t.Errorf("got %+v, want just Second", entries)
		}
	})

	t.Run("AAC Choice Sets Payload Flag", func(t *testing.T) {
		items, _ := store.Items()
		if err := store.SetChosenFormat(items[0].ID, models.FormatAAC); err != nil {
			t.Fatalf("set format: %v", err)
		}
		if err := store.SelectAll(); err != nil {
			t.Fatalf("select all: %v", err)
		}
		if _, err := store.Submit(ctx, Scope{}); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if !submitter.requests[0].AAC {
			t.Errorf("request 0 should carry the aac flag: %+v", submitter.requests[0])
		}
		if submitter.requests[1].AAC || submitter.requests[1].Atmos {
			t.Errorf("request 1 should use backend defaults: %+v", submitter.requests[1])
		}
	})

	close(hold)
	store.Wait()
}

func waitReady(t *testing.T, store *Store, name string) {
	t.Helper()
	for i := 0; i < 500; i++ {
		items, err := store.Items()
		if err != nil {
			t.Fatalf("items: %v", err)
		}
		for _, it := range items {
			if it.Song.TrackName == name && it.Status == models.ItemReady {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("item %q never became ready", name)
}
