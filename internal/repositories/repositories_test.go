package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func testItem(trackID int64, name string) *models.QueueItem {
	return &models.QueueItem{
		Song: models.Song{
			TrackID:        trackID,
			TrackName:      name,
			ArtistName:     "Test Artist",
			CollectionName: "Test Album",
			TrackViewURL:   "https://music.apple.com/us/song/" + name,
		},
		Selected: true,
		Status:   models.ItemLoading,
	}
}

func TestQueueItemRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQueueItemRepository(db)

	t.Run("Create And Get", func(t *testing.T) {
		item := testItem(100, "First")
		if err := repo.Create(item); err != nil {
			t.Fatalf("create: %v", err)
		}
		if item.ID == "" {
			t.Fatal("expected a generated ID")
		}

		got, err := repo.Get(item.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Song.TrackName != "First" || got.Song.TrackID != 100 {
			t.Errorf("unexpected song %+v", got.Song)
		}
		if !got.Selected || got.Status != models.ItemLoading {
			t.Errorf("unexpected state %+v", got)
		}
		if got.Formats != nil {
			t.Error("expected nil formats for a loading item")
		}
	})

	t.Run("Duplicate Track Is Rejected", func(t *testing.T) {
		dup := testItem(100, "First Again")
		if err := repo.Create(dup); !errors.Is(err, shared.ErrDuplicateJob) {
			t.Errorf("got %v, want %v", err, shared.ErrDuplicateJob)
		}
	})

	t.Run("GetByTrackID", func(t *testing.T) {
		got, err := repo.GetByTrackID(100)
		if err != nil {
			t.Fatalf("get by track: %v", err)
		}
		if got.Song.TrackName != "First" {
			t.Errorf("got %q, want %q", got.Song.TrackName, "First")
		}

		if _, err := repo.GetByTrackID(999); !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("got %v, want %v", err, shared.ErrItemNotFound)
		}
	})

	t.Run("Update Persists Formats", func(t *testing.T) {
		item, err := repo.GetByTrackID(100)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		item.Status = models.ItemReady
		item.Formats = &models.FormatCatalog{
			AAC:   "256kbps",
			HiRes: "24-bit/192kHz ALAC",
		}
		item.ChosenFormat = models.FormatHiRes
		if err := repo.Update(item); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := repo.Get(item.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != models.ItemReady {
			t.Errorf("got status %s, want %s", got.Status, models.ItemReady)
		}
		if got.Formats == nil || got.Formats.HiRes != "24-bit/192kHz ALAC" {
			t.Errorf("unexpected formats %+v", got.Formats)
		}
		if got.ChosenFormat != models.FormatHiRes {
			t.Errorf("got chosen format %s, want %s", got.ChosenFormat, models.FormatHiRes)
		}
	})

	t.Run("List Preserves Insertion Order", func(t *testing.T) {
		second := testItem(200, "Second")
		second.CreatedAt = time.Now().Add(time.Second)
		if err := repo.Create(second); err != nil {
			t.Fatalf("create: %v", err)
		}

		items, err := repo.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("got %d items, want 2", len(items))
		}
		if items[0].Song.TrackName != "First" || items[1].Song.TrackName != "Second" {
			t.Errorf("unexpected order: %s, %s", items[0].Song.TrackName, items[1].Song.TrackName)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		item, err := repo.GetByTrackID(200)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if err := repo.Delete(item.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete(item.ID); !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("got %v, want %v", err, shared.ErrItemNotFound)
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		if err := repo.DeleteAll(); err != nil {
			t.Fatalf("delete all: %v", err)
		}
		items, err := repo.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("got %d items, want 0", len(items))
		}
	})
}

func TestQueueGroupRepository(t *testing.T) {
	db := setupTestDB(t)
	groups := NewQueueGroupRepository(db)
	items := NewQueueItemRepository(db)

	t.Run("Create Get Rename", func(t *testing.T) {
		group := &models.QueueGroup{Name: "Queue 1"}
		if err := groups.Create(group); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := groups.Get(group.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "Queue 1" {
			t.Errorf("got %q, want %q", got.Name, "Queue 1")
		}

		got.Name = "Workout Mix"
		if err := groups.Update(got); err != nil {
			t.Fatalf("update: %v", err)
		}
		renamed, err := groups.Get(group.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if renamed.Name != "Workout Mix" {
			t.Errorf("got %q, want %q", renamed.Name, "Workout Mix")
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		newer := &models.QueueGroup{Name: "Queue 2", CreatedAt: time.Now().Add(time.Second)}
		if err := groups.Create(newer); err != nil {
			t.Fatalf("create: %v", err)
		}

		all, err := groups.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("got %d groups, want 2", len(all))
		}
		if all[0].Name != "Queue 2" {
			t.Errorf("got %q first, want %q", all[0].Name, "Queue 2")
		}
	})

	t.Run("Delete Reassigns Members", func(t *testing.T) {
		group := &models.QueueGroup{Name: "Doomed"}
		if err := groups.Create(group); err != nil {
			t.Fatalf("create group: %v", err)
		}

		item := testItem(300, "Grouped Song")
		item.GroupID = group.ID
		if err := items.Create(item); err != nil {
			t.Fatalf("create item: %v", err)
		}

		if err := groups.Delete(group.ID); err != nil {
			t.Fatalf("delete group: %v", err)
		}

		survivor, err := items.Get(item.ID)
		if err != nil {
			t.Fatalf("item should survive group deletion: %v", err)
		}
		if survivor.GroupID != "" {
			t.Errorf("got group %q, want ungrouped", survivor.GroupID)
		}

		if _, err := groups.Get(group.ID); !errors.Is(err, shared.ErrGroupNotFound) {
			t.Errorf("got %v, want %v", err, shared.ErrGroupNotFound)
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := groups.Count()
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 2 {
			t.Errorf("got %d groups, want 2", n)
		}
	})
}
