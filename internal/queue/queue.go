// Package queue holds the client-local download queue: enqueued catalog
// entries, their asynchronously resolved format catalogs, and user-defined
// groups. It drives batch job creation, handing the resulting job ids to
// the tracker layer.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/repositories"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/music-downloader-hub/tunepull/internal/tracker"
)

// FormatResolver resolves a catalog entry's available formats. It is
// satisfied by formats.Resolver.
type FormatResolver interface {
	Resolve(ctx context.Context, targetURL, hintName string) (*formats.Resolution, error)
}

// Submitter creates download jobs in one batch call. It is satisfied by
// services.DownloadsClient.
type Submitter interface {
	CreateBatch(ctx context.Context, items []services.DownloadRequest) ([]services.JobRef, error)
}

// Scope selects which queue items a submission covers.
type Scope struct {
	// SelectedOnly restricts submission to items the user has selected.
	SelectedOnly bool
	// GroupID, when set, restricts submission to one group's items.
	GroupID string
}

// Store owns the queue. Mutations go through the repositories so the
// queue survives process restarts; the store itself carries no caching
// beyond what a single call needs.
type Store struct {
	items    *repositories.QueueItemRepository
	groups   *repositories.QueueGroupRepository
	resolver FormatResolver
	client   Submitter
	logger   *log.Logger

	mu        sync.Mutex
	resolving sync.WaitGroup
}

// NewStore wires the queue over its persistence and backend collaborators.
func NewStore(items *repositories.QueueItemRepository, groups *repositories.QueueGroupRepository, resolver FormatResolver, client Submitter, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{
		items:    items,
		groups:   groups,
		resolver: resolver,
		client:   client,
		logger:   logger,
	}
}

// Enqueue adds a song to the queue. Identity is the catalog track id:
// enqueueing an already-queued track returns the existing item
// untouched. New items start selected and in the loading state; their
// format catalog resolves asynchronously.
func (s *Store) Enqueue(ctx context.Context, song models.Song) (*models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(ctx, song)
}

// EnqueueMany adds songs in order, skipping tracks already queued.
func (s *Store) EnqueueMany(ctx context.Context, songs []models.Song) ([]*models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]*models.QueueItem, 0, len(songs))
	for _, song := range songs {
		item, err := s.enqueueLocked(ctx, song)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) enqueueLocked(ctx context.Context, song models.Song) (*models.QueueItem, error) {
	if existing, err := s.items.GetByTrackID(song.TrackID); err == nil {
		return existing, nil
	}

	item := &models.QueueItem{
		Song:     song,
		Selected: true,
		Status:   models.ItemLoading,
	}
	if err := s.items.Create(item); err != nil {
		return nil, err
	}

	s.resolving.Add(1)
	go s.resolve(ctx, item.Clone())

	return item, nil
}

// resolve fetches the format catalog for one item and moves it to ready
// or error. Items never leave error or ready again except by removal.
func (s *Store) resolve(ctx context.Context, item *models.QueueItem) {
	defer s.resolving.Done()

	url := services.BuildSongURL(item.Song.TrackViewURL, item.Song.TrackID)
	res, err := s.resolver.Resolve(ctx, url, item.Song.TrackName)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, getErr := s.items.Get(item.ID)
	if getErr != nil {
		// Removed while resolving.
		return
	}
	if current.Status != models.ItemLoading {
		return
	}

	if err != nil {
		s.logger.Warn("format resolution failed", "track", item.Song.TrackName, "err", err)
		current.Status = models.ItemError
		current.Error = err.Error()
	} else {
		current.Status = models.ItemReady
		current.Formats = &res.Formats
		current.ChosenFormat = res.Default
	}

	if err := s.items.Update(current); err != nil {
		s.logger.Error("failed to persist resolution", "item", item.ID, "err", err)
	}
}

// Wait blocks until all in-flight format resolutions have settled.
func (s *Store) Wait() {
	s.resolving.Wait()
}

// Items returns the queue in insertion order.
func (s *Store) Items() ([]*models.QueueItem, error) {
	return s.items.List()
}

// Get returns one queue item by id.
func (s *Store) Get(itemID string) (*models.QueueItem, error) {
	return s.items.Get(itemID)
}

// Remove deletes one item from the queue.
func (s *Store) Remove(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Delete(itemID)
}

// Clear empties the queue. Groups survive a clear.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.DeleteAll()
}

// ToggleSelected flips one item's selection.
func (s *Store) ToggleSelected(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}
	item.Selected = !item.Selected
	return s.items.Update(item)
}

// SelectAll marks every item selected.
func (s *Store) SelectAll() error { return s.setAllSelected(true) }

// UnselectAll clears every item's selection.
func (s *Store) UnselectAll() error { return s.setAllSelected(false) }

func (s *Store) setAllSelected(selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.items.List()
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Selected == selected {
			continue
		}
		item.Selected = selected
		if err := s.items.Update(item); err != nil {
			return err
		}
	}
	return nil
}

// SetChosenFormat picks the format a ready item will be submitted with.
// The key must be available in the item's resolved catalog.
func (s *Store) SetChosenFormat(itemID string, key models.FormatKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}
	if item.Status != models.ItemReady || item.Formats == nil {
		return fmt.Errorf("%w: item %s has no resolved formats", shared.ErrValidation, itemID)
	}
	if !item.Formats.Available(key) {
		return fmt.Errorf("%w: format %s not available for %q", shared.ErrValidation, key, item.Song.TrackName)
	}
	item.ChosenFormat = key
	return s.items.Update(item)
}

// CreateGroup adds a group. An empty name defaults to "Queue N" where N
// counts the groups after creation.
func (s *Store) CreateGroup(name string) (*models.QueueGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		n, err := s.groups.Count()
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("Queue %d", n+1)
	}

	group := &models.QueueGroup{Name: name}
	if err := s.groups.Create(group); err != nil {
		return nil, err
	}
	return group, nil
}

// Groups returns all groups, newest first.
func (s *Store) Groups() ([]*models.QueueGroup, error) {
	return s.groups.List()
}

// RenameGroup changes a group's display name.
func (s *Store) RenameGroup(groupID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, err := s.groups.Get(groupID)
	if err != nil {
		return err
	}
	group.Name = name
	return s.groups.Update(group)
}

// AssignItemToGroup moves an item into a group, or out of all groups
// when groupID is empty.
func (s *Store) AssignItemToGroup(itemID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}
	if groupID != "" {
		if _, err := s.groups.Get(groupID); err != nil {
			return err
		}
	}
	item.GroupID = groupID
	return s.items.Update(item)
}

// DeleteGroup removes a group. Its members revert to ungrouped; no item
// is ever deleted by removing a group.
func (s *Store) DeleteGroup(groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups.Delete(groupID)
}

// Submit sends every ready item in scope to the backend as one batch,
// preserving queue order so returned job ids line up with their source
// items. Each created job yields a tracker entry.
func (s *Store) Submit(ctx context.Context, scope Scope) ([]tracker.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.items.List()
	if err != nil {
		return nil, err
	}

	var ready []*models.QueueItem
	for _, item := range all {
		if item.Status != models.ItemReady {
			continue
		}
		if scope.SelectedOnly && !item.Selected {
			continue
		}
		if scope.GroupID != "" && item.GroupID != scope.GroupID {
			continue
		}
		ready = append(ready, item)
	}
	if len(ready) == 0 {
		return nil, shared.ErrNoReadyItems
	}

	requests := make([]services.DownloadRequest, len(ready))
	for i, item := range ready {
		url := services.BuildSongURL(item.Song.TrackViewURL, item.Song.TrackID)
		requests[i] = services.SongRequest(url, item.ChosenFormat)
	}

	refs, err := s.client.CreateBatch(ctx, requests)
	if err != nil {
		return nil, err
	}
	if len(refs) != len(ready) {
		return nil, fmt.Errorf("%w: submitted %d items, got %d jobs", shared.ErrTransport, len(ready), len(refs))
	}

	entries := make([]tracker.Entry, len(refs))
	for i, ref := range refs {
		entries[i] = tracker.Entry{
			JobID:       ref.JobID,
			DisplayName: ready[i].Song.TrackName,
			FormatLabel: formats.Label(ready[i].ChosenFormat),
		}
	}

	s.logger.Info("batch submitted", "jobs", len(entries))
	return entries, nil
}
