package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

// QueueItemRepository implements models.Repository[*models.QueueItem].
//
// Items are unique per catalog track; inserting a song that is already
// enqueued fails with shared.ErrDuplicateJob.
type QueueItemRepository struct {
	db *sql.DB
}

// NewQueueItemRepository creates a new QueueItemRepository with the given database connection
func NewQueueItemRepository(db *sql.DB) *QueueItemRepository {
	return &QueueItemRepository{db: db}
}

// Create inserts a new queue item, generating an ID when the item has none
func (r *QueueItemRepository) Create(item *models.QueueItem) error {
	if item.ID == "" {
		item.ID = shared.GenerateID()
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	formats, err := encodeFormats(item.Formats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO queue_items (
			id, track_id, track_name, artist_name, collection_name,
			track_view_url, artwork_url, selected, status, error,
			formats, chosen_format, group_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		item.ID,
		item.Song.TrackID,
		item.Song.TrackName,
		item.Song.ArtistName,
		item.Song.CollectionName,
		item.Song.TrackViewURL,
		item.Song.ArtworkURL,
		item.Selected,
		string(item.Status),
		item.Error,
		formats,
		string(item.ChosenFormat),
		nullableGroup(item.GroupID),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: track %d already enqueued", shared.ErrDuplicateJob, item.Song.TrackID)
		}
		return fmt.Errorf("failed to insert queue item: %w", err)
	}

	return nil
}

// Get retrieves a queue item by ID
func (r *QueueItemRepository) Get(id string) (*models.QueueItem, error) {
	query := itemSelect + " WHERE id = ?"
	item, err := scanItem(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: queue item %s", shared.ErrItemNotFound, id)
	}
	return item, err
}

// GetByTrackID retrieves the queue item holding the given catalog track, if any
func (r *QueueItemRepository) GetByTrackID(trackID int64) (*models.QueueItem, error) {
	query := itemSelect + " WHERE track_id = ?"
	item, err := scanItem(r.db.QueryRow(query, trackID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track %d not enqueued", shared.ErrItemNotFound, trackID)
	}
	return item, err
}

// Update persists the item's mutable fields
func (r *QueueItemRepository) Update(item *models.QueueItem) error {
	item.UpdatedAt = time.Now()
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	formats, err := encodeFormats(item.Formats)
	if err != nil {
		return err
	}

	query := `
		UPDATE queue_items
		SET selected = ?, status = ?, error = ?, formats = ?,
		    chosen_format = ?, group_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		item.Selected,
		string(item.Status),
		item.Error,
		formats,
		string(item.ChosenFormat),
		nullableGroup(item.GroupID),
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: queue item %s", shared.ErrItemNotFound, item.ID)
	}

	return nil
}

// Delete removes a queue item by ID
func (r *QueueItemRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM queue_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: queue item %s", shared.ErrItemNotFound, id)
	}

	return nil
}

// DeleteAll clears the queue
func (r *QueueItemRepository) DeleteAll() error {
	if _, err := r.db.Exec("DELETE FROM queue_items"); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// List retrieves all queue items in insertion order
func (r *QueueItemRepository) List() ([]*models.QueueItem, error) {
	return r.list(itemSelect + " ORDER BY created_at ASC, rowid ASC")
}

// ListByGroup retrieves the items assigned to one group, in insertion order.
// An empty groupID selects the ungrouped items.
func (r *QueueItemRepository) ListByGroup(groupID string) ([]*models.QueueItem, error) {
	if groupID == "" {
		return r.list(itemSelect+" WHERE group_id IS NULL ORDER BY created_at ASC, rowid ASC")
	}
	return r.list(itemSelect+" WHERE group_id = ? ORDER BY created_at ASC, rowid ASC", groupID)
}

func (r *QueueItemRepository) list(query string, args ...any) ([]*models.QueueItem, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue items: %w", err)
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

const itemSelect = `
	SELECT id, track_id, track_name, artist_name, collection_name,
	       track_view_url, artwork_url, selected, status, error,
	       formats, chosen_format, group_id, created_at, updated_at
	FROM queue_items
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.QueueItem, error) {
	var (
		item    models.QueueItem
		status  string
		chosen  string
		formats string
		groupID sql.NullString
	)

	err := row.Scan(
		&item.ID,
		&item.Song.TrackID,
		&item.Song.TrackName,
		&item.Song.ArtistName,
		&item.Song.CollectionName,
		&item.Song.TrackViewURL,
		&item.Song.ArtworkURL,
		&item.Selected,
		&status,
		&item.Error,
		&formats,
		&chosen,
		&groupID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan queue item: %w", err)
	}

	item.Status = models.ItemStatus(status)
	item.ChosenFormat = models.FormatKey(chosen)
	if groupID.Valid {
		item.GroupID = groupID.String
	}
	if formats != "" {
		var catalog models.FormatCatalog
		if err := json.Unmarshal([]byte(formats), &catalog); err != nil {
			return nil, fmt.Errorf("failed to decode formats for item %s: %w", item.ID, err)
		}
		item.Formats = &catalog
	}

	return &item, nil
}

func encodeFormats(catalog *models.FormatCatalog) (string, error) {
	if catalog == nil {
		return "", nil
	}
	raw, err := json.Marshal(catalog)
	if err != nil {
		return "", fmt.Errorf("failed to encode formats: %w", err)
	}
	return string(raw), nil
}

func nullableGroup(groupID string) any {
	if groupID == "" {
		return nil
	}
	return groupID
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint")
}
