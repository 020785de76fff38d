package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

// QueueGroupRepository implements models.Repository[*models.QueueGroup].
type QueueGroupRepository struct {
	db *sql.DB
}

// NewQueueGroupRepository creates a new QueueGroupRepository with the given database connection
func NewQueueGroupRepository(db *sql.DB) *QueueGroupRepository {
	return &QueueGroupRepository{db: db}
}

// Create inserts a new group, generating an ID when the group has none
func (r *QueueGroupRepository) Create(group *models.QueueGroup) error {
	if group.ID == "" {
		group.ID = shared.GenerateID()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}

	if err := group.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(
		"INSERT INTO queue_groups (id, name, created_at) VALUES (?, ?, ?)",
		group.ID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue group: %w", err)
	}

	return nil
}

// Get retrieves a group by ID
func (r *QueueGroupRepository) Get(id string) (*models.QueueGroup, error) {
	var group models.QueueGroup
	err := r.db.QueryRow(
		"SELECT id, name, created_at FROM queue_groups WHERE id = ?", id,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: queue group %s", shared.ErrGroupNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue group: %w", err)
	}
	return &group, nil
}

// Update renames a group
func (r *QueueGroupRepository) Update(group *models.QueueGroup) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.Exec("UPDATE queue_groups SET name = ? WHERE id = ?", group.Name, group.ID)
	if err != nil {
		return fmt.Errorf("failed to update queue group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: queue group %s", shared.ErrGroupNotFound, group.ID)
	}

	return nil
}

// Delete removes a group, reassigning its members to ungrouped in the same
// transaction so no item is left pointing at a missing group.
func (r *QueueGroupRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE queue_items SET group_id = NULL WHERE group_id = ?", id); err != nil {
		return fmt.Errorf("failed to reassign group members: %w", err)
	}

	result, err := tx.Exec("DELETE FROM queue_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete queue group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: queue group %s", shared.ErrGroupNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group deletion: %w", err)
	}

	return nil
}

// List retrieves all groups, newest first
func (r *QueueGroupRepository) List() ([]*models.QueueGroup, error) {
	rows, err := r.db.Query("SELECT id, name, created_at FROM queue_groups ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query queue groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.QueueGroup
	for rows.Next() {
		var group models.QueueGroup
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue group: %w", err)
		}
		groups = append(groups, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return groups, nil
}

// Count reports how many groups exist.
func (r *QueueGroupRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM queue_groups").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue groups: %w", err)
	}
	return n, nil
}
