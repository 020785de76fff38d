package models

import (
	"fmt"
	"time"
)

// ItemStatus tracks a queue item's format resolution lifecycle.
//
// Items are created loading, then move to ready or error exactly once.
// Neither ready nor error is ever left except by removing the item.
type ItemStatus string

const (
	ItemLoading ItemStatus = "loading"
	ItemReady   ItemStatus = "ready"
	ItemError   ItemStatus = "error"
)

// QueueItem is an enqueued song together with its resolved format catalog.
//
// Items are owned exclusively by the queue store; identity for deduplication
// is the song's TrackID, not the client-generated ID.
type QueueItem struct {
	ID           string
	Song         Song
	Selected     bool
	Status       ItemStatus
	Error        string
	Formats      *FormatCatalog // nil until resolution succeeds
	ChosenFormat FormatKey      // empty when unset
	GroupID      string         // empty means ungrouped
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key returns the client-generated item ID.
func (i *QueueItem) Key() string { return i.ID }

// Validate checks the item's invariants before persistence.
func (i *QueueItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("queue item missing id")
	}
	if i.Song.TrackID == 0 {
		return fmt.Errorf("queue item missing track id")
	}
	switch i.Status {
	case ItemLoading, ItemReady, ItemError:
	default:
		return fmt.Errorf("invalid item status %q", i.Status)
	}
	if i.Status == ItemReady && i.Formats == nil {
		return fmt.Errorf("ready item missing formats")
	}
	if i.ChosenFormat != "" && !i.ChosenFormat.Valid() {
		return fmt.Errorf("invalid chosen format %q", i.ChosenFormat)
	}
	return nil
}

// Clone returns a copy of the item safe to hand to other goroutines.
func (i *QueueItem) Clone() *QueueItem {
	c := *i
	if i.Formats != nil {
		f := *i.Formats
		c.Formats = &f
	}
	return &c
}

// QueueGroup is a user-created, renameable grouping of queue items.
// Deleting a group reassigns its members to ungrouped; it never deletes them.
type QueueGroup struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Key returns the group ID.
func (g *QueueGroup) Key() string { return g.ID }

// Validate checks the group's invariants before persistence.
func (g *QueueGroup) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("queue group missing id")
	}
	if g.Name == "" {
		return fmt.Errorf("queue group missing name")
	}
	return nil
}
