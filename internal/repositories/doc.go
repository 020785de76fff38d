// Package repositories implements SQLite persistence for the download queue.
//
// Each repository implements models.Repository[T] for one entity type over a
// shared database/sql connection.
//
// Key Implementations:
//   - [QueueItemRepository] : enqueued songs with their resolved format catalogs, unique per catalog track
//   - [QueueGroupRepository] : user-created groupings of queue items
//
// Group deletion is handled transactionally: members are reassigned to
// ungrouped in the same transaction that removes the group row, so an item is
// never left pointing at a missing group.
package repositories
