// Package models defines the data model shared by every layer of the download client.
//
// The package contains three categories of types:
//
// 1. Catalog DTOs: lightweight structs matching the public catalog's JSON
//   - [Song] : a single downloadable track
//   - [Album] : a collection of tracks
//   - [Artist] : display-only artist metadata
//   - [SearchResults] : songs, albums, and artists from one query
//
// 2. Job lifecycle values: the client-observable state of a backend job
//   - [JobStatus] : running plus the three terminal states, monotonic
//   - [ProgressSnapshot] : phase/percent/speed while a job runs
//
// 3. Queue entities: locally persisted download queue state
//   - [QueueItem] : an enqueued song with its resolved formats
//   - [QueueGroup] : a user-named grouping of queue items
//   - [FormatKey] / [FormatCatalog] : available encodings per entry
//
// Queue entities implement the [Entity] interface; [Repository] defines the
// persistence contract the sqlite layer satisfies.
package models
