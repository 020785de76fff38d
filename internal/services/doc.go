// Package services contains the HTTP clients for the two external systems the
// downloader talks to.
//
// # Catalog
//
// [CatalogClient] queries the public music catalog:
//
//  1. [CatalogClient.Search] : term search for songs or albums
//  2. [CatalogClient.LookupAlbum] : album lookup with its full track list
//
// Queries are stripped of invisible/bidirectional Unicode control characters
// before submission and throttled with a [rate.Limiter].
//
// # Download backend
//
// [DownloadsClient] drives the asynchronous job API:
//
//  1. [DownloadsClient.Create] / [DownloadsClient.CreateBatch] : submit jobs
//  2. [DownloadsClient.Debug] : per-track encoding/format lookup
//  3. [DownloadsClient.Status] / [DownloadsClient.Progress] : one-shot snapshots
//  4. [DownloadsClient.Cancel] : request cancellation
//  5. [DownloadsClient.SaveArchive] : stream a completed artifact to disk
//
// # Errors
//
// Network and HTTP failures wrap [shared.ErrTransport] and are always
// retryable; an unknown job id wraps [shared.ErrNotFound]. Neither implies
// anything about the job's actual state.
package services
