// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view workflow for the download queue:
//  1. [QueueView] : Browse, select, and submit enqueued tracks
//  2. [DownloadsView] : Monitor live job progress, cancel and dismiss jobs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Job progress flows through the tracker manager's fan-in channel, providing
// non-blocking status reporting while downloads run.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, space, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
