package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/tracker"
)

// queueLoadedMsg carries a fresh queue snapshot.
type queueLoadedMsg struct {
	items []*models.QueueItem
	err   error
}

// submittedMsg carries the tracker entries created by a batch submission.
type submittedMsg struct {
	entries []tracker.Entry
	err     error
}

// trackerUpdateMsg is one observation from the manager's fan-in channel.
type trackerUpdateMsg tracker.Update

// actionDoneMsg reports the outcome of a user-initiated job action.
type actionDoneMsg struct {
	note string
	err  error
}

var (
	_ tea.Msg = queueLoadedMsg{}
	_ tea.Msg = submittedMsg{}
	_ tea.Msg = trackerUpdateMsg{}
	_ tea.Msg = actionDoneMsg{}
)
