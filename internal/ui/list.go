package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/models"
)

var _ list.Item = queueItem{}

// queueItem wraps [models.QueueItem] to implement [list.Item].
type queueItem struct {
	item *models.QueueItem
}

func (i queueItem) FilterValue() string { return i.item.Song.TrackName }

func (i queueItem) Title() string {
	marker := "[ ]"
	if i.item.Selected {
		marker = "[x]"
	}
	return fmt.Sprintf("%s %s", marker, i.item.Song.TrackName)
}

func (i queueItem) Description() string {
	desc := i.item.Song.ArtistName
	if i.item.Song.CollectionName != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Song.CollectionName)
	}
	switch i.item.Status {
	case models.ItemLoading:
		return fmt.Sprintf("%s • resolving formats...", desc)
	case models.ItemError:
		return fmt.Sprintf("%s • error: %s", desc, i.item.Error)
	default:
		return fmt.Sprintf("%s • %s", desc, formats.Label(i.item.ChosenFormat))
	}
}
