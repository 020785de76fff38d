package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/formatter"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/queue"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/urfave/cli/v3"
)

// QueueAdd searches the catalog for a term and enqueues the first match,
// or every match with --all. Format resolution runs in the background;
// the command waits for it so the reported status is final.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	term := strings.TrimSpace(cmd.StringArg("term"))
	if term == "" {
		return fmt.Errorf("%w: search term required", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	results, err := r.catalog.Search(ctx, term, services.EntitySong)
	if err != nil {
		return err
	}
	if len(results.Songs) == 0 {
		r.writePlainln("No songs found.")
		return nil
	}

	songs := results.Songs[:1]
	if cmd.Bool("all") {
		songs = results.Songs
	}

	items, err := store.EnqueueMany(ctx, songs)
	if err != nil {
		return err
	}
	store.Wait()

	for _, item := range items {
		current, err := store.Get(item.ID)
		if err != nil {
			current = item
		}
		r.writePlain("%s  %s - %s  [%s]\n",
			current.ID, current.Song.ArtistName, current.Song.TrackName, current.Status)
	}
	return nil
}

func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	items, err := store.Items()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	if len(items) == 0 {
		r.writePlainln("Queue is empty.")
		return nil
	}

	groups, err := store.Groups()
	if err != nil {
		return err
	}
	groupNames := make(map[string]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	r.writePlainHeader(fmt.Sprintf("Queue (%d)", len(items)))
	for _, item := range items {
		marker := " "
		if item.Selected {
			marker = "x"
		}
		line := fmt.Sprintf("[%s] %s  %s - %s  %s",
			marker, item.ID, item.Song.ArtistName, item.Song.TrackName, item.Status)
		if item.ChosenFormat != "" {
			line += "  " + formats.Label(item.ChosenFormat)
		}
		if name := groupNames[item.GroupID]; name != "" {
			line += "  (" + name + ")"
		}
		if item.Status == models.ItemError && item.Error != "" {
			line += "  " + item.Error
		}
		r.writePlainln("%s", line)
	}
	return nil
}

func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	itemID, err := itemArg(cmd)
	if err != nil {
		return err
	}
	if err := store.Remove(itemID); err != nil {
		return err
	}
	r.writePlain("Removed %s\n", itemID)
	return nil
}

func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	r.writePlainln("Queue cleared.")
	return nil
}

func (r *Runner) QueueToggle(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	itemID, err := itemArg(cmd)
	if err != nil {
		return err
	}
	if err := store.ToggleSelected(itemID); err != nil {
		return err
	}
	item, err := store.Get(itemID)
	if err != nil {
		return err
	}
	r.writePlain("%s selected=%t\n", itemID, item.Selected)
	return nil
}

func (r *Runner) QueueSelectAll(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	return store.SelectAll()
}

func (r *Runner) QueueUnselectAll(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	return store.UnselectAll()
}

func (r *Runner) QueueFormat(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	itemID, err := itemArg(cmd)
	if err != nil {
		return err
	}
	key := models.FormatKey(cmd.StringArg("key"))
	if !key.Valid() {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, cmd.StringArg("key"))
	}
	if err := store.SetChosenFormat(itemID, key); err != nil {
		return err
	}
	r.writePlain("%s format=%s\n", itemID, formats.Label(key))
	return nil
}

// QueueSubmit creates one backend job per eligible item and follows the
// batch to completion unless --no-watch is set.
func (r *Runner) QueueSubmit(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	scope := queue.Scope{
		SelectedOnly: cmd.Bool("selected"),
		GroupID:      cmd.String("group"),
	}

	entries, err := store.Submit(ctx, scope)
	if err != nil {
		if errors.Is(err, shared.ErrNoReadyItems) {
			r.writePlainln("Nothing to submit.")
			return nil
		}
		return err
	}

	r.writePlain("Submitted %d job(s).\n", len(entries))
	if cmd.Bool("no-watch") {
		r.manager.AddAll(entries)
		return nil
	}
	return r.watch(ctx, entries...)
}

func (r *Runner) QueueExport(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	items, err := store.Items()
	if err != nil {
		return err
	}
	groups, err := store.Groups()
	if err != nil {
		return err
	}
	export := &formatter.QueueExport{Items: items, Groups: groups}

	output := cmd.String("output")
	switch cmd.String("format") {
	case "csv":
		if output == "" {
			output = "queue"
		}
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %s and %s\n", result.ItemsFile, result.GroupsFile)
	case "md":
		if output == "" {
			output = "."
		}
		artwork := ""
		if len(items) > 0 {
			artwork = items[0].Song.ArtworkURL
		}
		result, err := formatter.WriteMarkdownExport(export, output, artwork)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %s\n", strings.Join(result.Files, ", "))
	case "txt":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %s\n", path)
	default:
		return fmt.Errorf("%w: export format must be csv, md, or txt", shared.ErrInvalidFlag)
	}
	return nil
}

func (r *Runner) GroupCreate(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	group, err := store.CreateGroup(cmd.String("name"))
	if err != nil {
		return err
	}
	r.writePlain("%s  %s\n", group.ID, group.Name)
	return nil
}

func (r *Runner) GroupList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	groups, err := store.Groups()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		r.writePlainln("No groups.")
		return nil
	}
	for _, group := range groups {
		r.writePlain("%s  %s\n", group.ID, group.Name)
	}
	return nil
}

func (r *Runner) GroupRename(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	groupID := strings.TrimSpace(cmd.StringArg("id"))
	name := strings.TrimSpace(cmd.StringArg("name"))
	if groupID == "" || name == "" {
		return fmt.Errorf("%w: group id and name required", shared.ErrMissingArgument)
	}
	if err := store.RenameGroup(groupID, name); err != nil {
		return err
	}
	r.writePlain("Renamed %s to %q\n", groupID, name)
	return nil
}

func (r *Runner) GroupDelete(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	groupID := strings.TrimSpace(cmd.StringArg("id"))
	if groupID == "" {
		return fmt.Errorf("%w: group id required", shared.ErrMissingArgument)
	}
	if err := store.DeleteGroup(groupID); err != nil {
		return err
	}
	r.writePlain("Deleted %s; members kept, ungrouped.\n", groupID)
	return nil
}

func (r *Runner) GroupAssign(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	itemID := strings.TrimSpace(cmd.StringArg("item"))
	groupID := strings.TrimSpace(cmd.StringArg("group"))
	if itemID == "" {
		return fmt.Errorf("%w: item id required", shared.ErrMissingArgument)
	}
	if err := store.AssignItemToGroup(itemID, groupID); err != nil {
		return err
	}
	if groupID == "" {
		r.writePlain("%s ungrouped\n", itemID)
	} else {
		r.writePlain("%s assigned to %s\n", itemID, groupID)
	}
	return nil
}

func itemArg(cmd *cli.Command) (string, error) {
	itemID := strings.TrimSpace(cmd.StringArg("id"))
	if itemID == "" {
		return "", fmt.Errorf("%w: item id required", shared.ErrMissingArgument)
	}
	return itemID, nil
}
