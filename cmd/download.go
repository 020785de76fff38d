package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/music-downloader-hub/tunepull/internal/tracker"
	"github.com/urfave/cli/v3"
)

// DownloadStart submits one download job and, by default, follows its
// progress until a terminal state.
func (r *Runner) DownloadStart(ctx context.Context, cmd *cli.Command) error {
	url := strings.TrimSpace(cmd.StringArg("url"))
	if url == "" {
		return fmt.Errorf("%w: url required", shared.ErrMissingArgument)
	}

	key, err := parseFormatKey(cmd.String("format"))
	if err != nil {
		return err
	}

	isAlbum := cmd.Bool("album") || services.IsAlbumURL(url)

	var req services.DownloadRequest
	var display string
	if isAlbum {
		req = services.AlbumRequest(url, key, cmd.Bool("all-tracks"))
		display = url
	} else {
		res, err := r.resolver.Resolve(ctx, url, "")
		if err != nil {
			return err
		}
		if key == "" {
			key = res.Default
		}
		if key == "" {
			return fmt.Errorf("%w: no downloadable format for %s", shared.ErrNoFormats, url)
		}
		if !res.Formats.Available(key) {
			return fmt.Errorf("%w: format %s not available; run 'download formats'", shared.ErrValidation, key)
		}
		req = services.SongRequest(url, key)
		display = res.Name
	}

	job, err := r.downloads.Create(ctx, req)
	if err != nil {
		return err
	}

	r.logger.Info("job created", "job", job.JobID, "format", key)
	r.writePlain("Job %s created (%s)\n", job.JobID, formats.Label(key))

	entry := tracker.Entry{JobID: job.JobID, DisplayName: display, FormatLabel: formats.Label(key)}
	if cmd.Bool("no-watch") {
		r.manager.Add(entry)
		return nil
	}
	return r.watch(ctx, entry)
}

// DownloadFormats prints the format catalog the backend reports for a URL.
func (r *Runner) DownloadFormats(ctx context.Context, cmd *cli.Command) error {
	url := strings.TrimSpace(cmd.StringArg("url"))
	if url == "" {
		return fmt.Errorf("%w: url required", shared.ErrMissingArgument)
	}

	res, err := r.resolver.Resolve(ctx, url, cmd.String("track"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(res, cmd.Bool("pretty"))
	}

	r.writePlainHeader(res.Name)
	for _, key := range models.FormatKeys {
		descriptor := res.Formats.Descriptor(key)
		if descriptor == "" {
			descriptor = models.FormatNotAvailable
		}
		marker := " "
		if key == res.Default {
			marker = "*"
		}
		r.writePlain("%s %-16s %s\n", marker, formats.Label(key), descriptor)
	}
	if res.Default == "" {
		r.writePlain("\nNo downloadable format available.\n")
	}

	return nil
}

// parseFormatKey validates a --format flag value. Empty means "use the
// best available".
func parseFormatKey(raw string) (models.FormatKey, error) {
	if raw == "" {
		return "", nil
	}
	key := models.FormatKey(raw)
	if !key.Valid() {
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, raw)
	}
	return key, nil
}

// watch tracks entries through the manager, rendering updates until
// every job reaches a terminal state.
func (r *Runner) watch(ctx context.Context, entries ...tracker.Entry) error {
	trackers := r.manager.AddAll(entries)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, t := range trackers {
			select {
			case <-t.Done():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case update := <-r.manager.Updates():
			r.renderUpdate(update)
		case <-done:
			r.drainUpdates()
			for _, t := range trackers {
				entry := t.Entry()
				r.writePlain("%s: %s\n", entry.DisplayName, t.State())
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) drainUpdates() {
	for {
		select {
		case update := <-r.manager.Updates():
			r.renderUpdate(update)
		default:
			return
		}
	}
}

func (r *Runner) renderUpdate(update tracker.Update) {
	switch {
	case update.Err != nil:
		r.logger.Warn("job error", "job", update.JobID, "err", update.Err)
	case update.Progress != nil:
		r.writePlain("  %s %5.1f%% %s %s/%s\n",
			update.Progress.Phase, update.Progress.Percent,
			update.Progress.Speed, update.Progress.Downloaded, update.Progress.Total)
	case update.State.Terminal():
		r.writePlain("job %s %s\n", update.JobID, update.State)
	}
}
