package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search queries the music catalog for songs or albums.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	term := cmd.StringArg("term")
	if term == "" {
		return fmt.Errorf("%w: search term required", shared.ErrMissingArgument)
	}

	entity := services.EntitySong
	switch cmd.String("entity") {
	case "", "song":
	case "album":
		entity = services.EntityAlbum
	default:
		return fmt.Errorf("%w: entity must be song or album", shared.ErrInvalidFlag)
	}

	r.logger.Info("searching catalog", "term", term, "entity", entity)

	results, err := r.catalog.Search(ctx, term, entity)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	if len(results.Songs) > 0 {
		r.writePlainHeader(fmt.Sprintf("Songs (%d)", len(results.Songs)))
		for _, song := range results.Songs {
			duration := shared.FormatDuration(song.TrackTimeMillis)
			r.writePlain("%d  %s - %s (%s) [%s]\n",
				song.TrackID, song.ArtistName, song.TrackName, song.CollectionName, duration)
		}
	}
	if len(results.Albums) > 0 {
		r.writePlainHeader(fmt.Sprintf("Albums (%d)", len(results.Albums)))
		for _, album := range results.Albums {
			r.writePlain("%d  %s - %s (%d tracks)\n",
				album.CollectionID, album.ArtistName, album.CollectionName, album.TrackCount)
		}
	}
	if len(results.Artists) > 0 {
		r.writePlainHeader(fmt.Sprintf("Artists (%d)", len(results.Artists)))
		for _, artist := range results.Artists {
			r.writePlain("%d  %s (%s)\n", artist.ArtistID, artist.ArtistName, artist.PrimaryGenreName)
		}
	}
	if len(results.Songs) == 0 && len(results.Albums) == 0 && len(results.Artists) == 0 {
		r.writePlain("No results for %q\n", term)
	}

	return nil
}

// Album shows an album's track listing from the catalog lookup endpoint.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSpace(cmd.StringArg("id"))
	if raw == "" {
		return fmt.Errorf("%w: album id required", shared.ErrMissingArgument)
	}
	collectionID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: album id must be numeric", shared.ErrMalformedURL)
	}

	album, tracks, err := r.catalog.LookupAlbum(ctx, collectionID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"album": album, "tracks": tracks}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", album.ArtistName, album.CollectionName))
	r.writePlain("Tracks: %d  Released: %s\n\n", album.TrackCount, album.ReleaseDate)
	for i, track := range tracks {
		r.writePlain("%2d. %s [%s]\n", i+1, track.TrackName, shared.FormatDuration(track.TrackTimeMillis))
	}

	return nil
}
