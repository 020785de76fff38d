package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/music-downloader-hub/tunepull/internal/shared"
)

const searchPayload = `{
	"resultCount": 3,
	"results": [
		{"kind": "song", "trackId": 1, "trackName": "Shape of You", "artistName": "Ed Sheeran", "trackViewUrl": "https://music.apple.com/us/album/shape-of-you/1193701079?i=1193701392"},
		{"collectionType": "Album", "collectionId": 9, "collectionName": "Divide", "artistName": "Ed Sheeran", "trackCount": 12},
		{"wrapperType": "artist", "artistId": 7, "artistName": "Ed Sheeran"}
	]
}`

func TestCatalogClient(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		var gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			fmt.Fprint(w, searchPayload)
		}))
		defer server.Close()

		client := NewCatalogClient(CatalogOpts{SearchURL: server.URL, Country: "vn", Limit: 50})
		results, err := client.Search(context.Background(), "shape of you", EntitySong)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(results.Songs) != 1 || results.Songs[0].TrackName != "Shape of You" {
			t.Errorf("unexpected songs %+v", results.Songs)
		}
		if len(results.Albums) != 1 || results.Albums[0].CollectionName != "Divide" {
			t.Errorf("unexpected albums %+v", results.Albums)
		}
		if len(results.Artists) != 1 {
			t.Errorf("unexpected artists %+v", results.Artists)
		}

		for _, fragment := range []string{"media=music", "entity=song", "country=vn", "limit=50"} {
			if !strings.Contains(gotQuery, fragment) {
				t.Errorf("expected query to contain %q, got %q", fragment, gotQuery)
			}
		}
	})

	t.Run("Search Strips Invisible Characters", func(t *testing.T) {
		var gotTerm string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotTerm = r.URL.Query().Get("term")
			fmt.Fprint(w, `{"resultCount": 0, "results": []}`)
		}))
		defer server.Close()

		client := NewCatalogClient(CatalogOpts{SearchURL: server.URL})
		if _, err := client.Search(context.Background(), "shape\u200B of\u202E you", EntitySong); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotTerm != "shape of you" {
			t.Errorf("expected sanitized term, got %q", gotTerm)
		}
	})

	t.Run("Empty Query", func(t *testing.T) {
		client := NewCatalogClient(CatalogOpts{})
		if _, err := client.Search(context.Background(), "  \u200B ", EntitySong); !errors.Is(err, shared.ErrEmptyQuery) {
			t.Errorf("expected ErrEmptyQuery, got %v", err)
		}
	})

	t.Run("LookupAlbum", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("entity"); got != "song" {
				t.Errorf("expected entity=song, got %q", got)
			}
			fmt.Fprint(w, `{
				"resultCount": 3,
				"results": [
					{"collectionType": "Album", "collectionId": 9, "collectionName": "Divide", "trackCount": 2},
					{"kind": "song", "trackId": 1, "trackName": "Shape of You"},
					{"kind": "song", "trackId": 2, "trackName": "Castle on the Hill"}
				]
			}`)
		}))
		defer server.Close()

		client := NewCatalogClient(CatalogOpts{LookupURL: server.URL})
		album, tracks, err := client.LookupAlbum(context.Background(), 9)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if album.CollectionName != "Divide" {
			t.Errorf("unexpected album %+v", album)
		}
		if len(tracks) != 2 || tracks[1].TrackName != "Castle on the Hill" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("LookupAlbum Missing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"resultCount": 0, "results": []}`)
		}))
		defer server.Close()

		client := NewCatalogClient(CatalogOpts{LookupURL: server.URL})
		if _, _, err := client.LookupAlbum(context.Background(), 404); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBuildSongURL(t *testing.T) {
	cases := []struct {
		name    string
		viewURL string
		trackID int64
		want    string
	}{
		{
			"Explicit Track ID",
			"https://music.apple.com/us/album/divide/1193701079?i=1193701392",
			1193701392,
			"https://music.apple.com/us/song/1193701392",
		},
		{
			"Track ID From Query",
			"https://music.apple.com/vn/album/divide/1193701079?i=1193701392",
			0,
			"https://music.apple.com/vn/song/1193701392",
		},
		{
			"Track ID From Path",
			"https://music.apple.com/gb/song/1193701392",
			0,
			"https://music.apple.com/gb/song/1193701392",
		},
		{
			"No ID Falls Back",
			"https://music.apple.com/us/album/divide",
			0,
			"https://music.apple.com/us/album/divide",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildSongURL(tc.viewURL, tc.trackID); got != tc.want {
				t.Errorf("BuildSongURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsAlbumURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want bool
	}{
		{"Album URL", "https://music.apple.com/us/album/divide/1193701079", true},
		{"Track In Album", "https://music.apple.com/us/album/divide/1193701079?i=1193701392", false},
		{"Song URL", "https://music.apple.com/us/song/1193701392", false},
		{"Garbage", "://not-a-url", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAlbumURL(tc.url); got != tc.want {
				t.Errorf("IsAlbumURL(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}
