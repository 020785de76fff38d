// package formats resolves the available encodings for a catalog entry and
// picks sensible defaults.
package formats

import (
	"context"
	"regexp"
	"strings"

	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/services"
)

// defaultOrder is the preference order for automatic format selection.
var defaultOrder = []models.FormatKey{
	models.FormatHiRes,
	models.FormatLossless,
	models.FormatDolbyAtmos,
	models.FormatAAC,
	models.FormatDolbyAudio,
}

// DebugClient is the slice of the backend client the resolver needs.
type DebugClient interface {
	Debug(ctx context.Context, url string) (*services.DebugResponse, error)
}

// Resolver fetches format catalogs from the backend's debug endpoint and
// matches the backend's canonical track names against catalog metadata.
type Resolver struct {
	client DebugClient
}

// NewResolver creates a Resolver backed by the given client.
func NewResolver(client DebugClient) *Resolver {
	return &Resolver{client: client}
}

// Resolution is the outcome of resolving one catalog entry.
type Resolution struct {
	Name    string               // backend's canonical track name
	Formats models.FormatCatalog // available encodings
	Default models.FormatKey     // empty when nothing is available
}

// Resolve fetches the formats for targetURL and best-effort matches the
// backend-reported names against hintName.
//
// Matching is exact on normalized names first, then substring, then the
// first entry the backend returned. Normalization tolerates casing,
// punctuation, and leading track-number differences between the catalog
// and backend metadata.
func (r *Resolver) Resolve(ctx context.Context, targetURL, hintName string) (*Resolution, error) {
	resp, err := r.client.Debug(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	chosen := MatchTrack(resp.Debug, hintName)
	return &Resolution{
		Name:    chosen.Name,
		Formats: chosen.AvailableFormats,
		Default: DefaultKey(chosen.AvailableFormats),
	}, nil
}

// MatchTrack selects the debug entry whose name best matches hint.
// The slice must be non-empty; the first entry is the fallback.
func MatchTrack(tracks []services.TrackDebug, hint string) services.TrackDebug {
	if len(tracks) == 0 {
		return services.TrackDebug{}
	}
	if hint == "" {
		return tracks[0]
	}

	target := normalizeName(hint)

	for _, track := range tracks {
		if normalizeName(track.Name) == target {
			return track
		}
	}
	for _, track := range tracks {
		if strings.Contains(normalizeName(track.Name), target) {
			return track
		}
	}
	return tracks[0]
}

// DefaultKey picks the first available format in preference order, or empty
// when nothing is available and the user must choose manually.
func DefaultKey(catalog models.FormatCatalog) models.FormatKey {
	for _, key := range defaultOrder {
		if catalog.Available(key) {
			return key
		}
	}
	return ""
}

// Label returns the display label for a format key.
func Label(key models.FormatKey) string {
	switch key {
	case models.FormatHiRes:
		return "HI-RES LOSSLESS"
	case models.FormatLossless:
		return "LOSSLESS"
	case models.FormatDolbyAtmos:
		return "DOLBY ATMOS"
	case models.FormatDolbyAudio:
		return "DOLBY AUDIO"
	case models.FormatAAC:
		return "AAC"
	default:
		return strings.ToUpper(string(key))
	}
}

var (
	trackNumberPrefix = regexp.MustCompile(`^\d+\.?\s+`)
	nonAlphanumeric   = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// normalizeName lower-cases, strips a leading track-number prefix, drops all
// non-alphanumeric characters, and collapses whitespace.
func normalizeName(name string) string {
	s := strings.ToLower(name)
	s = trackNumberPrefix.ReplaceAllString(s, "")
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
