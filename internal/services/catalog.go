// Public music catalog client (search and album lookup).
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"golang.org/x/time/rate"
)

// Display caps per result kind, matching what the search surface can show.
const (
	maxSongs   = 12
	maxAlbums  = 8
	maxArtists = 6
)

// SearchEntity selects which catalog entity a search targets.
type SearchEntity string

const (
	EntitySong  SearchEntity = "song"
	EntityAlbum SearchEntity = "album"
)

// CatalogClient queries the public music catalog's search and lookup
// endpoints. Requests are throttled with a shared rate limiter; the catalog
// is an external service with its own quota.
type CatalogClient struct {
	searchURL  string
	lookupURL  string
	country    string
	limit      int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// CatalogOpts configures a CatalogClient.
type CatalogOpts struct {
	SearchURL string
	LookupURL string
	Country   string
	Limit     int
	RateLimit float64 // requests per second; 0 disables throttling
	Client    *http.Client
}

// NewCatalogClient creates a catalog client with the given options.
func NewCatalogClient(opts CatalogOpts) *CatalogClient {
	if opts.SearchURL == "" {
		opts.SearchURL = "https://itunes.apple.com/search"
	}
	if opts.LookupURL == "" {
		opts.LookupURL = "https://itunes.apple.com/lookup"
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &CatalogClient{
		searchURL:  opts.SearchURL,
		lookupURL:  opts.LookupURL,
		country:    opts.Country,
		limit:      opts.Limit,
		httpClient: opts.Client,
		limiter:    limiter,
	}
}

// catalogResult is the union shape of one raw catalog result row; the
// kind/collectionType/wrapperType discriminators decide what it is.
type catalogResult struct {
	Kind           string `json:"kind"`
	CollectionType string `json:"collectionType"`
	WrapperType    string `json:"wrapperType"`
}

type catalogResponse struct {
	ResultCount int               `json:"resultCount"`
	Results     []json.RawMessage `json:"results"`
}

// Search queries the catalog for songs or albums matching term.
// The term is stripped of invisible Unicode control characters first;
// an empty term (after trimming) is a validation error.
func (c *CatalogClient) Search(ctx context.Context, term string, entity SearchEntity) (*models.SearchResults, error) {
	term = strings.TrimSpace(shared.StripInvisible(term))
	if term == "" {
		return nil, shared.ErrEmptyQuery
	}
	if entity != EntitySong && entity != EntityAlbum {
		entity = EntitySong
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", string(entity))
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("country", c.country)

	raw, err := c.fetch(ctx, c.searchURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	results := &models.SearchResults{Songs: []models.Song{}, Albums: []models.Album{}, Artists: []models.Artist{}}
	for _, row := range raw {
		var disc catalogResult
		if err := json.Unmarshal(row, &disc); err != nil {
			continue
		}

		switch {
		case disc.Kind == "song" && len(results.Songs) < maxSongs:
			var song models.Song
			if json.Unmarshal(row, &song) == nil {
				results.Songs = append(results.Songs, song)
			}
		case disc.CollectionType == "Album" && len(results.Albums) < maxAlbums:
			var album models.Album
			if json.Unmarshal(row, &album) == nil {
				results.Albums = append(results.Albums, album)
			}
		case disc.WrapperType == "artist" && len(results.Artists) < maxArtists:
			var artist models.Artist
			if json.Unmarshal(row, &artist) == nil {
				results.Artists = append(results.Artists, artist)
			}
		}
	}

	return results, nil
}

// LookupAlbum fetches an album and its full track list by collection id.
func (c *CatalogClient) LookupAlbum(ctx context.Context, collectionID int64) (*models.Album, []models.Song, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(collectionID, 10))
	params.Set("entity", "song")
	params.Set("country", c.country)

	raw, err := c.fetch(ctx, c.lookupURL+"?"+params.Encode())
	if err != nil {
		return nil, nil, err
	}

	var album *models.Album
	var tracks []models.Song
	for _, row := range raw {
		var disc catalogResult
		if err := json.Unmarshal(row, &disc); err != nil {
			continue
		}

		if disc.CollectionType == "Album" && album == nil {
			var a models.Album
			if json.Unmarshal(row, &a) == nil {
				album = &a
			}
		} else if disc.Kind == "song" {
			var song models.Song
			if json.Unmarshal(row, &song) == nil {
				tracks = append(tracks, song)
			}
		}
	}

	if album == nil {
		return nil, nil, fmt.Errorf("%w: album %d", shared.ErrNotFound, collectionID)
	}
	return album, tracks, nil
}

// fetch performs one rate-limited GET and returns the raw results array.
func (c *CatalogClient) fetch(ctx context.Context, fullURL string) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var decoded catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrTransport, err)
	}
	return decoded.Results, nil
}

var trackIDPattern = regexp.MustCompile(`^\d+$`)

// BuildSongURL canonicalizes a catalog track view URL into the backend's
// expected song form: https://<host>/<region>/song/<id>. Falls back to the
// original URL when no numeric id can be derived.
func BuildSongURL(trackViewURL string, trackID int64) string {
	parsed, err := url.Parse(trackViewURL)
	if err != nil {
		return trackViewURL
	}

	parts := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })
	region := "us"
	if len(parts) > 0 {
		region = parts[0]
	}

	id := trackID
	if id == 0 {
		if q := parsed.Query().Get("i"); trackIDPattern.MatchString(q) {
			id, _ = strconv.ParseInt(q, 10, 64)
		} else if len(parts) > 0 {
			if last := parts[len(parts)-1]; trackIDPattern.MatchString(last) {
				id, _ = strconv.ParseInt(last, 10, 64)
			}
		}
	}

	if id == 0 {
		return trackViewURL
	}
	return fmt.Sprintf("https://music.apple.com/%s/song/%d", region, id)
}

// IsAlbumURL reports whether a catalog URL points at a whole album rather
// than a single track (no /song/ path segment and no track query).
func IsAlbumURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hasSong := strings.Contains(parsed.Path, "/song/")
	hasAlbum := strings.Contains(parsed.Path, "/album/")
	hasTrackQuery := parsed.Query().Get("i") != ""
	return hasAlbum && !hasSong && !hasTrackQuery
}
