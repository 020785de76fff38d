// Request and response types matching the download backend's JSON contract.
package services

import "github.com/music-downloader-hub/tunepull/internal/models"

// Job is the backend's record of one download job.
type Job struct {
	JobID      string           `json:"job_id"`
	Status     models.JobStatus `json:"status"`
	ReturnCode int              `json:"return_code"`
	Args       []string         `json:"args"`
	CreatedAt  int64            `json:"created_at"`
	UpdatedAt  int64            `json:"updated_at"`
}

// JobRef is the minimal job handle returned by batch creation.
type JobRef struct {
	JobID string `json:"job_id"`
}

// DownloadRequest is the job creation payload. Exactly one of Song or Album
// is set; AAC/Atmos select an encoding, and neither set means the backend
// default (lossless when available).
type DownloadRequest struct {
	URL      string `json:"url"`
	Song     bool   `json:"song,omitempty"`
	Album    bool   `json:"album,omitempty"`
	AllAlbum bool   `json:"all_album,omitempty"`
	AAC      bool   `json:"aac,omitempty"`
	Atmos    bool   `json:"atmos,omitempty"`
}

// SongRequest builds a single-track download request for the given format.
func SongRequest(url string, format models.FormatKey) DownloadRequest {
	return DownloadRequest{
		URL:   url,
		Song:  true,
		AAC:   format == models.FormatAAC,
		Atmos: format == models.FormatDolbyAtmos,
	}
}

// AlbumRequest builds a whole-album download request for the given format.
func AlbumRequest(url string, format models.FormatKey, allTracks bool) DownloadRequest {
	return DownloadRequest{
		URL:      url,
		Album:    true,
		AllAlbum: allTracks,
		AAC:      format == models.FormatAAC,
		Atmos:    format == models.FormatDolbyAtmos,
	}
}

// BatchRequest wraps the order-preserving batch creation payload.
type BatchRequest struct {
	Items []DownloadRequest `json:"items"`
}

// BatchResponse carries one JobRef per submitted item, in request order.
type BatchResponse struct {
	Jobs []JobRef `json:"jobs"`
}

// Variant describes one encoding variant reported by the debug endpoint.
type Variant struct {
	Codec        string `json:"codec"`
	AudioProfile string `json:"audio_profile"`
	Bandwidth    int64  `json:"bandwidth"`
}

// TrackDebug is the per-track entry of a debug/format lookup.
type TrackDebug struct {
	Name             string               `json:"name"`
	Variants         []Variant            `json:"variants"`
	AvailableFormats models.FormatCatalog `json:"available_formats"`
}

// DebugResponse is the full debug/format lookup payload.
type DebugResponse struct {
	JobID      string       `json:"job_id"`
	Status     string       `json:"status"`
	ReturnCode int          `json:"return_code"`
	Debug      []TrackDebug `json:"debug"`
}
