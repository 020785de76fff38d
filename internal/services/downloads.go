// Download backend API client.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

// DownloadsClient provides methods for the backend's asynchronous job API.
// Every method is a single network round trip; failures wrap
// [shared.ErrTransport] and must be treated as retryable by callers.
type DownloadsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDownloadsClient creates a new client for the download backend.
func NewDownloadsClient(baseURL string, client *http.Client) *DownloadsClient {
	if baseURL == "" {
		baseURL = "http://localhost:8787"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &DownloadsClient{baseURL: baseURL, httpClient: client}
}

// Create submits a single download job and returns its record.
func (c *DownloadsClient) Create(ctx context.Context, req DownloadRequest) (*Job, error) {
	var job Job
	if err := c.doRequest(ctx, http.MethodPost, "/downloads", req, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("%w: backend returned no job id", shared.ErrTransport)
	}
	return &job, nil
}

// CreateBatch submits many download jobs in one call. The returned refs are
// in request order, so they line up one-to-one with items.
func (c *DownloadsClient) CreateBatch(ctx context.Context, items []DownloadRequest) ([]JobRef, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty batch", shared.ErrValidation)
	}

	var resp BatchResponse
	if err := c.doRequest(ctx, http.MethodPost, "/downloads/batch", BatchRequest{Items: items}, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Debug fetches the per-track encoding and format availability report for a URL.
func (c *DownloadsClient) Debug(ctx context.Context, url string) (*DebugResponse, error) {
	var resp DebugResponse
	body := struct {
		URL string `json:"url"`
	}{URL: url}

	if err := c.doRequest(ctx, http.MethodPost, "/downloads/debug", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Debug) == 0 {
		return nil, fmt.Errorf("%w: no debug info returned", shared.ErrNoFormats)
	}
	return &resp, nil
}

// Status fetches the job record for one job id.
func (c *DownloadsClient) Status(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.doRequest(ctx, http.MethodGet, "/downloads/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Progress fetches the current progress snapshot for one job id.
// The snapshot is only meaningful while the job is running.
func (c *DownloadsClient) Progress(ctx context.Context, jobID string) (*models.ProgressSnapshot, error) {
	var snap models.ProgressSnapshot
	if err := c.doRequest(ctx, http.MethodGet, "/downloads/"+jobID+"/progress", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Cancel requests cancellation of a running job. A non-2xx response is a
// recoverable error, never a reason to tear down the caller.
func (c *DownloadsClient) Cancel(ctx context.Context, jobID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/downloads/"+jobID, nil, nil)
}

// EventsURL returns the live event stream endpoint for a job.
func (c *DownloadsClient) EventsURL(jobID string) string {
	return c.baseURL + "/downloads/" + jobID + "/events"
}

// ArchiveURL returns the completed artifact endpoint for a job.
func (c *DownloadsClient) ArchiveURL(jobID string) string {
	return c.baseURL + "/downloads/" + jobID + "/archive"
}

// SaveArchive streams a completed job's artifact to path, creating parent
// directories as needed. The partial file is removed on failure.
func (c *DownloadsClient) SaveArchive(ctx context.Context, jobID, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ArchiveURL(jobID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	return out.Close()
}

// HTTPClient exposes the underlying client for the event stream reader.
func (c *DownloadsClient) HTTPClient() *http.Client {
	return c.httpClient
}

// doRequest performs one JSON round trip against the backend.
func (c *DownloadsClient) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrTransport, err)
		}
	}

	return nil
}

// classifyStatus maps an HTTP status code onto the shared error taxonomy.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", shared.ErrNotFound, code)
	default:
		return fmt.Errorf("%w: status %d", shared.ErrTransport, code)
	}
}
