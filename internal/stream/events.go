package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/music-downloader-hub/tunepull/internal/models"
)

// EventType discriminates the three live channel event variants.
type EventType string

const (
	EventStart    EventType = "start"
	EventProgress EventType = "progress"
	EventEnd      EventType = "end"
)

// Event is one observation from a job's live channel. A start event, if
// present, precedes any progress event; the single end event is last, and
// the channel emits nothing after it.
type Event struct {
	Type     EventType
	Progress *models.ProgressSnapshot // set for progress events
	Status   models.JobStatus         // set for end events
}

// wireEvent is the backend's JSON payload for one stream message.
type wireEvent struct {
	Type       string  `json:"type"`
	JobID      string  `json:"job_id"`
	Phase      string  `json:"phase"`
	Percent    float64 `json:"percent"`
	Speed      string  `json:"speed"`
	Downloaded string  `json:"downloaded"`
	Total      string  `json:"total"`
	Status     string  `json:"status"`
	ReturnCode int     `json:"return_code"`
}

// parseEvent decodes one SSE data payload into an Event.
func parseEvent(data []byte) (Event, error) {
	var raw wireEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("malformed stream payload: %w", err)
	}

	switch EventType(raw.Type) {
	case EventStart:
		return Event{Type: EventStart}, nil
	case EventProgress:
		return Event{Type: EventProgress, Progress: &models.ProgressSnapshot{
			Phase:      raw.Phase,
			Percent:    raw.Percent,
			Speed:      raw.Speed,
			Downloaded: raw.Downloaded,
			Total:      raw.Total,
			ObservedAt: time.Now().Unix(),
		}}, nil
	case EventEnd:
		status := models.JobStatus(raw.Status)
		if !status.IsTerminal() {
			// An end event without a usable status still terminates the job.
			status = models.JobCompleted
		}
		return Event{Type: EventEnd, Status: status}, nil
	default:
		return Event{}, fmt.Errorf("unknown stream event type %q", raw.Type)
	}
}
