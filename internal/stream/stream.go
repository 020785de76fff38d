// Package stream delivers live job progress. It prefers the backend's
// event stream and degrades gracefully: failed connections are retried
// with exponential backoff, and once the retry budget is spent the
// channel falls back to polling the status and progress endpoints
// until the job reaches a terminal state or the channel is disposed.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

const (
	defaultReconnectBase = time.Second
	defaultReconnectCap  = 10 * time.Second
	defaultMaxAttempts   = 5
	defaultPollInterval  = 500 * time.Millisecond
)

// errStreamEnded signals that the server closed the stream after a
// terminal event, as opposed to a transport failure.
var errStreamEnded = errors.New("stream ended")

// Poller reads job state over plain HTTP. It backs the polling
// fallback and is satisfied by services.DownloadsClient.
type Poller interface {
	Status(ctx context.Context, jobID string) (*services.Job, error)
	Progress(ctx context.Context, jobID string) (*models.ProgressSnapshot, error)
}

// Opts tunes channel behavior. Zero values select the defaults that
// match the backend contract.
type Opts struct {
	// ReconnectBase is the first reconnect delay. Subsequent delays
	// double until ReconnectCap.
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
	// MaxAttempts bounds consecutive failed connections before the
	// channel abandons streaming for polling.
	MaxAttempts  int
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *log.Logger
}

func (o *Opts) fill() {
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = defaultReconnectBase
	}
	if o.ReconnectCap <= 0 {
		o.ReconnectCap = defaultReconnectCap
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = shared.NewLogger(nil)
	}
}

// Channel is a live progress feed for a single job. Events arrive on
// Events until an end event is delivered or the channel is disposed,
// after which the events channel is closed.
type Channel struct {
	jobID     string
	eventsURL string
	poller    Poller
	opts      Opts
	logger    *log.Logger

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// New starts a live channel for jobID reading events from eventsURL.
func New(eventsURL, jobID string, poller Poller, opts Opts) *Channel {
	opts.fill()
	ctx, cancel := context.WithCancel(context.Background())
	ch := &Channel{
		jobID:     jobID,
		eventsURL: eventsURL,
		poller:    poller,
		opts:      opts,
		logger:    opts.Logger,
		events:    make(chan Event, 16),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go ch.run()
	return ch
}

// Events returns the receive side of the channel. It is closed after
// the end event or on Dispose.
func (c *Channel) Events() <-chan Event { return c.events }

// JobID returns the job this channel observes.
func (c *Channel) JobID() string { return c.jobID }

// Dispose tears the channel down. It is safe to call from any state
// and any number of times; results of in-flight requests are
// discarded.
func (c *Channel) Dispose() {
	c.once.Do(func() {
		c.cancel()
	})
}

// Done is closed when the channel's goroutine has fully stopped.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) run() {
	defer close(c.done)
	defer close(c.events)
	defer c.cancel()

	failures := 0
	for {
		err := c.consume()
		switch {
		case err == nil || errors.Is(err, errStreamEnded):
			return
		case c.ctx.Err() != nil:
			return
		}

		failures++
		if failures > c.opts.MaxAttempts {
			c.logger.Warn("stream abandoned, polling instead", "job", c.jobID, "failures", failures)
			c.poll()
			return
		}

		delay := backoffDelay(c.opts.ReconnectBase, c.opts.ReconnectCap, failures)
		c.logger.Debug("stream reconnect scheduled", "job", c.jobID, "attempt", failures, "delay", delay)
		if !c.sleep(delay) {
			return
		}
	}
}

// consume opens one stream connection and forwards its events. It
// returns errStreamEnded after a terminal event, nil when the channel
// context ends, and a transport error otherwise.
func (c *Channel) consume() error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.eventsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStream, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		if c.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: %v", shared.ErrStream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", shared.ErrStream, resp.StatusCode)
	}

	return c.readEvents(resp.Body)
}

// readEvents scans SSE frames off the response body. Only data lines
// matter to the backend contract; comments and other fields are
// skipped.
func (c *Channel) readEvents(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			if data.Len() > 0 {
				terminal := c.dispatch(data.Bytes())
				data.Reset()
				if terminal {
					return errStreamEnded
				}
			}
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.Write(bytes.TrimPrefix(rest, []byte(" ")))
		}
	}
	if c.ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStream, err)
	}
	return fmt.Errorf("%w: connection closed", shared.ErrStream)
}

// dispatch parses and emits one event, reporting whether it was
// terminal.
func (c *Channel) dispatch(data []byte) bool {
	ev, err := parseEvent(data)
	if err != nil {
		c.logger.Debug("stream payload skipped", "job", c.jobID, "err", err)
		return false
	}
	c.emit(ev)
	return ev.Type == EventEnd
}

// poll reads status and progress at a fixed interval, synthesizing
// the same event shapes the stream would deliver. It never gives up
// on its own: only a terminal status or Dispose stops it.
func (c *Channel) poll() {
	started := false
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := c.poller.Status(c.ctx, c.jobID)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Debug("poll status failed", "job", c.jobID, "err", err)
			continue
		}

		if !started {
			started = true
			c.emit(Event{Type: EventStart})
		}

		if job.Status.IsTerminal() {
			c.emit(Event{Type: EventEnd, Status: job.Status})
			return
		}

		snap, err := c.poller.Progress(c.ctx, c.jobID)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Debug("poll progress failed", "job", c.jobID, "err", err)
			continue
		}
		if snap != nil {
			c.emit(Event{Type: EventProgress, Progress: snap})
		}
	}
}

// emit delivers an event unless the channel was disposed first.
func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Channel) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// backoffDelay returns the reconnect delay for the nth consecutive
// failure, doubling from base and capped.
func backoffDelay(base, cap time.Duration, failure int) time.Duration {
	if failure < 1 {
		failure = 1
	}
	d := base
	for i := 1; i < failure; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
