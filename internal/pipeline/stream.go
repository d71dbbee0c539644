package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/article-digest/internal/model"
)

// EventStatus identifies a stream event.
type EventStatus string

const (
	EventStart      EventStatus = "start"
	EventProcessing EventStatus = "processing"
	EventRecord     EventStatus = "record"
	EventError      EventStatus = "error"
	EventComplete   EventStatus = "complete"
)

// Event is one progress update from Stream.
type Event struct {
	Status     EventStatus          `json:"status"`
	Index      *int                 `json:"index,omitempty"`
	URL        string               `json:"url,omitempty"`
	Total      int                  `json:"total,omitempty"`
	DurationMs int64                `json:"durationMs,omitempty"`
	Record     *model.ArticleRecord `json:"record,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// Stream processes urls one at a time and reports progress on the returned
// channel, which is closed when the run ends. Cancelling ctx stops new URLs
// from starting; a URL already in flight finishes but its record is dropped.
// Stream never writes artifacts.
func (c *Coordinator) Stream(ctx context.Context, urls []string, opts Options) (<-chan Event, error) {
	targets, err := c.Prepare(urls)
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)

		orch, release := c.open(opts)
		defer release()

		started := time.Now()
		if !send(ctx, out, Event{Status: EventStart, Total: len(targets)}) {
			return
		}

		for i, u := range targets {
			if ctx.Err() != nil {
				return
			}
			idx := i
			if !send(ctx, out, Event{Status: EventProcessing, Index: &idx, URL: u}) {
				return
			}

			rec, err := c.processURL(context.WithoutCancel(ctx), orch, u, opts)
			ev := Event{Status: EventRecord, Index: &idx, URL: u, Record: &rec}
			if err != nil {
				ev = Event{Status: EventError, Index: &idx, URL: u, Message: err.Error()}
			}
			if !send(ctx, out, ev) {
				return
			}
		}

		send(ctx, out, Event{
			Status:     EventComplete,
			Total:      len(targets),
			DurationMs: time.Since(started).Milliseconds(),
		})
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- Event, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
