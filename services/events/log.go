package eventsvc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core"
)

// LogPublisher logs events instead of sending them anywhere. Used when no broker is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, key string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	p.logger.Info("event " + key + ": " + string(body))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Published is an event captured by a Recorder.
type Published struct {
	Key   string
	Event interface{}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

var _ core.EventPublisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, key string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Key: key, Event: event})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns what has been published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Published, len(r.events))
	copy(events, r.events)
	return events
}

// Keys returns the routing keys published so far, in order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.Key)
	}
	return keys
}
