package report

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// Sink receives serialized violation events. Delivery is one-way and
// best-effort; implementations live in internal/sink.
type Sink interface {
	Deliver(ctx context.Context, event model.ViolationEvent, payload []byte) error
}

const deliverTimeout = 5 * time.Second

// Reporter fans violation events out to its sinks, fire-and-forget. The scan
// loop never blocks on a sink, and a failing sink costs nothing but a log
// line: lost events are compensated by the next scan cycle for categories
// whose trigger condition persists.
type Reporter struct {
	sinks []Sink
	log   logger.Logger
	wg    sync.WaitGroup
}

func New(log logger.Logger, sinks ...Sink) *Reporter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reporter{sinks: sinks, log: log}
}

// NewEvent builds the immutable violation record for a verdict.
func NewEvent(cat model.Category, pageURL string, details map[string]any) model.ViolationEvent {
	return model.ViolationEvent{
		ID:        uuid.NewString(),
		Type:      model.EventType,
		SubType:   cat.SubType(),
		PageURL:   pageURL,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// Report hands the event to every sink without waiting for delivery.
func (r *Reporter) Report(event model.ViolationEvent) {
	payload, err := Encode(event)
	if err != nil {
		r.log.Err(err, "encode violation", "subType", event.SubType)
		return
	}
	for _, s := range r.sinks {
		s := s
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
			defer cancel()
			if err := s.Deliver(ctx, event, payload); err != nil {
				r.log.Err(err, "violation delivery failed", "subType", event.SubType)
			}
		}()
	}
	r.log.Debug("violation reported", "subType", event.SubType, "url", event.PageURL)
}

// Wait blocks until in-flight deliveries finish. Used at shutdown and in
// tests; Report never waits.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

// Encode renders the collector message contract.
func Encode(e model.ViolationEvent) ([]byte, error) {
	payload := []byte(`{}`)
	var err error
	set := func(key string, value any) {
		if err != nil {
			return
		}
		payload, err = sjson.SetBytes(payload, key, value)
	}
	set("id", e.ID)
	set("type", e.Type)
	set("subType", e.SubType)
	set("url", e.PageURL)
	set("timestamp", e.Timestamp)
	for k, v := range e.Details {
		set("details."+k, v)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
