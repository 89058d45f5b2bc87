package report

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

type captureSink struct {
	mu       sync.Mutex
	events   []model.ViolationEvent
	payloads [][]byte
	err      error
}

func (c *captureSink) Deliver(_ context.Context, e model.ViolationEvent, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	c.payloads = append(c.payloads, payload)
	return c.err
}

func TestReportDeliversToAllSinks(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	r := New(logger.NewNop(), a, b)

	ev := NewEvent(model.CategoryWorkerProxy, "https://host.example/page", map[string]any{"url": "https://xk29dq81jz.workers.dev/p"})
	r.Report(ev)
	r.Wait()

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "WORKER_PROXY_DETECTED", a.events[0].SubType)
}

func TestReportSwallowsSinkFailure(t *testing.T) {
	failing := &captureSink{err: errors.New("collector down")}
	ok := &captureSink{}
	r := New(logger.NewNop(), failing, ok)

	assert.NotPanics(t, func() {
		r.Report(NewEvent(model.CategoryBlobURL, "https://host.example", nil))
		r.Wait()
	})
	assert.Len(t, ok.events, 1)
}

func TestEncodeMessageContract(t *testing.T) {
	ev := NewEvent(model.CategoryEncodedPayload, "https://host.example/p", map[string]any{"runLength": 1200})
	payload, err := Encode(ev)
	require.NoError(t, err)

	doc := gjson.ParseBytes(payload)
	assert.Equal(t, model.EventType, doc.Get("type").String())
	assert.Equal(t, "ENCODED_PAYLOAD_DETECTED", doc.Get("subType").String())
	assert.Equal(t, "https://host.example/p", doc.Get("url").String())
	assert.Equal(t, int64(1200), doc.Get("details.runLength").Int())
	assert.NotEmpty(t, doc.Get("id").String())
	assert.Greater(t, doc.Get("timestamp").Int(), int64(0))
}

func TestNewEventSubTypes(t *testing.T) {
	cases := map[model.Category]string{
		model.CategoryBlobURL:        "BLOB_URL_DETECTED",
		model.CategoryEngine:         "GAME_ENGINE_DETECTED",
		model.CategoryWorkerProxy:    "WORKER_PROXY_DETECTED",
		model.CategoryEncodedPayload: "ENCODED_PAYLOAD_DETECTED",
	}
	for cat, want := range cases {
		assert.Equal(t, want, NewEvent(cat, "", nil).SubType)
	}
}
