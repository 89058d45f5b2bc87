package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// HTTP posts each event to a collector endpoint. One attempt, no retry and no
// buffering: the collector is best-effort by contract, and the agent's
// availability never depends on it.
type HTTP struct {
	endpoint string
	client   *http.Client
}

func NewHTTP(endpoint string) *HTTP {
	return &HTTP{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *HTTP) Deliver(ctx context.Context, _ model.ViolationEvent, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("collector returned %s", resp.Status)
	}
	return nil
}
