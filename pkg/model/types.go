package model

// TargetID identifies one attached page target.
type TargetID string

// Category tags a signature and the verdicts it produces with the detection
// family they belong to.
type Category string

const (
	CategoryBlobURL        Category = "blob-url"
	CategoryEngine         Category = "engine"
	CategoryWorkerProxy    Category = "worker-proxy"
	CategoryEncodedPayload Category = "encoded-payload"
)

// EventType is the constant discriminator on every collector message.
const EventType = "YSP_VIOLATION"

// SubType returns the collector-facing discriminator for the category.
func (c Category) SubType() string {
	switch c {
	case CategoryBlobURL:
		return "BLOB_URL_DETECTED"
	case CategoryEngine:
		return "GAME_ENGINE_DETECTED"
	case CategoryWorkerProxy:
		return "WORKER_PROXY_DETECTED"
	case CategoryEncodedPayload:
		return "ENCODED_PAYLOAD_DETECTED"
	}
	return "UNKNOWN"
}

// Blocking reports whether a positive verdict in this category triggers frame
// mitigation. Worker-proxy and encoded-payload hits are report-only: the
// first because confidence is lower, the second because rewriting the host
// page's own scripts is not a safe intervention.
func (c Category) Blocking() bool {
	return c == CategoryBlobURL || c == CategoryEngine
}

// FrameCandidate is one embedded frame as seen by a single snapshot. The host
// page owns the element; the candidate holds only the agent-assigned ref used
// to find it again. Markup is populated only when the frame's document was
// same-origin-accessible at snapshot time.
type FrameCandidate struct {
	Ref        string `json:"ref"`
	Src        string `json:"src"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SameOrigin bool   `json:"sameOrigin"`
	Markup     string `json:"markup"`
	// Noticed means a mitigation notice already sits before the frame.
	Noticed bool `json:"noticed"`
}

// Verdict is the outcome of running one candidate through the classifiers.
type Verdict struct {
	Matched  bool
	Category Category
	Evidence map[string]any
}

// ViolationEvent is the immutable record handed to the reporter. Timestamp is
// unix milliseconds.
type ViolationEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	SubType   string         `json:"subType"`
	PageURL   string         `json:"url"`
	Timestamp int64          `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}
