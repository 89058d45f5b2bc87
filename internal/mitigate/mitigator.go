package mitigate

import (
	"context"
	"time"

	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// In-page outcomes of a neutralize call.
const (
	outcomeBlocked = "blocked"
	outcomeAlready = "already"
	outcomeGone    = "gone"
)

// DOM is the mutation surface the mitigator drives. Implemented by the CDP
// manager.
type DOM interface {
	Neutralize(ctx context.Context, ref string, category model.Category, reason, stamp string) (string, error)
}

// Mitigator disables a flagged frame and surfaces a visible notice in its
// place. It trusts its caller completely: no verdict is re-validated here.
type Mitigator struct {
	dom DOM
	log logger.Logger
}

func New(dom DOM, log logger.Logger) *Mitigator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Mitigator{dom: dom, log: log}
}

// Block neutralizes the frame: src to about:blank, hidden, one notice sibling
// inserted before it. A frame that already carries a notice, or that left the
// DOM since discovery, is left alone. Best-effort throughout; failure never
// propagates past a log line.
func (m *Mitigator) Block(ctx context.Context, frame model.FrameCandidate, v model.Verdict) {
	if frame.Noticed {
		return
	}
	stamp := time.Now().Format("2006-01-02 15:04:05")
	outcome, err := m.dom.Neutralize(ctx, frame.Ref, v.Category, reasonFor(v.Category), stamp)
	if err != nil {
		m.log.Err(err, "neutralize failed", "ref", frame.Ref, "category", string(v.Category))
		return
	}
	switch outcome {
	case outcomeBlocked:
		m.log.Info("frame neutralized", "ref", frame.Ref, "category", string(v.Category), "src", frame.Src)
	case outcomeAlready:
		m.log.Debug("frame already noticed", "ref", frame.Ref)
	case outcomeGone:
		m.log.Debug("frame left the DOM before mitigation", "ref", frame.Ref)
	}
}

func reasonFor(c model.Category) string {
	switch c {
	case model.CategoryEngine:
		return "Blocked: recognized game content"
	case model.CategoryBlobURL:
		return "Blocked: disallowed embedding technique"
	}
	return "Blocked"
}
