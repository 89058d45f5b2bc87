package classify

import (
	"github.com/jimrtyler/youshallnotpass/internal/signature"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// EncodedPayload scans the hosted page's inline scripts, not frames. A script
// is flagged only when every encoded-payload signature matches it: the
// kilobyte-scale base64 run, a decode call, and an object-URL wrap call.
// Legitimate pages rarely inline blobs that size and immediately unwrap them
// for loading. Report-only by policy; the page's own scripts are never
// touched.
type EncodedPayload struct {
	reg *signature.Registry
}

func NewEncodedPayload(reg *signature.Registry) *EncodedPayload {
	return &EncodedPayload{reg: reg}
}

func (e *EncodedPayload) Category() model.Category { return model.CategoryEncodedPayload }

// Classify tests one inline script's text.
func (e *EncodedPayload) Classify(script string) model.Verdict {
	sigs := e.reg.Category(model.CategoryEncodedPayload)
	if len(sigs) == 0 || script == "" {
		return model.Verdict{}
	}
	runLength := 0
	for _, s := range sigs {
		m := s.Find(script)
		if m == "" {
			return model.Verdict{}
		}
		if len(m) > runLength {
			runLength = len(m)
		}
	}
	return verdict(e.Category(), map[string]any{"runLength": runLength})
}
