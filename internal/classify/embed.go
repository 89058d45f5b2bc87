package classify

import (
	"unicode/utf8"

	"github.com/jimrtyler/youshallnotpass/internal/signature"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// evidenceMaxLen caps the reported pattern string for display.
const evidenceMaxLen = 120

// EmbeddedSignature tests a same-origin frame's serialized markup against the
// engine signatures. Cross-origin frames are not classifiable, which is a
// routine branch here, not an error: the accessibility probe already ran at
// snapshot time and left Markup empty.
type EmbeddedSignature struct {
	reg *signature.Registry
}

func NewEmbeddedSignature(reg *signature.Registry) *EmbeddedSignature {
	return &EmbeddedSignature{reg: reg}
}

func (e *EmbeddedSignature) Category() model.Category { return model.CategoryEngine }

func (e *EmbeddedSignature) Classify(c model.FrameCandidate) model.Verdict {
	if !c.SameOrigin || c.Markup == "" {
		return model.Verdict{}
	}
	s, ok := e.reg.Match(c.Markup, model.CategoryEngine)
	if !ok {
		return model.Verdict{}
	}
	return verdict(e.Category(), map[string]any{
		"signature": truncate(s.Pattern, evidenceMaxLen),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
