package classify

import (
	"net/url"
	"strings"

	"github.com/jimrtyler/youshallnotpass/internal/signature"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// maxBenignLabelLen is the longest leading hostname label that is never
// flagged. Auto-generated subdomains on edge-hosting platforms run long and
// stick to lowercase letters and digits; short labels are someone's chosen
// name.
const maxBenignLabelLen = 8

// WorkerProxy flags frames served from serverless edge-hosting platforms
// under a machine-generated-looking subdomain. Both stages must hold: the
// hostname suffix has to match a registered platform, and the leading label
// has to look randomized. Verdicts are report-only.
type WorkerProxy struct {
	reg *signature.Registry
}

func NewWorkerProxy(reg *signature.Registry) *WorkerProxy {
	return &WorkerProxy{reg: reg}
}

func (w *WorkerProxy) Category() model.Category { return model.CategoryWorkerProxy }

func (w *WorkerProxy) Classify(c model.FrameCandidate) model.Verdict {
	u, err := url.Parse(c.Src)
	if err != nil {
		return model.Verdict{}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return model.Verdict{}
	}
	if _, ok := w.reg.Match(host, model.CategoryWorkerProxy); !ok {
		return model.Verdict{}
	}
	label, _, found := strings.Cut(host, ".")
	if !found || len(label) <= maxBenignLabelLen || !isLowerAlnum(label) {
		return model.Verdict{}
	}
	return verdict(w.Category(), map[string]any{"url": c.Src})
}

func isLowerAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
