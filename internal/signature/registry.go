package signature

import (
	"strings"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// Signature is one immutable detection pattern with its category tag.
// Literal patterns match by case-insensitive substring; regex patterns are
// compiled case-insensitive on first use.
type Signature struct {
	Pattern  string
	Category model.Category
	Regex    bool
}

// Match reports whether the signature matches text.
func (s Signature) Match(text string) bool {
	return s.Find(text) != ""
}

// Find returns the first matching region of text, or "" when there is none.
// Literal matches are located and sliced in the lowercased text: lowering can
// change byte length, so indexes never map back to the original string.
func (s Signature) Find(text string) string {
	if text == "" {
		return ""
	}
	if s.Regex {
		re, err := cache.get("(?i)" + s.Pattern)
		if err != nil {
			return ""
		}
		return re.FindString(text)
	}
	lowerText := strings.ToLower(text)
	lowerPattern := strings.ToLower(s.Pattern)
	if idx := strings.Index(lowerText, lowerPattern); idx >= 0 {
		return lowerText[idx : idx+len(lowerPattern)]
	}
	return ""
}

// Registry holds the static rule list. It is append-only: Append may be
// called during setup, and the list is read-only once scanning starts, so
// no locking discipline is needed at scan time.
type Registry struct {
	sigs []Signature
}

// NewRegistry returns a registry seeded with the built-in signatures.
func NewRegistry() *Registry {
	return &Registry{sigs: defaults()}
}

// Append adds signatures to the end of the registry. Later entries lose
// first-match ties against earlier ones.
func (r *Registry) Append(sigs ...Signature) {
	r.sigs = append(r.sigs, sigs...)
}

// Match tests text against every signature in the category, in registry
// order, and returns the first hit. Order is deliberate: the winning
// signature's string form is what gets reported, so reordering is an
// observable change. Absence of a match is a normal outcome.
func (r *Registry) Match(text string, cat model.Category) (Signature, bool) {
	if text == "" {
		return Signature{}, false
	}
	for _, s := range r.sigs {
		if s.Category != cat {
			continue
		}
		if s.Match(text) {
			return s, true
		}
	}
	return Signature{}, false
}

// Category returns the signatures tagged with cat, in registry order.
func (r *Registry) Category(cat model.Category) []Signature {
	var out []Signature
	for _, s := range r.sigs {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// defaults is the built-in rule list. Engine signatures recognize known game
// and emulation runtimes plus the usual "unblocked" proxy-site tells;
// worker-proxy signatures anchor on serverless edge-hosting suffixes;
// encoded-payload signatures require a kilobyte-scale base64 run together
// with decode and object-URL wrap calls.
func defaults() []Signature {
	return []Signature{
		{Pattern: "unityloader.js", Category: model.CategoryEngine},
		{Pattern: "createunityinstance", Category: model.CategoryEngine},
		{Pattern: ".unityweb", Category: model.CategoryEngine},
		{Pattern: "godot_js", Category: model.CategoryEngine},
		{Pattern: "emscripten", Category: model.CategoryEngine},
		{Pattern: "ruffle-rs", Category: model.CategoryEngine},
		{Pattern: "emulatorjs", Category: model.CategoryEngine},
		{Pattern: "jsnes", Category: model.CategoryEngine},
		{Pattern: "retroarch", Category: model.CategoryEngine},
		{Pattern: "phaser.min.js", Category: model.CategoryEngine},
		{Pattern: `unblock(ed|er)`, Category: model.CategoryEngine, Regex: true},
		{Pattern: "game-proxy", Category: model.CategoryEngine},

		{Pattern: `\.workers\.dev$`, Category: model.CategoryWorkerProxy, Regex: true},
		{Pattern: `\.pages\.dev$`, Category: model.CategoryWorkerProxy, Regex: true},
		{Pattern: `\.deno\.dev$`, Category: model.CategoryWorkerProxy, Regex: true},
		{Pattern: `\.glitch\.me$`, Category: model.CategoryWorkerProxy, Regex: true},

		{Pattern: `[a-z0-9+/=]{1000,}`, Category: model.CategoryEncodedPayload, Regex: true},
		{Pattern: "atob(", Category: model.CategoryEncodedPayload},
		{Pattern: "createobjecturl", Category: model.CategoryEncodedPayload},
	}
}
