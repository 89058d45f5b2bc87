package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

func TestMatchIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry()

	s, ok := reg.Match("<script src=\"UnityLoader.js\"></script>", model.CategoryEngine)
	require.True(t, ok)
	assert.Equal(t, "unityloader.js", s.Pattern)

	_, ok = reg.Match("nothing suspicious here", model.CategoryEngine)
	assert.False(t, ok)
}

func TestMatchRespectsCategory(t *testing.T) {
	reg := NewRegistry()

	// An engine pattern must not match when asked for worker-proxy rules.
	_, ok := reg.Match("unityloader.js", model.CategoryWorkerProxy)
	assert.False(t, ok)
}

func TestMatchEmptyText(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Match("", model.CategoryEngine)
	assert.False(t, ok)
}

func TestFirstMatchWinsInRegistryOrder(t *testing.T) {
	reg := NewRegistry()

	// unityloader.js is registered before emscripten; a document containing
	// both must report the earlier one.
	doc := "emscripten runtime plus UnityLoader.js bootstrap"
	s, ok := reg.Match(doc, model.CategoryEngine)
	require.True(t, ok)
	assert.Equal(t, "unityloader.js", s.Pattern)
}

func TestRegexSuffixAnchoring(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Match("xk29dq81jz.workers.dev", model.CategoryWorkerProxy)
	assert.True(t, ok)

	// The suffix is anchored; a lookalike in the middle must not match.
	_, ok = reg.Match("app.workers.dev.evil.com", model.CategoryWorkerProxy)
	assert.False(t, ok)
}

func TestAppendExtendsRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Append(Signature{Pattern: "customengine", Category: model.CategoryEngine})

	s, ok := reg.Match("loading CustomEngine v2", model.CategoryEngine)
	require.True(t, ok)
	assert.Equal(t, "customengine", s.Pattern)
}

func TestSignatureFindReturnsMatchedRegion(t *testing.T) {
	s := Signature{Pattern: `[a-z0-9+/=]{10,}`, Category: model.CategoryEncodedPayload, Regex: true}
	got := s.Find("prefix AAAABBBBCCCCDDDD suffix")
	assert.Equal(t, "AAAABBBBCCCCDDDD", got)

	assert.Equal(t, "", s.Find("short"))
}

func TestLiteralFindWithLengthChangingRunes(t *testing.T) {
	// Lowercasing "Ⱥ" grows it from two bytes to three, so positions found
	// in the lowered text do not map back to the original string.
	s := Signature{Pattern: "unityloader.js", Category: model.CategoryEngine}
	text := strings.Repeat("Ⱥ", 20) + "UnityLoader.js"

	assert.Equal(t, "unityloader.js", s.Find(text))
	assert.True(t, s.Match(text))
}

func TestInvalidRegexNeverMatches(t *testing.T) {
	s := Signature{Pattern: `([`, Category: model.CategoryEngine, Regex: true}
	assert.False(t, s.Match("anything"))
}
