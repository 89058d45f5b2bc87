package classify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimrtyler/youshallnotpass/internal/signature"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

func TestEmbeddedSignatureMatchesEngineMarkup(t *testing.T) {
	e := NewEmbeddedSignature(signature.NewRegistry())

	v := e.Classify(model.FrameCandidate{
		SameOrigin: true,
		Markup:     `<html><head><script src="UnityLoader.js"></script></head></html>`,
	})
	require.True(t, v.Matched)
	assert.Equal(t, model.CategoryEngine, v.Category)
	assert.Equal(t, "unityloader.js", v.Evidence["signature"])
}

func TestEmbeddedSignatureCrossOriginNotClassifiable(t *testing.T) {
	e := NewEmbeddedSignature(signature.NewRegistry())

	// Inaccessible content is a routine branch, never an error.
	v := e.Classify(model.FrameCandidate{SameOrigin: false, Markup: ""})
	assert.False(t, v.Matched)
}

func TestEmbeddedSignatureCleanMarkup(t *testing.T) {
	e := NewEmbeddedSignature(signature.NewRegistry())

	v := e.Classify(model.FrameCandidate{
		SameOrigin: true,
		Markup:     "<html><body><p>weather widget</p></body></html>",
	})
	assert.False(t, v.Matched)
}

func TestEmbeddedSignatureFirstRegistryMatchWins(t *testing.T) {
	e := NewEmbeddedSignature(signature.NewRegistry())

	v := e.Classify(model.FrameCandidate{
		SameOrigin: true,
		Markup:     "emscripten build loaded via UnityLoader.js",
	})
	require.True(t, v.Matched)
	assert.Equal(t, "unityloader.js", v.Evidence["signature"])
}

func TestEvidenceTruncation(t *testing.T) {
	reg := signature.NewRegistry()
	long := strings.Repeat("x", 300)
	reg.Append(signature.Signature{Pattern: long, Category: model.CategoryEngine})

	e := NewEmbeddedSignature(reg)
	v := e.Classify(model.FrameCandidate{SameOrigin: true, Markup: "padding " + long})
	require.True(t, v.Matched)
	assert.Len(t, v.Evidence["signature"], evidenceMaxLen)
}

func TestEvidenceTruncationKeepsRuneBoundary(t *testing.T) {
	reg := signature.NewRegistry()
	// One leading ASCII byte pushes the cut point into the middle of a
	// three-byte rune.
	long := "x" + strings.Repeat("☃", 60)
	reg.Append(signature.Signature{Pattern: long, Category: model.CategoryEngine})

	e := NewEmbeddedSignature(reg)
	v := e.Classify(model.FrameCandidate{SameOrigin: true, Markup: long})
	require.True(t, v.Matched)

	got, ok := v.Evidence["signature"].(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), evidenceMaxLen)
}
