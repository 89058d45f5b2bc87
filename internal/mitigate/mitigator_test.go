package mitigate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

type fakeDOM struct {
	outcome string
	err     error
	calls   []string
}

func (f *fakeDOM) Neutralize(_ context.Context, ref string, _ model.Category, _, _ string) (string, error) {
	f.calls = append(f.calls, ref)
	return f.outcome, f.err
}

func engineVerdict() model.Verdict {
	return model.Verdict{Matched: true, Category: model.CategoryEngine, Evidence: map[string]any{"signature": "unityloader.js"}}
}

func TestBlockNeutralizesFrame(t *testing.T) {
	dom := &fakeDOM{outcome: "blocked"}
	m := New(dom, logger.NewNop())

	m.Block(context.Background(), model.FrameCandidate{Ref: "f1"}, engineVerdict())
	require.Equal(t, []string{"f1"}, dom.calls)
}

func TestBlockSkipsNoticedFrame(t *testing.T) {
	dom := &fakeDOM{outcome: "blocked"}
	m := New(dom, logger.NewNop())

	// A frame that already carries a notice is left alone, so overlapping
	// scan passes never stack a second notice.
	m.Block(context.Background(), model.FrameCandidate{Ref: "f1", Noticed: true}, engineVerdict())
	assert.Empty(t, dom.calls)
}

func TestBlockToleratesDetachedFrame(t *testing.T) {
	dom := &fakeDOM{outcome: "gone"}
	m := New(dom, logger.NewNop())

	// A frame removed between discovery and mitigation is a no-op.
	m.Block(context.Background(), model.FrameCandidate{Ref: "f2"}, engineVerdict())
	assert.Equal(t, []string{"f2"}, dom.calls)
}

func TestBlockSwallowsErrors(t *testing.T) {
	dom := &fakeDOM{err: errors.New("target detached")}
	m := New(dom, logger.NewNop())

	assert.NotPanics(t, func() {
		m.Block(context.Background(), model.FrameCandidate{Ref: "f3"}, engineVerdict())
	})
}
