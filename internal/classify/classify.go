// Package classify holds the frame classifiers and the fixed-order pipeline
// that runs them. Classifiers are pure: the same candidate always yields the
// same verdict, and nothing here touches the live page.
package classify

import (
	"github.com/jimrtyler/youshallnotpass/internal/config"
	"github.com/jimrtyler/youshallnotpass/internal/signature"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// FrameClassifier inspects one frame candidate.
type FrameClassifier interface {
	Category() model.Category
	Classify(c model.FrameCandidate) model.Verdict
}

// Pipeline runs the frame classifiers in the order blob-url, embedded
// signature, worker-proxy, short-circuiting on the first positive verdict.
// The order is part of the contract: it decides which evidence shows up in
// violation logs when a frame matches more than one category.
type Pipeline struct {
	classifiers []FrameClassifier
}

// NewPipeline builds the standard pipeline.
func NewPipeline(reg *signature.Registry, opts config.Options) *Pipeline {
	return &Pipeline{classifiers: []FrameClassifier{
		NewBlobURL(opts.MinSuspiciousFrameSize),
		NewEmbeddedSignature(reg),
		NewWorkerProxy(reg),
	}}
}

// Classify returns the first positive verdict, or a zero verdict when no
// classifier matches.
func (p *Pipeline) Classify(c model.FrameCandidate) model.Verdict {
	for _, cl := range p.classifiers {
		if v := cl.Classify(c); v.Matched {
			return v
		}
	}
	return model.Verdict{}
}

func verdict(cat model.Category, evidence map[string]any) model.Verdict {
	return model.Verdict{Matched: true, Category: cat, Evidence: evidence}
}
