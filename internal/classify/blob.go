package classify

import (
	"strings"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// BlobURL flags frames loaded from ephemeral object URLs. Blob sources smuggle
// arbitrary content past URL-based filters, but small blob frames are common
// and benign, so rendered size stands in for "intended as a full interactive
// surface". At-threshold sizes count as suspicious.
type BlobURL struct {
	minSize int
}

// NewBlobURL returns the classifier with the given minimum suspicious size in
// device pixels, applied to both dimensions.
func NewBlobURL(minSize int) *BlobURL {
	return &BlobURL{minSize: minSize}
}

func (b *BlobURL) Category() model.Category { return model.CategoryBlobURL }

func (b *BlobURL) Classify(c model.FrameCandidate) model.Verdict {
	if !strings.HasPrefix(strings.ToLower(c.Src), "blob:") {
		return model.Verdict{}
	}
	if c.Width < b.minSize || c.Height < b.minSize {
		return model.Verdict{}
	}
	return verdict(b.Category(), map[string]any{
		"url":    c.Src,
		"width":  c.Width,
		"height": c.Height,
	})
}
