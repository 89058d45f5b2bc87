// Package watch orchestrates the scan session for one attached page:
// level-triggered periodic reconciliation plus edge-triggered notifications
// from page load and DOM insertions, all funneled into one classification
// routine.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/jimrtyler/youshallnotpass/internal/classify"
	"github.com/jimrtyler/youshallnotpass/internal/config"
	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/internal/report"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// PageSource is the live-DOM view the watcher scans. Implemented by the CDP
// manager.
type PageSource interface {
	PageURL(ctx context.Context) (string, error)
	Frames(ctx context.Context) ([]model.FrameCandidate, error)
	InlineScripts(ctx context.Context) ([]string, error)
	Ready(ctx context.Context) (<-chan struct{}, error)
	FrameInsertions(ctx context.Context) (<-chan struct{}, error)
}

// Mitigator acts on blocking verdicts.
type Mitigator interface {
	Block(ctx context.Context, frame model.FrameCandidate, v model.Verdict)
}

// Reporter emits violation events.
type Reporter interface {
	Report(event model.ViolationEvent)
}

// Stats counts what a watcher has seen.
type Stats struct {
	Passes  int64
	Frames  int64
	Matched map[model.Category]int64
}

// Config wires a watcher.
type Config struct {
	Source    PageSource
	Pipeline  *classify.Pipeline
	Payload   *classify.EncodedPayload
	Mitigator Mitigator
	Reporter  Reporter
	Options   config.Options
	Logger    logger.Logger
}

// Watcher runs the scan session. Overlapping triggers collapse into one
// buffered slot, and the pass itself is idempotent, so no coordination
// between the producers is needed.
type Watcher struct {
	source    PageSource
	pipeline  *classify.Pipeline
	payload   *classify.EncodedPayload
	mitigator Mitigator
	reporter  Reporter
	opts      config.Options
	log       logger.Logger

	triggers chan string

	mu    sync.Mutex
	stats Stats
}

func New(cfg Config) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Watcher{
		source:    cfg.Source,
		pipeline:  cfg.Pipeline,
		payload:   cfg.Payload,
		mitigator: cfg.Mitigator,
		reporter:  cfg.Reporter,
		opts:      cfg.Options,
		log:       cfg.Logger,
		triggers:  make(chan string, 4),
		stats:     Stats{Matched: make(map[model.Category]int64)},
	}
}

// Run drives the session until ctx is cancelled. There is no other stop
// path; the session lives as long as the page does.
func (w *Watcher) Run(ctx context.Context) error {
	ready, err := w.source.Ready(ctx)
	if err != nil {
		return fmt.Errorf("subscribe page ready: %w", err)
	}
	inserted, err := w.source.FrameInsertions(ctx)
	if err != nil {
		return fmt.Errorf("subscribe frame insertions: %w", err)
	}

	go w.consumeReady(ctx, ready)
	go w.consumeInsertions(ctx, inserted)
	go w.schedulePayloadScan(ctx)

	// The page may already be loaded when we attach; loadEventFired will
	// never fire for it, so arm an initial scan unconditionally.
	w.after(ctx, w.readyDelay(), "attach")

	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.ScanOnce(ctx, "interval")
		case reason := <-w.triggers:
			w.ScanOnce(ctx, reason)
		}
	}
}

func (w *Watcher) consumeReady(ctx context.Context, ready <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ready:
			if !ok {
				return
			}
			// Let frames begin loading before the first content probe.
			w.after(ctx, w.readyDelay(), "ready")
			// A load event means navigation; the new document gets its
			// own one-shot inline-script scan.
			go w.schedulePayloadScan(ctx)
		}
	}
}

func (w *Watcher) consumeInsertions(ctx context.Context, inserted <-chan struct{}) {
	// Insertion bursts (a page hydrating its UI) collapse into one scan
	// after the settle window.
	settle := debounce.New(w.settleDelay())
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-inserted:
			if !ok {
				return
			}
			settle(func() { w.trigger("mutation") })
		}
	}
}

func (w *Watcher) schedulePayloadScan(ctx context.Context) {
	t := time.NewTimer(w.payloadDelay())
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
		w.ScanPayload(ctx)
	}
}

// ScanOnce runs one full classification pass: every current frame, in
// document order, through the pipeline; blocking verdicts mitigated, every
// verdict reported. Safe to call concurrently with itself.
func (w *Watcher) ScanOnce(ctx context.Context, reason string) {
	frames, err := w.source.Frames(ctx)
	if err != nil {
		w.log.Err(err, "frame snapshot failed", "reason", reason)
		return
	}
	pageURL := w.pageURL(ctx)
	start := time.Now()
	matched := 0
	for _, f := range frames {
		v := w.pipeline.Classify(f)
		if !v.Matched {
			continue
		}
		matched++
		w.count(v.Category)
		if v.Category.Blocking() && w.blockingEnabled(v.Category) {
			w.mitigator.Block(ctx, f, v)
		}
		w.reporter.Report(report.NewEvent(v.Category, pageURL, v.Evidence))
	}
	w.recordPass(len(frames))
	w.log.Debug("scan pass complete",
		"reason", reason, "frames", len(frames), "matched", matched, "duration", time.Since(start))
}

// ScanPayload runs the inline-script scan. Report-only: page scripts are
// never mutated.
func (w *Watcher) ScanPayload(ctx context.Context) {
	scripts, err := w.source.InlineScripts(ctx)
	if err != nil {
		w.log.Err(err, "inline script snapshot failed")
		return
	}
	pageURL := w.pageURL(ctx)
	for _, s := range scripts {
		v := w.payload.Classify(s)
		if !v.Matched {
			continue
		}
		w.count(v.Category)
		w.reporter.Report(report.NewEvent(v.Category, pageURL, v.Evidence))
	}
	w.log.Debug("payload scan complete", "scripts", len(scripts))
}

// Stats returns a copy of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := Stats{
		Passes:  w.stats.Passes,
		Frames:  w.stats.Frames,
		Matched: make(map[model.Category]int64, len(w.stats.Matched)),
	}
	for k, v := range w.stats.Matched {
		out.Matched[k] = v
	}
	return out
}

func (w *Watcher) pageURL(ctx context.Context) string {
	u, err := w.source.PageURL(ctx)
	if err != nil {
		w.log.Err(err, "page url lookup failed")
		return ""
	}
	return u
}

func (w *Watcher) blockingEnabled(c model.Category) bool {
	switch c {
	case model.CategoryBlobURL:
		return w.opts.EnableBlobBlocking
	case model.CategoryEngine:
		return w.opts.EnableSignatureBlocking
	}
	return false
}

func (w *Watcher) trigger(reason string) {
	select {
	case w.triggers <- reason:
	default:
	}
}

func (w *Watcher) after(ctx context.Context, d time.Duration, reason string) {
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			w.trigger(reason)
		}
	}()
}

func (w *Watcher) count(c model.Category) {
	w.mu.Lock()
	w.stats.Matched[c]++
	w.mu.Unlock()
}

func (w *Watcher) recordPass(frames int) {
	w.mu.Lock()
	w.stats.Passes++
	w.stats.Frames += int64(frames)
	w.mu.Unlock()
}

func (w *Watcher) interval() time.Duration {
	return msOrDefault(w.opts.ScanIntervalMS, 2000)
}

func (w *Watcher) readyDelay() time.Duration {
	return msOrDefault(w.opts.ReadyDelayMS, 1500)
}

func (w *Watcher) settleDelay() time.Duration {
	return msOrDefault(w.opts.SettleDelayMS, 500)
}

func (w *Watcher) payloadDelay() time.Duration {
	return msOrDefault(w.opts.PayloadDelayMS, 3000)
}

func msOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
