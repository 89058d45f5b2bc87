// Package service composes the detection pipeline and runs it against one or
// more attached pages.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jimrtyler/youshallnotpass/internal/cdp"
	"github.com/jimrtyler/youshallnotpass/internal/classify"
	"github.com/jimrtyler/youshallnotpass/internal/config"
	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/internal/mitigate"
	"github.com/jimrtyler/youshallnotpass/internal/report"
	"github.com/jimrtyler/youshallnotpass/internal/session"
	"github.com/jimrtyler/youshallnotpass/internal/signature"
	"github.com/jimrtyler/youshallnotpass/internal/sink"
	"github.com/jimrtyler/youshallnotpass/internal/watch"
)

// Service owns the shared pieces (registry, reporter, session tracking) and
// builds a watcher per attached page.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	reg      *signature.Registry
	reporter *report.Reporter
	sessions *session.Manager
}

// New builds a service from configuration. The sink set follows the config:
// a local SQLite store when a DSN is set, an HTTP collector when an endpoint
// is set; with neither, events still flow to the log.
func New(cfg *config.Config, log logger.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}

	var sinks []report.Sink
	if cfg.Sink.DSN != "" {
		store, err := sink.OpenStore(cfg.Sink.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Sink.RetentionDays > 0 {
			retention := time.Duration(cfg.Sink.RetentionDays) * 24 * time.Hour
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if n, err := store.Prune(ctx, retention); err != nil {
				log.Err(err, "violation store prune failed")
			} else if n > 0 {
				log.Info("pruned violation store", "removed", n)
			}
			cancel()
		}
		sinks = append(sinks, store)
	}
	if cfg.Sink.Endpoint != "" {
		sinks = append(sinks, sink.NewHTTP(cfg.Sink.Endpoint))
	}

	return &Service{
		cfg:      cfg,
		log:      log,
		reg:      signature.NewRegistry(),
		reporter: report.New(log, sinks...),
		sessions: session.NewManager(log),
	}, nil
}

// Sessions lists the active scan sessions.
func (s *Service) Sessions() []session.Info {
	return s.sessions.List()
}

// Targets lists the page targets the browser currently exposes.
func (s *Service) Targets(ctx context.Context) ([]cdp.PageTarget, error) {
	return cdp.ListPages(ctx, s.cfg.DevToolsURL)
}

// Watch attaches to every page target whose URL contains filter (all pages
// when filter is empty) and scans each until ctx is cancelled. A failing
// page ends its own session only; the others keep scanning.
func (s *Service) Watch(ctx context.Context, filter string) error {
	pages, err := s.matchTargets(ctx, filter)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, pt := range pages {
		pt := pt
		g.Go(func() error {
			if err := s.watchPage(ctx, pt); err != nil {
				s.log.Err(err, "page session failed", "target", string(pt.ID), "url", pt.URL)
			}
			return nil
		})
	}
	err = g.Wait()
	s.reporter.Wait()
	return err
}

// ScanOnce attaches to the first matching page, runs a single frame pass plus
// the inline-script scan, and detaches.
func (s *Service) ScanOnce(ctx context.Context, filter string) (watch.Stats, error) {
	pages, err := s.matchTargets(ctx, filter)
	if err != nil {
		return watch.Stats{}, err
	}
	mgr := cdp.New(s.log)
	if err := mgr.Attach(ctx, pages[0]); err != nil {
		return watch.Stats{}, err
	}
	defer mgr.Detach()
	if err := mgr.Enable(ctx); err != nil {
		return watch.Stats{}, err
	}
	w := s.newWatcher(mgr)
	w.ScanOnce(ctx, "manual")
	w.ScanPayload(ctx)
	s.reporter.Wait()
	return w.Stats(), nil
}

func (s *Service) watchPage(ctx context.Context, pt cdp.PageTarget) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr := cdp.New(s.log)
	if err := mgr.Attach(ctx, pt); err != nil {
		return err
	}
	defer mgr.Detach()
	if err := mgr.Enable(ctx); err != nil {
		return err
	}

	sess := session.New(pt.ID, pt.URL, cancel)
	s.sessions.Track(sess)
	defer s.sessions.Remove(pt.ID)

	err := s.newWatcher(mgr).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) newWatcher(mgr *cdp.Manager) *watch.Watcher {
	opts := s.cfg.Detection
	return watch.New(watch.Config{
		Source:    mgr,
		Pipeline:  classify.NewPipeline(s.reg, opts),
		Payload:   classify.NewEncodedPayload(s.reg),
		Mitigator: mitigate.New(mgr, s.log),
		Reporter:  s.reporter,
		Options:   opts,
		Logger:    s.log,
	})
}

func (s *Service) matchTargets(ctx context.Context, filter string) ([]cdp.PageTarget, error) {
	pages, err := cdp.ListPages(ctx, s.cfg.DevToolsURL)
	if err != nil {
		return nil, err
	}
	var matched []cdp.PageTarget
	for _, pt := range pages {
		if filter == "" || strings.Contains(pt.URL, filter) {
			matched = append(matched, pt)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no page target matching %q", filter)
	}
	return matched, nil
}
