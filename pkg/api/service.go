package api

import (
	"context"

	"github.com/jimrtyler/youshallnotpass/internal/cdp"
	"github.com/jimrtyler/youshallnotpass/internal/config"
	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/internal/service"
	"github.com/jimrtyler/youshallnotpass/internal/session"
	"github.com/jimrtyler/youshallnotpass/internal/watch"
)

// Service is the embeddable surface of the detection agent.
type Service interface {
	// Watch attaches to every page matching filter and scans until ctx ends.
	Watch(ctx context.Context, filter string) error

	// ScanOnce runs a single pass against the first matching page.
	ScanOnce(ctx context.Context, filter string) (watch.Stats, error)

	// Targets lists the browser's debuggable pages.
	Targets(ctx context.Context) ([]cdp.PageTarget, error)

	// Sessions lists the active scan sessions.
	Sessions() []session.Info
}

// NewService creates the service implementation.
func NewService(cfg *config.Config, l logger.Logger) (Service, error) {
	return service.New(cfg, l)
}
