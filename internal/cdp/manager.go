// Package cdp attaches the agent to a live page over the Chrome DevTools
// Protocol and exposes the frame source and mitigation surfaces the rest of
// the pipeline works against.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/dom"
	"github.com/mafredri/cdp/rpcc"

	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// PageTarget is one debuggable page exposed by the browser.
type PageTarget struct {
	ID           model.TargetID
	Title        string
	URL          string
	WebSocketURL string
}

// ListPages returns the page-type targets currently exposed at devtoolsURL.
func ListPages(ctx context.Context, devtoolsURL string) ([]PageTarget, error) {
	dt := devtool.New(devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	var out []PageTarget
	for i := range targets {
		t := targets[i]
		if t.Type != devtool.Page {
			continue
		}
		out = append(out, PageTarget{
			ID:           model.TargetID(t.ID),
			Title:        t.Title,
			URL:          t.URL,
			WebSocketURL: t.WebSocketDebuggerURL,
		})
	}
	return out, nil
}

// Manager owns the connection to one attached page.
type Manager struct {
	target PageTarget
	conn   *rpcc.Conn
	client *cdp.Client
	cancel context.CancelFunc
	log    logger.Logger
}

// New returns an unattached manager.
func New(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{log: log}
}

// Attach dials the target's debugger websocket.
func (m *Manager) Attach(ctx context.Context, target PageTarget) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	conn, err := rpcc.DialContext(ctx, target.WebSocketURL)
	if err != nil {
		cancel()
		return fmt.Errorf("dial target %s: %w", target.ID, err)
	}
	m.target = target
	m.conn = conn
	m.client = cdp.NewClient(conn)
	m.log.Info("attached to page", "target", string(target.ID), "url", target.URL)
	return nil
}

// Detach closes the connection. Streams opened on this manager end with it.
func (m *Manager) Detach() error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// Enable turns on the Page and DOM domains and primes the DOM agent with the
// full document so childNodeInserted fires for the whole tree.
func (m *Manager) Enable(ctx context.Context) error {
	if m.client == nil {
		return errors.New("not attached")
	}
	if err := m.client.Page.Enable(ctx); err != nil {
		return fmt.Errorf("enable page domain: %w", err)
	}
	if err := m.client.DOM.Enable(ctx, nil); err != nil {
		return fmt.Errorf("enable dom domain: %w", err)
	}
	args := dom.NewGetDocumentArgs().SetDepth(-1).SetPierce(true)
	if _, err := m.client.DOM.GetDocument(ctx, args); err != nil {
		return fmt.Errorf("prime document: %w", err)
	}
	return nil
}

// Ready delivers one signal per page load event. The channel closes when the
// underlying stream ends.
func (m *Manager) Ready(ctx context.Context) (<-chan struct{}, error) {
	fired, err := m.client.Page.LoadEventFired(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe load events: %w", err)
	}
	out := make(chan struct{}, 1)
	go func() {
		defer fired.Close()
		defer close(out)
		for {
			if _, err := fired.Recv(); err != nil {
				return
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

// FrameInsertions signals whenever a frame-type element is inserted into the
// DOM. The host page may be mutating concurrently; signals only say "look
// again", they carry no node reference.
func (m *Manager) FrameInsertions(ctx context.Context) (<-chan struct{}, error) {
	inserted, err := m.client.DOM.ChildNodeInserted(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe node insertions: %w", err)
	}
	out := make(chan struct{}, 1)
	go func() {
		defer inserted.Close()
		defer close(out)
		for {
			ev, err := inserted.Recv()
			if err != nil {
				return
			}
			if !isFrameNode(ev.Node) {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

// isFrameNode matches the element set collectFramesJS snapshots; a trigger
// for anything else could never find the inserted element.
func isFrameNode(n dom.Node) bool {
	switch strings.ToUpper(n.NodeName) {
	case "IFRAME", "FRAME":
		return true
	}
	return false
}
