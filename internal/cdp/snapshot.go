package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/tidwall/gjson"

	"github.com/jimrtyler/youshallnotpass/pkg/model"
)

// eval runs an expression in the page and returns its JSON value.
func (m *Manager) eval(ctx context.Context, expr string) ([]byte, error) {
	reply, err := m.client.Runtime.Evaluate(ctx, runtime.NewEvaluateArgs(expr).SetReturnByValue(true))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if reply.ExceptionDetails != nil {
		return nil, fmt.Errorf("page script: %s", reply.ExceptionDetails.Text)
	}
	return reply.Result.Value, nil
}

// PageURL returns the hosted page's current address.
func (m *Manager) PageURL(ctx context.Context) (string, error) {
	raw, err := m.eval(ctx, "document.location.href")
	if err != nil {
		return "", err
	}
	return gjson.ParseBytes(raw).String(), nil
}

// Frames snapshots every embedded frame on the page, in document order. Each
// candidate carries the same-origin capability probe result and, when
// accessible, the frame document's serialized markup.
func (m *Manager) Frames(ctx context.Context) ([]model.FrameCandidate, error) {
	raw, err := m.eval(ctx, collectFramesJS)
	if err != nil {
		return nil, err
	}
	var out []model.FrameCandidate
	gjson.ParseBytes(raw).ForEach(func(_, f gjson.Result) bool {
		out = append(out, model.FrameCandidate{
			Ref:        f.Get("ref").String(),
			Src:        f.Get("src").String(),
			Width:      int(f.Get("width").Int()),
			Height:     int(f.Get("height").Int()),
			SameOrigin: f.Get("sameOrigin").Bool(),
			Markup:     f.Get("markup").String(),
			Noticed:    f.Get("noticed").Bool(),
		})
		return true
	})
	return out, nil
}

// InlineScripts returns the text of every inline script on the hosted page.
func (m *Manager) InlineScripts(ctx context.Context) ([]string, error) {
	raw, err := m.eval(ctx, "document.documentElement.outerHTML")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(gjson.ParseBytes(raw).String()))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}
	var scripts []string
	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		if t := s.Text(); t != "" {
			scripts = append(scripts, t)
		}
	})
	return scripts, nil
}

// Neutralize disables the frame identified by ref and inserts the notice.
// Returns the in-page outcome: blocked, already, or gone.
func (m *Manager) Neutralize(ctx context.Context, ref string, category model.Category, reason, stamp string) (string, error) {
	expr := fmt.Sprintf(neutralizeJS, jsString(ref), jsString(string(category)), jsString(reason), jsString(stamp))
	raw, err := m.eval(ctx, expr)
	if err != nil {
		return "", err
	}
	return gjson.ParseBytes(raw).String(), nil
}

// jsString renders s as a JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
