// Package pagetest provides a scriptable in-memory page.Handle for tests.
// Probe responses are registered against script substrings, which keeps the
// fake independent of exact probe wording.
package pagetest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/webtext/page"
)

// EvalFunc computes a scripted probe response. Returning an error simulates
// a probe exception.
type EvalFunc func(js string) (any, error)

// Fake is a scriptable page.Handle.
type Fake struct {
	mu sync.Mutex

	PageURL   string
	HTML      string
	PageTitle string

	// NavErr, when set, makes Navigate fail hard.
	NavErr error
	// NavResult is returned by successful navigations.
	NavResult page.NavResult

	// WaitLoadErr simulates wait timeouts (soft failures).
	WaitLoadErr error

	// SubFrames returned by Frames.
	SubFrames []page.Frame

	rules []rule

	// Recorded interactions, in call order.
	EvalScripts   []string
	WaitSelectors []string
	Navigations   []string
}

type rule struct {
	contains string
	fn       EvalFunc
}

var _ page.Handle = (*Fake)(nil)

// New returns a Fake with sensible defaults.
func New() *Fake {
	return &Fake{
		PageURL:   "https://example.test/",
		NavResult: page.NavResult{StatusCode: 200},
	}
}

// Respond registers a static JSON response for scripts containing substr.
// Rules are matched in registration order; first match wins.
func (f *Fake) Respond(substr string, value any) *Fake {
	return f.RespondFunc(substr, func(string) (any, error) { return value, nil })
}

// RespondFunc registers a computed response for scripts containing substr.
func (f *Fake) RespondFunc(substr string, fn EvalFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{contains: substr, fn: fn})
	return f
}

func (f *Fake) URL() string { return f.PageURL }

func (f *Fake) Navigate(_ context.Context, url string, _ time.Duration) (*page.NavResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigations = append(f.Navigations, url)
	if f.NavErr != nil {
		return nil, f.NavErr
	}
	f.PageURL = url
	res := f.NavResult
	if res.FinalURL == "" {
		res.FinalURL = url
	}
	return &res, nil
}

func (f *Fake) Eval(_ context.Context, js string) (json.RawMessage, error) {
	f.mu.Lock()
	f.EvalScripts = append(f.EvalScripts, js)
	rules := append([]rule(nil), f.rules...)
	f.mu.Unlock()

	for _, r := range rules {
		if strings.Contains(js, r.contains) {
			v, err := r.fn(js)
			if err != nil {
				return nil, err
			}
			return json.Marshal(v)
		}
	}
	// Unscripted probes evaluate to null, like a probe finding nothing.
	return json.RawMessage("null"), nil
}

func (f *Fake) Content(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HTML, nil
}

func (f *Fake) Title(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PageTitle, nil
}

func (f *Fake) WaitLoad(_ context.Context, _ page.LoadState, _ time.Duration) error {
	return f.WaitLoadErr
}

func (f *Fake) WaitSelectorHidden(_ context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WaitSelectors = append(f.WaitSelectors, selector)
	return nil
}

func (f *Fake) Frames(context.Context) ([]page.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]page.Frame(nil), f.SubFrames...), nil
}

// StaticFrame is a page.Frame with fixed text.
type StaticFrame struct {
	FrameURL string
	Body     string
	Err      error
}

func (s StaticFrame) URL() string { return s.FrameURL }

func (s StaticFrame) Text(context.Context) (string, error) { return s.Body, s.Err }
