// Package page defines the handle contract the extraction core operates
// against. The core only ever borrows a handle for the duration of one
// extraction; it never owns the underlying browser resource.
//
// Every probe and strategy in the core depends on this interface alone, so
// the browser automation backend stays swappable and tests can run against
// a scripted fake (see page/pagetest).
package page

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrHandleInvalid marks a page handle that became unusable mid-operation
// (tab closed, browser crashed, target detached). This is the only error
// class the core propagates past component boundaries.
var ErrHandleInvalid = errors.New("page: handle invalid")

// LoadState selects which lifecycle event a wait targets.
type LoadState int

const (
	// LoadComplete waits for the load event.
	LoadComplete LoadState = iota
	// LoadDOMReady waits for DOMContentLoaded.
	LoadDOMReady
	// LoadNetworkIdle waits for network-level idleness.
	LoadNetworkIdle
)

// NavResult reports the terminal state of a navigation.
type NavResult struct {
	StatusCode  int
	FinalURL    string
	ContentType string
}

// Frame is a same-origin subframe usable for text aggregation.
type Frame interface {
	// URL returns the frame's document URL.
	URL() string
	// Text returns the frame body's text content.
	Text(ctx context.Context) (string, error)
}

// Handle is a live, navigable browser tab. All probe scripts passed to Eval
// must be self-contained function expressions `() => ...`; the returned
// value is JSON-encoded. Waits soft-fail: a timeout is reported as an error
// the caller absorbs, never as a handle fault.
type Handle interface {
	// URL returns the currently navigated URL.
	URL() string

	// Navigate loads the URL. It fails only on unrecoverable navigation
	// errors; HTTP error statuses are reported through NavResult.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*NavResult, error)

	// Eval runs a read-only probe (or lightweight interaction) in page
	// context and returns its JSON-encoded result.
	Eval(ctx context.Context, js string) (json.RawMessage, error)

	// Content returns the page's current HTML.
	Content(ctx context.Context) (string, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// WaitLoad blocks until the given lifecycle state, bounded by timeout.
	WaitLoad(ctx context.Context, state LoadState, timeout time.Duration) error

	// WaitSelectorHidden blocks until no visible element matches selector,
	// bounded by timeout. Absent selectors count as hidden.
	WaitSelectorHidden(ctx context.Context, selector string, timeout time.Duration) error

	// Frames lists the page's current subframes.
	Frames(ctx context.Context) ([]Frame, error)
}

// IsFatal reports whether err is a page-handle fault that must surface to
// the orchestrator rather than being absorbed as a soft miss.
func IsFatal(err error) bool {
	return errors.Is(err, ErrHandleInvalid)
}

// EvalInto runs a probe and decodes its result into dst.
func EvalInto(ctx context.Context, h Handle, js string, dst any) error {
	raw, err := h.Eval(ctx, js)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
