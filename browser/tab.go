package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/webtext/page"
)

// Tab wraps a Rod page as a page.Handle. Each tab is borrowed by exactly
// one extraction request at a time.
type Tab struct {
	page   *rod.Page
	url    string
	logger *slog.Logger
}

var _ page.Handle = (*Tab)(nil)

// URL returns the last navigated URL.
func (t *Tab) URL() string { return t.url }

// Navigate loads the URL and captures the main document response. It fails
// hard only on unrecoverable navigation errors; HTTP error statuses come
// back through NavResult.
func (t *Tab) Navigate(ctx context.Context, target string, timeout time.Duration) (*page.NavResult, error) {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := t.page.Context(navCtx)

	got := make(chan *proto.NetworkResponseReceived, 1)
	waitResp := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			select {
			case got <- e:
			default:
			}
			return true
		}
		return false
	})

	if err := p.Navigate(target); err != nil {
		return nil, t.mapErr(fmt.Errorf("browser: navigate %s: %w", target, err))
	}
	waitResp()

	// Load completion is best effort; SPAs may never fire it.
	if err := p.WaitLoad(); err != nil {
		t.logger.Debug("browser: wait load timeout", "url", target, "error", err)
	}

	t.url = target
	res := &page.NavResult{FinalURL: target}
	select {
	case e := <-got:
		res.StatusCode = e.Response.Status
		res.FinalURL = e.Response.URL
		res.ContentType = e.Response.MIMEType
		t.url = e.Response.URL
	default:
	}
	return res, nil
}

// Eval runs a probe in page context, awaiting promises, and returns the
// JSON-encoded result.
func (t *Tab) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	res, err := t.page.Context(ctx).Evaluate(rod.Eval(js).ByPromise())
	if err != nil {
		return nil, t.mapErr(err)
	}
	data, err := json.Marshal(res.Value)
	if err != nil {
		return nil, fmt.Errorf("browser: encode eval result: %w", err)
	}
	return data, nil
}

// Content returns the page's current HTML.
func (t *Tab) Content(ctx context.Context) (string, error) {
	html, err := t.page.Context(ctx).HTML()
	if err != nil {
		return "", t.mapErr(err)
	}
	return html, nil
}

// Title returns the document title.
func (t *Tab) Title(ctx context.Context) (string, error) {
	var title string
	err := page.EvalInto(ctx, t, `() => document.title || ''`, &title)
	return title, err
}

// WaitLoad blocks until the requested lifecycle state, bounded by timeout.
// Timeouts are reported as plain errors the caller absorbs.
func (t *Tab) WaitLoad(ctx context.Context, state page.LoadState, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := t.page.Context(waitCtx)

	var err error
	switch state {
	case page.LoadNetworkIdle:
		err = p.WaitIdle(timeout)
	default:
		err = p.WaitLoad()
	}
	if err != nil {
		return t.mapErr(fmt.Errorf("browser: wait load: %w", err))
	}
	return nil
}

// WaitSelectorHidden polls until no visible element matches the selector.
// Absent selectors count as hidden.
func (t *Tab) WaitSelectorHidden(ctx context.Context, selector string, timeout time.Duration) error {
	js := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		if (!el) return true;
		const style = window.getComputedStyle(el);
		return style.display === 'none' || style.visibility === 'hidden' || el.offsetParent === null;
	}`, selector)

	deadline := time.Now().Add(timeout)
	for {
		var hidden bool
		if err := page.EvalInto(ctx, t, js, &hidden); err != nil {
			return err
		}
		if hidden {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("browser: selector %q still visible after %v", selector, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Frames lists the page's same-origin subframes.
func (t *Tab) Frames(ctx context.Context) ([]page.Frame, error) {
	p := t.page.Context(ctx)
	els, err := p.Elements("iframe")
	if err != nil {
		return nil, t.mapErr(err)
	}

	pageHost := hostOf(t.url)
	var frames []page.Frame
	for _, el := range els {
		src, _ := el.Attribute("src")
		if src == nil {
			continue
		}
		frameHost := hostOf(*src)
		// Relative sources share the page origin.
		if frameHost != "" && frameHost != pageHost {
			continue
		}

		fp, ferr := el.Frame()
		if ferr != nil {
			t.logger.Debug("browser: frame access failed", "src", *src, "error", ferr)
			continue
		}
		frames = append(frames, &frame{page: fp, url: *src})
	}
	return frames, nil
}

// Close releases the underlying tab.
func (t *Tab) Close() error {
	if t.page != nil {
		return t.page.Close()
	}
	return nil
}

// mapErr converts Rod transport failures into the handle-invalid fault the
// core treats as fatal.
func (t *Tab) mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"target closed", "session closed", "context destroyed",
		"connection closed", "browser has been closed", "use of closed network",
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", page.ErrHandleInvalid, err)
		}
	}
	return err
}

type frame struct {
	page *rod.Page
	url  string
}

func (f *frame) URL() string { return f.url }

func (f *frame) Text(ctx context.Context) (string, error) {
	res, err := f.page.Context(ctx).Eval(`() => (document.body && document.body.textContent) || ''`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
