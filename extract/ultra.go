package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/webtext/page"
)

// The widened UltraComplexSPA strategies mine text out of places ordinary
// extraction never looks: framework component trees, shadow roots, frames,
// application state, and leftover script payloads.

const frameworkTreeJS = `() => {
	const pieces = [];

	const walkFiber = (node, depth) => {
		if (!node || depth > 200) return;
		const props = node.memoizedProps;
		if (props && typeof props.children === 'string' && props.children.trim().length > 1) {
			pieces.push(props.children.trim());
		}
		walkFiber(node.child, depth + 1);
		walkFiber(node.sibling, depth + 1);
	};

	const roots = [document.querySelector('[data-reactroot]'), document.querySelector('#root')];
	for (const root of roots) {
		if (!root) continue;
		if (root._reactInternalFiber) walkFiber(root._reactInternalFiber, 0);
		if (root._reactRootContainer && root._reactRootContainer._internalRoot) {
			walkFiber(root._reactRootContainer._internalRoot.current, 0);
		}
		for (const key of Object.keys(root)) {
			if (key.startsWith('__reactFiber$') || key.startsWith('__reactContainer$')) {
				walkFiber(root[key], 0);
			}
		}
	}

	// Vue instances expose their data on mounted elements.
	for (const el of document.querySelectorAll('*')) {
		const vue = el.__vue__ || el.__vue_app__;
		if (!vue) continue;
		try {
			const data = vue.$data || (vue._instance && vue._instance.data);
			if (data) {
				const collect = (v, depth) => {
					if (depth > 6 || v == null) return;
					if (typeof v === 'string' && v.trim().length > 10) {
						pieces.push(v.trim());
					} else if (typeof v === 'object') {
						for (const k of Object.keys(v)) collect(v[k], depth + 1);
					}
				};
				collect(data, 0);
			}
		} catch (e) {}
	}

	return pieces.join(' ');
}`

// frameworkTreeStrategy walks accessible React fiber and Vue component
// trees collecting string leaves.
func (p *Pipeline) frameworkTreeStrategy() Strategy {
	return Strategy{
		Name: "framework_tree",
		Run:  p.evalTextStrategy(frameworkTreeJS),
	}
}

const shadowDOMJS = `() => {
	const pieces = [];
	const walker = document.createTreeWalker(
		document.body || document.documentElement,
		NodeFilter.SHOW_ELEMENT,
		{ acceptNode: (n) => n.shadowRoot ? NodeFilter.FILTER_ACCEPT : NodeFilter.FILTER_SKIP }
	);
	let node;
	while (node = walker.nextNode()) {
		const text = (node.shadowRoot.textContent || '').trim();
		if (text.length > 10) pieces.push(text);
	}
	return pieces.join(' ');
}`

// shadowDOMStrategy aggregates text out of open shadow roots.
func (p *Pipeline) shadowDOMStrategy() Strategy {
	return Strategy{
		Name: "shadow_dom",
		Run:  p.evalTextStrategy(shadowDOMJS),
	}
}

// iframeStrategy aggregates body text from same-origin subframes.
func (p *Pipeline) iframeStrategy() Strategy {
	return Strategy{
		Name: "iframe_text",
		Run: func(ctx context.Context, h page.Handle) (string, error) {
			frames, err := h.Frames(ctx)
			if err != nil {
				return "", err
			}

			var pieces []string
			for _, f := range frames {
				text, ferr := f.Text(ctx)
				if ferr != nil {
					if page.IsFatal(ferr) {
						return "", ferr
					}
					p.cfg.Logger.Debug("extract: frame text failed",
						"frame", f.URL(), "error", ferr)
					continue
				}
				text = squeezeSpace(text)
				if len(text) > 50 {
					pieces = append(pieces, text)
				}
			}
			return strings.Join(pieces, " "), nil
		},
	}
}

// pollingStrategy samples body text on a short interval and keeps the
// longest non-placeholder snapshot seen.
func (p *Pipeline) pollingStrategy() Strategy {
	phrases, _ := json.Marshal(p.cfg.PlaceholderPhrases)
	js := fmt.Sprintf(`() => {
		return new Promise((resolve) => {
			const placeholders = %s;
			let best = '';
			let attempts = 0;
			const poll = () => {
				attempts++;
				const current = (document.body && document.body.textContent) || '';
				const isPlaceholder = placeholders.some((p) => current.includes(p));
				if (!isPlaceholder && current.length > best.length) {
					best = current;
				}
				if (attempts >= 20 || best.length > 1000) {
					resolve(best);
				} else {
					setTimeout(poll, 200);
				}
			};
			poll();
		});
	}`, phrases)

	return Strategy{
		Name: "content_polling",
		Run:  p.evalTextStrategy(js),
	}
}

const stateMiningJS = `() => {
	const pieces = [];
	const collect = (v, depth) => {
		if (depth > 8 || v == null || pieces.length > 5000) return;
		if (typeof v === 'string') {
			const s = v.trim();
			if (s.length > 10) pieces.push(s);
		} else if (typeof v === 'object') {
			try {
				for (const k of Object.keys(v)) collect(v[k], depth + 1);
			} catch (e) {}
		}
	};

	try {
		if (window.__REDUX_STORE__ && typeof window.__REDUX_STORE__.getState === 'function') {
			collect(window.__REDUX_STORE__.getState(), 0);
		}
	} catch (e) {}
	try {
		const hook = window.__VUE_DEVTOOLS_GLOBAL_HOOK__;
		if (hook && hook.store && hook.store.state) {
			collect(hook.store.state, 0);
		}
	} catch (e) {}
	for (const key of ['appState', 'applicationState', 'state', 'store', 'data', '__NUXT__', '__NEXT_DATA__']) {
		try {
			const v = window[key];
			if (v && typeof v === 'object') collect(v, 0);
		} catch (e) {}
	}

	return pieces.join(' ');
}`

// stateMiningStrategy scans well-known global state containers for string
// values.
func (p *Pipeline) stateMiningStrategy() Strategy {
	return Strategy{
		Name: "state_mining",
		Run:  p.evalTextStrategy(stateMiningJS),
	}
}

const aggressiveMinerJS = `() => {
	const pieces = [];

	// Inline-script JSON fragments.
	for (const script of document.querySelectorAll('script')) {
		const src = script.textContent || '';
		const matches = src.match(/\{[^{}]*"[^"]+"[^{}]*\}/g) || [];
		for (const m of matches.slice(0, 50)) {
			try {
				const obj = JSON.parse(m);
				for (const v of Object.values(obj)) {
					if (typeof v === 'string' && v.trim().length > 10) {
						pieces.push(v.trim());
					}
				}
			} catch (e) {}
		}
	}

	// Data attributes holding human-readable strings.
	for (const el of document.querySelectorAll('*')) {
		for (const attr of el.attributes) {
			if (attr.name.startsWith('data-') && attr.value.length > 10 && /[a-zA-Z] [a-zA-Z]/.test(attr.value)) {
				pieces.push(attr.value);
			}
		}
		if (pieces.length > 5000) break;
	}

	// DOM comments sometimes carry leftover server-rendered text.
	const walker = document.createTreeWalker(
		document.body || document.documentElement,
		NodeFilter.SHOW_COMMENT
	);
	let node;
	while (node = walker.nextNode()) {
		const text = (node.textContent || '').trim();
		if (text.length > 20 && !text.startsWith('[if')) pieces.push(text);
	}

	return pieces.join(' ');
}`

// aggressiveMinerStrategy is the absolute last resort: scan inline script
// text, data-attributes, and DOM comments for leftover human-readable
// strings. Accepts short results.
func (p *Pipeline) aggressiveMinerStrategy() Strategy {
	return Strategy{
		Name:   "aggressive_miner",
		Accept: p.cfg.FallbackFloor,
		Run:    p.evalTextStrategy(aggressiveMinerJS),
	}
}

// evalTextStrategy wraps a text-returning probe script as a strategy body.
func (p *Pipeline) evalTextStrategy(js string) func(ctx context.Context, h page.Handle) (string, error) {
	return func(ctx context.Context, h page.Handle) (string, error) {
		var text string
		if err := page.EvalInto(ctx, h, js, &text); err != nil {
			return "", err
		}
		return squeezeSpace(text), nil
	}
}
