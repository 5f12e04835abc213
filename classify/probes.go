package classify

import (
	"encoding/json"
	"fmt"
)

// Probe scripts are built from the signal tables so the tables stay the
// single source of truth. Each probe is a self-contained `() => ...`
// expression returning plain JSON; selector errors inside a probe are
// swallowed there, probe-level errors are handled by the classifier.

func frameworksProbe(signals []FrameworkSignal) string {
	type entry struct {
		Family    string   `json:"family"`
		Globals   []string `json:"globals"`
		Selectors []string `json:"selectors"`
	}
	entries := make([]entry, 0, len(signals))
	for _, s := range signals {
		entries = append(entries, entry{Family: s.Family, Globals: s.Globals, Selectors: s.Selectors})
	}
	data, _ := json.Marshal(entries)

	return fmt.Sprintf(`() => {
		const families = %s;
		const matched = [];
		for (const f of families) {
			let hit = false;
			for (const g of (f.globals || [])) {
				if (window[g] !== undefined) { hit = true; break; }
			}
			if (!hit) {
				for (const s of (f.selectors || [])) {
					try {
						if (document.querySelector(s)) { hit = true; break; }
					} catch (e) {}
				}
			}
			if (hit) matched.push(f.family);
		}
		return matched;
	}`, data)
}

const routingProbe = `() => !!(window.history && typeof window.history.pushState === 'function')`

func selectorsPresentProbe(selectors []string) string {
	data, _ := json.Marshal(selectors)
	return fmt.Sprintf(`() => {
		const sels = %s;
		for (const s of sels) {
			try {
				if (document.querySelector(s)) return true;
			} catch (e) {}
		}
		return false;
	}`, data)
}

func appRootProbe(sig AppRootSignal) string {
	data, _ := json.Marshal(sig.Selectors)
	return fmt.Sprintf(`() => {
		const sels = %s;
		const share = %v;
		const bodyText = (document.body && document.body.textContent) || '';
		const bodyLen = Math.max(bodyText.length, 1);
		for (const s of sels) {
			let el = null;
			try { el = document.querySelector(s); } catch (e) {}
			if (!el) continue;
			const len = ((el.textContent) || '').length;
			if (len / bodyLen >= share) return true;
		}
		return false;
	}`, data, sig.BodyShare)
}

// bodyTextReport is the result of the escalation body probe.
type bodyTextReport struct {
	Placeholder bool `json:"placeholder"`
	BodyLen     int  `json:"bodyLen"`
	DOMNonEmpty bool `json:"domNonEmpty"`
}

func bodyTextProbe(phrases []string) string {
	data, _ := json.Marshal(phrases)
	return fmt.Sprintf(`() => {
		const phrases = %s;
		const bodyText = ((document.body && document.body.textContent) || '').trim();
		let placeholder = false;
		for (const p of phrases) {
			if (bodyText.includes(p)) { placeholder = true; break; }
		}
		const nodeCount = document.body ? document.body.getElementsByTagName('*').length : 0;
		return {
			placeholder: placeholder,
			bodyLen: bodyText.length,
			domNonEmpty: nodeCount > 0
		};
	}`, data)
}

func stateGlobalsProbe(globals []string) string {
	data, _ := json.Marshal(globals)
	return fmt.Sprintf(`() => {
		const names = %s;
		for (const n of names) {
			if (window[n] !== undefined) return true;
		}
		return false;
	}`, data)
}
