// Package proxy manages the proxy servers tried during extraction.
// Callers get a shuffled rotation so load spreads across entries.
package proxy

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// noProxyIndicators are request values meaning "connect directly".
var noProxyIndicators = map[string]bool{
	"":       true,
	"none":   true,
	"null":   true,
	"false":  true,
	"direct": true,
	"no":     true,
	"off":    true,
}

// Normalize filters and validates a raw proxy list. No-proxy indicators
// and blanks are dropped; remaining entries must be host:port. An empty
// result means direct connection.
func Normalize(raw []string) ([]string, error) {
	var out []string
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if noProxyIndicators[strings.ToLower(entry)] {
			continue
		}
		if err := validate(entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func validate(entry string) error {
	host, port, ok := strings.Cut(entry, ":")
	if !ok || host == "" || port == "" {
		return fmt.Errorf("proxy: invalid format %q, expected host:port", entry)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("proxy: invalid format %q, port must be numeric", entry)
	}
	return nil
}

// Rotation yields proxies in shuffled order, ending with the empty
// string for a direct-connection fallback.
type Rotation struct {
	entries []string
	next    int
}

// NewRotation shuffles the entries. The rotation always ends with ""
// so callers fall back to a direct connection after all proxies fail.
func NewRotation(entries []string) *Rotation {
	shuffled := make([]string, len(entries))
	copy(shuffled, entries)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return &Rotation{entries: append(shuffled, "")}
}

// Next returns the next proxy to try. The second result is false once
// the rotation, including the direct fallback, is exhausted.
func (r *Rotation) Next() (string, bool) {
	if r.next >= len(r.entries) {
		return "", false
	}
	entry := r.entries[r.next]
	r.next++
	return entry, true
}

// Len reports the number of attempts the rotation will allow,
// including the direct fallback.
func (r *Rotation) Len() int { return len(r.entries) }

// URL renders a host:port entry as the http proxy URL browsers expect.
// The empty entry yields an empty URL.
func URL(entry string) string {
	if entry == "" {
		return ""
	}
	return "http://" + entry
}
