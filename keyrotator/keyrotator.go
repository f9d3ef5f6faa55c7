// Package keyrotator implements the Key-Rotating LLM Credential Provider
// (spec.md §4.D), grounded on original_source's api_key_provider.py: an
// ordered key list plus a round-robin index, advanced only on
// quota-exhausted responses. The Design Notes direct replacing Python's
// module-level globals (_keys, _index, _lock) with a process-scoped service
// value constructed once and passed explicitly, so Rotator has no
// package-level state of its own.
package keyrotator

import (
	"strconv"
	"strings"
	"sync"
)

type Rotator struct {
	mu    sync.Mutex
	keys  []string
	index int
}

// New builds a Rotator from a comma-separated key list, dropping blanks and
// preserving order, matching _get_keys_list's GEMINI_API_KEYS handling.
func New(csvKeys string) *Rotator {
	var keys []string
	for _, k := range strings.Split(csvKeys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return &Rotator{keys: keys}
}

// Current returns the key at the current index, or "", false if no keys
// were configured.
func (r *Rotator) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return "", false
	}
	return r.keys[r.index%len(r.keys)], true
}

// Rotate advances to the next key, wrapping around. A no-op with fewer than
// two keys, matching rotate_next_key's n<=1 guard.
func (r *Rotator) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) <= 1 {
		return
	}
	r.index = (r.index + 1) % len(r.keys)
}

func (r *Rotator) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// IsQuotaExhausted reports whether err's message indicates a quota-exhausted
// response: status 429, or text containing "429", "RESOURCE_EXHAUSTED", or
// "QUOTA" case-insensitively, matching is_quota_exhausted.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	return containsQuotaMarker(err.Error())
}

// IsQuotaExhaustedStatus is the integer-status-code form of is_quota_exhausted.
func IsQuotaExhaustedStatus(statusCode int) bool {
	return statusCode == 429
}

func containsQuotaMarker(s string) bool {
	upper := strings.ToUpper(s)
	if strings.Contains(upper, "RESOURCE_EXHAUSTED") || strings.Contains(upper, "QUOTA") {
		return true
	}
	if strings.Contains(s, "429") {
		return true
	}
	// defensive: a bare numeric string equal to 429 (mirrors the Python
	// function's "int or str" dual-typed argument).
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n == 429
	}
	return false
}
