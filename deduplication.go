package dispatch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"sync"
)

// inflightEntry is a pending call shared between the owning caller and any
// coalesced waiters.
type inflightEntry struct {
	resp *Response
	err  error
	done chan struct{}
}

// wait blocks until the owning call settles or the waiter's context ends.
func (e *inflightEntry) wait(ctx context.Context) (*Response, error) {
	select {
	case <-e.done:
		return e.resp, e.err
	case <-ctx.Done():
		return nil, Classify(ctx.Err(), nil)
	}
}

// inflightRegistry coalesces concurrent identical calls: the first caller
// for a key owns the network round trip, later callers wait on its entry.
type inflightRegistry struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{entries: make(map[string]*inflightEntry)}
}

// getOrCreate returns the live entry for key, creating one if absent.
// The second result is true when the caller created the entry and therefore
// owns the round trip.
func (r *inflightRegistry) getOrCreate(key string) (*inflightEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[key]; ok {
		return entry, false
	}
	entry := &inflightEntry{done: make(chan struct{})}
	r.entries[key] = entry
	return entry, true
}

// complete settles the entry for key. The entry is removed before waiters
// are released so no settled entry ever lingers in the map: a call arriving
// after settlement must start a fresh round trip, never observe a stale
// result.
func (r *inflightRegistry) complete(key string, resp *Response, err error) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	entry.resp = resp
	entry.err = err
	close(entry.done)
}

// size reports the number of live entries. Test hook.
func (r *inflightRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// defaultDedupKey hashes method + resolved URL, mixing in a digest of the
// serialized body so distinct payloads never coalesce.
func defaultDedupKey(method, url string, body []byte) string {
	h := fnv.New64a()
	h.Write([]byte(method))
	h.Write([]byte(url))
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		h.Write(sum[:])
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// isDeduplicable reports whether a method is read-only and therefore safe
// to coalesce.
func isDeduplicable(method string) bool {
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return true
	default:
		return false
	}
}
