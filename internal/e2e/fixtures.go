package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	gosync "sync"
	"testing"
	"time"

	"github.com/klauern/locsync/internal/api"
	"github.com/klauern/locsync/internal/hash"
	"github.com/klauern/locsync/internal/model"
)

// FakeRemote is an in-memory sync store served over HTTP. It implements the
// pull and push endpoints the real client talks to, so end-to-end tests can
// run the full CLI against it.
type FakeRemote struct {
	mu      gosync.Mutex
	entries map[entryKey]model.RemoteEntry
	config  map[string]string
	pushes  int
	srv     *httptest.Server
}

type entryKey struct {
	key  string
	lang string
}

// NewFakeRemote starts a fake remote store. The server stops when the test
// finishes.
func NewFakeRemote(t *testing.T) *FakeRemote {
	t.Helper()

	r := &FakeRemote{
		entries: make(map[entryKey]model.RemoteEntry),
		config:  make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/sync/pull", r.handlePull)
	mux.HandleFunc("/api/v1/sync/push", r.handlePush)
	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)
	return r
}

// URL returns the base URL of the fake store.
func (r *FakeRemote) URL() string {
	return r.srv.URL
}

// SetEntry creates or updates one remote entry.
func (r *FakeRemote) SetEntry(key, lang, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey{key, lang}] = model.RemoteEntry{
		Key:       key,
		Lang:      lang,
		Value:     value,
		Hash:      hash.Sum(value),
		UpdatedAt: time.Now().UTC(),
	}
}

// DeleteEntry removes one remote entry.
func (r *FakeRemote) DeleteEntry(key, lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, entryKey{key, lang})
}

// Entry returns the current remote value for (key, lang).
func (r *FakeRemote) Entry(key, lang string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryKey{key, lang}]
	return e.Value, ok
}

// SetConfig sets one remote config property.
func (r *FakeRemote) SetConfig(path, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config[path] = value
}

// Config returns the current remote config property value.
func (r *FakeRemote) Config(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.config[path]
	return v, ok
}

// PushCount returns how many pushes the store accepted.
func (r *FakeRemote) PushCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes
}

func (r *FakeRemote) handlePull(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.mu.Lock()
	resp := api.PullResponse{
		Entries: make([]model.RemoteEntry, 0, len(r.entries)),
		Config:  make(map[string]string, len(r.config)),
	}
	for _, e := range r.entries {
		resp.Entries = append(resp.Entries, e)
	}
	for k, v := range r.config {
		resp.Config[k] = v
	}
	r.mu.Unlock()

	sort.Slice(resp.Entries, func(i, j int) bool {
		a, b := resp.Entries[i], resp.Entries[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Lang < b.Lang
	})
	resp.Total = len(resp.Entries)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (r *FakeRemote) handlePush(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body api.PushRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	for _, e := range body.Entries {
		r.entries[entryKey{e.Key, e.Lang}] = model.RemoteEntry{
			Key:       e.Key,
			Lang:      e.Lang,
			Value:     e.Value,
			Hash:      hash.Sum(e.Value),
			UpdatedAt: time.Now().UTC(),
		}
	}
	for _, d := range body.Deleted {
		delete(r.entries, entryKey{d.Key, d.Lang})
	}
	for k, v := range body.Config {
		r.config[k] = v
	}
	for _, path := range body.ConfigDeleted {
		delete(r.config, path)
	}
	r.pushes++
	r.mu.Unlock()

	ack := api.PushAck{
		Accepted:  len(body.Entries),
		Deleted:   len(body.Deleted),
		Timestamp: time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ack)
}
