package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/glamour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasilisp/pagechat/pkg/api"
)

// fakePanel answers the panel API with canned transcripts.
type fakePanel struct {
	mu      sync.Mutex
	panel   api.PanelResponse
	keys    []string
	closed  bool
	busy    bool
	lastURL string
}

func (f *fakePanel) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	write := func(w http.ResponseWriter, status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(f.panel))
	}

	mux.HandleFunc("POST /api/panels", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req api.OpenPanelRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.lastURL = req.URL
		write(w, http.StatusCreated)
	})
	mux.HandleFunc("POST /api/panels/{id}/key", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req api.SaveKeyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.keys = append(f.keys, req.Key)
		f.panel.UI.KeyEntered = true
		write(w, http.StatusOK)
	})
	mux.HandleFunc("POST /api/panels/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.busy {
			w.WriteHeader(http.StatusConflict)
			return
		}
		var req api.SendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.panel.Entries = append(f.panel.Entries,
			api.Entry{Kind: api.EntryUser, Text: req.Message},
			api.Entry{Kind: api.EntryAssistant, Text: "**Hi** " + req.Message},
		)
		write(w, http.StatusOK)
	})
	mux.HandleFunc("DELETE /api/panels/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, f.panel.ID, r.PathValue("id"))
		f.closed = true
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func newRenderer(t *testing.T) *glamour.TermRenderer {
	t.Helper()
	renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(80))
	require.NoError(t, err)
	return renderer
}

func TestRun(t *testing.T) {
	fake := &fakePanel{panel: api.PanelResponse{
		ID:   "p1",
		Page: api.Page{URL: "https://example.com", Title: "Example", Chars: 42},
		Entries: []api.Entry{
			{Kind: api.EntryError, Text: "The page hasn't finished loading yet."},
		},
	}}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	var out strings.Builder
	in := strings.NewReader("/key sk-test\n\nhello there\n/quit\nnever sent\n")

	err := Run(t.Context(), NewClient(server.URL, server.Client()), "https://example.com", in, &out, newRenderer(t))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", fake.lastURL)
	assert.Equal(t, []string{"sk-test"}, fake.keys)
	assert.True(t, fake.closed)
	require.Len(t, fake.panel.Entries, 3)

	text := out.String()
	assert.Contains(t, text, "# Example (42 characters)")
	assert.Contains(t, text, "No API key saved.")
	assert.Contains(t, text, "! The page hasn't finished loading yet.")
	assert.Contains(t, text, "API key saved.")
	assert.Contains(t, text, "hello there")
	assert.NotContains(t, text, "never sent")
	assert.Equal(t, 1, strings.Count(text, "! The page"))
}

func TestRunBusy(t *testing.T) {
	fake := &fakePanel{panel: api.PanelResponse{ID: "p1"}, busy: true}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	var out strings.Builder
	err := Run(t.Context(), NewClient(server.URL, server.Client()), "https://example.com", strings.NewReader("hello\n"), &out, newRenderer(t))
	require.NoError(t, err)

	assert.Contains(t, out.String(), ErrBusy.Error())
	assert.True(t, fake.closed)
}

func TestRunServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var out strings.Builder
	err := Run(t.Context(), NewClient(url, nil), "https://example.com", strings.NewReader(""), &out, newRenderer(t))
	assert.Error(t, err)
}
