package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vasilisp/pagechat/internal/chat"
	"github.com/vasilisp/pagechat/internal/data"
	"github.com/vasilisp/pagechat/internal/panel"
	"github.com/vasilisp/pagechat/internal/util"
	"github.com/vasilisp/pagechat/pkg/api"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

type server struct {
	app    *App
	panels *registry
}

func snapshot(id string, c *panel.Controller) api.PanelResponse {
	page := c.Page()
	return api.PanelResponse{
		ID: id,
		Page: api.Page{
			URL:   page.URL,
			Title: page.Title,
			Chars: utf8.RuneCountInString(page.Text),
		},
		UI:      c.UI(),
		Entries: c.Entries(),
	}
}

func writeJSON(s *server, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.app.Log.Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(s *server, w http.ResponseWriter, status int, msg string) {
	writeJSON(s, w, status, api.ErrorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

func lookup(s *server, w http.ResponseWriter, r *http.Request) (string, *panel.Controller, bool) {
	id := r.PathValue("id")
	c, ok := s.panels.get(id)
	if !ok {
		writeError(s, w, http.StatusNotFound, "no such panel")
		return "", nil, false
	}
	return id, c, true
}

func openPanelHandler(s *server, w http.ResponseWriter, r *http.Request) {
	var req api.OpenPanelRequest
	if err := decode(w, r, &req); err != nil {
		writeError(s, w, http.StatusBadRequest, err.Error())
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeError(s, w, http.StatusBadRequest, "empty url")
		return
	}

	c := s.app.NewController()
	c.Activate(r.Context(), url)
	id := s.panels.add(c)

	s.app.Log.Info("panel opened", zap.String("id", id), zap.String("url", url))
	writeJSON(s, w, http.StatusCreated, snapshot(id, c))
}

func getPanelHandler(s *server, w http.ResponseWriter, r *http.Request) {
	id, c, ok := lookup(s, w, r)
	if !ok {
		return
	}
	writeJSON(s, w, http.StatusOK, snapshot(id, c))
}

func closePanelHandler(s *server, w http.ResponseWriter, r *http.Request) {
	if !s.panels.remove(r.PathValue("id")) {
		writeError(s, w, http.StatusNotFound, "no such panel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func saveKeyHandler(s *server, w http.ResponseWriter, r *http.Request) {
	id, c, ok := lookup(s, w, r)
	if !ok {
		return
	}

	var req api.SaveKeyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(s, w, http.StatusBadRequest, err.Error())
		return
	}

	c.SaveCredential(r.Context(), req.Key)
	writeJSON(s, w, http.StatusOK, snapshot(id, c))
}

func sendHandler(s *server, w http.ResponseWriter, r *http.Request) {
	id, c, ok := lookup(s, w, r)
	if !ok {
		return
	}

	var req api.SendRequest
	if err := decode(w, r, &req); err != nil {
		writeError(s, w, http.StatusBadRequest, err.Error())
		return
	}

	if err := c.Send(r.Context(), req.Message); err != nil {
		if errors.Is(err, chat.ErrBusy) {
			writeError(s, w, http.StatusConflict, err.Error())
			return
		}
		s.app.Log.Error("send failed", zap.String("id", id), zap.Error(err))
		writeError(s, w, http.StatusInternalServerError, "failed to send message")
		return
	}

	writeJSON(s, w, http.StatusOK, snapshot(id, c))
}

func handlerWith[T interface{}](t T, fn func(T, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(t, w, r)
	}
}

func asset(contentType string, content []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(content)
	}
}

// Handler returns the panel front end and its JSON API.
func Handler(app *App) http.Handler {
	util.Assert(app != nil, "Handler nil app")

	s := &server{
		app:    app,
		panels: newRegistry(app.Config.MaxPanels, app.Log),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", asset("text/html; charset=utf-8", data.IndexHTML))
	mux.HandleFunc("GET /style.css", asset("text/css", data.StyleCSS))

	mux.HandleFunc("POST "+api.PanelsPath, handlerWith(s, openPanelHandler))
	mux.HandleFunc("GET "+api.PanelsPath+"/{id}", handlerWith(s, getPanelHandler))
	mux.HandleFunc("DELETE "+api.PanelsPath+"/{id}", handlerWith(s, closePanelHandler))
	mux.HandleFunc("POST "+api.PanelsPath+"/{id}/key", handlerWith(s, saveKeyHandler))
	mux.HandleFunc("POST "+api.PanelsPath+"/{id}/messages", handlerWith(s, sendHandler))

	return mux
}

// Serve listens on the configured port until ctx is done.
func Serve(ctx context.Context, app *App) error {
	util.Assert(app != nil, "Serve nil app")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Config.Port),
		Handler:           Handler(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		app.Log.Info("server starting", zap.Int("port", app.Config.Port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
