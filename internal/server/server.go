// Package server exposes the HTTP control surface: status, start/stop,
// config save/load, health and Prometheus metrics.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/hotels"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/logging"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/metrics"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/tracker"
)

const statusLogLines = 200

type Server struct {
	store    *config.Store
	svc      *tracker.Service
	dir      *hotels.Directory
	ring     *logging.Ring
	gatherer prometheus.Gatherer
	savePath string
	log      zerolog.Logger
}

func New(store *config.Store, svc *tracker.Service, dir *hotels.Directory, ring *logging.Ring, gatherer prometheus.Gatherer, savePath string, log zerolog.Logger) *Server {
	return &Server{
		store:    store,
		svc:      svc,
		dir:      dir,
		ring:     ring,
		gatherer: gatherer,
		savePath: savePath,
		log:      log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Post("/save", s.handleSave)
	r.Post("/load", s.handleLoad)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.svc.Status()

	alerts := make(map[string]models.AlertState)
	for key, state := range s.svc.AlertStates() {
		alerts[key.String()] = state
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"running":        st.Running,
		"config":         st.Config,
		"results":        st.Results,
		"logs":           s.ring.Tail(statusLogLines),
		"progress":       st.Progress,
		"action":         st.Action,
		"action_age_sec": st.ActionAgeSec,
		"alerts":         alerts,
	})
}

// resolveHotelNames rewrites a hotel_codes_raw free-text field into the
// canonical hotel_codes list before the payload reaches the tracker.
func (s *Server) resolveHotelNames(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return payload, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}

	raw, ok := doc["hotel_codes_raw"]
	if !ok {
		return payload, nil
	}
	delete(doc, "hotel_codes_raw")

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, err
	}

	codes := s.dir.ParseCodes(text)
	encoded, err := json.Marshal(codes)
	if err != nil {
		return nil, err
	}
	doc["hotel_codes"] = encoded

	return json.Marshal(doc)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}

	payload, err = s.resolveHotelNames(payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "invalid start payload: " + err.Error()})
		return
	}

	cfg, err := s.svc.Start(payload)
	switch {
	case errors.Is(err, tracker.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "message": "already running"})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "started", "config": cfg})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	stopped := s.svc.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stopped": stopped})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}

	cfg := s.store.Snapshot()
	if len(payload) > 0 {
		cfg, err = s.store.Apply(payload)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
			return
		}
	}

	if err := cfg.SaveFile(s.savePath); err != nil {
		s.log.Error().Err(err).Str("path", s.savePath).Msg("save failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "config": cfg})
}

func (s *Server) handleLoad(w http.ResponseWriter, _ *http.Request) {
	cfg := config.Default()
	found, err := cfg.LoadFile(s.savePath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "loaded": false, "config": s.store.Snapshot()})
		return
	}

	s.store.Replace(cfg)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "loaded": true, "config": cfg})
}

const maxBodyBytes = 1 << 20

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}
