package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/racetimer/internal/race"
	"github.com/roach88/racetimer/internal/store"
)

// Controller is the part of the race machine the service drives.
type Controller interface {
	Snapshot() race.Snapshot
	ToggleIndicator()
	Reset() error
	ResetWithLanes(n int) error
}

// History finds earlier results. store.Log satisfies it.
type History interface {
	LastMatching(tag string) (string, bool, error)
}

// Server handles the query routes.
type Server struct {
	ctrl    Controller
	history History
	origin  string
	onFatal func(error)
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigin sets Access-Control-Allow-Origin. Default: "*".
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.origin = origin }
}

// WithFatalHandler sets the callback for errors that must stop the
// controller, such as a failed result-log write during a reset.
func WithFatalHandler(fn func(error)) Option {
	return func(s *Server) { s.onFatal = fn }
}

// New creates a server.
func New(ctrl Controller, history History, opts ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		history: history,
		origin:  "*",
		onFatal: func(error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/get/state", s.getState)
	r.Get("/get/previous-state", s.getPreviousState)
	r.Get("/set/led", s.setLED)
	r.Get("/set/reset", s.setReset)

	r.NotFound(notImplemented)
	r.MethodNotAllowed(notImplemented)
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) getPreviousState(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	line, found, err := s.history.LastMatching(race.StatusTag)
	if err != nil {
		slog.Error("read result log", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "result log unavailable")
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	payload := store.Payload(line)
	if !json.Valid([]byte(payload)) {
		slog.Warn("previous state is not JSON", "line", line)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(payload))
}

func (s *Server) setLED(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.ToggleIndicator()
	writeJSON(w, http.StatusOK, commandSent)
}

func (s *Server) setReset(w http.ResponseWriter, r *http.Request) {
	var err error
	if raw := r.URL.Query().Get("lanes"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid lanes %q", raw))
			return
		}
		err = s.ctrl.ResetWithLanes(n)
	} else {
		err = s.ctrl.Reset()
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, commandSent)
	case errors.Is(err, race.ErrInvalidLaneCount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		if errors.Is(err, race.ErrLogWrite) {
			s.onFatal(err)
		}
	}
}

var commandSent = struct {
	CommandSent bool `json:"command_sent"`
}{CommandSent: true}

func notImplemented(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusBadRequest, "method not implemented")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
