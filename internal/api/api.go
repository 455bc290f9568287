// Package api exposes the tracker and its reports over a local HTTP control
// API. Editors, shell hooks and the ptime CLI all report activity here.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joescharf/ptime/internal/humanize"
	"github.com/joescharf/ptime/internal/report"
	"github.com/joescharf/ptime/internal/store"
	"github.com/joescharf/ptime/internal/tracker"
)

// Server provides the REST API handlers.
type Server struct {
	tracker *tracker.Tracker
	store   store.Store
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

// NewServer creates a server over one tracker and the store it writes to.
// Reports are bucketed by local days in loc.
func NewServer(t *tracker.Tracker, s store.Store, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{tracker: t, store: s, loc: loc, now: time.Now, log: slog.Default()}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/activate", s.activate)
	mux.HandleFunc("POST /api/v1/deactivate", s.deactivate)
	mux.HandleFunc("POST /api/v1/context", s.changeContext)

	mux.HandleFunc("GET /api/v1/status", s.status)
	mux.HandleFunc("GET /api/v1/today", s.today)
	mux.HandleFunc("GET /api/v1/projects", s.projects)
	mux.HandleFunc("GET /api/v1/report", s.dailyReport)
	mux.HandleFunc("GET /api/v1/report/range", s.rangeReport)

	return corsMiddleware(mux)
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// the listener down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps domain errors onto status codes.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var (
		ve *report.ValidationError
		se *store.StorageError
	)
	switch {
	case errors.As(err, &ve), errors.Is(err, tracker.ErrInvalidContext):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		s.log.Warn("api storage failure", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.log.Warn("api request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Activity ---

// ActivateRequest names the context to track. Missing fields fall back to
// the tracker's last known context; a new project must name its branch.
type ActivateRequest struct {
	Project string `json:"project,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// ContextRequest reports a branch change.
type ContextRequest struct {
	Branch string `json:"branch"`
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.tracker.Activate(r.Context(), req.Project, req.Branch); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.State())
}

func (s *Server) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.OnDeactivate(r.Context()); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.State())
}

func (s *Server) changeContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.tracker.OnContextChange(r.Context(), req.Branch); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.State())
}

// --- Reads ---

// StatusResponse is the tracker state plus today's running total.
type StatusResponse struct {
	tracker.State
	TodayMs  int64  `json:"todayMs"`
	Today    string `json:"today"`
	Location string `json:"location"`
}

// TodayResponse is today's closed time, overall and per project.
type TodayResponse struct {
	Date       string                         `json:"date"`
	MsDuration int64                          `json:"msDuration"`
	Duration   string                         `json:"duration"`
	Projects   map[string]report.ProjectTotal `json:"projects"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	today, err := s.todayTotals(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		State:    s.tracker.State(),
		TodayMs:  today.MsDuration,
		Today:    today.Duration,
		Location: s.loc.String(),
	})
}

func (s *Server) today(w http.ResponseWriter, r *http.Request) {
	today, err := s.todayTotals(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, today)
}

func (s *Server) todayTotals(ctx context.Context) (*TodayResponse, error) {
	now := s.now()
	// FetchAfter is exclusive; step back one ms to keep midnight starts.
	ivs, err := s.store.FetchAfter(ctx, report.StartOfDay(now, s.loc).UnixMilli()-1)
	if err != nil {
		return nil, err
	}

	resp := &TodayResponse{
		Date:     now.In(s.loc).Format(report.DateLayout),
		Projects: map[string]report.ProjectTotal{},
	}
	for project, ms := range report.TodayByProject(ivs, now, s.loc) {
		resp.Projects[project] = report.ProjectTotal{MsDuration: ms, Duration: humanize.Format(ms)}
		resp.MsDuration += ms
	}
	resp.Duration = humanize.Format(resp.MsDuration)
	return resp, nil
}

func (s *Server) projects(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.Projects(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) dailyReport(w http.ResponseWriter, r *http.Request) {
	ivs, err := s.store.FetchAll(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Daily(ivs, s.loc))
}

func (s *Server) rangeReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dr, err := report.ParseRange(q.Get("start"), q.Get("end"), s.loc)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	ivs, err := s.store.FetchBetween(r.Context(), dr.StartMs(), dr.EndMs())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Range(ivs, dr.Start, dr.End))
}
