// Package api serves the rover state over HTTP: the full snapshot, a
// liveness probe, and a telemetry rollup. Read-only by design; the only
// write path into the state store is the control loop.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nova-explorer/roverd/internal/httputil"
	"github.com/nova-explorer/roverd/internal/state"
	"github.com/nova-explorer/roverd/internal/timeutil"
	"github.com/nova-explorer/roverd/internal/version"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server exposes the state query surface.
type Server struct {
	store   *state.Store
	clock   timeutil.Clock
	started time.Time
}

// NewServer builds a server over the given store. A nil clock uses the
// real one.
func NewServer(store *state.Store, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{store: store, clock: clock, started: clock.Now()}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.showState)
	mux.HandleFunc("/healthz", s.showHealth)
	mux.HandleFunc("/stats", s.showStats)
	return mux
}

// showState returns the full rover state. The deep copy is taken inside
// the store lock; serialization happens here, outside it, so a slow client
// cannot stall the control loop.
func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.store.Read())
}

type healthResponse struct {
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	ConnectionStatus string   `json:"connection_status"`
	RoverStatus      string   `json:"rover_status"`
	UptimeSeconds    float64  `json:"uptime_seconds"`
	LastUpdateAgeSec *float64 `json:"last_update_age_seconds,omitempty"`
}

// showHealth is the liveness/info endpoint: as long as the process is
// alive it answers 200 with the last good snapshot's vitals.
func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	st := s.store.Read()
	resp := healthResponse{
		Status:           "ok",
		Version:          version.String(),
		ConnectionStatus: string(st.ConnectionStatus),
		RoverStatus:      st.RoverStatus,
		UptimeSeconds:    s.clock.Since(s.started).Seconds(),
	}
	if st.LastUpdated != nil {
		age := s.clock.Since(*st.LastUpdated).Seconds()
		resp.LastUpdateAgeSec = &age
	}
	httputil.WriteJSONOK(w, resp)
}

// showStats returns the telemetry rollup computed from the current
// snapshot.
func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, Rollup(s.store.Read()))
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
