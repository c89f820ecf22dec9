package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tailscale.com/tsweb"

	"github.com/nova-explorer/roverd/internal/endpoint"
	"github.com/nova-explorer/roverd/internal/httputil"
	"github.com/nova-explorer/roverd/internal/nav"
)

// AttachDebugRoutes mounts operator debugging endpoints under /debug/.
// These are reachable only over localhost or the tailnet, never from the
// public query surface, so a manual actuation override lives here rather
// than on the API.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux, client endpoint.Client) {
	debug := tsweb.Debugger(mux)

	debug.HandleSilent("rover-state", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, s.store.Read())
	}))

	debug.HandleSilent("detections", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, s.store.Read().SurvivorsFound)
	}))

	debug.Handle("send-action", "manually dispatch an action to the rover", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		action := nav.Action(strings.TrimSpace(r.FormValue("action")))
		if !action.Actuates() {
			http.Error(w, "unknown or missing action", http.StatusBadRequest)
			return
		}
		sid := s.store.Read().SessionID
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()
		if err := client.SendAction(ctx, sid, action); err != nil {
			http.Error(w, "dispatch failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"dispatched": string(action)})
	}))
}
