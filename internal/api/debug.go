package api

import (
	"net/http"
	"runtime"

	"routeopt/internal/buildinfo"
)

// DebugInfoHandler handles GET /debug/info with build and runtime details.
func (s *Server) DebugInfoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"build":         buildinfo.Info(),
		"goVersion":     runtime.Version(),
		"goroutines":    runtime.NumGoroutine(),
		"defaultSolver": s.Cfg.Solver.Default,
	})
}
