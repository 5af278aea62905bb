package api

import (
	"embed"
	"net/http"
)

// dashboardFS holds static/dashboard.html. The page renders /analytics and
// /heatmap client side.
//
//go:embed static
var dashboardFS embed.FS

// handleDashboard serves GET /dashboard.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, dashboardFS, "static/dashboard.html")
}
