package api

import "net/http"

// StatsProvider reports runtime counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]any
}

// statsHandler serves the provider's counters as JSON.
func statsHandler(p StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, p.GetStats())
	}
}
