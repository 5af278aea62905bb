// Package site serves the browser beacon script and the root redirect.
package site

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
)

// ScriptPath is where portfolio pages load the beacon script from.
const ScriptPath = "/static/footprint.js"

const assetCacheControl = "public, max-age=3600"

//go:embed static
var embedded embed.FS

// assets is the embedded static/ directory.
var assets = mustSub(embedded, "static")

// Register attaches the static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("site: nil mux")
	}
	mux.Handle("/static/", withCacheControl(http.StripPrefix("/static/", http.FileServerFS(assets))))
	mux.HandleFunc("/{$}", redirectToDashboard)
}

// redirectToDashboard sends visitors of / to the dashboard.
func redirectToDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func withCacheControl(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", assetCacheControl)
		h.ServeHTTP(w, r)
	})
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
