package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a site handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()

		Convey("When registering the site handler", func() {
			Register(ctx, mux)

			Convey("Then it serves the beacon script", func() {
				req := httptest.NewRequest(http.MethodGet, ScriptPath, nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "javascript")
				So(w.Header().Get("Cache-Control"), ShouldEqual, "public, max-age=3600")
				So(w.Body.String(), ShouldContainSubstring, "/collect/")
				So(w.Body.String(), ShouldContainSubstring, "doNotTrack")
			})

			Convey("And it redirects the root to the dashboard", func() {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusFound)
				So(w.Header().Get("Location"), ShouldEqual, "/dashboard")
			})

			Convey("And it does not claim other paths", func() {
				req := httptest.NewRequest(http.MethodGet, "/some-asset", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And missing assets are not found", func() {
				req := httptest.NewRequest(http.MethodGet, "/static/missing.js", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the mux is nil", func() {
			Convey("Then Register panics", func() {
				So(func() { Register(ctx, nil) }, ShouldPanic)
			})
		})
	})
}
