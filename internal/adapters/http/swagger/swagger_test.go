package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	. "github.com/smartystreets/goconvey/convey"
)

func serveDocs(method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	Register(context.Background(), mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
	return w
}

func TestRegister(t *testing.T) {
	Convey("Given the docs routes", t, func() {
		Convey("When fetching the OpenAPI document", func() {
			w := serveDocs(http.MethodGet, "/openapi.yaml")

			Convey("Then it is served as yaml", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
				So(w.Body.Bytes(), ShouldResemble, OpenAPI)
			})
		})

		Convey("When fetching the docs page", func() {
			w := serveDocs(http.MethodGet, "/api-docs")

			Convey("Then ReDoc is pointed at the document", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
				So(w.Body.String(), ShouldContainSubstring, redocScript)
				So(w.Body.String(), ShouldContainSubstring, "Redoc.init('/openapi.yaml'")
			})
		})

		Convey("When posting to the docs page", func() {
			w := serveDocs(http.MethodPost, "/api-docs")

			Convey("Then the method is refused", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When the mux is nil", func() {
			Convey("Then Register panics", func() {
				So(func() { Register(context.Background(), nil) }, ShouldPanic)
			})
		})
	})
}

func TestOpenAPIDocument(t *testing.T) {
	Convey("Given the embedded OpenAPI document", t, func() {
		doc, err := yaml.Parser().Unmarshal(OpenAPI)

		Convey("Then it parses and lists every collector route", func() {
			So(err, ShouldBeNil)
			paths, ok := doc["paths"].(map[string]any)
			So(ok, ShouldBeTrue)
			for _, p := range []string{
				"/collect/pageview", "/collect/event", "/collect/heatmap",
				"/analytics", "/analytics/export.csv", "/heatmap", "/stats", "/healthz",
			} {
				So(paths, ShouldContainKey, p)
			}
		})
	})
}
