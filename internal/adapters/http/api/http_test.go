package api_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/footprint/internal/adapters/http/api"
	"github.com/okian/footprint/internal/adapters/mq/queue"
	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	mu         sync.Mutex
	beacons    []model.Beacon
	enqueueErr error

	snapshot    types.Snapshot
	snapshotErr error
	days        int

	samples []model.HeatmapSample
	filter  types.HeatmapFilter
}

func (m *mockDependencies) Enqueue(ctx context.Context, b model.Beacon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.beacons = append(m.beacons, b)
	return nil
}

func (m *mockDependencies) Snapshot(ctx context.Context, days int) (types.Snapshot, error) {
	m.days = days
	if m.snapshotErr != nil {
		return types.Snapshot{}, m.snapshotErr
	}
	return m.snapshot, nil
}

func (m *mockDependencies) Heatmap(ctx context.Context, filter types.HeatmapFilter) ([]model.HeatmapSample, error) {
	m.filter = filter
	return m.samples, nil
}

func (m *mockDependencies) queued() []model.Beacon {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Beacon(nil), m.beacons...)
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func post(mux http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:54321"
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func get(mux http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the health endpoint answers JSON when asked", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then the stats endpoint returns the provider's map", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then the dashboard is served from the embedded page", func() {
			w := get(mux, "/dashboard")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `id="range"`)
			So(w.Body.String(), ShouldContainSubstring, "/analytics?range=")
		})

		Convey("Then unknown paths are not found", func() {
			w := get(mux, "/unknown")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then collect endpoints reject GET", func() {
			w := get(mux, "/collect/pageview")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestCollectPageView(t *testing.T) {
	Convey("Given the page view collector", t, func() {
		deps := &mockDependencies{}

		Convey("When a valid beacon arrives", func() {
			mux := newMux(deps)
			w := post(mux, "/collect/pageview",
				`{"path":"/projects","referrer":"https://google.com","screen":{"width":1280,"height":800},"sessionId":"s1"}`,
				map[string]string{"User-Agent": "Mozilla/5.0 Firefox/120.0"})

			Convey("Then it is accepted and queued with request details", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				queued := deps.queued()
				So(queued, ShouldHaveLength, 1)
				b := queued[0]
				So(b.Kind, ShouldEqual, model.BeaconPageView)
				So(b.Path, ShouldEqual, "/projects")
				So(b.Client.IP, ShouldEqual, "192.0.2.1")
				So(b.Client.UserAgent, ShouldEqual, "Mozilla/5.0 Firefox/120.0")
				So(b.Client.Referrer, ShouldEqual, "https://google.com")
				So(b.Client.Screen, ShouldResemble, model.ScreenSize{Width: 1280, Height: 800})
				So(b.Client.SessionID, ShouldEqual, "s1")
				So(b.ID, ShouldNotBeEmpty)
				So(b.ReceivedAt.IsZero(), ShouldBeFalse)
				So(w.Body.String(), ShouldContainSubstring, b.ID)
			})
		})

		Convey("When the proxy is trusted", func() {
			mux := newMux(deps, api.WithTrustProxy(true))

			Convey("Then the first X-Forwarded-For hop is the client", func() {
				w := post(mux, "/collect/pageview", `{"path":"/"}`,
					map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"})
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.queued()[0].Client.IP, ShouldEqual, "203.0.113.5")
			})

			Convey("Then X-Real-IP is used without X-Forwarded-For", func() {
				w := post(mux, "/collect/pageview", `{"path":"/"}`,
					map[string]string{"X-Real-IP": "198.51.100.7"})
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.queued()[0].Client.IP, ShouldEqual, "198.51.100.7")
			})
		})

		Convey("When the proxy is not trusted", func() {
			mux := newMux(deps)
			post(mux, "/collect/pageview", `{"path":"/"}`, map[string]string{"X-Forwarded-For": "203.0.113.5"})

			Convey("Then forwarding headers are ignored", func() {
				So(deps.queued()[0].Client.IP, ShouldEqual, "192.0.2.1")
			})
		})

		Convey("When the browser sends DNT", func() {
			mux := newMux(deps)
			w := post(mux, "/collect/pageview", `{"path":"/"}`, map[string]string{"DNT": "1"})

			Convey("Then nothing is recorded", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(deps.queued(), ShouldBeEmpty)
			})
		})

		Convey("When DNT is not respected", func() {
			mux := newMux(deps, api.WithRespectDNT(false))
			w := post(mux, "/collect/pageview", `{"path":"/"}`, map[string]string{"DNT": "1"})

			Convey("Then the beacon is queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.queued(), ShouldHaveLength, 1)
			})
		})

		Convey("When the body is invalid", func() {
			mux := newMux(deps)

			Convey("Then a missing path is a bad request", func() {
				w := post(mux, "/collect/pageview", `{"referrer":""}`, nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(decodeError(w)["message"], ShouldContainSubstring, "missing path")
			})

			Convey("Then malformed JSON is a bad request", func() {
				w := post(mux, "/collect/pageview", `{"path":`, nil)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = queue.ErrFull
			mux := newMux(deps)
			w := post(mux, "/collect/pageview", `{"path":"/"}`, nil)

			Convey("Then the collector signals backpressure", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the queue is closed", func() {
			deps.enqueueErr = queue.ErrClosed
			mux := newMux(deps)
			w := post(mux, "/collect/pageview", `{"path":"/"}`, nil)

			Convey("Then the collector is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w)["code"], ShouldEqual, "unavailable")
			})
		})
	})
}

func TestCollectEvent(t *testing.T) {
	Convey("Given the event collector", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a known event is valid", func() {
			w := post(mux, "/collect/event", `{"name":"section_view","data":{"sectionId":"about"},"path":"/"}`, nil)

			Convey("Then it is queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				queued := deps.queued()
				So(queued, ShouldHaveLength, 1)
				So(queued[0].Kind, ShouldEqual, model.BeaconEvent)
				So(queued[0].Event.Name, ShouldEqual, model.KindSectionView)
				So(queued[0].Event.Data["sectionId"], ShouldEqual, "about")
			})
		})

		Convey("When a known event misses a field", func() {
			w := post(mux, "/collect/event", `{"name":"section_view","data":{},"path":"/"}`, nil)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.queued(), ShouldBeEmpty)
			})
		})

		Convey("When a custom event carries no data", func() {
			w := post(mux, "/collect/event", `{"name":"newsletter_signup","path":"/blog"}`, nil)

			Convey("Then it is queued with an empty payload", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.queued()[0].Event.Data, ShouldNotBeNil)
			})
		})

		Convey("When the path is missing", func() {
			w := post(mux, "/collect/event", `{"name":"download_cv"}`, nil)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestCollectHeatmap(t *testing.T) {
	Convey("Given the heatmap collector", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, api.WithMaxHeatmapBatch(2))

		Convey("When a valid batch arrives", func() {
			w := post(mux, "/collect/heatmap",
				`{"samples":[{"x":10,"y":20,"type":"hover","path":"/"},{"x":0,"y":55,"type":"scroll","value":0.9,"path":"/"}]}`, nil)

			Convey("Then it is queued with default values filled in", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				queued := deps.queued()
				So(queued, ShouldHaveLength, 1)
				So(queued[0].Kind, ShouldEqual, model.BeaconHeatmap)
				So(queued[0].Samples, ShouldHaveLength, 2)
				So(queued[0].Samples[0].Value, ShouldEqual, 0.1)
				So(queued[0].Samples[1].Value, ShouldEqual, 0.9)
			})
		})

		Convey("When a sample has an unknown type", func() {
			w := post(mux, "/collect/heatmap", `{"samples":[{"x":1,"y":1,"type":"drag","path":"/"}]}`, nil)

			Convey("Then the batch is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.queued(), ShouldBeEmpty)
			})
		})

		Convey("When the batch is too large", func() {
			w := post(mux, "/collect/heatmap",
				`{"samples":[{"x":1,"y":1,"type":"click","path":"/"},{"x":1,"y":1,"type":"click","path":"/"},{"x":1,"y":1,"type":"click","path":"/"}]}`, nil)

			Convey("Then the batch is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the batch is empty", func() {
			w := post(mux, "/collect/heatmap", `{"samples":[]}`, nil)

			Convey("Then the batch is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAnalytics(t *testing.T) {
	Convey("Given the analytics endpoints", t, func() {
		deps := &mockDependencies{snapshot: types.Snapshot{
			TotalVisits:       12,
			PageViews:         12,
			UniqueVisitors:    4,
			ReturningVisitors: 2,
			BounceRate:        25,
			AverageTimeOnSite: "1m 30s",
			GeneratedAt:       1_700_000_000_000,
			Days:              7,
		}}
		mux := newMux(deps)

		Convey("When no range is given", func() {
			w := get(mux, "/analytics")

			Convey("Then the last seven days are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.days, ShouldEqual, 7)
				var snap types.Snapshot
				So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.TotalVisits, ShouldEqual, 12)
			})
		})

		Convey("When a longer range is requested", func() {
			w := get(mux, "/analytics?range=90d")

			Convey("Then it is passed through as days", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.days, ShouldEqual, 90)
			})
		})

		Convey("When the range is unknown", func() {
			w := get(mux, "/analytics?range=1y")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the snapshot fails", func() {
			deps.snapshotErr = errors.New("boom")
			w := get(mux, "/analytics")

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When exporting CSV", func() {
			w := get(mux, "/analytics/export.csv?range=30d")

			Convey("Then the headline metrics are rendered", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "analytics-export-2023-11-14.csv")

				records, err := csv.NewReader(w.Body).ReadAll()
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 7)
				So(records[0], ShouldResemble, []string{"Metric", "Value", "Date Range"})
				So(records[1], ShouldResemble, []string{"Total Visits", "12", "30d"})
				So(records[4], ShouldResemble, []string{"Average Time on Site", "1m 30s", "30d"})
				So(records[5], ShouldResemble, []string{"Bounce Rate", "25.00%", "30d"})
				So(records[6], ShouldResemble, []string{"Page Views", "12", "30d"})
			})
		})
	})
}

func TestHeatmapData(t *testing.T) {
	Convey("Given the heatmap read endpoint", t, func() {
		deps := &mockDependencies{samples: []model.HeatmapSample{
			{X: 1, Y: 2, Value: 1, Path: "/", Type: model.HeatmapClick},
		}}
		mux := newMux(deps)

		Convey("When filtering by path and type", func() {
			w := get(mux, "/heatmap?path=/&type=click")

			Convey("Then the filter reaches the store", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.filter, ShouldResemble, types.HeatmapFilter{Path: "/", Type: model.HeatmapClick})
				So(w.Body.String(), ShouldContainSubstring, `"count":1`)
			})
		})

		Convey("When the type is unknown", func() {
			w := get(mux, "/heatmap?type=drag")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given the CORS wrapper", t, func() {
		deps := &mockDependencies{}
		h := api.CORS(newMux(deps), []string{"https://portfolio.example"})

		Convey("When an allowed origin sends a preflight", func() {
			req := httptest.NewRequest(http.MethodOptions, "/collect/pageview", nil)
			req.Header.Set("Origin", "https://portfolio.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the origin is allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://portfolio.example")
			})
		})

		Convey("When another origin posts a beacon", func() {
			req := httptest.NewRequest(http.MethodPost, "/collect/pageview", strings.NewReader(`{"path":"/"}`))
			req.Header.Set("Origin", "https://evil.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then no allow header is sent", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})
		})
	})
}

func TestWrapKind(t *testing.T) {
	Convey("Given an operation error", t, func() {
		cause := errors.New("bad json")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both kind and cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: bad json")
		})

		Convey("Then a nil cause still carries the kind", func() {
			So(errors.Is(api.WrapKind("api.op", api.ErrBackpressure, nil), api.ErrBackpressure), ShouldBeTrue)
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
