package geo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/footprint/internal/adapters/geo"
	"github.com/okian/footprint/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIPInfoLookup(t *testing.T) {
	Convey("Given an ipinfo-compatible server", t, func() {
		var lastPath atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastPath.Store(r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ip":"8.8.8.8","city":"Mountain View","region":"California","country":"US","org":"AS15169"}`))
		}))
		defer srv.Close()

		l := geo.NewIPInfo(geo.WithBaseURL(srv.URL + "/"))
		ctx := context.Background()

		Convey("When looking up a public ip", func() {
			loc, err := l.Lookup(ctx, "8.8.8.8")

			Convey("Then the location should be decoded", func() {
				So(err, ShouldBeNil)
				So(loc.IP, ShouldEqual, "8.8.8.8")
				So(loc.Country, ShouldEqual, "US")
				So(loc.City, ShouldEqual, "Mountain View")
				So(loc.Region, ShouldEqual, "California")
				So(lastPath.Load(), ShouldEqual, "/8.8.8.8/json")
			})
		})

		Convey("When looking up private or loopback ips", func() {
			lastPath.Store("")
			_, err := l.Lookup(ctx, "192.168.1.10")
			_, err2 := l.Lookup(ctx, "127.0.0.1")

			Convey("Then the provider is never asked", func() {
				So(err, ShouldEqual, geo.ErrNotRoutable)
				So(errors.Is(err2, model.ErrNoLocation), ShouldBeTrue)
				So(lastPath.Load(), ShouldEqual, "")
			})
		})

		Convey("When the ip is unknown", func() {
			_, err := l.Lookup(ctx, "")

			Convey("Then the provider resolves the caller", func() {
				So(err, ShouldBeNil)
				So(lastPath.Load(), ShouldEqual, "/json")
			})
		})
	})
}

func TestIPInfoFailures(t *testing.T) {
	Convey("Given misbehaving servers", t, func() {
		ctx := context.Background()

		Convey("When the provider answers non-200", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			}))
			defer srv.Close()

			_, err := geo.NewIPInfo(geo.WithBaseURL(srv.URL)).Lookup(ctx, "8.8.8.8")
			So(err, ShouldWrap, geo.ErrLookupFailed)
		})

		Convey("When the body is malformed", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"ip":`))
			}))
			defer srv.Close()

			_, err := geo.NewIPInfo(geo.WithBaseURL(srv.URL)).Lookup(ctx, "8.8.8.8")
			So(err, ShouldWrap, geo.ErrLookupFailed)
		})

		Convey("When the provider is slower than the timeout", func() {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()
			defer close(release)

			start := time.Now()
			_, err := geo.NewIPInfo(geo.WithBaseURL(srv.URL), geo.WithTimeout(50*time.Millisecond)).Lookup(ctx, "8.8.8.8")

			Convey("Then the lookup should give up quickly", func() {
				So(err, ShouldWrap, geo.ErrLookupFailed)
				So(time.Since(start), ShouldBeLessThan, 2*time.Second)
			})
		})

		Convey("When geolocation is disabled", func() {
			_, err := geo.Disabled{}.Lookup(ctx, "8.8.8.8")
			So(err, ShouldEqual, geo.ErrDisabled)
			So(errors.Is(err, model.ErrNoLocation), ShouldBeTrue)
		})
	})
}

func TestPublic(t *testing.T) {
	Convey("Given assorted addresses", t, func() {
		So(geo.Public("8.8.8.8"), ShouldBeTrue)
		So(geo.Public("2001:4860:4860::8888"), ShouldBeTrue)
		So(geo.Public("127.0.0.1"), ShouldBeFalse)
		So(geo.Public("10.1.2.3"), ShouldBeFalse)
		So(geo.Public("::1"), ShouldBeFalse)
		So(geo.Public("not-an-ip"), ShouldBeFalse)
	})
}
