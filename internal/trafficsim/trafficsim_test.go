package trafficsim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/footprint/internal/adapters/http/api"
	repository "github.com/okian/footprint/internal/adapters/repository"
	service "github.com/okian/footprint/internal/app"
	"github.com/okian/footprint/internal/trafficsim"
	"github.com/okian/footprint/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := trafficsim.NewGenerator(42).Visits(20, 4)
		b := trafficsim.NewGenerator(42).Visits(20, 4)

		Convey("Then they plan the same visits", func() {
			So(a, ShouldHaveLength, 20)
			for i := range a {
				So(a[i].IP, ShouldEqual, b[i].IP)
				So(a[i].Pages, ShouldResemble, b[i].Pages)
				So(a[i].UserAgent, ShouldEqual, b[i].UserAgent)
				So(len(a[i].Pages), ShouldBeBetweenOrEqual, 1, 4)
				So(a[i].Events, ShouldHaveLength, len(a[i].Pages))
			}
		})

		Convey("Then every visitor has its own address", func() {
			seen := map[string]bool{}
			for i := range a {
				So(seen[a[i].IP], ShouldBeFalse)
				seen[a[i].IP] = true
			}
		})
	})
}

func TestExpectedVisits(t *testing.T) {
	Convey("Given visits with repeated pages", t, func() {
		visits := []trafficsim.Visit{
			{IP: "10.0.0.1", Pages: []string{"/", "/", "/about"}},
			{IP: "10.0.0.2", Pages: []string{"/"}},
		}

		Convey("Then repeats of one ip and path count once", func() {
			So(trafficsim.ExpectedVisits(visits), ShouldEqual, 3)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a collector that trusts forwarded addresses", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithWorkerCount(4),
			service.WithLogger(logger.Nop()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.WithTrustProxy(true)).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the simulation runs", func() {
			report, err := trafficsim.Run(ctx, &trafficsim.Config{
				BaseURL:         srv.URL,
				Visitors:        25,
				PagesPerVisitor: 3,
				Workers:         4,
				Timeout:         5 * time.Second,
				Settle:          time.Second,
				Seed:            7,
			}, logger.Nop())

			Convey("Then the dashboard counts every distinct visit", func() {
				So(err, ShouldBeNil)
				So(report.Failed, ShouldEqual, int64(0))
				So(report.ExpectedVisits, ShouldBeGreaterThan, 0)
				So(report.ObservedVisits, ShouldEqual, report.ExpectedVisits)
				So(report.PageViewsSent, ShouldBeGreaterThanOrEqualTo, int64(report.ExpectedVisits))
			})
		})

		Convey("When the collector is unreachable", func() {
			_, err := trafficsim.Run(ctx, &trafficsim.Config{
				BaseURL:  "http://127.0.0.1:1",
				Visitors: 1,
				Workers:  1,
				Timeout:  time.Second,
			}, nil)

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check")
			})
		})
	})
}
