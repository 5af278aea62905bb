package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should be created with footprint defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "footprint")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating twice with default options", func() {
			Convey("Then each manager gets its own registry and nothing panics", func() {
				So(func() {
					NewManager()
					NewManager()
				}, ShouldNotPanic)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.pageViewsRecorded.Inc()

			Convey("Then metric names and labels should follow the options", func() {
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_pfx_page_views_recorded_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording page views and duplicates", func() {
			before := testutil.ToFloat64(globalManager.pageViewsRecorded)
			dupBefore := testutil.ToFloat64(globalManager.pageViewsDuplicate)
			RecordPageView()
			RecordPageView()
			RecordPageViewDuplicate()

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.pageViewsRecorded)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.pageViewsDuplicate)-dupBefore, ShouldEqual, 1)
			})
		})

		Convey("When recording labelled ingestion metrics", func() {
			RecordEvent("time_on_page")
			RecordHeatmapSample("click")
			RecordEviction("heatmap", 3)
			RecordEviction("heatmap", 0)
			RecordBeaconIgnored("dnt")

			Convey("Then the labelled series should exist", func() {
				So(testutil.ToFloat64(globalManager.eventsRecorded.WithLabelValues("time_on_page")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.heatmapSamples.WithLabelValues("click")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.recordsEvicted.WithLabelValues("heatmap")), ShouldBeGreaterThanOrEqualTo, 3)
				So(testutil.ToFloat64(globalManager.beaconsIgnored.WithLabelValues("dnt")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateStoredCounts(4, 5, 6)
			UpdatePersistenceBytes("analytics_pageViews", 128)
			UpdateQueueSize(7)

			Convey("Then the gauges should hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.storedPageViews), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.storedEvents), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.storedSamples), ShouldEqual, 6)
				So(testutil.ToFloat64(globalManager.persistenceBytes.WithLabelValues("analytics_pageViews")), ShouldEqual, 128)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			})
		})

		Convey("When recording transport and system metrics", func() {
			So(func() {
				RecordHTTPRequest("collect_pageview", "POST", "202")
				RecordHTTPRequestDuration("collect_pageview", "POST", "202", 1.5)
				RecordGeoLookup("ok", 12)
				RecordPersistenceSave(0.4)
				RecordPersistenceSaveFailure()
				RecordPersistenceReset()
				RecordSnapshotLatency(2)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.7)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(4)
				UpdateWorkerMessagesPerSecond(100)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordErrorByComponent("worker", "record_failed")
				RecordErrorByType("record_failed", "medium")
				RecordErrorByEndpoint("collect_event", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)

			Convey("Then they should be exposed by the custom registry", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "footprint_collector_geo_lookups_total")
				So(joined, ShouldContainSubstring, "footprint_collector_http_requests_total")
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		saved := globalManager
		globalManager = NewManager(WithMetricsEnabled(false))
		defer func() { globalManager = saved }()

		Convey("When recording domain counters", func() {
			RecordPageView()
			RecordEvent("section_view")

			Convey("Then nothing should be counted", func() {
				So(testutil.ToFloat64(globalManager.pageViewsRecorded), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.eventsRecorded.WithLabelValues("section_view")), ShouldEqual, 0)
			})
		})
	})
}
