package model_test

import (
	"math"
	"testing"

	model "github.com/okian/footprint/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestHeatmapSample(t *testing.T) {
	convey.Convey("Given heatmap types", t, func() {
		convey.Convey("Then the default intensities should match the beacon script", func() {
			convey.So(model.HeatmapClick.DefaultValue(), convey.ShouldEqual, 1.0)
			convey.So(model.HeatmapHover.DefaultValue(), convey.ShouldEqual, 0.1)
			convey.So(model.HeatmapScroll.DefaultValue(), convey.ShouldEqual, 0.5)
		})

		convey.Convey("When a sample has an unknown type", func() {
			s := model.HeatmapSample{X: 1, Y: 1, Type: "drag"}
			convey.So(s.Validate(), convey.ShouldWrap, model.ErrHeatmapType)
		})

		convey.Convey("When a sample has bad coordinates", func() {
			neg := model.HeatmapSample{X: -1, Y: 1, Type: model.HeatmapClick}
			nan := model.HeatmapSample{X: math.NaN(), Y: 1, Type: model.HeatmapClick}
			convey.So(neg.Validate(), convey.ShouldWrap, model.ErrHeatmapPosition)
			convey.So(nan.Validate(), convey.ShouldWrap, model.ErrHeatmapPosition)
		})

		convey.Convey("When a sample is well formed", func() {
			s := model.HeatmapSample{X: 10, Y: 55.5, Type: model.HeatmapScroll, Path: "/"}
			convey.So(s.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestPageViewAndBeacon(t *testing.T) {
	convey.Convey("Given a page view", t, func() {
		pv := model.PageView{Path: "/", Timestamp: 1_700_000_000_000, IP: "10.0.0.1"}

		convey.Convey("When a location is applied", func() {
			pv.ApplyLocation(model.Location{Country: "NL", City: "Amsterdam", Region: "North Holland"})

			convey.Convey("Then the fields are copied and the ip kept", func() {
				convey.So(pv.IP, convey.ShouldEqual, "10.0.0.1")
				convey.So(pv.Country, convey.ShouldEqual, "NL")
				convey.So(pv.Time().UnixMilli(), convey.ShouldEqual, pv.Timestamp)
			})
		})

		convey.Convey("And beacons carry their kind", func() {
			convey.So(model.NewPageViewBeacon("a", "/", model.Client{}).Kind.String(), convey.ShouldEqual, "pageview")
			convey.So(model.NewEventBeacon("b", "/", model.DownloadCV()).Kind.String(), convey.ShouldEqual, "event")
			convey.So(model.NewHeatmapBeacon("c", nil).Kind.String(), convey.ShouldEqual, "heatmap")
			convey.So(model.Location{}.Empty(), convey.ShouldBeTrue)
		})
	})
}
