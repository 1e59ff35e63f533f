package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/focusengine/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestComponent(t *testing.T) {
	Convey("Given component codes", t, func() {
		Convey("When parsing mixed-case input", func() {
			c, err := types.ParseComponent(" putt ")
			So(err, ShouldBeNil)
			So(c, ShouldEqual, types.PUTT)
			So(c.Lower(), ShouldEqual, "putt")
		})

		Convey("When parsing an unknown code", func() {
			_, err := types.ParseComponent("driving")
			So(err, ShouldNotBeNil)
		})

		Convey("Then evaluation order is OTT, APP, ARG, PUTT", func() {
			So(types.Components, ShouldResemble, [4]types.Component{types.OTT, types.APP, types.ARG, types.PUTT})
		})
	})
}

func TestComponentValues(t *testing.T) {
	Convey("Given uniform component values", t, func() {
		v := types.Uniform(0.25)

		Convey("Then all four components are set and sum to one", func() {
			So(len(v), ShouldEqual, 4)
			So(v.Sum(), ShouldEqual, 1.0)
		})

		Convey("When cloned and modified", func() {
			c := v.Clone()
			c[types.APP] = 0.4

			Convey("Then the original is untouched", func() {
				So(v[types.APP], ShouldEqual, 0.25)
			})
		})

		Convey("When marshalled", func() {
			b, err := json.Marshal(types.ComponentValues{types.OTT: 0.1, types.APP: 0.5, types.ARG: 0.2, types.PUTT: 0.2})
			So(err, ShouldBeNil)

			Convey("Then keys are the component codes", func() {
				So(string(b), ShouldEqual, `{"APP":0.5,"ARG":0.2,"OTT":0.1,"PUTT":0.2}`)
			})
		})
	})

	Convey("An empty heatmap has four zero counts", t, func() {
		So(types.EmptyHeatmap(), ShouldResemble, types.Heatmap{types.OTT: 0, types.APP: 0, types.ARG: 0, types.PUTT: 0})
	})
}
