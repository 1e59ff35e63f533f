package ingest

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given file names", t, func() {
		Convey("Season files carry their year", func() {
			info, err := classify("export/Player_Season_2023.csv")
			So(err, ShouldBeNil)
			So(info.kind, ShouldEqual, KindPlayerSeason)
			So(info.season, ShouldEqual, 2023)
		})

		Convey("Approach files carry their statistic", func() {
			info, err := classify("approach_skill_poor_shot_avoid_rate.csv")
			So(err, ShouldBeNil)
			So(info.kind, ShouldEqual, KindApproachSkill)
			So(info.stat, ShouldEqual, "poor_shot_avoid_rate")
		})

		Convey("Unknown statistics and missing seasons are name errors", func() {
			_, err := classify("approach_skill_driving.csv")
			So(errors.Is(err, ErrFileName), ShouldBeTrue)
			_, err = classify("player_season.csv")
			So(errors.Is(err, ErrFileName), ShouldBeTrue)
		})

		Convey("Anything else is unrecognized", func() {
			_, err := classify("readme.csv")
			So(errors.Is(err, ErrUnknownFile), ShouldBeTrue)
		})
	})
}

func TestParseValues(t *testing.T) {
	Convey("Given numeric cells", t, func() {
		v, err := parseFloat("-0.25")
		So(err, ShouldBeNil)
		So(*v, ShouldEqual, -0.25)

		v, err = parseFloat("NA")
		So(err, ShouldBeNil)
		So(v, ShouldBeNil)

		_, err = parseFloat("1.2.3")
		So(errors.Is(err, ErrValidation), ShouldBeTrue)

		n, err := parseInt("72.0")
		So(err, ShouldBeNil)
		So(*n, ShouldEqual, 72)

		_, err = parseInt("7.5")
		So(errors.Is(err, ErrValidation), ShouldBeTrue)
	})
}

func TestFileError(t *testing.T) {
	Convey("A file error matches both its cause and ErrFile", t, func() {
		err := error(&fileError{name: "x.csv", err: ErrEmptyFile})
		So(errors.Is(err, ErrFile), ShouldBeTrue)
		So(errors.Is(err, ErrEmptyFile), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "x.csv: empty file")
	})
}
