package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOrdering(t *testing.T) {
	Convey("Given the ascending ordering", t, func() {
		o := OrderingFor(false)

		So(o, ShouldResemble, Ascending)
		So(o.Better(10, 20), ShouldBeTrue)
		So(o.Better(20, 10), ShouldBeFalse)
		So(o.Compare(5, 5), ShouldEqual, 0)
		So(o.Best(30, 12), ShouldEqual, 12)
		So(o.Aggregate(), ShouldEqual, "MIN")
		So(o.SQLDirection(), ShouldEqual, "ASC")
	})

	Convey("Given the descending ordering", t, func() {
		o := OrderingFor(true)

		So(o.Reversed(), ShouldBeTrue)
		So(o.Better(20, 10), ShouldBeTrue)
		So(o.Compare(10, 20), ShouldEqual, 1)
		So(o.Best(30, 12), ShouldEqual, 30)
		So(o.Aggregate(), ShouldEqual, "MAX")
		So(o.SQLDirection(), ShouldEqual, "DESC")
	})
}

func TestScope(t *testing.T) {
	Convey("Given a linked map", t, func() {
		linked := int64(3)
		m := Map{ID: 9, LinkedMap: &linked, Reversed: true}

		Convey("The global scope ranks on the linked map", func() {
			s := MapScope(m)
			So(s.MapID, ShouldEqual, 3)
			So(s.Event, ShouldBeNil)
			So(s.Order.Reversed(), ShouldBeTrue)
			So(s.String(), ShouldEqual, "map:3")
		})

		Convey("An event scope copies the reference", func() {
			ref := &EventRef{EventID: 1, EditionID: 2}
			s := EventScope(m, ref)
			ref.EditionID = 5
			So(s.Event.EditionID, ShouldEqual, 2)
			So(s.String(), ShouldEqual, "map:3/event:1/edition:2")
		})
	})
}
