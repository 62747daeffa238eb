package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		defer func() { _ = Sync() }()
		ctx := context.Background()

		Convey("Info records carry fields and the caller", func() {
			Get().Info(ctx, "rank resolved", Int64("map_id", 7), Int("rank", 3), Duration("took", time.Millisecond))
			out := buf.String()
			So(out, ShouldContainSubstring, "rank resolved")
			So(out, ShouldContainSubstring, "map_id=7")
			So(out, ShouldContainSubstring, "rank=3")
			So(out, ShouldContainSubstring, "source=logger_test.go")
		})

		Convey("Named loggers tag the component", func() {
			Named("leaderboard").Warn(ctx, "rebuild", Error(errors.New("boom")))
			So(buf.String(), ShouldContainSubstring, "component=leaderboard")
			So(buf.String(), ShouldContainSubstring, "error=boom")
		})

		Convey("Debug is filtered at info level", func() {
			Get().Debug(ctx, "hidden")
			So(buf.String(), ShouldNotContainSubstring, "hidden")

			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "visible", Bool("ok", true))
			So(buf.String(), ShouldContainSubstring, "visible")
		})

		Convey("Unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
			So(SetLevelString("WARNING"), ShouldBeNil)
		})
	})

	Convey("A nil writer is rejected", t, func() {
		So(InitWithWriter(nil), ShouldNotBeNil)
	})
}
