package logger_test

import (
	"context"
	"testing"

	"github.com/pawlik/clickarena/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		err := logger.Init()
		So(err, ShouldBeNil)

		Convey("Then Get returns a usable logger", func() {
			l := logger.Get()
			So(l, ShouldNotBeNil)

			// Should not panic with assorted field types.
			l.Info(context.Background(), "hello",
				logger.String("k", "v"),
				logger.Int("n", 1),
				logger.Int64("n64", 2),
				logger.Float64("f", 3.5),
				logger.Bool("b", true),
			)
		})

		Convey("Then Named returns a child logger", func() {
			So(logger.Named("sub"), ShouldNotBeNil)
		})

		Convey("Then level strings parse", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("WARN"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
			So(logger.SetLevelString("nope"), ShouldNotBeNil)
		})

		Convey("Then Sync is a no-op", func() {
			So(logger.Sync(), ShouldBeNil)
		})
	})
}
