package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/trackrank/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("A new id is recorded", func() {
			So(d.SeenAndRecord(ctx, "spring"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("A pending id is reported as seen", func() {
			d.SeenAndRecord(ctx, "spring")
			So(d.SeenAndRecord(ctx, "spring"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("An unrecorded id can be recorded again", func() {
			d.SeenAndRecord(ctx, "spring")
			d.Unrecord(ctx, "spring")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "spring"), ShouldBeFalse)
		})

		Convey("When full the oldest id is forgotten", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				d.SeenAndRecord(ctx, id)
			}
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
		})
	})

	Convey("Given concurrent callers on an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, fmt.Sprintf("m%d", i%10)) {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Each id is recorded exactly once", func() {
			So(fresh, ShouldEqual, 10)
			So(d.Size(), ShouldEqual, 10)
		})
	})
}
