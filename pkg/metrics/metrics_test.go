package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(true),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered there", func() {
				So(manager, ShouldNotBeNil)
				manager.rebuilds.Inc()
				So(testutil.ToFloat64(manager.rebuilds), ShouldEqual, 1)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Rank resolves are counted by outcome", func() {
			before := testutil.ToFloat64(globalManager.rankResolves.WithLabelValues(ResolveRebuild))
			RecordRankResolve(ResolveRebuild)
			So(testutil.ToFloat64(globalManager.rankResolves.WithLabelValues(ResolveRebuild)), ShouldEqual, before+1)
		})

		Convey("Rebuilds update the counter and last-entries gauge", func() {
			RecordRebuild(3*time.Millisecond, 42)
			So(testutil.ToFloat64(globalManager.rebuildEntries), ShouldEqual, 42)
		})

		Convey("Mappack updates keep the player gauge unless negative", func() {
			RecordMappackUpdate("scored", time.Millisecond, 12)
			RecordMappackUpdate("expired", time.Millisecond, -1)
			So(testutil.ToFloat64(globalManager.mappackPlayers), ShouldEqual, 12)
		})

		Convey("Queue, worker and HTTP recorders do not panic", func() {
			So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordJobCoalesced()
				UpdateWorkerCount(2)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(time.Millisecond)
				RecordWorkerError()
				RecordFinish("improved")
				RecordHTTPRequest("/rank", "GET", "200")
				RecordHTTPRequestDuration("/rank", "GET", "200", 1.5)
				RecordErrorByComponent("leaderboard", "invariant")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
		})

		Convey("GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
