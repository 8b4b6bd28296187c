package metrics

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRecord(t *testing.T) {
	Convey("Given a fresh store", t, func() {
		store := NewStore()

		Convey("When nothing has been recorded", func() {
			m, ok := store.Get("A", "read")
			So(ok, ShouldBeFalse)
			So(m.TotalCalls, ShouldEqual, 0)
			So(m.SuccessRate, ShouldEqual, 1.0)
		})

		Convey("When a success is recorded", func() {
			store.Record("A", "read", true, 100)
			m, ok := store.Get("A", "read")

			So(ok, ShouldBeTrue)
			So(m.TotalCalls, ShouldEqual, 1)
			So(m.FailureCount, ShouldEqual, 0)
			So(m.SuccessRate, ShouldEqual, 1.0)
			So(m.AvgResponseTimeMillis, ShouldEqual, 100.0)
		})

		Convey("When failures are mixed in", func() {
			store.Record("A", "read", true, 100)
			store.Record("A", "read", false, 300)
			m, _ := store.Get("A", "read")

			So(m.TotalCalls, ShouldEqual, 2)
			So(m.FailureCount, ShouldEqual, 1)
			So(m.SuccessRate, ShouldEqual, 0.5)
			So(m.AvgResponseTimeMillis, ShouldEqual, 200.0)
		})

		Convey("Then the failure count never exceeds the total", func() {
			for i := 0; i < 10; i++ {
				store.Record("A", "read", i%3 == 0, 50)
			}
			m, _ := store.Get("A", "read")

			So(m.FailureCount, ShouldBeLessThanOrEqualTo, m.TotalCalls)
			So(m.SuccessRate, ShouldEqual,
				float64(m.TotalCalls-m.FailureCount)/float64(m.TotalCalls))
		})

		Convey("Then pairs are tracked independently", func() {
			store.Record("A", "read", true, 100)
			store.Record("B", "read", false, 100)

			a, _ := store.Get("A", "read")
			b, _ := store.Get("B", "read")

			So(a.SuccessRate, ShouldEqual, 1.0)
			So(b.SuccessRate, ShouldEqual, 0.0)
		})
	})
}

func TestRecordConcurrent(t *testing.T) {
	Convey("Given concurrent writers on the same pair", t, func() {
		store := NewStore()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					store.Record("A", "read", true, 10)
				}
			}()
		}
		wg.Wait()

		Convey("Then every call is counted", func() {
			m, _ := store.Get("A", "read")
			So(m.TotalCalls, ShouldEqual, 800)
			So(m.SuccessRate, ShouldEqual, 1.0)
		})
	})
}

func TestScore(t *testing.T) {
	Convey("Given the scoring function", t, func() {
		Convey("When the pair was never called", func() {
			So(Score(PerformanceMetrics{}), ShouldEqual, 0.5)
		})

		Convey("When the pair is healthy and recent", func() {
			m := PerformanceMetrics{
				TotalCalls:            10,
				FailureCount:          0,
				SuccessRate:           1.0,
				AvgResponseTimeMillis: 200,
				LastUsed:              time.Now(),
			}
			// 0.5*1 + 0.3*0.98 + 0.2*1
			So(Score(m), ShouldAlmostEqual, 0.994, 0.0001)
		})

		Convey("When responses are slower than ten seconds", func() {
			m := PerformanceMetrics{
				TotalCalls:            5,
				SuccessRate:           1.0,
				AvgResponseTimeMillis: 15000,
				LastUsed:              time.Now(),
			}
			So(Score(m), ShouldAlmostEqual, 0.5+0.2, 0.0001)
		})

		Convey("When the pair has gone stale", func() {
			recent := PerformanceMetrics{
				TotalCalls: 1, SuccessRate: 1.0, LastUsed: time.Now(),
			}
			daysOld := recent
			daysOld.LastUsed = time.Now().Add(-30 * time.Hour)
			weeksOld := recent
			weeksOld.LastUsed = time.Now().Add(-200 * time.Hour)

			So(Score(recent), ShouldBeGreaterThan, Score(daysOld))
			So(Score(daysOld), ShouldBeGreaterThan, Score(weeksOld))
		})

		Convey("When comparing two providers by observed quality", func() {
			// The reliable-but-slower provider must outrank the faster
			// one with failures.
			flaky := PerformanceMetrics{
				TotalCalls: 10, FailureCount: 2, SuccessRate: 0.8,
				AvgResponseTimeMillis: 100, LastUsed: time.Now(),
			}
			steady := PerformanceMetrics{
				TotalCalls: 10, FailureCount: 0, SuccessRate: 1.0,
				AvgResponseTimeMillis: 200, LastUsed: time.Now(),
			}

			So(Score(steady), ShouldAlmostEqual, 0.994, 0.0001)
			So(Score(flaky), ShouldAlmostEqual, 0.897, 0.0001)
			So(Score(steady), ShouldBeGreaterThan, Score(flaky))
		})
	})
}

func TestSnapshot(t *testing.T) {
	Convey("Given a store with entries for two providers", t, func() {
		store := NewStore()
		store.Record("A", "read", true, 100)
		store.Record("A", "write", false, 200)
		store.Record("B", "read", true, 50)

		snapshot := store.Snapshot()

		Convey("Then the snapshot groups by provider", func() {
			So(snapshot, ShouldContainKey, "A")
			So(snapshot, ShouldContainKey, "B")
			So(snapshot["A"], ShouldHaveLength, 2)
			So(snapshot["B"], ShouldHaveLength, 1)
		})

		Convey("Then mutating the snapshot does not touch the store", func() {
			entry := snapshot["A"]["read"]
			entry.TotalCalls = 999
			snapshot["A"]["read"] = entry

			m, _ := store.Get("A", "read")
			So(m.TotalCalls, ShouldEqual, 1)
		})
	})
}
