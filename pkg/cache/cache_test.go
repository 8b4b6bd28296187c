package cache

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestShouldCache(t *testing.T) {
	Convey("Given the cacheability heuristics", t, func() {
		Convey("Then ordinary calls are cacheable", func() {
			So(ShouldCache("file_read", `{"path":"/tmp/x"}`), ShouldBeTrue)
			So(ShouldCache("query_db", `{"sql":"select 1"}`), ShouldBeTrue)
		})

		Convey("Then volatile tool names are rejected", func() {
			So(ShouldCache("get_random", `{}`), ShouldBeFalse)
			So(ShouldCache("uuid_v4", `{}`), ShouldBeFalse)
			So(ShouldCache("current_time", `{}`), ShouldBeFalse)
			So(ShouldCache("what_now", `{}`), ShouldBeFalse)
		})

		Convey("Then time-dependent arguments are rejected", func() {
			So(ShouldCache("file_read", `{"since":"TIMESTAMP"}`), ShouldBeFalse)
			So(ShouldCache("file_read", `{"mode":"current"}`), ShouldBeFalse)
		})
	})
}

func TestClassifyToolType(t *testing.T) {
	Convey("Given the tool type classifier", t, func() {
		cases := map[string]string{
			"file_read":     TypeFilesystem,
			"write_config":  TypeFilesystem,
			"db_lookup":     TypeDatabase,
			"run_sql":       TypeDatabase,
			"http_fetch":    TypeNetwork,
			"api_call":      TypeNetwork,
			"compute_hash":  TypeComputation,
			"calculate_sum": TypeComputation,
			"static_assets": TypeStatic,
			"get_reference": TypeStatic,
			"translate":     TypeDefault,
		}

		for name, expected := range cases {
			So(ClassifyToolType(name), ShouldEqual, expected)
		}

		Convey("Then the first matching rule wins", func() {
			// "read" (filesystem) appears before "db" would match.
			So(ClassifyToolType("read_db"), ShouldEqual, TypeFilesystem)
		})
	})
}

func TestSetAndGet(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		c := New(10)
		key := Key("P", "file_read", `{"path":"/tmp/x"}`)

		Convey("When a value is stored and fetched twice", func() {
			So(c.Set(key, "contents", "file_read", `{"path":"/tmp/x"}`), ShouldBeTrue)

			first, hit := c.Get(key)
			So(hit, ShouldBeTrue)
			So(first, ShouldEqual, "contents")

			second, hit := c.Get(key)
			So(hit, ShouldBeTrue)
			So(second, ShouldEqual, "contents")

			Convey("Then the counters reflect both requests", func() {
				stats := c.GetStats()
				So(stats.TotalRequests, ShouldEqual, 2)
				So(stats.TotalHits, ShouldEqual, 2)
				So(stats.TypeRequests[TypeFilesystem], ShouldEqual, 2)
			})
		})

		Convey("When a volatile tool is stored", func() {
			stored := c.Set(Key("P", "get_random", "{}"), "4", "get_random", "{}")

			Convey("Then nothing is cached", func() {
				So(stored, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)
			})
		})

		Convey("When a missing key is fetched", func() {
			_, hit := c.Get("P:other:{}")
			So(hit, ShouldBeFalse)

			stats := c.GetStats()
			So(stats.TotalRequests, ShouldEqual, 1)
			So(stats.TotalHits, ShouldEqual, 0)
		})

		Convey("When an entry expires", func() {
			So(c.SetWithTTL(key, "contents", "file_read", `{"path":"/tmp/x"}`, time.Millisecond), ShouldBeTrue)
			time.Sleep(5 * time.Millisecond)

			_, hit := c.Get(key)

			Convey("Then the expired entry is gone", func() {
				So(hit, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestEviction(t *testing.T) {
	Convey("Given a cache bounded at three entries", t, func() {
		c := New(3)

		for i := 0; i < 3; i++ {
			key := Key("P", "file_read", fmt.Sprintf(`{"path":"/tmp/%d"}`, i))
			So(c.Set(key, "v", "file_read", "{}"), ShouldBeTrue)
			time.Sleep(2 * time.Millisecond)
		}

		Convey("When the first entry is touched and a fourth arrives", func() {
			first := Key("P", "file_read", `{"path":"/tmp/0"}`)
			_, hit := c.Get(first)
			So(hit, ShouldBeTrue)

			time.Sleep(2 * time.Millisecond)
			c.Set(Key("P", "file_read", `{"path":"/tmp/3"}`), "v", "file_read", "{}")

			Convey("Then the least recently used entry was evicted, not the first", func() {
				So(c.Size(), ShouldEqual, 3)

				_, hit := c.Get(first)
				So(hit, ShouldBeTrue)

				_, hit = c.Get(Key("P", "file_read", `{"path":"/tmp/1"}`))
				So(hit, ShouldBeFalse)
			})
		})

		Convey("Then the size never exceeds the bound", func() {
			for i := 0; i < 10; i++ {
				c.Set(Key("P", "file_read", fmt.Sprintf(`{"path":"/x/%d"}`, i)), "v", "file_read", "{}")
				So(c.Size(), ShouldBeLessThanOrEqualTo, 3)
			}
		})
	})
}

func TestAdaptiveTTL(t *testing.T) {
	Convey("Given a cache with hot filesystem entries", t, func() {
		c := New(10)
		key := Key("P", "file_read", "{}")
		c.Set(key, "v", "file_read", "{}")

		before := c.TTL(TypeFilesystem)

		// A single live entry hit three times: avg hit count 3 over 3
		// requests -> hit rate 1.0, above the growth threshold.
		for i := 0; i < 3; i++ {
			_, hit := c.Get(key)
			So(hit, ShouldBeTrue)
		}

		c.Sweep()

		Convey("Then the filesystem TTL grows", func() {
			So(c.TTL(TypeFilesystem), ShouldBeGreaterThan, before)
		})
	})

	Convey("Given a cache whose network entries rarely hit", t, func() {
		c := New(100)

		// Ten distinct entries plus one hit: avg hit count 0.1 over one
		// request -> hit rate 0.1, below the shrink threshold.
		for i := 0; i < 10; i++ {
			c.Set(Key("P", "http_fetch", fmt.Sprintf(`{"u":%d}`, i)), "v", "http_fetch", "{}")
		}
		_, hit := c.Get(Key("P", "http_fetch", `{"u":0}`))
		So(hit, ShouldBeTrue)

		before := c.TTL(TypeNetwork)
		c.Sweep()

		Convey("Then the network TTL shrinks but not below the floor", func() {
			So(c.TTL(TypeNetwork), ShouldBeLessThan, before)
			So(c.TTL(TypeNetwork), ShouldBeGreaterThanOrEqualTo, 60*time.Second)
		})
	})

	Convey("Given repeated growth", t, func() {
		c := New(10)
		key := Key("P", "static_data", "{}")
		c.Set(key, "v", "static_data", "{}")

		for round := 0; round < 20; round++ {
			_, _ = c.Get(key)
			c.Sweep()
		}

		Convey("Then the TTL never exceeds one hour", func() {
			So(c.TTL(TypeStatic), ShouldBeLessThanOrEqualTo, time.Hour)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given a cache with a little traffic", t, func() {
		c := New(10)
		key := Key("P", "file_read", "{}")
		c.Set(key, "v", "file_read", "{}")
		c.Get(key)

		stats := c.GetStats()

		Convey("Then the basic numbers line up", func() {
			So(stats.Size, ShouldEqual, 1)
			So(stats.TotalRequests, ShouldEqual, 1)
			So(stats.TotalHits, ShouldEqual, 1)
			So(stats.HitRate, ShouldEqual, 1.0)
			So(stats.AvgHitCount, ShouldEqual, 1.0)
			So(stats.OldestEntry.IsZero(), ShouldBeFalse)
			So(stats.NewestEntry.IsZero(), ShouldBeFalse)
		})

		Convey("Then sparse traffic yields the insufficient-data recommendation", func() {
			So(stats.Recommendations, ShouldContain,
				"Insufficient data for meaningful statistics - more usage needed")
		})
	})

	Convey("Given a cache that misses constantly", t, func() {
		c := New(10)
		for i := 0; i < 20; i++ {
			c.Get(fmt.Sprintf("P:x:{\"i\":%d}", i))
		}

		stats := c.GetStats()

		Convey("Then the low-hit-rate recommendation appears first", func() {
			So(len(stats.Recommendations), ShouldBeGreaterThanOrEqualTo, 1)
			So(stats.Recommendations[0], ShouldStartWith, "Low cache hit rate")
		})
	})

	Convey("Given a nearly full cache with excellent hits", t, func() {
		c := New(10)
		for i := 0; i < 10; i++ {
			key := Key("P", "file_read", fmt.Sprintf(`{"i":%d}`, i))
			c.Set(key, "v", "file_read", "{}")
			c.Get(key)
			c.Get(key)
		}

		stats := c.GetStats()

		Convey("Then capacity and performance recommendations both appear", func() {
			So(stats.Recommendations, ShouldContain,
				"Cache is near capacity - consider increasing max size")
			So(stats.Recommendations, ShouldContain,
				"Excellent cache performance - current configuration is working well")
		})
	})
}
