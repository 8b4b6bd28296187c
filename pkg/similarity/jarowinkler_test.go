package similarity

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJaroWinkler(t *testing.T) {
	Convey("Given the Jaro-Winkler kernel", t, func() {
		Convey("When both inputs are empty", func() {
			So(JaroWinkler("", ""), ShouldEqual, 1.0)
		})

		Convey("When one input is empty", func() {
			So(JaroWinkler("foo", ""), ShouldEqual, 0.0)
			So(JaroWinkler("", "foo"), ShouldEqual, 0.0)
		})

		Convey("When the inputs are identical", func() {
			So(JaroWinkler("read_file", "read_file"), ShouldEqual, 1.0)
		})

		Convey("When the inputs differ only by case", func() {
			So(JaroWinkler("Read_File", "read_file"), ShouldEqual, 1.0)
		})

		Convey("When the inputs share a long prefix", func() {
			score := JaroWinkler("read_file", "read_files")
			So(score, ShouldBeGreaterThan, 0.95)
			So(score, ShouldBeLessThanOrEqualTo, 1.0)
		})

		Convey("When the inputs are unrelated", func() {
			So(JaroWinkler("read_file", "zzz"), ShouldBeLessThan, 0.5)
		})

		Convey("Then similarity is symmetric", func() {
			pairs := [][2]string{
				{"read_file", "read_files"},
				{"list_files", "listFiles"},
				{"query_db", "http_request"},
				{"a", "ab"},
			}
			for _, pair := range pairs {
				So(JaroWinkler(pair[0], pair[1]), ShouldEqual, JaroWinkler(pair[1], pair[0]))
			}
		})

		Convey("Then scores stay within [0, 1]", func() {
			pairs := [][2]string{
				{"read_file", "read_files"},
				{"abcdefgh", "hgfedcba"},
				{"x", "y"},
			}
			for _, pair := range pairs {
				score := JaroWinkler(pair[0], pair[1])
				So(score, ShouldBeGreaterThanOrEqualTo, 0.0)
				So(score, ShouldBeLessThanOrEqualTo, 1.0)
			}
		})
	})
}

func TestJaroTranspositions(t *testing.T) {
	Convey("Given two strings with transposed characters", t, func() {
		// "martha" / "marhta" is the classic Jaro example: 6 matches,
		// one transposition pair, J = 0.944, JW = 0.961.
		score := JaroWinkler("martha", "marhta")
		Convey("Then the score lands on the known value", func() {
			So(score, ShouldAlmostEqual, 0.9611, 0.001)
		})
	})
}
