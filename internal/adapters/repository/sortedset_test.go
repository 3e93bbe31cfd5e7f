package repository

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func ids(ms []member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.id
	}
	return out
}

func TestSortedSet(t *testing.T) {
	Convey("Given an empty sorted set", t, func() {
		s := newSortedSet()

		Convey("Then reads should be empty", func() {
			So(s.Len(), ShouldEqual, 0)
			So(s.RevRange(0, 10), ShouldBeEmpty)
			So(s.RangeByScore(0, 100), ShouldBeEmpty)
		})

		Convey("When members are set", func() {
			s.Set("A", 50)
			s.Set("B", 80)
			s.Set("C", 80)
			s.Set("D", 10)

			Convey("Then a reverse range should be score descending", func() {
				got := ids(s.RevRange(0, 4))
				So(got, ShouldResemble, []string{"C", "B", "A", "D"})
			})

			Convey("And offsets should skip from the top", func() {
				So(ids(s.RevRange(1, 2)), ShouldResemble, []string{"B", "A"})
				So(ids(s.RevRange(3, 10)), ShouldResemble, []string{"D"})
				So(s.RevRange(4, 10), ShouldBeEmpty)
			})

			Convey("And a score range should be inclusive on both ends", func() {
				So(s.RangeByScore(10, 50), ShouldResemble, []string{"D", "A"})
				So(s.RangeByScore(51, 79), ShouldBeEmpty)
				So(s.RangeByScore(80, 80), ShouldResemble, []string{"B", "C"})
			})

			Convey("And setting a member again should overwrite its score", func() {
				s.Set("D", 100)
				So(s.Len(), ShouldEqual, 4)
				v, ok := s.Score("D")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 100)
				So(ids(s.RevRange(0, 1)), ShouldResemble, []string{"D"})
				So(s.RangeByScore(0, 20), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a large randomized set", t, func() {
		s := newSortedSet()
		r := rand.New(rand.NewSource(7))
		want := make(map[string]float64)
		for i := 0; i < 2000; i++ {
			id := fmt.Sprintf("e%d", r.Intn(500))
			score := float64(r.Intn(100))
			s.Set(id, score)
			want[id] = score
		}

		Convey("Then the treap should agree with a sorted copy", func() {
			type kv struct {
				id    string
				score float64
			}
			all := make([]kv, 0, len(want))
			for id, sc := range want {
				all = append(all, kv{id, sc})
			}
			sort.Slice(all, func(i, j int) bool {
				if all[i].score != all[j].score {
					return all[i].score > all[j].score
				}
				return all[i].id > all[j].id
			})

			So(s.Len(), ShouldEqual, len(all))
			So(nsize(s.root), ShouldEqual, len(all))
			got := s.RevRange(0, len(all))
			So(len(got), ShouldEqual, len(all))
			for i := range all {
				So(got[i].id, ShouldEqual, all[i].id)
				So(got[i].score, ShouldEqual, all[i].score)
			}

			page := s.RevRange(100, 25)
			So(len(page), ShouldEqual, 25)
			So(page[0].id, ShouldEqual, all[100].id)
			So(page[24].id, ShouldEqual, all[124].id)
		})
	})
}
