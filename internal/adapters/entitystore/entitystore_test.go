package entitystore_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/okian/hotboard/internal/adapters/entitystore"
	"github.com/okian/hotboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type store interface {
	Upsert(ctx context.Context, entities ...model.Entity) error
	Delete(ctx context.Context, id string) error
	FindByIDs(ctx context.Context, ids []string) ([]model.Entity, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

func ids(es []model.Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	sort.Strings(out)
	return out
}

func exerciseStore(newStore func() store) {
	ctx := context.Background()
	s := newStore()
	defer func() { _ = s.Close() }()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	So(s.Upsert(ctx,
		model.Entity{ID: "a", Title: "Alpha", Author: "ann", CreatedAt: created},
		model.Entity{ID: "b", Title: "Beta", Author: "bob"},
		model.Entity{ID: "c", Title: "Gamma", Author: "cat"},
	), ShouldBeNil)

	Convey("When finding a mix of present and missing ids", func() {
		got, err := s.FindByIDs(ctx, []string{"c", "missing", "a"})

		Convey("Then only present entities should come back", func() {
			So(err, ShouldBeNil)
			So(ids(got), ShouldResemble, []string{"a", "c"})
			for _, e := range got {
				if e.ID == "a" {
					So(e.Title, ShouldEqual, "Alpha")
					So(e.CreatedAt.Equal(created), ShouldBeTrue)
				}
			}
		})
	})

	Convey("When finding no ids", func() {
		got, err := s.FindByIDs(ctx, nil)

		Convey("Then the result should be empty", func() {
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})
	})

	Convey("When an entity is upserted again", func() {
		So(s.Upsert(ctx, model.Entity{ID: "b", Title: "Beta 2", Author: "bob"}), ShouldBeNil)
		got, _ := s.FindByIDs(ctx, []string{"b"})
		n, _ := s.Count(ctx)

		Convey("Then it should be replaced in place", func() {
			So(len(got), ShouldEqual, 1)
			So(got[0].Title, ShouldEqual, "Beta 2")
			So(n, ShouldEqual, 3)
		})
	})

	Convey("When an entity is deleted", func() {
		So(s.Delete(ctx, "c"), ShouldBeNil)
		So(s.Delete(ctx, "never"), ShouldBeNil)
		got, _ := s.FindByIDs(ctx, []string{"a", "b", "c"})

		Convey("Then it should no longer be found", func() {
			So(ids(got), ShouldResemble, []string{"a", "b"})
		})
	})

	Convey("When upserting an entity without id", func() {
		err := s.Upsert(ctx, model.Entity{Title: "nameless"})

		Convey("Then it should be rejected", func() {
			So(errors.Is(err, entitystore.ErrEmptyID), ShouldBeTrue)
		})
	})
}

func TestMemory(t *testing.T) {
	Convey("Given an in-memory entity store", t, func() {
		exerciseStore(func() store { return entitystore.NewMemory() })
	})
}

func TestSQLStore(t *testing.T) {
	Convey("Given a SQLite entity store", t, func() {
		exerciseStore(func() store {
			s, err := entitystore.Open(context.Background(), "sqlite", ":memory:")
			So(err, ShouldBeNil)
			return s
		})
	})

	Convey("Given an unknown driver", t, func() {
		_, err := entitystore.Open(context.Background(), "oracle", "")

		Convey("Then Open should fail", func() {
			So(errors.Is(err, entitystore.ErrUnknownDriver), ShouldBeTrue)
		})
	})
}
