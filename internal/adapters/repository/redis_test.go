package repository_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/okian/hotboard/internal/adapters/repository"
	"github.com/okian/hotboard/internal/domain/model"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

// newTestRedis connects to a local Redis and skips the test when none is
// reachable.
func newTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}
	return client, "hotboard-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

func cleanup(client *redis.Client, prefix string) {
	ctx := context.Background()
	iter := client.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

func TestRedisStore(t *testing.T) {
	client, prefix := newTestRedis(t)
	defer func() { _ = client.Close() }()
	defer cleanup(client, prefix)

	Convey("Given a Redis store", t, func() {
		ctx := context.Background()
		s := repository.NewRedisStore(client, repository.WithKeyPrefix(prefix))

		Convey("When recording activity in one pipeline", func() {
			at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
			So(s.RecordActivity(ctx, "t1", at, 3), ShouldBeNil)
			So(s.RecordActivity(ctx, "t1", at.Add(time.Minute), 1), ShouldBeNil)

			Convey("Then buckets and tap should be written", func() {
				d, err := s.BulkGet(ctx, model.Daily, "t1", []int64{model.Daily.BucketKey(at), 1})
				So(err, ShouldBeNil)
				So(d, ShouldResemble, map[int64]int64{model.Daily.BucketKey(at): 4})

				w, _ := s.BulkGet(ctx, model.Weekly, "t1", []int64{model.Weekly.BucketKey(at)})
				So(w[model.Weekly.BucketKey(at)], ShouldEqual, 4)

				ids, _ := s.RangeByTime(ctx, at.Add(time.Minute).Unix(), at.Add(time.Minute).Unix())
				So(ids, ShouldResemble, []string{"t1"})
			})
		})

		Convey("When ranks are set", func() {
			So(s.SetRank(ctx, model.Weekly, "A", 50), ShouldBeNil)
			So(s.SetRank(ctx, model.Weekly, "B", 80), ShouldBeNil)
			So(s.SetRank(ctx, model.Weekly, "D", 10), ShouldBeNil)

			Convey("Then ranges should be descending with absolute ranks", func() {
				entries, err := s.Range(ctx, model.Weekly, 1, 5)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0], ShouldResemble, repository.Entry{Rank: 2, EntityID: "A", Score: 50})
				n, _ := s.Count(ctx, model.Weekly)
				So(n, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a Redis store on a closed client", t, func() {
		closed := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
		_ = closed.Close()
		s := repository.NewRedisStore(closed, repository.WithKeyPrefix(prefix))

		Convey("Then writes should report the store as unavailable", func() {
			err := s.Tap(context.Background(), "x", 1)
			So(errors.Is(err, repository.ErrStoreUnavailable), ShouldBeTrue)
		})
	})
}
