package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))
		ctx := context.Background()

		Convey("When an event is enqueued and dequeued", func() {
			ok := q.Enqueue(ctx, model.Event{EventID: "e1", EntityID: "t1", Action: model.ActionHit})
			So(ok, ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			ev := <-q.Dequeue(ctx)

			Convey("Then it should come out unchanged", func() {
				So(ev.EventID, ShouldEqual, "e1")
				So(ev.EntityID, ShouldEqual, "t1")
				So(ev.Action, ShouldEqual, model.ActionHit)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, model.Event{EventID: "e1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.Event{EventID: "e2"}), ShouldBeTrue)

			Convey("Then further events should be rejected", func() {
				So(q.Enqueue(ctx, model.Event{EventID: "e3"}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue should fail", func() {
				So(q.Enqueue(cctx, model.Event{EventID: "e1"}), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed with events buffered", func() {
			So(q.Enqueue(ctx, model.Event{EventID: "e1"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then buffered events should drain and the channel close", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, model.Event{EventID: "e2"}), ShouldBeFalse)

				var got []string
				for ev := range q.Dequeue(ctx) {
					got = append(got, ev.EventID)
				}
				So(got, ShouldResemble, []string{"e1"})
			})
		})
	})
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	Convey("Given producers and one consumer", t, func() {
		q := NewInMemoryQueue(WithCapacity(100))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		const producers, perProducer = 10, 100
		var wg sync.WaitGroup
		for i := 0; i < producers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < perProducer; j++ {
					ev := model.Event{EventID: fmt.Sprintf("e%d_%d", id, j), EntityID: fmt.Sprintf("t%d", id)}
					for !q.Enqueue(ctx, ev) && ctx.Err() == nil {
						time.Sleep(time.Millisecond)
					}
				}
			}(i)
		}

		seen := make(map[string]bool)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range q.Dequeue(ctx) {
				seen[ev.EventID] = true
			}
		}()

		wg.Wait()
		_ = q.Close()
		<-done

		Convey("Then every event should be delivered once", func() {
			So(len(seen), ShouldEqual, producers*perProducer)
		})
	})
}
