package service_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/standings/internal/adapters/extractor"
	"github.com/okian/standings/internal/adapters/repository/history"
	"github.com/okian/standings/internal/adapters/source"
	service "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/devboard"
	"github.com/okian/standings/internal/domain/model"
)

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a live board, the extraction endpoint and sqlite history", t, func() {
		ctx := context.Background()
		board := devboard.NewServer(devboard.Config{
			Players:    5,
			Seed:       9,
			Duplicates: true,
			QuotaAfter: 3,
			APIKey:     "test-key",
		}, nil)
		ts := httptest.NewServer(board.Handler())
		Reset(ts.Close)

		fetcher, err := source.New(ts.URL+"/leaderboard", source.WithTimeout(2*time.Second))
		So(err, ShouldBeNil)
		ext := extractor.New(
			extractor.WithEndpoint(ts.URL+"/v1beta"),
			extractor.WithAPIKey("test-key"),
			extractor.WithTimeout(2*time.Second),
		)
		hist, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
		So(err, ShouldBeNil)
		Reset(func() { _ = hist.Close() })

		svc := service.New(fetcher, ext,
			service.WithInterval(time.Hour),
			service.WithHistory(hist),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		runSettled := func(n int64) bool {
			return eventually(func() bool {
				return board.Calls() >= n && !svc.State(ctx).InProgress
			})
		}

		Convey("When the first run completes", func() {
			So(runSettled(1), ShouldBeTrue)
			first := svc.State(ctx)

			Convey("Then the duplicated leader is collapsed and nothing has changed yet", func() {
				So(first.Error, ShouldBeEmpty)
				So(first.Snapshot.Len(), ShouldEqual, 5)
				for _, e := range first.Snapshot.Entries {
					So(e.PointChange, ShouldEqual, 0)
				}
			})

			Convey("And the next run reports each player's gain", func() {
				prev := map[string]float64{}
				for _, e := range first.Snapshot.Entries {
					prev[e.Name] = e.Score
				}
				So(svc.Refresh(ctx), ShouldBeNil)
				So(runSettled(2), ShouldBeTrue)

				second := svc.State(ctx)
				So(second.Snapshot.Len(), ShouldEqual, 5)
				for i, e := range second.Snapshot.Entries {
					So(e.PointChange, ShouldEqual, e.Score-prev[e.Name])
					if i > 0 {
						So(e.Score, ShouldBeLessThanOrEqualTo, second.Snapshot.Entries[i-1].Score)
					}
				}

				list, err := svc.History(ctx, 10)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].Leader, ShouldEqual, second.Snapshot.Entries[0].Name)
			})

			Convey("And running out of quota stops refresh but keeps the data", func() {
				So(svc.Refresh(ctx), ShouldBeNil)
				So(runSettled(2), ShouldBeTrue)
				So(svc.Refresh(ctx), ShouldBeNil)
				So(runSettled(3), ShouldBeTrue)
				kept := svc.State(ctx).Snapshot

				So(svc.Refresh(ctx), ShouldBeNil)
				So(runSettled(4), ShouldBeTrue)

				st := svc.State(ctx)
				So(st.Scheduler, ShouldEqual, model.SchedulerStopped)
				So(st.ErrorKind, ShouldEqual, model.FailureQuota)
				So(st.Snapshot, ShouldResemble, kept)

				n, err := hist.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})
	})
}
