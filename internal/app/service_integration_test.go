package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/focusengine/internal/adapters/archive"
	"github.com/okian/focusengine/internal/adapters/repository"
	service "github.com/okian/focusengine/internal/app"
	"github.com/okian/focusengine/internal/domain/ingest"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const seasonCSV = `player_name,sg_ott,sg_app,sg_arg,sg_putt
Alpha,0.1,1,0.5,0.3
Bravo,0.2,-1,-0.5,-0.3
Charlie,0.1,1,0.5,0.3
Delta,0.2,-1,-0.5,-0.3
`

const approachCSV = `player_name,50_100_fw_sg_per_shot,50_100_fw_shot_count,100_150_fw_sg_per_shot,150_200_fw_sg_per_shot,under_150_rgh_sg_per_shot
"Scheffler, Scottie",0.05,120,-0.02,0.01,-0.30
`

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func seedRoster(t *testing.T, store *repository.MemoryStore, at time.Time) {
	t.Helper()
	ctx := context.Background()
	must := func(err error) {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(store.SavePlayers(ctx,
		model.Player{ID: "p1", FirstName: "Ada", LastName: "Lovelace", CoachID: "c1", DataGolfName: "Scheffler, Scottie"},
		model.Player{ID: "p2", FirstName: "Grace", LastName: "Hopper", CoachID: "c1"},
	))
	must(store.SaveMappings(ctx,
		model.TestComponentMapping{TestNumber: 1, Component: "OTT", Weight: 1},
		model.TestComponentMapping{TestNumber: 2, Component: "APP", Weight: 1},
		model.TestComponentMapping{TestNumber: 3, Component: "ARG", Weight: 1},
		model.TestComponentMapping{TestNumber: 4, Component: "PUTT", Weight: 1},
	))
	must(store.SaveTestResults(ctx,
		model.TestResult{PlayerID: "p1", TestNumber: 1, Value: 80, TestDate: at.AddDate(0, 0, -4)},
		model.TestResult{PlayerID: "p1", TestNumber: 2, Value: 10, TestDate: at.AddDate(0, 0, -3)},
		model.TestResult{PlayerID: "p1", TestNumber: 3, Value: 60, TestDate: at.AddDate(0, 0, -2)},
		model.TestResult{PlayerID: "p1", TestNumber: 4, Value: 70, TestDate: at.AddDate(0, 0, -1)},
		model.TestResult{PlayerID: "p2", TestNumber: 4, Value: 20, TestDate: at.AddDate(0, 0, -1)},
	))
	events := make([]model.CalendarEvent, 0, 6)
	for i := range 6 {
		events = append(events, model.CalendarEvent{
			PlayerID:  "p1",
			EventType: model.EventTypeTrainingSession,
			Status:    model.ParticipantConfirmed,
			StartTime: at.AddDate(0, 0, -i-1),
		})
	}
	must(store.SaveCalendarEvents(ctx, events...))
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		now := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
		store := repository.NewMemoryStore(ctx)
		seedRoster(t, store, now)

		svc, err := service.New(store,
			service.WithCalibrationDefaults(3, 4),
			service.WithCacheTTL(time.Hour),
			service.WithClock(func() time.Time { return now }),
		)
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		data := zipArchive(t, map[string]string{
			"player_season_2024.csv":         seasonCSV,
			"approach_skill_sg_per_shot.csv": approachCSV,
			"README.txt":                     "ignored",
		})

		Convey("When ingesting an archive", func() {
			res, err := svc.Ingest(ctx, data, false)

			Convey("Then both tables are loaded under one source version", func() {
				So(err, ShouldBeNil)
				So(res.Success, ShouldBeTrue)
				So(res.Skipped, ShouldBeFalse)
				So(res.SourceVersion, ShouldHaveLength, 12)
				So(res.PlayerSeasons.Upserted, ShouldEqual, 4)
				So(res.ApproachSkills.Upserted, ShouldEqual, 4)
				So(res.FilesProcessed, ShouldHaveLength, 2)
			})

			Convey("And ingesting the same bytes again is skipped", func() {
				again, err := svc.Ingest(ctx, data, false)
				So(err, ShouldBeNil)
				So(again.Skipped, ShouldBeTrue)
				So(again.SourceVersion, ShouldEqual, res.SourceVersion)

				Convey("But a forced run reprocesses and is idempotent", func() {
					forced, err := svc.Ingest(ctx, data, true)
					So(err, ShouldBeNil)
					So(forced.Skipped, ShouldBeFalse)
					So(forced.PlayerSeasons.Upserted, ShouldEqual, 4)

					stats, err := svc.Stats(ctx)
					So(err, ShouldBeNil)
					So(stats.PlayerSeasons, ShouldEqual, 4)
					So(stats.ApproachSkills, ShouldEqual, 4)
				})
			})

			Convey("And computing weights", func() {
				set, err := svc.ComputeWeights(ctx, 0, 0)

				Convey("Then APP carries the most weight and the set is active", func() {
					So(err, ShouldBeNil)
					So(set.IsActive, ShouldBeTrue)
					So(set.PopulationSize, ShouldEqual, 4)
					So(set.WindowEndSeason, ShouldEqual, 2024)
					So(set.WApp, ShouldBeGreaterThan, set.WArg)
					So(set.WArg, ShouldBeGreaterThan, set.WPutt)
					So(set.WPutt, ShouldBeGreaterThan, set.WOtt)
					So(math.Abs(set.Values().Sum()-1), ShouldBeLessThan, 1e-9)

					current, err := svc.CurrentWeights(ctx)
					So(err, ShouldBeNil)
					So(current.ID, ShouldEqual, set.ID)
				})

				Convey("Then stats report the active set and latest season", func() {
					stats, err := svc.Stats(ctx)
					So(err, ShouldBeNil)
					So(stats.WeightsComputed, ShouldEqual, 1)
					So(stats.CurrentWeights, ShouldNotBeNil)
					So(*stats.LatestSeason, ShouldEqual, 2024)
				})
			})

			Convey("And asking for a player's focus", func() {
				focus, err := svc.PlayerFocus(ctx, "p1", false)

				Convey("Then approach play is the focus with a bounded split", func() {
					So(err, ShouldBeNil)
					So(focus.PlayerName, ShouldEqual, "Ada Lovelace")
					So(focus.FocusComponent, ShouldEqual, types.APP)
					So(focus.FocusScores, ShouldResemble, map[types.Component]int{types.OTT: 20, types.APP: 90, types.ARG: 40, types.PUTT: 30})
					So(focus.ReasonCodes, ShouldResemble, []string{"weak_app_test_cluster", "high_weight_app"})
					So(focus.Confidence, ShouldEqual, types.ConfidenceMed)
					So(focus.ApproachWeakestBucket, ShouldBeEmpty)
					So(math.Abs(focus.RecommendedSplit.Sum()-1), ShouldBeLessThan, 1e-9)
					for _, c := range types.Components {
						So(focus.RecommendedSplit[c], ShouldBeBetweenOrEqual, 0.10, 0.50)
					}
					So(focus.ExpiresAt, ShouldEqual, now.Add(time.Hour))
				})

				Convey("Then weights were calibrated lazily", func() {
					_, err := svc.CurrentWeights(ctx)
					So(err, ShouldBeNil)
				})
			})

			Convey("And asking for approach detail", func() {
				focus, err := svc.PlayerFocus(ctx, "p1", true)

				Convey("Then the weakest fairway bucket is named", func() {
					So(err, ShouldBeNil)
					So(focus.ApproachWeakestBucket, ShouldEqual, "100_150")
					So(focus.ReasonCodes, ShouldContain, "approach_100_150_gap")
				})
			})

			Convey("And asking for a coach's team", func() {
				team, err := svc.TeamFocus(ctx, "c1")

				Convey("Then the untrained player is at risk", func() {
					So(err, ShouldBeNil)
					So(team.PlayerCount, ShouldEqual, 2)
					So(team.Heatmap[types.APP], ShouldEqual, 1)
					So(team.Heatmap[types.PUTT], ShouldEqual, 1)
					So(team.AtRiskPlayers, ShouldHaveLength, 1)
					So(team.AtRiskPlayers[0].PlayerID, ShouldEqual, "p2")
					So(team.AtRiskPlayers[0].AdherenceScore, ShouldEqual, 0)
				})
			})
		})

		Convey("When ingesting bytes that are not a zip archive", func() {
			_, err := svc.Ingest(ctx, []byte("not a zip"), false)

			Convey("Then the archive is rejected", func() {
				So(errors.Is(err, archive.ErrInvalidArchive), ShouldBeTrue)
			})

			Convey("And the version is forgotten so a retry is not skipped", func() {
				_, err := svc.Ingest(ctx, []byte("not a zip"), false)
				So(errors.Is(err, archive.ErrInvalidArchive), ShouldBeTrue)
			})
		})
	})
}

func TestServiceFocusCache(t *testing.T) {
	Convey("Given an ingested and calibrated service", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
		store := repository.NewMemoryStore(ctx)
		seedRoster(t, store, now)

		svc, err := service.New(store,
			service.WithCalibrationDefaults(3, 4),
			service.WithCacheTTL(time.Hour),
			service.WithClock(func() time.Time { return now }),
		)
		So(err, ShouldBeNil)
		_, err = svc.Ingest(ctx, zipArchive(t, map[string]string{"player_season_2024.csv": seasonCSV}), false)
		So(err, ShouldBeNil)

		first, err := svc.PlayerFocus(ctx, "p1", false)
		So(err, ShouldBeNil)

		Convey("When asked again before expiry", func() {
			now = now.Add(30 * time.Minute)
			second, err := svc.PlayerFocus(ctx, "p1", false)

			Convey("Then the cached result is returned", func() {
				So(err, ShouldBeNil)
				So(second.ComputedAt, ShouldEqual, first.ComputedAt)
			})
		})

		Convey("When asked again after expiry", func() {
			now = now.Add(2 * time.Hour)
			second, err := svc.PlayerFocus(ctx, "p1", false)

			Convey("Then it is recomputed", func() {
				So(err, ShouldBeNil)
				So(second.ComputedAt, ShouldEqual, now)
				So(second.ComputedAt.After(first.ComputedAt), ShouldBeTrue)
			})
		})

		Convey("When weights are recomputed", func() {
			_, err := svc.ComputeWeights(ctx, 3, 4)
			So(err, ShouldBeNil)
			now = now.Add(time.Minute)
			second, err := svc.PlayerFocus(ctx, "p1", false)

			Convey("Then cached results are dropped", func() {
				So(err, ShouldBeNil)
				So(second.ComputedAt, ShouldEqual, now)
			})
		})
	})
}

// blockingStore holds the first season upsert until release delivers its
// outcome.
type blockingStore struct {
	*repository.MemoryStore
	calls   atomic.Int32
	entered chan struct{}
	release chan error
}

func (b *blockingStore) UpsertPlayerSeasons(ctx context.Context, rows []model.PlayerSeasonSkill) (int, error) {
	if b.calls.Add(1) == 1 {
		close(b.entered)
		if err := <-b.release; err != nil {
			return 0, err
		}
	}
	return b.MemoryStore.UpsertPlayerSeasons(ctx, rows)
}

func TestServiceIngestInProgress(t *testing.T) {
	Convey("Given an ingestion that is still writing its rows", t, func() {
		ctx := context.Background()
		store := &blockingStore{
			MemoryStore: repository.NewMemoryStore(ctx),
			entered:     make(chan struct{}),
			release:     make(chan error),
		}
		svc, err := service.New(store)
		So(err, ShouldBeNil)
		defer svc.Stop()

		data := zipArchive(t, map[string]string{"player_season_2024.csv": seasonCSV})
		first := make(chan ingest.Result, 1)
		go func() {
			res, _ := svc.Ingest(ctx, data, false)
			first <- res
		}()
		<-store.entered

		Convey("When identical bytes arrive before it finishes and the first run then fails", func() {
			_, dupErr := svc.Ingest(ctx, data, false)
			_, forcedErr := svc.Ingest(ctx, data, true)

			store.release <- errors.New("disk full")
			firstRes := <-first

			res, err := svc.Ingest(ctx, data, false)

			Convey("Then the overlapping uploads are refused instead of reported as skipped", func() {
				So(errors.Is(dupErr, service.ErrIngestInProgress), ShouldBeTrue)
				So(errors.Is(forcedErr, service.ErrIngestInProgress), ShouldBeTrue)
			})

			Convey("Then a retry after the failure runs the ingestion again", func() {
				So(firstRes.Success, ShouldBeFalse)
				So(err, ShouldBeNil)
				So(res.Skipped, ShouldBeFalse)
				So(res.Success, ShouldBeTrue)
				So(res.PlayerSeasons.Upserted, ShouldEqual, 4)
			})
		})
	})
}
