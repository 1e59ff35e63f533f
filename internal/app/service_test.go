package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/focusengine/internal/adapters/repository"
	service "github.com/okian/focusengine/internal/app"
	"github.com/okian/focusengine/internal/config"
	"github.com/okian/focusengine/internal/domain/scoring"
	"github.com/okian/focusengine/internal/domain/weights"
	"github.com/okian/focusengine/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc, err := service.New(repository.NewMemoryStore(context.Background()))

		Convey("Then it should be created successfully", func() {
			So(err, ShouldBeNil)
			So(svc, ShouldNotBeNil)
			So(svc.Started(), ShouldBeFalse)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc, err := service.New(repository.NewMemoryStore(context.Background()),
			service.WithCacheTTL(time.Hour),
			service.WithCalibrationDefaults(2, 10),
			service.WithTargetPercentile(80),
			service.WithMaxTestResults(20),
			service.WithAdherence(40, 14*24*time.Hour),
			service.WithRosterConcurrency(2),
			service.WithDedupeSize(16),
		)

		Convey("Then it should be created successfully", func() {
			So(err, ShouldBeNil)
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given split bounds that cannot sum to one", t, func() {
		_, err := service.New(repository.NewMemoryStore(context.Background()),
			service.WithSplitBounds(0.30, 0.50),
		)

		Convey("Then construction fails", func() {
			So(errors.Is(err, scoring.ErrInvalidBounds), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc, err := service.New(repository.NewMemoryStore(context.Background()))
		So(err, ShouldBeNil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				So(svc.Started(), ShouldBeTrue)
			})

			Convey("And a second Start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.Started(), ShouldBeTrue)
			})

			Convey("And after stopping it should be marked as stopped", func() {
				svc.Stop()
				So(svc.Started(), ShouldBeFalse)
				So(func() { svc.Stop() }, ShouldNotPanic)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
			})
		})

		Convey("When stopped without ever starting", func() {
			svc.Stop()

			Convey("Then it cannot be started afterwards", func() {
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with background recalibration", t, func() {
		svc, err := service.New(repository.NewMemoryStore(context.Background()),
			service.WithRecalibrateInterval(5*time.Millisecond),
		)
		So(err, ShouldBeNil)

		Convey("When started and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			time.Sleep(20 * time.Millisecond)

			Convey("Then it shuts down cleanly with no data ingested", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
				So(svc.Started(), ShouldBeFalse)
			})
		})
	})
}

func TestService_EmptyStore(t *testing.T) {
	Convey("Given a service over an empty store", t, func() {
		ctx := context.Background()
		svc, err := service.New(repository.NewMemoryStore(ctx))
		So(err, ShouldBeNil)

		Convey("When computing weights", func() {
			_, err := svc.ComputeWeights(ctx, 3, 100)

			Convey("Then there is not enough data", func() {
				So(errors.Is(err, weights.ErrInsufficientData), ShouldBeTrue)
			})
		})

		Convey("When reading current weights", func() {
			_, err := svc.CurrentWeights(ctx)

			Convey("Then none are active", func() {
				So(errors.Is(err, weights.ErrNoActiveWeights), ShouldBeTrue)
			})
		})

		Convey("When asking for an unknown player", func() {
			_, err := svc.PlayerFocus(ctx, "ghost", false)

			Convey("Then the player is not found", func() {
				So(errors.Is(err, service.ErrPlayerNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			stats, err := svc.Stats(ctx)

			Convey("Then every count is zero and nothing is current", func() {
				So(err, ShouldBeNil)
				So(stats.PlayerSeasons, ShouldEqual, 0)
				So(stats.ApproachSkills, ShouldEqual, 0)
				So(stats.WeightsComputed, ShouldEqual, 0)
				So(stats.CurrentWeights, ShouldBeNil)
				So(stats.LatestSeason, ShouldBeNil)
			})
		})

		Convey("When asking for a coach with no roster", func() {
			team, err := svc.TeamFocus(ctx, "coach-x")

			Convey("Then an empty team view is returned", func() {
				So(err, ShouldBeNil)
				So(team.PlayerCount, ShouldEqual, 0)
				So(team.AtRiskPlayers, ShouldBeEmpty)
			})
		})
	})
}

func TestFromConfig(t *testing.T) {
	Convey("Given a memory-backed configuration", t, func() {
		cfg := config.New()
		cfg.DBDriver = "memory"
		cfg.DBDSN = ""

		Convey("When building the service", func() {
			svc, err := service.FromConfig(context.Background(), cfg, nil)

			Convey("Then it is ready to start", func() {
				So(err, ShouldBeNil)
				So(svc.Start(context.Background()), ShouldBeNil)
				svc.Stop()
			})
		})

		Convey("When the redis URL is malformed", func() {
			cfg.RedisURL = "://nope"
			_, err := service.FromConfig(context.Background(), cfg, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("When the driver is unknown", func() {
			cfg.DBDriver = "mysql"
			_, err := service.FromConfig(context.Background(), cfg, nil)
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
		})
	})
}
