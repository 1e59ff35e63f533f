package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/focusengine/internal/adapters/worker"
	model "github.com/okian/focusengine/internal/domain/model"
	weights "github.com/okian/focusengine/internal/domain/weights"
	logging "github.com/okian/focusengine/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockCalibrator struct {
	mu    sync.Mutex
	calls int
	args  [][2]int
	err   error
	ran   chan struct{}
}

func newMockCalibrator() *mockCalibrator {
	return &mockCalibrator{ran: make(chan struct{}, 16)}
}

func (m *mockCalibrator) ComputeWeights(ctx context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error) {
	m.mu.Lock()
	m.calls++
	m.args = append(m.args, [2]int{windowSize, minPlayers})
	err := m.err
	m.mu.Unlock()

	select {
	case m.ran <- struct{}{}:
	default:
	}
	if err != nil {
		return model.ComponentWeightSet{}, err
	}
	return model.ComponentWeightSet{ID: "set-1", PopulationSize: minPlayers}, nil
}

func (m *mockCalibrator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitRun(m *mockCalibrator) bool {
	select {
	case <-m.ran:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestRecalibrator(t *testing.T) {
	convey.Convey("Given a recalibration worker", t, func() {
		_ = logging.Init()
		cal := newMockCalibrator()

		convey.Convey("When the interval is zero", func() {
			w := worker.NewRecalibrator(cal, 0, 3, 100)
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			w.Run(ctx)

			convey.Convey("Then Run returns immediately without calibrating", func() {
				convey.So(w.Enabled(), convey.ShouldBeFalse)
				convey.So(cal.callCount(), convey.ShouldEqual, 0)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When running on a short interval", func() {
			w := worker.NewRecalibrator(cal, 10*time.Millisecond, 4, 120, worker.WithName("test-recalibrator"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.So(waitRun(cal), convey.ShouldBeTrue)
			convey.So(waitRun(cal), convey.ShouldBeTrue)

			shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)

			convey.Convey("Then the window and population threshold are passed through", func() {
				cal.mu.Lock()
				defer cal.mu.Unlock()
				convey.So(cal.calls, convey.ShouldBeGreaterThanOrEqualTo, 2)
				convey.So(cal.args[0], convey.ShouldResemble, [2]int{4, 120})
			})

			convey.Convey("Then a second Shutdown is harmless", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When asked to run on start", func() {
			w := worker.NewRecalibrator(cal, time.Hour, 3, 100, worker.WithRunOnStart(true))
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)

			convey.Convey("Then the first run does not wait for the ticker", func() {
				convey.So(waitRun(cal), convey.ShouldBeTrue)
				cancel()
				shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
				defer stop()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When calibration reports insufficient data", func() {
			cal.err = fmt.Errorf("%w: 12 players", weights.ErrInsufficientData)
			w := worker.NewRecalibrator(cal, time.Hour, 3, 100)

			err := w.RunOnce(context.Background())

			convey.Convey("Then the error is returned and recorded", func() {
				convey.So(errors.Is(err, weights.ErrInsufficientData), convey.ShouldBeTrue)
				st := w.Status()
				convey.So(st.Runs, convey.ShouldEqual, 1)
				convey.So(errors.Is(st.LastErr, weights.ErrInsufficientData), convey.ShouldBeTrue)
				convey.So(st.LastRun.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When calibration fails outright", func() {
			cal.err = errors.New("db down")
			w := worker.NewRecalibrator(cal, time.Hour, 3, 100, worker.WithRunTimeout(time.Second))

			convey.Convey("Then RunOnce surfaces the error", func() {
				convey.So(w.RunOnce(context.Background()), convey.ShouldNotBeNil)
				convey.So(w.Status().Runs, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When Shutdown is called before Run", func() {
			w := worker.NewRecalibrator(cal, time.Hour, 3, 100)

			convey.Convey("Then it returns without blocking", func() {
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}
