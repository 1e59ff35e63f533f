// Package weights derives component importance weights from the spread of
// the professional reference population.
package weights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/focusengine/internal/adapters/repository"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

// Store is what the calibrator reads and writes.
type Store interface {
	LatestSeason(ctx context.Context) (int, bool, error)
	SeasonSkills(ctx context.Context, start, end int) ([]model.PlayerSeasonSkill, error)
	ActivateWeightSet(ctx context.Context, set model.ComponentWeightSet) (model.ComponentWeightSet, error)
	ActiveWeightSet(ctx context.Context) (model.ComponentWeightSet, error)
}

// Calibrator computes and activates weight sets.
type Calibrator struct {
	store      Store
	log        logger.Logger
	windowSize int
	minPlayers int
	now        func() time.Time
	newID      func() string
}

// NewCalibrator creates a calibrator over store.
func NewCalibrator(store Store, opts ...Option) *Calibrator {
	c := &Calibrator{
		store:      store,
		log:        logger.NamedOrNop("weights"),
		windowSize: DefaultWindowSize,
		minPlayers: DefaultMinPlayers,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute calibrates over the windowSize most recent seasons and activates
// the result. With fewer than minPlayers qualifying player-seasons it returns
// ErrInsufficientData and leaves the active set untouched.
func (c *Calibrator) Compute(ctx context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error) {
	if windowSize <= 0 {
		windowSize = c.windowSize
	}
	if minPlayers <= 0 {
		minPlayers = c.minPlayers
	}

	latest, ok, err := c.store.LatestSeason(ctx)
	if err != nil {
		return c.fail(ctx, "store_error", fmt.Errorf("latest season: %w", err))
	}
	if !ok {
		return c.fail(ctx, "insufficient_data", fmt.Errorf("%w: no seasons ingested", ErrInsufficientData))
	}
	start := latest - windowSize + 1

	rows, err := c.store.SeasonSkills(ctx, start, latest)
	if err != nil {
		return c.fail(ctx, "store_error", fmt.Errorf("season skills: %w", err))
	}

	series := make(map[types.Component][]float64, len(types.Components))
	for _, r := range rows {
		vals, ok := qualifying(r)
		if !ok {
			continue
		}
		for i, comp := range types.Components {
			series[comp] = append(series[comp], vals[i])
		}
	}
	population := len(series[types.OTT])
	if population < minPlayers {
		return c.fail(ctx, "insufficient_data", fmt.Errorf("%w: %d player-seasons in %d-%d, need %d",
			ErrInsufficientData, population, start, latest, minPlayers))
	}

	sds := make(types.ComponentValues, len(types.Components))
	for _, comp := range types.Components {
		sds[comp] = PopulationStdDev(series[comp])
	}
	w := Normalize(sds)
	if err := w.Validate(); err != nil {
		return c.fail(ctx, "invalid_weights", err)
	}

	set, err := c.store.ActivateWeightSet(ctx, model.ComponentWeightSet{
		ID:                c.newID(),
		WindowStartSeason: start,
		WindowEndSeason:   latest,
		WOtt:              w[types.OTT],
		WApp:              w[types.APP],
		WArg:              w[types.ARG],
		WPutt:             w[types.PUTT],
		PopulationSize:    population,
		IsActive:          true,
		ComputedAt:        c.now().UTC(),
	})
	if err != nil {
		return c.fail(ctx, "store_error", fmt.Errorf("activate weight set: %w", err))
	}

	metrics.RecordCalibration("success")
	metrics.UpdateActiveWeights(population, set.WOtt, set.WApp, set.WArg, set.WPutt)
	c.log.Info(ctx, "weights calibrated",
		logger.Int("window_start", start),
		logger.Int("window_end", latest),
		logger.Int("population", population),
		logger.Float64("w_ott", set.WOtt),
		logger.Float64("w_app", set.WApp),
		logger.Float64("w_arg", set.WArg),
		logger.Float64("w_putt", set.WPutt),
	)
	return set, nil
}

func (c *Calibrator) fail(ctx context.Context, kind string, err error) (model.ComponentWeightSet, error) {
	metrics.RecordCalibration(kind)
	metrics.RecordErrorByComponent("weights", kind)
	c.log.Warn(ctx, "calibration failed", logger.Error(err))
	return model.ComponentWeightSet{}, err
}

// qualifying returns the four component values in evaluation order when all
// are present and above the sentinel floor.
func qualifying(r model.PlayerSeasonSkill) ([4]float64, bool) {
	var out [4]float64
	for i, v := range []*float64{r.SgOtt, r.SgApp, r.SgArg, r.SgPutt} {
		if v == nil || *v <= sentinelFloor {
			return out, false
		}
		out[i] = *v
	}
	return out, true
}

// Active returns the active weight set or ErrNoActiveWeights.
func (c *Calibrator) Active(ctx context.Context) (model.ComponentWeightSet, error) {
	set, err := c.store.ActiveWeightSet(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ComponentWeightSet{}, ErrNoActiveWeights
	}
	if err != nil {
		return model.ComponentWeightSet{}, fmt.Errorf("active weight set: %w", err)
	}
	return set, nil
}

// ActiveOrCompute returns the active set, calibrating with the configured
// defaults when none exists yet.
func (c *Calibrator) ActiveOrCompute(ctx context.Context) (model.ComponentWeightSet, error) {
	set, err := c.Active(ctx)
	if !errors.Is(err, ErrNoActiveWeights) {
		return set, err
	}
	c.log.Info(ctx, "no active weights, calibrating", logger.Int("window_size", c.windowSize), logger.Int("min_players", c.minPlayers))
	return c.Compute(ctx, c.windowSize, c.minPlayers)
}
