// Package service wires the focus engine components behind the operations
// the HTTP API and batch tools call.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/focusengine/internal/adapters/archive"
	"github.com/okian/focusengine/internal/adapters/cache"
	"github.com/okian/focusengine/internal/adapters/repository"
	"github.com/okian/focusengine/internal/adapters/worker"
	"github.com/okian/focusengine/internal/domain/dedupe"
	"github.com/okian/focusengine/internal/domain/ingest"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/roster"
	"github.com/okian/focusengine/internal/domain/scoring"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/internal/domain/weights"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

const workerShutdownTimeout = 5 * time.Second

// Service implements the focus engine operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	cache        cache.Cache
	deduper      dedupe.Deduper
	loader       *ingest.Loader
	calibrator   *weights.Calibrator
	scorer       *scoring.Scorer
	roster       *roster.Aggregator
	recalibrator *worker.Recalibrator

	// Configuration
	cacheTTL            time.Duration
	windowSize          int
	minPlayers          int
	targetPercentile    float64
	splitFloor          float64
	splitCeiling        float64
	maxTestResults      int
	adherenceThreshold  int
	adherenceWindow     time.Duration
	rosterConcurrency   int
	recalibrateInterval time.Duration
	dedupeSize          int

	// Source versions with an ingestion run under way.
	ingestMu  sync.Mutex
	ingesting map[string]struct{}

	// State
	started    bool
	closed     bool
	stopWorker context.CancelFunc

	now    func() time.Time
	logger logger.Logger
}

// New builds a Service over store. Invalid scoring bounds are rejected here.
func New(store repository.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:              store,
		cacheTTL:           cache.DefaultTTL,
		windowSize:         weights.DefaultWindowSize,
		minPlayers:         weights.DefaultMinPlayers,
		targetPercentile:   scoring.DefaultTargetPercentile,
		splitFloor:         scoring.DefaultSplitFloor,
		splitCeiling:       scoring.DefaultSplitCeiling,
		maxTestResults:     scoring.DefaultMaxTestResults,
		adherenceThreshold: roster.DefaultAdherenceThreshold,
		adherenceWindow:    roster.DefaultAdherenceWindow,
		rosterConcurrency:  roster.DefaultConcurrency,
		dedupeSize:         1024,
		ingesting:          make(map[string]struct{}),
		now:                time.Now,
		logger:             logger.NamedOrNop("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	scorer, err := scoring.NewScorer(
		scoring.WithTargetPercentile(s.targetPercentile),
		scoring.WithSplitBounds(s.splitFloor, s.splitCeiling),
		scoring.WithMaxTestResults(s.maxTestResults),
	)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	s.scorer = scorer

	if s.cache == nil {
		s.cache = cache.NewStoreCache(store, cache.WithStoreClock(s.now))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.loader = ingest.NewLoader(store,
		ingest.WithLogger(s.logger.Named("ingest")),
		ingest.WithClock(s.now),
	)
	s.calibrator = weights.NewCalibrator(store,
		weights.WithLogger(s.logger.Named("weights")),
		weights.WithDefaults(s.windowSize, s.minPlayers),
		weights.WithClock(s.now),
	)
	s.roster = roster.NewAggregator(store, s.calibrator, s.scorer,
		roster.WithLogger(s.logger.Named("roster")),
		roster.WithAdherenceThreshold(s.adherenceThreshold),
		roster.WithAdherenceWindow(s.adherenceWindow),
		roster.WithConcurrency(s.rosterConcurrency),
		roster.WithClock(s.now),
	)
	return s, nil
}

// Start launches background recalibration when it is enabled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting focus service...")
	s.recalibrator = worker.NewRecalibrator(s, s.recalibrateInterval, s.windowSize, s.minPlayers,
		worker.WithLogger(s.logger.Named("worker")),
	)
	if s.recalibrator.Enabled() {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopWorker = cancel
		go s.recalibrator.Run(wctx)
	}

	s.started = true
	s.logger.Info(ctx, "focus service started",
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("windowSize", s.windowSize),
		logger.Int("minPlayers", s.minPlayers),
		logger.Duration("recalibrateInterval", s.recalibrateInterval),
	)
	return nil
}

// Stop shuts down the worker and closes the cache and store. It is safe to
// call on a service that was never started; the service cannot be reused.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping focus service...")

	if s.stopWorker != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
		if err := s.recalibrator.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "recalibration worker did not stop", logger.Error(err))
		}
		cancel()
		s.stopWorker()
		s.stopWorker = nil
	}
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "error closing cache", logger.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.closed = true
	s.logger.Info(ctx, "focus service stopped")
}

// Started reports whether Start has run without a matching Stop.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Ingest decodes a zip archive and loads every CSV in it. An archive whose
// source version was already ingested is skipped unless force is set; one
// whose ingestion is still running returns ErrIngestInProgress, forced or not.
func (s *Service) Ingest(ctx context.Context, data []byte, force bool) (ingest.Result, error) {
	start := time.Now()
	version := ingest.SourceVersion(data)

	skip, err := s.claim(ctx, version, force)
	if err != nil {
		metrics.RecordIngestRun("in_progress", time.Since(start))
		return ingest.Result{}, err
	}
	if skip {
		metrics.RecordIngestRun("skipped", time.Since(start))
		s.logger.Info(ctx, "archive already ingested", logger.String("sourceVersion", version))
		return ingest.Result{
			Success:        true,
			SourceVersion:  version,
			FilesProcessed: []string{},
			Errors:         []string{},
			Skipped:        true,
		}, nil
	}
	defer s.release(version)

	files, err := archive.Decode(data)
	if err != nil {
		s.deduper.Unrecord(ctx, version)
		metrics.RecordIngestRun("failed", time.Since(start))
		metrics.RecordErrorByComponent("ingest", "archive_error")
		return ingest.Result{}, fmt.Errorf("decode archive: %w", err)
	}

	res := s.IngestFiles(ctx, files, version)
	if !res.Success {
		// Rows already written stay; forgetting the version lets a fixed
		// archive with the same bytes be retried.
		s.deduper.Unrecord(ctx, version)
	}
	return res, nil
}

// claim decides whether a run for version may start. A completed version is
// skipped unless forced; a version another run still holds is refused. A
// successful claim must be paired with release.
func (s *Service) claim(ctx context.Context, version string, force bool) (skip bool, err error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if _, running := s.ingesting[version]; running {
		return false, fmt.Errorf("%w: %s", ErrIngestInProgress, version)
	}
	if s.deduper.SeenAndRecord(ctx, version) && !force {
		return true, nil
	}
	s.ingesting[version] = struct{}{}
	return false, nil
}

func (s *Service) release(version string) {
	s.ingestMu.Lock()
	delete(s.ingesting, version)
	s.ingestMu.Unlock()
}

// IngestFiles loads already-decoded files under sourceVersion.
func (s *Service) IngestFiles(ctx context.Context, files []ingest.File, sourceVersion string) ingest.Result {
	start := time.Now()
	res := s.loader.Ingest(ctx, files, sourceVersion)

	outcome := "success"
	switch {
	case !res.Success && len(res.FilesProcessed) == 0:
		outcome = "failed"
	case !res.Success:
		outcome = "partial"
	}
	metrics.RecordIngestRun(outcome, time.Since(start))
	s.logger.Info(ctx, "ingestion finished",
		logger.String("sourceVersion", sourceVersion),
		logger.String("outcome", outcome),
		logger.Int("files", len(res.FilesProcessed)),
		logger.Int("playerSeasons", res.PlayerSeasons.Upserted),
		logger.Int("approachSkills", res.ApproachSkills.Upserted),
		logger.Int("rowsSkipped", res.RowsSkipped),
		logger.Int("errors", len(res.Errors)),
	)
	return res
}

// ComputeWeights calibrates and activates a new weight set. Zero arguments
// fall back to the configured defaults. Cached focus results are dropped
// afterwards; a failure to drop them is logged, not returned.
func (s *Service) ComputeWeights(ctx context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error) {
	set, err := s.calibrator.Compute(ctx, windowSize, minPlayers)
	if err != nil {
		return model.ComponentWeightSet{}, err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		metrics.RecordErrorByComponent("service", "cache_invalidate_error")
		s.logger.Warn(ctx, "cache invalidation after calibration failed", logger.Error(err))
	}
	return set, nil
}

// CurrentWeights returns the active weight set or weights.ErrNoActiveWeights.
func (s *Service) CurrentWeights(ctx context.Context) (model.ComponentWeightSet, error) {
	return s.calibrator.Active(ctx)
}

// PlayerFocus returns the cached focus for a player or computes and caches
// a fresh one. Approach detail is added only when APP is the focus and the
// player is linked to professional approach data.
func (s *Service) PlayerFocus(ctx context.Context, playerID string, includeApproachDetail bool) (types.PlayerFocus, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFocusLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	player, err := s.store.Player(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return types.PlayerFocus{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if err != nil {
		return types.PlayerFocus{}, fmt.Errorf("load player: %w", err)
	}

	cached, ok, err := s.cache.Get(ctx, playerID)
	switch {
	case err != nil:
		s.logger.Warn(ctx, "focus cache read failed", logger.String("playerId", playerID), logger.Error(err))
	case ok:
		metrics.RecordFocusRequest("cache")
		return *cached, nil
	}

	set, err := s.calibrator.ActiveOrCompute(ctx)
	if err != nil {
		return types.PlayerFocus{}, err
	}
	mappings, err := s.store.TestMappings(ctx)
	if err != nil {
		return types.PlayerFocus{}, fmt.Errorf("test mappings: %w", err)
	}
	results, err := s.store.RecentTestResults(ctx, playerID, s.scorer.MaxTestResults())
	if err != nil {
		return types.PlayerFocus{}, fmt.Errorf("test results: %w", err)
	}

	out := s.scorer.Score(scoring.Input{Results: results, Mappings: mappings, Weights: set.Values()})
	now := s.now().UTC()
	focus := types.PlayerFocus{
		PlayerID:         player.ID,
		PlayerName:       player.FullName(),
		FocusComponent:   out.FocusComponent,
		FocusScores:      out.FocusScores,
		RecommendedSplit: out.RecommendedSplit,
		ReasonCodes:      out.ReasonCodes,
		Confidence:       out.Confidence,
		ComputedAt:       now,
		ExpiresAt:        now.Add(s.cacheTTL),
	}

	if includeApproachDetail && out.FocusComponent == types.APP && player.DataGolfName != "" {
		rows, err := s.store.ApproachSkills(ctx, player.DataGolfName, scoring.ApproachDetailStat)
		if err != nil {
			s.logger.Warn(ctx, "approach detail unavailable", logger.String("playerId", playerID), logger.Error(err))
		} else if bucket := scoring.WeakestApproachBucket(rows); bucket != "" {
			focus.ApproachWeakestBucket = bucket
			focus.ReasonCodes = append(focus.ReasonCodes, scoring.ApproachReasonCode(bucket))
		}
	}

	if err := s.cache.Put(ctx, playerID, focus, s.cacheTTL); err != nil {
		s.logger.Warn(ctx, "focus cache write failed", logger.String("playerId", playerID), logger.Error(err))
	}

	metrics.RecordFocusRequest("computed")
	metrics.RecordFocusComponent(string(focus.FocusComponent))
	s.logger.Debug(ctx, "player focus computed",
		logger.String("playerId", playerID),
		logger.String("focus", string(focus.FocusComponent)),
		logger.String("confidence", string(focus.Confidence)),
		logger.Int("tests", out.TestCount),
	)
	return focus, nil
}

// TeamFocus returns the roster heatmap and at-risk list for a coach.
func (s *Service) TeamFocus(ctx context.Context, coachID string) (types.TeamFocus, error) {
	return s.roster.TeamFocus(ctx, coachID)
}

// Stats summarizes the fact store and weight history.
func (s *Service) Stats(ctx context.Context) (types.IngestionStats, error) {
	var (
		stats types.IngestionStats
		err   error
	)
	if stats.PlayerSeasons, err = s.store.CountPlayerSeasons(ctx); err != nil {
		return types.IngestionStats{}, fmt.Errorf("count player seasons: %w", err)
	}
	if stats.ApproachSkills, err = s.store.CountApproachSkills(ctx); err != nil {
		return types.IngestionStats{}, fmt.Errorf("count approach skills: %w", err)
	}
	if stats.WeightsComputed, err = s.store.CountWeightSets(ctx); err != nil {
		return types.IngestionStats{}, fmt.Errorf("count weight sets: %w", err)
	}

	set, err := s.calibrator.Active(ctx)
	switch {
	case err == nil:
		stats.CurrentWeights = set
	case !errors.Is(err, weights.ErrNoActiveWeights):
		return types.IngestionStats{}, err
	}

	season, ok, err := s.store.LatestSeason(ctx)
	if err != nil {
		return types.IngestionStats{}, fmt.Errorf("latest season: %w", err)
	}
	if ok {
		stats.LatestSeason = &season
	}
	return stats, nil
}

// DedupeSize returns how many archive versions are currently remembered.
func (s *Service) DedupeSize() int64 {
	return s.deduper.Size()
}
