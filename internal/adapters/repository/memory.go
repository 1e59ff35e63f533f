package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/pkg/metrics"
)

// MemoryStore is an in-memory Store. Rows are keyed by their composite
// identity, so upserts overwrite in place. Safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	seasons  map[model.SeasonKey]model.PlayerSeasonSkill
	approach map[model.BucketKey]model.ApproachSkillBucket
	weights  map[model.WindowKey]model.ComponentWeightSet
	focus    map[string]model.FocusCacheEntry

	players   map[string]model.Player
	results   map[string][]model.TestResult
	mappings  map[int]model.TestComponentMapping
	calendar  map[string][]model.CalendarEvent
	nextRowID uint

	opts     options
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store and starts the background row count
// updater, which stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := resolve(opts)
	s := &MemoryStore{
		seasons:  make(map[model.SeasonKey]model.PlayerSeasonSkill),
		approach: make(map[model.BucketKey]model.ApproachSkillBucket),
		weights:  make(map[model.WindowKey]model.ComponentWeightSet),
		focus:    make(map[string]model.FocusCacheEntry),
		players:  make(map[string]model.Player),
		results:  make(map[string][]model.TestResult),
		mappings: make(map[int]model.TestComponentMapping),
		calendar: make(map[string][]model.CalendarEvent),
		opts:     o,
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	seasons, approach, weights := len(s.seasons), len(s.approach), len(s.weights)
	s.mu.RUnlock()
	metrics.UpdateRepositoryRows(model.PlayerSeasonSkill{}.TableName(), int64(seasons))
	metrics.UpdateRepositoryRows(model.ApproachSkillBucket{}.TableName(), int64(approach))
	metrics.UpdateRepositoryRows(model.ComponentWeightSet{}.TableName(), int64(weights))
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// UpsertPlayerSeasons implements FactStore.
func (s *MemoryStore) UpsertPlayerSeasons(ctx context.Context, rows []model.PlayerSeasonSkill) (int, error) {
	defer observe("upsert_player_seasons", time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.seasons[r.Key()] = r
	}
	return len(rows), nil
}

// UpsertApproachSkills implements FactStore.
func (s *MemoryStore) UpsertApproachSkills(ctx context.Context, rows []model.ApproachSkillBucket) (int, error) {
	defer observe("upsert_approach_skills", time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.approach[r.Key()] = r
	}
	return len(rows), nil
}

// LatestSeason implements FactStore.
func (s *MemoryStore) LatestSeason(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest, ok := 0, false
	for k := range s.seasons {
		if !ok || k.Season > latest {
			latest, ok = k.Season, true
		}
	}
	return latest, ok, nil
}

// SeasonSkills implements FactStore. Rows are ordered by season then player.
func (s *MemoryStore) SeasonSkills(ctx context.Context, start, end int) ([]model.PlayerSeasonSkill, error) {
	defer observe("season_skills", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.PlayerSeasonSkill, 0, len(s.seasons))
	for k, r := range s.seasons {
		if k.Season >= start && k.Season <= end {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].PlayerName < out[j].PlayerName
	})
	return out, nil
}

// ApproachSkills implements FactStore.
func (s *MemoryStore) ApproachSkills(ctx context.Context, playerName, stat string) ([]model.ApproachSkillBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []model.ApproachSkillBucket
	for k, r := range s.approach {
		if k.PlayerName == playerName && k.Stat == stat {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lie != out[j].Lie {
			return out[i].Lie < out[j].Lie
		}
		return out[i].Bucket < out[j].Bucket
	})
	return out, nil
}

// CountPlayerSeasons implements FactStore.
func (s *MemoryStore) CountPlayerSeasons(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.seasons)), nil
}

// CountApproachSkills implements FactStore.
func (s *MemoryStore) CountApproachSkills(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.approach)), nil
}

// ActivateWeightSet implements WeightStore. An existing set for the same
// window keeps its ID.
func (s *MemoryStore) ActivateWeightSet(ctx context.Context, set model.ComponentWeightSet) (model.ComponentWeightSet, error) {
	defer observe("activate_weight_set", time.Now())
	if err := ctx.Err(); err != nil {
		return model.ComponentWeightSet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, w := range s.weights {
		if w.IsActive {
			w.IsActive = false
			s.weights[k] = w
		}
	}
	if prev, ok := s.weights[set.Window()]; ok {
		set.ID = prev.ID
	}
	set.IsActive = true
	s.weights[set.Window()] = set
	return set, nil
}

// ActiveWeightSet implements WeightStore.
func (s *MemoryStore) ActiveWeightSet(ctx context.Context) (model.ComponentWeightSet, error) {
	if err := ctx.Err(); err != nil {
		return model.ComponentWeightSet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.weights {
		if w.IsActive {
			return w, nil
		}
	}
	return model.ComponentWeightSet{}, ErrNotFound
}

// CountWeightSets implements WeightStore.
func (s *MemoryStore) CountWeightSets(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.weights)), nil
}

// GetFocus implements FocusCacheStore.
func (s *MemoryStore) GetFocus(ctx context.Context, playerID string) (model.FocusCacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return model.FocusCacheEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.focus[playerID]
	if !ok {
		return model.FocusCacheEntry{}, ErrNotFound
	}
	return e, nil
}

// PutFocus implements FocusCacheStore.
func (s *MemoryStore) PutFocus(ctx context.Context, entry model.FocusCacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.focus[entry.PlayerID] = entry
	s.mu.Unlock()
	return nil
}

// DeleteAllFocus implements FocusCacheStore.
func (s *MemoryStore) DeleteAllFocus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.focus = make(map[string]model.FocusCacheEntry)
	s.mu.Unlock()
	return nil
}

// Player implements PlayerDirectory.
func (s *MemoryStore) Player(ctx context.Context, id string) (model.Player, error) {
	if err := ctx.Err(); err != nil {
		return model.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// PlayersByCoach implements PlayerDirectory.
func (s *MemoryStore) PlayersByCoach(ctx context.Context, coachID string) ([]model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []model.Player
	for _, p := range s.players {
		if p.CoachID == coachID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RecentTestResults implements TestResultSource.
func (s *MemoryStore) RecentTestResults(ctx context.Context, playerID string, limit int) ([]model.TestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := slices.Clone(s.results[playerID])
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].TestDate.After(out[j].TestDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TestMappings implements MappingSource.
func (s *MemoryStore) TestMappings(ctx context.Context) ([]model.TestComponentMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.TestComponentMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TestNumber < out[j].TestNumber })
	return out, nil
}

// CountEvents implements CalendarSource.
func (s *MemoryStore) CountEvents(ctx context.Context, playerID string, since time.Time, eventTypes []string, status string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.calendar[playerID] {
		if e.Status == status && !e.StartTime.Before(since) && slices.Contains(eventTypes, e.EventType) {
			n++
		}
	}
	return n, nil
}

// SavePlayers implements Seeder.
func (s *MemoryStore) SavePlayers(ctx context.Context, players ...model.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		s.players[p.ID] = p
	}
	return nil
}

// SaveTestResults implements Seeder.
func (s *MemoryStore) SaveTestResults(ctx context.Context, results ...model.TestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if r.ID == 0 {
			s.nextRowID++
			r.ID = s.nextRowID
		}
		s.results[r.PlayerID] = append(s.results[r.PlayerID], r)
	}
	return nil
}

// SaveMappings implements Seeder.
func (s *MemoryStore) SaveMappings(ctx context.Context, mappings ...model.TestComponentMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mappings {
		s.mappings[m.TestNumber] = m
	}
	return nil
}

// SaveCalendarEvents implements Seeder.
func (s *MemoryStore) SaveCalendarEvents(ctx context.Context, events ...model.CalendarEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.ID == 0 {
			s.nextRowID++
			e.ID = s.nextRowID
		}
		s.calendar[e.PlayerID] = append(s.calendar[e.PlayerID], e)
	}
	return nil
}
