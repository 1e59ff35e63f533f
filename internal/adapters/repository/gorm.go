package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// GormStore is a Store backed by a relational database through gorm.
type GormStore struct {
	db   *gorm.DB
	opts options
}

var _ Store = (*GormStore)(nil)

// gormWriter routes gorm's own log lines through the application logger.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

// Open returns a Store for driver. "memory" ignores dsn and returns a
// MemoryStore; sqlite and postgres connect, migrate and return a GormStore.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverMemory:
		return NewMemoryStore(ctx, opts...), nil
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	o := resolve(opts)
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(gormWriter{log: o.log}, gormLogger.Config{
			SlowThreshold:             o.slowThreshold,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// ":memory:" databases exist per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormStore(ctx, db, opts...)
}

func resolve(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NamedOrNop("repository")
	}
	return o
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...Option) (*GormStore, error) {
	s := &GormStore{db: db, opts: resolve(opts)}
	if err := db.WithContext(ctx).AutoMigrate(
		&model.PlayerSeasonSkill{},
		&model.ApproachSkillBucket{},
		&model.ComponentWeightSet{},
		&model.FocusCacheEntry{},
		&model.Player{},
		&model.TestResult{},
		&model.TestComponentMapping{},
		&model.CalendarEvent{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// DB exposes the underlying connection.
func (s *GormStore) DB() *gorm.DB { return s.db }

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// UpsertPlayerSeasons implements FactStore.
func (s *GormStore) UpsertPlayerSeasons(ctx context.Context, rows []model.PlayerSeasonSkill) (int, error) {
	defer observe("upsert_player_seasons", time.Now())
	if len(rows) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_name"}, {Name: "season"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sg_ott", "sg_app", "sg_arg", "sg_putt", "sg_total",
			"rounds", "events", "wins", "source_version", "ingested_at",
		}),
	}).CreateInBatches(&rows, s.opts.batchSize).Error
	if err != nil {
		return 0, fmt.Errorf("upsert player seasons: %w", err)
	}
	return len(rows), nil
}

// UpsertApproachSkills implements FactStore.
func (s *GormStore) UpsertApproachSkills(ctx context.Context, rows []model.ApproachSkillBucket) (int, error) {
	defer observe("upsert_approach_skills", time.Now())
	if len(rows) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_name"}, {Name: "bucket"}, {Name: "lie"}, {Name: "stat"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "shot_count", "source_version", "ingested_at"}),
	}).CreateInBatches(&rows, s.opts.batchSize).Error
	if err != nil {
		return 0, fmt.Errorf("upsert approach skills: %w", err)
	}
	return len(rows), nil
}

// LatestSeason implements FactStore.
func (s *GormStore) LatestSeason(ctx context.Context) (int, bool, error) {
	var latest sql.NullInt64
	err := s.db.WithContext(ctx).Model(&model.PlayerSeasonSkill{}).
		Select("MAX(season)").Row().Scan(&latest)
	if err != nil {
		return 0, false, err
	}
	return int(latest.Int64), latest.Valid, nil
}

// SeasonSkills implements FactStore.
func (s *GormStore) SeasonSkills(ctx context.Context, start, end int) ([]model.PlayerSeasonSkill, error) {
	defer observe("season_skills", time.Now())
	var out []model.PlayerSeasonSkill
	err := s.db.WithContext(ctx).
		Where("season >= ? AND season <= ?", start, end).
		Order("season ASC, player_name ASC").
		Find(&out).Error
	return out, err
}

// ApproachSkills implements FactStore.
func (s *GormStore) ApproachSkills(ctx context.Context, playerName, stat string) ([]model.ApproachSkillBucket, error) {
	var out []model.ApproachSkillBucket
	err := s.db.WithContext(ctx).
		Where("player_name = ? AND stat = ?", playerName, stat).
		Order("lie ASC, bucket ASC").
		Find(&out).Error
	return out, err
}

// CountPlayerSeasons implements FactStore.
func (s *GormStore) CountPlayerSeasons(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.PlayerSeasonSkill{}).Count(&n).Error
	if err == nil {
		metrics.UpdateRepositoryRows(model.PlayerSeasonSkill{}.TableName(), n)
	}
	return n, err
}

// CountApproachSkills implements FactStore.
func (s *GormStore) CountApproachSkills(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.ApproachSkillBucket{}).Count(&n).Error
	if err == nil {
		metrics.UpdateRepositoryRows(model.ApproachSkillBucket{}.TableName(), n)
	}
	return n, err
}

// ActivateWeightSet implements WeightStore in a single transaction.
func (s *GormStore) ActivateWeightSet(ctx context.Context, set model.ComponentWeightSet) (model.ComponentWeightSet, error) {
	defer observe("activate_weight_set", time.Now())
	set.IsActive = true
	var stored model.ComponentWeightSet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ComponentWeightSet{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate weight sets: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "window_start_season"}, {Name: "window_end_season"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"w_ott", "w_app", "w_arg", "w_putt", "population_size", "is_active", "computed_at",
			}),
		}).Create(&set).Error; err != nil {
			return fmt.Errorf("upsert weight set: %w", err)
		}
		return tx.Where("window_start_season = ? AND window_end_season = ?",
			set.WindowStartSeason, set.WindowEndSeason).Take(&stored).Error
	})
	if err != nil {
		return model.ComponentWeightSet{}, err
	}
	return stored, nil
}

// ActiveWeightSet implements WeightStore.
func (s *GormStore) ActiveWeightSet(ctx context.Context) (model.ComponentWeightSet, error) {
	var w model.ComponentWeightSet
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Take(&w).Error
	return w, notFound(err)
}

// CountWeightSets implements WeightStore.
func (s *GormStore) CountWeightSets(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.ComponentWeightSet{}).Count(&n).Error
	return n, err
}

// GetFocus implements FocusCacheStore.
func (s *GormStore) GetFocus(ctx context.Context, playerID string) (model.FocusCacheEntry, error) {
	var e model.FocusCacheEntry
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Take(&e).Error
	return e, notFound(err)
}

// PutFocus implements FocusCacheStore.
func (s *GormStore) PutFocus(ctx context.Context, entry model.FocusCacheEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		UpdateAll: true,
	}).Create(&entry).Error
}

// DeleteAllFocus implements FocusCacheStore.
func (s *GormStore) DeleteAllFocus(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.FocusCacheEntry{}).Error
}

// Player implements PlayerDirectory.
func (s *GormStore) Player(ctx context.Context, id string) (model.Player, error) {
	var p model.Player
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.RecordErrorByComponent("repository", "not_found")
	}
	return p, notFound(err)
}

// PlayersByCoach implements PlayerDirectory.
func (s *GormStore) PlayersByCoach(ctx context.Context, coachID string) ([]model.Player, error) {
	var out []model.Player
	err := s.db.WithContext(ctx).Where("coach_id = ?", coachID).Order("id ASC").Find(&out).Error
	return out, err
}

// RecentTestResults implements TestResultSource.
func (s *GormStore) RecentTestResults(ctx context.Context, playerID string, limit int) ([]model.TestResult, error) {
	var out []model.TestResult
	q := s.db.WithContext(ctx).Where("player_id = ?", playerID).Order("test_date DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// TestMappings implements MappingSource.
func (s *GormStore) TestMappings(ctx context.Context) ([]model.TestComponentMapping, error) {
	var out []model.TestComponentMapping
	err := s.db.WithContext(ctx).Order("test_number ASC").Find(&out).Error
	return out, err
}

// CountEvents implements CalendarSource.
func (s *GormStore) CountEvents(ctx context.Context, playerID string, since time.Time, eventTypes []string, status string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.CalendarEvent{}).
		Where("player_id = ? AND status = ? AND event_type IN ? AND start_time >= ?", playerID, status, eventTypes, since).
		Count(&n).Error
	return int(n), err
}

// SavePlayers implements Seeder.
func (s *GormStore) SavePlayers(ctx context.Context, players ...model.Player) error {
	if len(players) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&players).Error
}

// SaveTestResults implements Seeder.
func (s *GormStore) SaveTestResults(ctx context.Context, results ...model.TestResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(&results, s.opts.batchSize).Error
}

// SaveMappings implements Seeder.
func (s *GormStore) SaveMappings(ctx context.Context, mappings ...model.TestComponentMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&mappings).Error
}

// SaveCalendarEvents implements Seeder.
func (s *GormStore) SaveCalendarEvents(ctx context.Context, events ...model.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(&events, s.opts.batchSize).Error
}
