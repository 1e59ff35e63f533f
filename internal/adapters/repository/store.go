// Package repository defines the row store interfaces the focus engine reads
// and writes, with in-memory and gorm-backed implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/focusengine/internal/domain/model"
)

// FactStore holds the professional reference dataset.
type FactStore interface {
	// UpsertPlayerSeasons inserts or overwrites rows keyed by (player, season).
	// Returns the number of rows written.
	UpsertPlayerSeasons(ctx context.Context, rows []model.PlayerSeasonSkill) (int, error)
	// UpsertApproachSkills inserts or overwrites rows keyed by (player, bucket, lie, stat).
	UpsertApproachSkills(ctx context.Context, rows []model.ApproachSkillBucket) (int, error)

	// LatestSeason returns the highest season stored; ok is false when there are none.
	LatestSeason(ctx context.Context) (season int, ok bool, err error)
	// SeasonSkills returns rows with start <= season <= end.
	SeasonSkills(ctx context.Context, start, end int) ([]model.PlayerSeasonSkill, error)
	// ApproachSkills returns every bucket row for one player and stat.
	ApproachSkills(ctx context.Context, playerName, stat string) ([]model.ApproachSkillBucket, error)

	CountPlayerSeasons(ctx context.Context) (int64, error)
	CountApproachSkills(ctx context.Context) (int64, error)
}

// WeightStore persists calibrated weight sets.
type WeightStore interface {
	// ActivateWeightSet deactivates every active set and upserts set as the
	// active one, atomically. Returns the stored row.
	ActivateWeightSet(ctx context.Context, set model.ComponentWeightSet) (model.ComponentWeightSet, error)
	// ActiveWeightSet returns ErrNotFound when no set is active.
	ActiveWeightSet(ctx context.Context) (model.ComponentWeightSet, error)
	CountWeightSets(ctx context.Context) (int64, error)
}

// FocusCacheStore persists computed focus results.
type FocusCacheStore interface {
	// GetFocus returns ErrNotFound when the player has no entry, expired or not.
	GetFocus(ctx context.Context, playerID string) (model.FocusCacheEntry, error)
	PutFocus(ctx context.Context, entry model.FocusCacheEntry) error
	DeleteAllFocus(ctx context.Context) error
}

// PlayerDirectory resolves coached players.
type PlayerDirectory interface {
	// Player returns ErrNotFound for an unknown id.
	Player(ctx context.Context, id string) (model.Player, error)
	// PlayersByCoach returns the roster ordered by id.
	PlayersByCoach(ctx context.Context, coachID string) ([]model.Player, error)
}

// TestResultSource reads skill-test measurements.
type TestResultSource interface {
	// RecentTestResults returns at most limit results, newest first.
	RecentTestResults(ctx context.Context, playerID string, limit int) ([]model.TestResult, error)
}

// MappingSource reads the test to component mapping.
type MappingSource interface {
	TestMappings(ctx context.Context) ([]model.TestComponentMapping, error)
}

// CalendarSource counts training attendance.
type CalendarSource interface {
	// CountEvents counts events for a player with one of eventTypes, the given
	// status, and a start time at or after since.
	CountEvents(ctx context.Context, playerID string, since time.Time, eventTypes []string, status string) (int, error)
}

// Seeder writes the collaborator-owned read models. The batch tool and tests
// use it to load rosters and test data.
type Seeder interface {
	SavePlayers(ctx context.Context, players ...model.Player) error
	SaveTestResults(ctx context.Context, results ...model.TestResult) error
	SaveMappings(ctx context.Context, mappings ...model.TestComponentMapping) error
	SaveCalendarEvents(ctx context.Context, events ...model.CalendarEvent) error
}

// Store bundles every interface the engine needs.
type Store interface {
	FactStore
	WeightStore
	FocusCacheStore
	PlayerDirectory
	TestResultSource
	MappingSource
	CalendarSource
	Seeder
	Close() error
}
