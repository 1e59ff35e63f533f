package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/okian/focusengine/internal/domain/types"
)

// FocusCacheEntry persists a computed PlayerFocus until ExpiresAt.
type FocusCacheEntry struct {
	PlayerID              string                                      `gorm:"column:player_id;primaryKey;size:64"`
	PlayerName            string                                      `gorm:"column:player_name"`
	FocusComponent        string                                      `gorm:"column:focus_component;size:8"`
	FocusScores           datatypes.JSONType[map[types.Component]int] `gorm:"column:focus_scores"`
	RecommendedSplit      datatypes.JSONType[types.ComponentValues]   `gorm:"column:recommended_split"`
	ReasonCodes           datatypes.JSONSlice[string]                 `gorm:"column:reason_codes"`
	Confidence            string                                      `gorm:"column:confidence;size:8"`
	ApproachWeakestBucket string                                      `gorm:"column:approach_weakest_bucket;size:32"`
	ComputedAt            time.Time                                   `gorm:"column:computed_at"`
	ExpiresAt             time.Time                                   `gorm:"column:expires_at;index"`
}

// TableName pins the gorm table name.
func (FocusCacheEntry) TableName() string { return "player_focus_cache" }

// NewFocusCacheEntry converts a focus result into its stored form.
func NewFocusCacheEntry(f types.PlayerFocus) FocusCacheEntry {
	return FocusCacheEntry{
		PlayerID:              f.PlayerID,
		PlayerName:            f.PlayerName,
		FocusComponent:        string(f.FocusComponent),
		FocusScores:           datatypes.NewJSONType(f.FocusScores),
		RecommendedSplit:      datatypes.NewJSONType(f.RecommendedSplit),
		ReasonCodes:           datatypes.JSONSlice[string](f.ReasonCodes),
		Confidence:            string(f.Confidence),
		ApproachWeakestBucket: f.ApproachWeakestBucket,
		ComputedAt:            f.ComputedAt,
		ExpiresAt:             f.ExpiresAt,
	}
}

// Focus converts the stored form back to a focus result.
func (e FocusCacheEntry) Focus() types.PlayerFocus {
	return types.PlayerFocus{
		PlayerID:              e.PlayerID,
		PlayerName:            e.PlayerName,
		FocusComponent:        types.Component(e.FocusComponent),
		FocusScores:           e.FocusScores.Data(),
		RecommendedSplit:      e.RecommendedSplit.Data(),
		ReasonCodes:           []string(e.ReasonCodes),
		Confidence:            types.Confidence(e.Confidence),
		ApproachWeakestBucket: e.ApproachWeakestBucket,
		ComputedAt:            e.ComputedAt,
		ExpiresAt:             e.ExpiresAt,
	}
}

// Expired reports whether the entry is stale at now.
func (e FocusCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
