// Package model contains domain models passed between layers.
package model

import "time"

// Lies for approach buckets.
const (
	LieFairway = "fairway"
	LieRough   = "rough"
)

// PlayerSeasonSkill is one professional's aggregate strokes-gained line for a season.
// Component values are nil when the source row had no parseable number.
type PlayerSeasonSkill struct {
	PlayerName    string    `gorm:"column:player_name;primaryKey;size:191" json:"playerName"`
	Season        int       `gorm:"column:season;primaryKey;index" json:"season"`
	SgOtt         *float64  `gorm:"column:sg_ott" json:"sgOtt"`
	SgApp         *float64  `gorm:"column:sg_app" json:"sgApp"`
	SgArg         *float64  `gorm:"column:sg_arg" json:"sgArg"`
	SgPutt        *float64  `gorm:"column:sg_putt" json:"sgPutt"`
	SgTotal       *float64  `gorm:"column:sg_total" json:"sgTotal"`
	Rounds        *int      `gorm:"column:rounds" json:"rounds"`
	Events        *int      `gorm:"column:events" json:"events"`
	Wins          *int      `gorm:"column:wins" json:"wins"`
	SourceVersion string    `gorm:"column:source_version;size:64;index" json:"sourceVersion"`
	IngestedAt    time.Time `gorm:"column:ingested_at" json:"ingestedAt"`
}

// TableName pins the gorm table name.
func (PlayerSeasonSkill) TableName() string { return "player_season_skills" }

// SeasonKey identifies a PlayerSeasonSkill row.
type SeasonKey struct {
	PlayerName string
	Season     int
}

// Key returns the row identity.
func (p PlayerSeasonSkill) Key() SeasonKey {
	return SeasonKey{PlayerName: p.PlayerName, Season: p.Season}
}

// ApproachSkillBucket is one approach statistic for a distance/lie bucket.
type ApproachSkillBucket struct {
	PlayerName    string    `gorm:"column:player_name;primaryKey;size:191" json:"playerName"`
	Bucket        string    `gorm:"column:bucket;primaryKey;size:32" json:"bucket"`
	Lie           string    `gorm:"column:lie;primaryKey;size:16" json:"lie"`
	Stat          string    `gorm:"column:stat;primaryKey;size:32" json:"stat"`
	Value         *float64  `gorm:"column:value" json:"value"`
	ShotCount     *int      `gorm:"column:shot_count" json:"shotCount"`
	SourceVersion string    `gorm:"column:source_version;size:64;index" json:"sourceVersion"`
	IngestedAt    time.Time `gorm:"column:ingested_at" json:"ingestedAt"`
}

// TableName pins the gorm table name.
func (ApproachSkillBucket) TableName() string { return "approach_skill_buckets" }

// BucketKey identifies an ApproachSkillBucket row.
type BucketKey struct {
	PlayerName string
	Bucket     string
	Lie        string
	Stat       string
}

// Key returns the row identity.
func (a ApproachSkillBucket) Key() BucketKey {
	return BucketKey{PlayerName: a.PlayerName, Bucket: a.Bucket, Lie: a.Lie, Stat: a.Stat}
}
