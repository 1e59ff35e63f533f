package model

import (
	"time"

	"github.com/okian/focusengine/internal/domain/types"
)

// ComponentWeightSet is a calibrated set of component weights for a season window.
// At most one set is active at a time.
type ComponentWeightSet struct {
	ID                string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	WindowStartSeason int       `gorm:"column:window_start_season;uniqueIndex:idx_weight_window" json:"windowStartSeason"`
	WindowEndSeason   int       `gorm:"column:window_end_season;uniqueIndex:idx_weight_window" json:"windowEndSeason"`
	WOtt              float64   `gorm:"column:w_ott" json:"wOtt"`
	WApp              float64   `gorm:"column:w_app" json:"wApp"`
	WArg              float64   `gorm:"column:w_arg" json:"wArg"`
	WPutt             float64   `gorm:"column:w_putt" json:"wPutt"`
	PopulationSize    int       `gorm:"column:population_size" json:"populationSize"`
	IsActive          bool      `gorm:"column:is_active;index" json:"isActive"`
	ComputedAt        time.Time `gorm:"column:computed_at" json:"computedAt"`
}

// TableName pins the gorm table name.
func (ComponentWeightSet) TableName() string { return "component_weight_sets" }

// Values returns the weights keyed by component.
func (w ComponentWeightSet) Values() types.ComponentValues {
	return types.ComponentValues{
		types.OTT:  w.WOtt,
		types.APP:  w.WApp,
		types.ARG:  w.WArg,
		types.PUTT: w.WPutt,
	}
}

// WindowKey identifies a weight set by its season range.
type WindowKey struct {
	Start int
	End   int
}

// Window returns the season range key.
func (w ComponentWeightSet) Window() WindowKey {
	return WindowKey{Start: w.WindowStartSeason, End: w.WindowEndSeason}
}
