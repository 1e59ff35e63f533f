// Package types contains common types used across the application
package types

import (
	"fmt"
	"strings"
	"time"
)

// Component is one of the four strokes-gained skill categories.
type Component string

// Skill components.
const (
	OTT  Component = "OTT"
	APP  Component = "APP"
	ARG  Component = "ARG"
	PUTT Component = "PUTT"
)

// Components lists every component in evaluation order. Tie-breaks that
// depend on order (focus selection, weight residuals) follow this order.
var Components = [4]Component{OTT, APP, ARG, PUTT}

// Lower returns the lower-case component code used in reason codes.
func (c Component) Lower() string { return strings.ToLower(string(c)) }

// Valid reports whether c is one of the four components.
func (c Component) Valid() bool {
	switch c {
	case OTT, APP, ARG, PUTT:
		return true
	}
	return false
}

// ParseComponent accepts upper or lower case component codes.
func ParseComponent(s string) (Component, error) {
	c := Component(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown component %q", s)
	}
	return c, nil
}

// ComponentValues holds one float per component.
type ComponentValues map[Component]float64

// Uniform returns values with v for every component.
func Uniform(v float64) ComponentValues {
	out := make(ComponentValues, len(Components))
	for _, c := range Components {
		out[c] = v
	}
	return out
}

// Sum adds the four component values.
func (v ComponentValues) Sum() float64 {
	var s float64
	for _, c := range Components {
		s += v[c]
	}
	return s
}

// Clone copies v.
func (v ComponentValues) Clone() ComponentValues {
	out := make(ComponentValues, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Heatmap counts players per focus component.
type Heatmap map[Component]int

// EmptyHeatmap returns a heatmap with all four components at zero.
func EmptyHeatmap() Heatmap {
	return Heatmap{OTT: 0, APP: 0, ARG: 0, PUTT: 0}
}

// Confidence grades how much test data backs a recommendation.
type Confidence string

// Confidence tiers.
const (
	ConfidenceLow  Confidence = "low"
	ConfidenceMed  Confidence = "med"
	ConfidenceHigh Confidence = "high"
)

// PlayerFocus is the focus recommendation returned to callers and cached.
type PlayerFocus struct {
	PlayerID              string            `json:"playerId"`
	PlayerName            string            `json:"playerName"`
	FocusComponent        Component         `json:"focusComponent"`
	FocusScores           map[Component]int `json:"focusScores"`
	RecommendedSplit      ComponentValues   `json:"recommendedSplit"`
	ReasonCodes           []string          `json:"reasonCodes"`
	Confidence            Confidence        `json:"confidence"`
	ApproachWeakestBucket string            `json:"approachWeakestBucket,omitempty"`
	ComputedAt            time.Time         `json:"computedAt"`
	ExpiresAt             time.Time         `json:"expiresAt"`
}

// AtRiskPlayer is a roster member whose recent training attendance is low.
type AtRiskPlayer struct {
	PlayerID       string    `json:"playerId"`
	PlayerName     string    `json:"playerName"`
	FocusComponent Component `json:"focusComponent"`
	Reason         string    `json:"reason"`
	AdherenceScore int       `json:"adherenceScore"`
}

// TeamFocus is the roster-level view for a coach.
type TeamFocus struct {
	CoachID        string         `json:"coachId"`
	PlayerCount    int            `json:"playerCount"`
	Heatmap        Heatmap        `json:"heatmap"`
	TopReasonCodes []string       `json:"topReasonCodes"`
	AtRiskPlayers  []AtRiskPlayer `json:"atRiskPlayers"`
	ComputedAt     time.Time      `json:"computedAt"`
}

// IngestionStats summarizes the fact store and weight history.
type IngestionStats struct {
	PlayerSeasons   int64 `json:"playerSeasons"`
	ApproachSkills  int64 `json:"approachSkills"`
	WeightsComputed int64 `json:"weightsComputed"`
	CurrentWeights  any   `json:"currentWeights"`
	LatestSeason    *int  `json:"latestSeason"`
}
