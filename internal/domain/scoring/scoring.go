// Package scoring turns a player's skill-test results and the active
// component weights into a focus recommendation. Everything here is pure.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
)

// Reason codes.
const (
	ReasonInsufficientTestData = "insufficient_test_data"
	ReasonLowTrainingAdherence = "low_training_adherence"
)

// Thresholds on the focus component for reason codes.
const (
	weakClusterAbove = 0.2
	highWeightAbove  = 0.3
)

// PercentileFunc maps an aggregated component score to a population percentile.
type PercentileFunc func(score float64) float64

// ScoreAsPercentile treats a score as its own percentile, clamped to
// [0, 100]. A score of zero or less means no data and maps to 50.
func ScoreAsPercentile(score float64) float64 {
	if score <= 0 {
		return 50
	}
	return math.Min(100, math.Max(0, score))
}

// Input is everything one recommendation needs.
type Input struct {
	// Results are ordered newest first.
	Results  []model.TestResult
	Mappings []model.TestComponentMapping
	Weights  types.ComponentValues
}

// Output is a focus recommendation.
type Output struct {
	FocusComponent   types.Component
	FocusScores      map[types.Component]int
	RecommendedSplit types.ComponentValues
	ReasonCodes      []string
	Confidence       types.Confidence

	// Intermediate values, kept for callers that explain a recommendation.
	ComponentScores types.ComponentValues
	Percentiles     types.ComponentValues
	Priorities      types.ComponentValues
	TestCount       int
}

// Scorer computes focus recommendations.
type Scorer struct {
	target     float64
	floor      float64
	ceiling    float64
	percentile PercentileFunc
	lowBelow   int
	medBelow   int
	maxResults int
}

// NewScorer creates a scorer. It fails when the split bounds cannot be
// satisfied or the target percentile is outside (0, 100].
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		target:     DefaultTargetPercentile,
		floor:      DefaultSplitFloor,
		ceiling:    DefaultSplitCeiling,
		percentile: ScoreAsPercentile,
		lowBelow:   defaultLowConfidenceBelow,
		medBelow:   defaultMedConfidenceBelow,
		maxResults: DefaultMaxTestResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := ValidateBounds(s.floor, s.ceiling); err != nil {
		return nil, err
	}
	if s.target <= 0 || s.target > 100 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, s.target)
	}
	return s, nil
}

// MaxTestResults is how many of the newest results Score looks at.
func (s *Scorer) MaxTestResults() int { return s.maxResults }

// Score computes the recommendation for in.
func (s *Scorer) Score(in Input) Output {
	scores, count := s.componentScores(in)

	out := Output{
		ComponentScores: scores,
		Percentiles:     make(types.ComponentValues, len(types.Components)),
		Priorities:      make(types.ComponentValues, len(types.Components)),
		FocusScores:     make(map[types.Component]int, len(types.Components)),
		TestCount:       count,
		ReasonCodes:     []string{},
	}

	weakness := make(types.ComponentValues, len(types.Components))
	for _, c := range types.Components {
		p := s.percentile(scores[c])
		out.Percentiles[c] = p
		weakness[c] = math.Max(0, s.target-p) / 100
		out.Priorities[c] = weakness[c] * in.Weights[c]
		out.FocusScores[c] = int(math.Round(100 - p))
	}

	// Strictly highest priority wins, scanning in component order. With no
	// priority at all the recommendation falls back to approach play.
	out.FocusComponent = types.APP
	best := 0.0
	for _, c := range types.Components {
		if out.Priorities[c] > best {
			best, out.FocusComponent = out.Priorities[c], c
		}
	}

	raw := types.Uniform(0.25)
	if total := out.Priorities.Sum(); total > 0 {
		for _, c := range types.Components {
			raw[c] = out.Priorities[c] / total
		}
	}
	out.RecommendedSplit = ConstrainSplit(raw, s.floor, s.ceiling)

	focus := out.FocusComponent
	if weakness[focus] > weakClusterAbove {
		out.ReasonCodes = append(out.ReasonCodes, "weak_"+focus.Lower()+"_test_cluster")
	}
	if in.Weights[focus] > highWeightAbove {
		out.ReasonCodes = append(out.ReasonCodes, "high_weight_"+focus.Lower())
	}

	switch {
	case count < s.lowBelow:
		out.Confidence = types.ConfidenceLow
		out.ReasonCodes = append(out.ReasonCodes, ReasonInsufficientTestData)
	case count < s.medBelow:
		out.Confidence = types.ConfidenceMed
	default:
		out.Confidence = types.ConfidenceHigh
	}
	return out
}

// componentScores keeps the newest result per test, then takes the
// mapping-weighted mean per component. It also returns how many tests
// contributed.
func (s *Scorer) componentScores(in Input) (types.ComponentValues, int) {
	mappings := make(map[int]model.TestComponentMapping, len(in.Mappings))
	for _, m := range in.Mappings {
		mappings[m.TestNumber] = m
	}

	results := in.Results
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}

	total := make(types.ComponentValues, len(types.Components))
	weightSum := make(types.ComponentValues, len(types.Components))
	seen := make(map[int]struct{}, len(results))
	count := 0
	for _, r := range results {
		if _, dup := seen[r.TestNumber]; dup {
			continue
		}
		seen[r.TestNumber] = struct{}{}

		m, ok := mappings[r.TestNumber]
		if !ok {
			continue
		}
		c, err := types.ParseComponent(m.Component)
		if err != nil {
			continue
		}
		total[c] += r.Value * m.Weight
		weightSum[c] += m.Weight
		count++
	}

	scores := make(types.ComponentValues, len(types.Components))
	for _, c := range types.Components {
		if weightSum[c] > 0 {
			scores[c] = total[c] / weightSum[c]
		} else {
			scores[c] = 0
		}
	}
	return scores, count
}

// ApproachDetailStat is the approach statistic used to find the weakest bucket.
const ApproachDetailStat = "sg_per_shot"

// ApproachReasonCode is the reason code naming a player's weakest approach bucket.
func ApproachReasonCode(bucket string) string {
	return "approach_" + bucket + "_gap"
}

// WeakestApproachBucket returns the fairway bucket with the lowest value,
// or "" when no row has a value. Ties keep the first row.
func WeakestApproachBucket(rows []model.ApproachSkillBucket) string {
	bucket, lowest := "", math.Inf(1)
	for _, r := range rows {
		if r.Lie != model.LieFairway || r.Value == nil {
			continue
		}
		if *r.Value < lowest {
			bucket, lowest = r.Bucket, *r.Value
		}
	}
	return bucket
}
