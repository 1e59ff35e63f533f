package scoring

// Default scoring configuration constants.
const (
	DefaultTargetPercentile = 75
	DefaultSplitFloor       = 0.10
	DefaultSplitCeiling     = 0.50
	DefaultMaxTestResults   = 50

	defaultLowConfidenceBelow = 3
	defaultMedConfidenceBelow = 6
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithTargetPercentile sets the percentile a player is measured against.
func WithTargetPercentile(p float64) Option {
	return func(s *Scorer) {
		s.target = p
	}
}

// WithSplitBounds sets the floor and ceiling of every split share.
func WithSplitBounds(floor, ceiling float64) Option {
	return func(s *Scorer) {
		s.floor = floor
		s.ceiling = ceiling
	}
}

// WithPercentileFunc replaces the score to percentile mapping.
func WithPercentileFunc(fn PercentileFunc) Option {
	return func(s *Scorer) {
		if fn != nil {
			s.percentile = fn
		}
	}
}

// WithConfidenceThresholds sets the result counts below which confidence is
// low and medium.
func WithConfidenceThresholds(lowBelow, medBelow int) Option {
	return func(s *Scorer) {
		if lowBelow > 0 && medBelow >= lowBelow {
			s.lowBelow = lowBelow
			s.medBelow = medBelow
		}
	}
}

// WithMaxTestResults caps how many of the newest results are considered.
func WithMaxTestResults(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxResults = n
		}
	}
}
