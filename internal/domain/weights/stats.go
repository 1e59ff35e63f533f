package weights

import (
	"fmt"
	"math"

	"github.com/okian/focusengine/internal/domain/types"
)

// Weights holds one importance weight per component.
type Weights types.ComponentValues

// sumTolerance bounds floating error when checking that weights sum to 1.
const sumTolerance = 1e-9

// weightDecimals is the precision weights are stored with.
const weightDecimals = 4

// PopulationStdDev is the standard deviation dividing by N. Empty input is 0.
func PopulationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// Normalize turns per-component standard deviations into weights that are
// rounded to four decimals and sum to exactly 1. The rounding residual goes
// to OTT; a negative residual that OTT cannot absorb leaves it at 0 and
// carries over to the next component in evaluation order. Zero total spread
// yields equal weights.
func Normalize(sds types.ComponentValues) Weights {
	total := sds.Sum()
	w := make(Weights, len(types.Components))
	if total <= 0 {
		for _, c := range types.Components {
			w[c] = 0.25
		}
		return w
	}

	var sum float64
	for _, c := range types.Components {
		w[c] = round(sds[c]/total, weightDecimals)
		sum += w[c]
	}
	residual := round(1-sum, weightDecimals)
	for _, c := range types.Components {
		if residual == 0 {
			break
		}
		if next := round(w[c]+residual, weightDecimals); next >= 0 {
			w[c] = next
			break
		}
		residual = round(residual+w[c], weightDecimals)
		w[c] = 0
	}
	return w
}

// Sum adds the four weights.
func (w Weights) Sum() float64 {
	return types.ComponentValues(w).Sum()
}

// Validate checks that every weight is in [0, 1] and they sum to 1.
func (w Weights) Validate() error {
	for _, c := range types.Components {
		v, ok := w[c]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidWeights, c)
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s=%v out of range", ErrInvalidWeights, c, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > sumTolerance {
		return fmt.Errorf("%w: sum is %v", ErrInvalidWeights, s)
	}
	return nil
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
