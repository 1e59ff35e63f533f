package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/focusengine/internal/domain/types"
)

const (
	splitIterations = 10
	splitTolerance  = 0.001
	cents           = 100
)

// ValidateBounds checks that four shares can sum to 1 within [floor, ceiling].
func ValidateBounds(floor, ceiling float64) error {
	switch {
	case floor < 0 || ceiling > 1 || floor > ceiling:
		return fmt.Errorf("%w: floor %v ceiling %v", ErrInvalidBounds, floor, ceiling)
	case 4*floor > 1 || 4*ceiling < 1:
		return fmt.Errorf("%w: four shares in [%v, %v] cannot sum to 1", ErrInvalidBounds, floor, ceiling)
	}
	return nil
}

// ConstrainSplit clamps raw shares into [floor, ceiling], spreads any
// deficit or surplus evenly over the shares that can still move, and rounds
// to whole percents summing to exactly 1. Rounding drift is taken by the
// largest share that stays inside the bounds. Bounds must pass ValidateBounds.
func ConstrainSplit(raw types.ComponentValues, floor, ceiling float64) types.ComponentValues {
	v := raw.Clone()
	for _, c := range types.Components {
		if _, ok := v[c]; !ok {
			v[c] = 0
		}
	}

	for i := 0; i < splitIterations; i++ {
		changed := false
		for _, c := range types.Components {
			switch {
			case v[c] < floor:
				v[c], changed = floor, true
			case v[c] > ceiling:
				v[c], changed = ceiling, true
			}
		}

		sum := v.Sum()
		if math.Abs(sum-1) < splitTolerance {
			break
		}

		var movable []types.Component
		for _, c := range types.Components {
			if (sum < 1 && v[c] < ceiling) || (sum > 1 && v[c] > floor) {
				movable = append(movable, c)
			}
		}
		if len(movable) > 0 {
			per := (1 - sum) / float64(len(movable))
			for _, c := range movable {
				v[c] = math.Min(ceiling, math.Max(floor, v[c]+per))
			}
			changed = true
		}
		if !changed {
			break
		}
	}

	lo := int(math.Ceil(floor*cents - 1e-9))
	hi := int(math.Floor(ceiling*cents + 1e-9))
	total := v.Sum()
	if total <= 0 {
		v, total = types.Uniform(0.25), 1
	}
	pct := make(map[types.Component]int, len(types.Components))
	sum := 0
	for _, c := range types.Components {
		p := int(math.Round(v[c] / total * cents))
		p = min(hi, max(lo, p))
		pct[c] = p
		sum += p
	}

	for residual := cents - sum; residual != 0; {
		// Largest share first; ties keep component order.
		order := types.Components
		sort.SliceStable(order[:], func(i, j int) bool { return pct[order[i]] > pct[order[j]] })
		step := 1
		if residual < 0 {
			step = -1
		}
		moved := false
		for _, c := range order {
			if next := pct[c] + step; next >= lo && next <= hi {
				pct[c] = next
				residual -= step
				moved = true
				break
			}
		}
		if !moved {
			break
		}
	}

	out := make(types.ComponentValues, len(types.Components))
	for _, c := range types.Components {
		out[c] = float64(pct[c]) / cents
	}
	return out
}
