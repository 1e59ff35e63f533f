package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseFloat reads a numeric cell. Blank and null markers are not errors;
// anything else that does not parse is ErrValidation.
func parseFloat(s string) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("%w: %q is not a number", ErrValidation, s)
	}
	return &v, nil
}

// parseInt reads a count cell, accepting integral floats such as "72.0".
func parseInt(s string) (*int, error) {
	f, err := parseFloat(s)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("%w: %q is not a whole number", ErrValidation, s)
	}
	v := int(*f)
	return &v, nil
}
