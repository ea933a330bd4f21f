package canonical

import (
	"math"
	"strconv"
	"strings"
)

// Int64OrNil coerces an arbitrary value to an integer, returning nil for
// anything that is not a finite number. Empty and non-finite inputs stay nil
// so "not measured" is never collapsed into zero.
func Int64OrNil(v any) *int64 {
	f := Float64OrNil(v)
	if f == nil {
		return nil
	}
	n := int64(math.Round(*f))
	return &n
}

// int64OrZero is Int64OrNil with an absent-means-zero default. Bucket usage
// figures use it: a listing that omits the field describes an empty bucket,
// while a present-but-garbage value still maps to nil.
func int64OrZero(v any) *int64 {
	if v == nil {
		zero := int64(0)
		return &zero
	}
	return Int64OrNil(v)
}

// Float64OrNil is the underlying tolerant numeric conversion.
func Float64OrNil(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return &t
	case float32:
		return Float64OrNil(float64(t))
	case int:
		f := float64(t)
		return &f
	case int32:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case uint64:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		return nil
	}
}
