package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	// tolerate full timestamps from clients that serialise Date objects
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

// MaxQuantity is the largest quantity the INT columns can hold.
const MaxQuantity = math.MaxInt32

// Quantity coerces a loosely typed quantity to an integer in
// [1, MaxQuantity]. Missing, non-numeric and non-positive values all
// become 1. Larger values are clamped to MaxQuantity.
func Quantity(v any) int {
	var n int
	switch q := v.(type) {
	case nil:
		return 1
	case int:
		n = q
	case int64:
		if q > MaxQuantity {
			return MaxQuantity
		}
		n = int(q)
	case float64:
		if math.IsNaN(q) {
			return 1
		}
		if q > MaxQuantity {
			return MaxQuantity
		}
		if q < 1 {
			return 1
		}
		n = int(q)
	case string:
		parsed, err := strconv.ParseInt(leadingInt(strings.TrimSpace(q)), 10, 64)
		if errors.Is(err, strconv.ErrRange) && parsed > 0 {
			return MaxQuantity
		}
		if err != nil || parsed < 1 {
			return 1
		}
		if parsed > MaxQuantity {
			return MaxQuantity
		}
		n = int(parsed)
	default:
		return 1
	}

	if n < 1 {
		return 1
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}

// leadingInt keeps the optional sign and leading digits of s, so "3 pcs"
// reads as 3.
func leadingInt(s string) string {
	end := 0
	for i, r := range s {
		if i == 0 && (r == '-' || r == '+') {
			end = 1
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		end = i + 1
	}
	return s[:end]
}
