package cooldown

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

var unitNames = []string{"s", "m", "h", "d"}

// ParseSeconds turns a cooldown duration into whole seconds.
//
// Integers are taken as seconds and returned unchanged. A time.Duration is
// truncated to seconds. Strings must be "<quantity> <unit>" with a single
// space, a positive integer quantity and a unit of s, m, h or d (any case).
func ParseSeconds(v any) (int64, error) {
	switch d := v.(type) {
	case time.Duration:
		return int64(d / time.Second), nil
	case int:
		return int64(d), nil
	case int32:
		return int64(d), nil
	case int64:
		return d, nil
	case uint:
		return int64(d), nil
	case uint32:
		return int64(d), nil
	case string:
		return parseSpec(d)
	case nil:
		return 0, &MalformedDurationError{Value: v, Reason: "missing duration"}
	}
	return 0, &MalformedDurationError{Value: v, Reason: "unsupported type"}
}

func parseSpec(s string) (int64, error) {
	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return 0, &MalformedDurationError{Value: s, Reason: "expected exactly two space-separated tokens"}
	}

	qty, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || qty <= 0 {
		return 0, &MalformedDurationError{Value: s, Reason: "quantity must be a positive integer"}
	}

	unit, ok := unitSeconds[strings.ToLower(parts[1])]
	if !ok {
		return 0, &MalformedDurationError{Value: s, Reason: "unknown unit " + strconv.Quote(parts[1])}
	}

	if qty > math.MaxInt64/unit {
		return 0, &MalformedDurationError{Value: s, Reason: "too large"}
	}
	return qty * unit, nil
}

// maxSeconds is the longest window a time.Duration can represent.
const maxSeconds = math.MaxInt64 / int64(time.Second)
