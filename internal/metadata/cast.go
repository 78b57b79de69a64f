package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Boolean spellings accepted for boolean fields (compared lowercased).
var (
	truthy = map[string]struct{}{"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}}
	falsy  = map[string]struct{}{"0": {}, "f": {}, "false": {}, "no": {}, "n": {}}
)

// dateLayouts are tried in order when parsing date-like strings.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"01/02/2006",
	"1/2/2006",
	"2006-01",
}

// castValue converts v to the canonical Go value of type t. nil passes
// through. Strings are NFC normalized.
func castValue(t FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeString:
		return castString(v), nil
	case TypeInteger:
		return castInteger(v)
	case TypeFloat:
		return castFloat(v)
	case TypeBoolean:
		return castBoolean(v)
	case TypeYear:
		ts, err := castTime(v, true)
		if err != nil {
			return nil, err
		}
		return SnapToPeriod(ts, PeriodYear), nil
	case TypeDate:
		ts, err := castTime(v, false)
		if err != nil {
			return nil, err
		}
		return SnapToPeriod(ts, PeriodDate), nil
	case TypeDatetime:
		return castTime(v, false)
	default:
		return nil, fmt.Errorf("unsupported type %q", t)
	}
}

func castString(v any) string {
	switch x := v.(type) {
	case string:
		return norm.NFC.String(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func castInteger(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return wholeFloat(float64(x))
	case float64:
		return wholeFloat(x)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return wholeFloat(f)
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func wholeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("not a whole number")
	}
	return int64(f), nil
}

// castFloat reads NaN as null.
func castFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil, nil
		}
		return x, nil
	case float32:
		if math.IsNaN(float64(x)) {
			return nil, nil
		}
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number")
		}
		if math.IsNaN(f) {
			return nil, nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func castBoolean(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return boolFromInt(x)
	case int:
		return boolFromInt(int64(x))
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if _, ok := truthy[s]; ok {
			return true, nil
		}
		if _, ok := falsy[s]; ok {
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean")
	}
	return nil, fmt.Errorf("unsupported value %v", v)
}

func boolFromInt(n int64) (any, error) {
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, fmt.Errorf("not a boolean")
}

// castTime parses v as a point in time. When yearInts is set, integers and
// four-digit strings are read as calendar years.
func castTime(v any, yearInts bool) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		if yearInts {
			return yearStart(x)
		}
	case int:
		if yearInts {
			return yearStart(int64(x))
		}
	case float64:
		if yearInts && x == math.Trunc(x) {
			return yearStart(int64(x))
		}
	case string:
		s := strings.TrimSpace(x)
		if len(s) == 4 {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return yearStart(n)
			}
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("not a date")
	}
	return time.Time{}, fmt.Errorf("unsupported value type %T", v)
}

func yearStart(y int64) (time.Time, error) {
	if y < 1 || y > 9999 {
		return time.Time{}, fmt.Errorf("year %d out of range", y)
	}
	return time.Date(int(y), time.January, 1, 0, 0, 0, 0, time.UTC), nil
}
