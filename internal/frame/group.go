package frame

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Group is one distinct key tuple and the row positions holding it.
type Group struct {
	Key  []any
	Rows []int
}

// GroupBy partitions the rows of f by the values in the key columns. Rows
// with a missing (nil) key value are dropped. Groups are returned ordered by
// key and row positions keep their input order.
//
// Keys are bucketed by an xxh3 hash of their encoded form; tuples sharing a
// bucket are compared value by value, so hash collisions never merge groups.
func GroupBy(f *Frame, keys []string) ([]Group, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("frame: group by requires at least one key column")
	}
	ix := make([]int, len(keys))
	for i, k := range keys {
		ix[i] = f.ColumnIndex(k)
		if ix[i] < 0 {
			return nil, fmt.Errorf("frame: unknown key column %q", k)
		}
	}

	buckets := make(map[uint64][]int) // hash -> positions in groups
	groups := make([]Group, 0)
	buf := make([]byte, 0, 64)

rows:
	for r, row := range f.Rows {
		key := make([]any, len(ix))
		for i, c := range ix {
			if IsNull(row[c]) {
				continue rows
			}
			key[i] = row[c]
		}
		buf = AppendKey(buf[:0], key)
		h := xxh3.Hash(buf)
		for _, gi := range buckets[h] {
			if CompareKeys(groups[gi].Key, key) == 0 {
				groups[gi].Rows = append(groups[gi].Rows, r)
				continue rows
			}
		}
		buckets[h] = append(buckets[h], len(groups))
		groups = append(groups, Group{Key: key, Rows: []int{r}})
	}

	slices.SortStableFunc(groups, func(a, b Group) int { return CompareKeys(a.Key, b.Key) })
	return groups, nil
}

// AppendKey appends a type-tagged encoding of a key tuple to buf. Values are
// separated by 0x1f; nil encodes as 0x00.
func AppendKey(buf []byte, key []any) []byte {
	for i, v := range key {
		if i > 0 {
			buf = append(buf, '\x1f')
		}
		switch t := v.(type) {
		case nil:
			buf = append(buf, '\x00')
		case string:
			buf = append(buf, 's')
			buf = append(buf, t...)
		case bool:
			buf = append(buf, 'b')
			buf = strconv.AppendBool(buf, t)
		case time.Time:
			buf = append(buf, 't')
			buf = t.UTC().AppendFormat(buf, time.RFC3339Nano)
		default:
			// Integers and whole floats share an encoding so 2 and 2.0 group
			// together, matching Compare.
			if n, ok := asInt(v); ok {
				buf = append(buf, 'n')
				buf = strconv.AppendInt(buf, n, 10)
			} else if fl, ok := asFloat(v); ok {
				buf = append(buf, 'n')
				if fl == float64(int64(fl)) {
					buf = strconv.AppendInt(buf, int64(fl), 10)
				} else {
					buf = strconv.AppendFloat(buf, fl, 'g', -1, 64)
				}
			} else {
				buf = append(buf, 'v')
				buf = fmt.Append(buf, t)
			}
		}
	}
	return buf
}

// KeyString renders a key tuple for reports and logs, e.g. "(2, 2020)".
func KeyString(key []any) string {
	b := []byte{'('}
	for i, v := range key {
		if i > 0 {
			b = append(b, ", "...)
		}
		switch t := v.(type) {
		case nil:
			b = append(b, "null"...)
		case time.Time:
			t = t.UTC()
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
				b = t.AppendFormat(b, "2006-01-02")
			} else {
				b = t.AppendFormat(b, time.RFC3339)
			}
		default:
			b = fmt.Append(b, t)
		}
	}
	return string(append(b, ')'))
}
