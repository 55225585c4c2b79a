// Package reduce provides the general-purpose reduce phase functions.
// Every function here tolerates re-reduce: its output is a valid input
// for a later invocation of itself, so the pipeline may fold arbitrary
// sub-partitions and merge the partial results in any order.
package reduce

import (
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Quviq/riak-kv/pkg/record"
)

// Identity normalizes every entry into a BKey or BKeyData. It accepts
// the raw record structs plus the flat 2 and 3 element sequences a
// prior reduce may have produced. Anything else is a hard error, since
// it means the query fed this phase a shape it was never meant to see.
func Identity(in []any, _ any) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, v := range in {
		switch e := v.(type) {
		case record.BKey:
			out = append(out, e)
		case record.BKeyData:
			out = append(out, e)
		case []any:
			switch len(e) {
			case 2:
				b, okB := asString(e[0])
				k, okK := asString(e[1])
				if !okB || !okK {
					return nil, errors.Errorf("reduce: identity on unhandled entry %v", e)
				}
				out = append(out, record.BKey{Bucket: b, Key: k})
			case 3:
				b, okB := asString(e[0])
				k, okK := asString(e[1])
				if !okB || !okK {
					return nil, errors.Errorf("reduce: identity on unhandled entry %v", e)
				}
				out = append(out, record.BKeyData{Bucket: b, Key: k, KeyData: e[2]})
			default:
				return nil, errors.Errorf("reduce: identity on unhandled entry %v", e)
			}
		default:
			return nil, errors.Errorf("reduce: identity on unhandled entry %T", v)
		}
	}
	return out, nil
}

// SetUnion deduplicates the batch. Output order is the total order of
// record.Compare, which makes repeated application stable.
func SetUnion(in []any, _ any) ([]any, error) {
	out := append([]any(nil), in...)
	sort.Stable(record.ByValue(out))
	dedup := out[:0]
	for i, v := range out {
		if i == 0 || !record.Equal(dedup[len(dedup)-1], v) {
			dedup = append(dedup, v)
		}
	}
	return dedup, nil
}

// Sort orders the batch ascending under record.Compare. The sort is
// stable, so sorting already sorted data is the identity.
func Sort(in []any, _ any) ([]any, error) {
	out := append([]any(nil), in...)
	sort.Stable(record.ByValue(out))
	return out, nil
}

// Sum adds all numeric entries, silently skipping not-found sentinels.
// The total stays an integer until a float shows up. The single-entry
// output is itself a valid input, so re-reducing a merged set of
// partial sums yields the same total.
func Sum(in []any, _ any) ([]any, error) {
	var ints int64
	var floats float64
	sawFloat := false
	for _, v := range record.FilterNotFound(in) {
		i, f, isFloat, ok := asNumber(v)
		if !ok {
			return nil, errors.Errorf("reduce: sum on non-numeric entry %T", v)
		}
		if isFloat {
			sawFloat = true
			floats += f
		} else {
			ints += i
		}
	}
	if sawFloat {
		return []any{floats + float64(ints)}, nil
	}
	return []any{ints}, nil
}

// PlistSum merges (key, value) pairs, summing the values of duplicate
// keys. First-seen key order is preserved, so the output is an
// association list in its own right and can be fed back in. An entry
// that is itself a sequence is spliced first, which is the shape a
// merge of prior outputs arrives in.
func PlistSum(in []any, _ any) ([]any, error) {
	flat := make([]any, 0, len(in))
	for _, v := range in {
		if nested, ok := v.([]any); ok {
			flat = append(flat, nested...)
			continue
		}
		flat = append(flat, v)
	}

	keys := make([]any, 0, len(flat))
	totals := make([]keyTotal, 0, len(flat))
	for _, v := range flat {
		p, ok := v.(record.Pair)
		if !ok {
			return nil, errors.Errorf("reduce: plist_sum on non-pair entry %T", v)
		}
		i, f, isFloat, ok := asNumber(p.Value)
		if !ok {
			return nil, errors.Errorf("reduce: plist_sum value for %v is not numeric", p.Key)
		}
		at := -1
		for j, k := range keys {
			if record.Equal(k, p.Key) {
				at = j
				break
			}
		}
		if at < 0 {
			keys = append(keys, p.Key)
			totals = append(totals, keyTotal{})
			at = len(keys) - 1
		}
		if isFloat {
			totals[at].sawFloat = true
			totals[at].floats += f
		} else {
			totals[at].ints += i
		}
	}

	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = record.Pair{Key: k, Value: totals[i].value()}
	}
	return out, nil
}

// keyTotal keeps integer and float contributions apart so integer-only
// keys never round-trip through float64 and lose precision past 2^53.
type keyTotal struct {
	ints     int64
	floats   float64
	sawFloat bool
}

func (t keyTotal) value() any {
	if t.sawFloat {
		return t.floats + float64(t.ints)
	}
	return t.ints
}

// CountInputs counts entries, except that an integer entry contributes
// its own value: a prior count re-entering the fold stands for the
// records it already counted.
func CountInputs(in []any, _ any) ([]any, error) {
	var total int64
	for _, v := range in {
		if i, _, isFloat, ok := asNumber(v); ok && !isFloat {
			total += i
			continue
		}
		total++
	}
	return []any{total}, nil
}

// StringToInteger parses every remaining entry after sentinel
// filtering as a base-10 integer. Integers pass through unchanged.
// Every bad entry is reported, not just the first.
func StringToInteger(in []any, _ any) ([]any, error) {
	out := make([]any, 0, len(in))
	var errs error
	for _, v := range record.FilterNotFound(in) {
		switch s := v.(type) {
		case string:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "reduce: not an integer: %q", s))
				continue
			}
			out = append(out, n)
		case []byte:
			n, err := strconv.ParseInt(string(s), 10, 64)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "reduce: not an integer: %q", s))
				continue
			}
			out = append(out, n)
		default:
			if _, _, isFloat, ok := asNumber(v); ok && !isFloat {
				out = append(out, v)
				continue
			}
			errs = multierr.Append(errs, errors.Errorf("reduce: not an integer: %T", v))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func asNumber(v any) (i int64, f float64, isFloat, ok bool) {
	switch n := v.(type) {
	case int:
		return int64(n), 0, false, true
	case int8:
		return int64(n), 0, false, true
	case int16:
		return int64(n), 0, false, true
	case int32:
		return int64(n), 0, false, true
	case int64:
		return n, 0, false, true
	case uint:
		return int64(n), 0, false, true
	case uint8:
		return int64(n), 0, false, true
	case uint16:
		return int64(n), 0, false, true
	case uint32:
		return int64(n), 0, false, true
	case uint64:
		// int64 would wrap; the float path at least keeps the magnitude.
		if n > math.MaxInt64 {
			return 0, float64(n), true, true
		}
		return int64(n), 0, false, true
	case float32:
		return 0, float64(n), true, true
	case float64:
		return 0, n, true, true
	}
	return 0, 0, false, false
}
