// Package record holds the value types that flow through map and
// reduce phases. A phase input is a []any whose elements are either
// one of the structs below or a plain scalar the pipeline passed
// through untouched.
package record

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
)

// BKey is a bucket/key pair.
type BKey struct {
	Bucket string
	Key    string
}

// BKeyData is a bucket/key pair with opaque per-result keydata
// attached. Re-reduced partial results may also arrive as a flat
// 3-element []any with the same content.
type BKeyData struct {
	Bucket  string
	Key     string
	KeyData any
}

// Object is a fetched object, the input shape of the object-value map
// functions.
type Object struct {
	Bucket string
	Key    string
	Value  any
}

// NotFound is the sentinel standing in for a failed per-key lookup.
type NotFound struct {
	Bucket  string
	Key     string
	KeyData any
}

// Term is one (name, value) entry of a secondary-index term list.
type Term struct {
	Name  string
	Value any
}

// TermList is an ordered list of terms. Order is preserved and
// duplicate names are allowed; Get returns the first match.
type TermList []Term

func (tl TermList) Get(name string) (any, bool) {
	for _, t := range tl {
		if t.Name == name {
			return t.Value, true
		}
	}
	return nil, false
}

// Clone returns a copy safe to append to without aliasing tl.
func (tl TermList) Clone() TermList {
	if tl == nil {
		return nil
	}
	out := make(TermList, len(tl))
	copy(out, tl)
	return out
}

// IndexRecord is a secondary-index match: a bucket/key pair carrying
// either a term list or, when NoTerms is set, an explicit marker that
// the scan produced none.
type IndexRecord struct {
	Bucket  string
	Key     string
	Terms   TermList
	NoTerms bool
}

// Pair is one entry of an association list, as consumed by the
// keyed-sum reducer.
type Pair struct {
	Key   any
	Value any
}

// IsDatum reports whether v is a real result rather than a not-found
// sentinel.
func IsDatum(v any) bool {
	switch v.(type) {
	case NotFound, *NotFound:
		return false
	}
	return true
}

// FilterNotFound drops sentinels, preserving the order of everything
// else.
func FilterNotFound(in []any) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		if IsDatum(v) {
			out = append(out, v)
		}
	}
	return out
}

const (
	rankNumber = iota
	rankString
	rankBytes
	rankOther
)

func rank(v any) int {
	if _, ok := asFloat(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case string:
		return rankString
	case []byte:
		return rankBytes
	}
	return rankOther
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Compare is a total order over the value shapes that occur in term
// lists and scalar streams: numbers sort first (compared numerically
// regardless of width), then strings, then byte strings. Values of
// any other type sort last, ordered by type name and then formatted
// value, so that sorting stays deterministic even on junk input.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNumber:
		fa, _ := asFloat(a)
		fb, _ := asFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankBytes:
		return bytes.Compare(a.([]byte), b.([]byte))
	}
	if c := strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)); c != 0 {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Equal reports deep equality, consistent with Compare returning 0
// for numbers, strings and byte strings.
func Equal(a, b any) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return false
	}
	if ra == rankOther {
		return reflect.DeepEqual(a, b)
	}
	return Compare(a, b) == 0
}

// ByValue sorts a batch under Compare.
type ByValue []any

func (s ByValue) Len() int           { return len(s) }
func (s ByValue) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s ByValue) Less(i, j int) bool { return Compare(s[i], s[j]) < 0 }
