// Package index provides the reduce functions used to post-process
// secondary-index query results. They all obey the same contract: the
// pipeline may fold any sub-partition and feed the partial results
// back in, so each function splices entries that are themselves
// sequences, and a malformed record is dropped rather than raised as
// an error. Drops are reported through the diagnostic sink, nothing
// more.
package index

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Quviq/riak-kv/pkg/record"
)

// KeepPolicy selects how much of a surviving record's term list a
// filtering or extracting reducer retains.
type KeepPolicy int

const (
	// KeepAll keeps the full term list, plus any newly derived term.
	KeepAll KeepPolicy = iota
	// KeepThis keeps only the term(s) the reducer just used.
	KeepThis
)

// DiagFunc receives one message per dropped record. It must not block;
// the default sink writes to the global zap logger at debug level.
type DiagFunc func(msg string, keysAndValues ...any)

var sink atomic.Pointer[DiagFunc]

func defaultDiag(msg string, keysAndValues ...any) {
	zap.S().Debugw(msg, keysAndValues...)
}

// SetDiagnostic swaps the drop sink and returns the previous one.
// Passing nil silences diagnostics. The swap is atomic, so it is safe
// against folds the pipeline is running concurrently.
func SetDiagnostic(fn DiagFunc) DiagFunc {
	if fn == nil {
		fn = func(string, ...any) {}
	}
	prev := sink.Swap(&fn)
	if prev == nil {
		return defaultDiag
	}
	return *prev
}

func diag(msg string, keysAndValues ...any) {
	if fn := sink.Load(); fn != nil {
		(*fn)(msg, keysAndValues...)
		return
	}
	defaultDiag(msg, keysAndValues...)
}

// Identity passes index records and bare bucket/key pairs through and
// splices already-reduced sub-sequences. Unrecognized entries are
// dropped, which is what lets sibling reducers feed their output here.
func Identity(in []any, _ any) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, v := range in {
		switch e := v.(type) {
		case record.IndexRecord:
			out = append(out, e)
		case record.BKey:
			out = append(out, e)
		case []any:
			nested, err := Identity(e, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		default:
			diag("index: dropping unrecognized entry", "type", typeOf(v))
		}
	}
	return out, nil
}

// ExtractIntegerArgs configures ExtractInteger. BitWidth must be a
// positive multiple of 8, at most 64.
type ExtractIntegerArgs struct {
	InputTerm  string
	OutputTerm string
	Keep       KeepPolicy
	SkipBytes  int
	BitWidth   int
}

// ExtractInteger decodes a big-endian unsigned integer embedded in the
// byte representation of InputTerm and attaches it as OutputTerm. A
// record that already carries OutputTerm passes through unchanged, so
// re-running the extraction over merged partial results is a no-op.
func ExtractInteger(in []any, arg any) ([]any, error) {
	a, ok := arg.(ExtractIntegerArgs)
	if !ok {
		return nil, errors.Errorf("index: extract_integer wants ExtractIntegerArgs, got %T", arg)
	}
	if a.BitWidth <= 0 || a.BitWidth > 64 || a.BitWidth%8 != 0 {
		return nil, errors.Errorf("index: extract_integer bit width %d not a multiple of 8 in (0,64]", a.BitWidth)
	}
	if a.SkipBytes < 0 {
		return nil, errors.Errorf("index: extract_integer negative skip %d", a.SkipBytes)
	}
	out := make([]any, 0, len(in))
	for _, v := range flatten(in) {
		rec, ok := v.(record.IndexRecord)
		if !ok {
			diag("index: dropping unrecognized entry", "type", typeOf(v))
			continue
		}
		if _, done := rec.Terms.Get(a.OutputTerm); done {
			out = append(out, rec)
			continue
		}
		raw, ok := rec.Terms.Get(a.InputTerm)
		if !ok {
			diag("index: dropping record without term", "bucket", rec.Bucket, "key", rec.Key, "term", a.InputTerm)
			continue
		}
		b, ok := asBytes(raw)
		width := a.BitWidth / 8
		if !ok || len(b) < a.SkipBytes+width {
			diag("index: dropping record with malformed term", "bucket", rec.Bucket, "key", rec.Key, "term", a.InputTerm)
			continue
		}
		var n uint64
		for _, by := range b[a.SkipBytes : a.SkipBytes+width] {
			n = n<<8 | uint64(by)
		}
		extracted := record.Term{Name: a.OutputTerm, Value: int64(n)}
		switch a.Keep {
		case KeepThis:
			rec.Terms = record.TermList{extracted}
		default:
			rec.Terms = append(rec.Terms.Clone(), extracted)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RangeArgs configures ByRange. The interval is half-open: a value
// equal to High is excluded.
type RangeArgs struct {
	InputTerm string
	Keep      KeepPolicy
	Low       any
	High      any
}

// ByRange keeps records whose InputTerm value v satisfies
// Low <= v < High under record.Compare.
func ByRange(in []any, arg any) ([]any, error) {
	a, ok := arg.(RangeArgs)
	if !ok {
		return nil, errors.Errorf("index: by_range wants RangeArgs, got %T", arg)
	}
	return filterTerm(in, a.InputTerm, a.Keep, func(v any) bool {
		return record.Compare(v, a.Low) >= 0 && record.Compare(v, a.High) < 0
	})
}

// RegexArgs configures Regex. The match is unanchored, so the pattern
// matching anywhere inside the term value keeps the record.
type RegexArgs struct {
	InputTerm string
	Keep      KeepPolicy
	Pattern   *regexp.Regexp
}

// Regex keeps records whose InputTerm value matches Pattern.
func Regex(in []any, arg any) ([]any, error) {
	a, ok := arg.(RegexArgs)
	if !ok {
		return nil, errors.Errorf("index: regex wants RegexArgs, got %T", arg)
	}
	if a.Pattern == nil {
		return nil, errors.New("index: regex without a compiled pattern")
	}
	return filterTerm(in, a.InputTerm, a.Keep, func(v any) bool {
		switch s := v.(type) {
		case string:
			return a.Pattern.MatchString(s)
		case []byte:
			return a.Pattern.Match(s)
		}
		return false
	})
}

// MaxArgs configures Max.
type MaxArgs struct {
	InputTerm string
	Keep      KeepPolicy
}

// Max reduces the batch to at most one record, the one with the
// strictly greatest InputTerm value. On ties the first record in fold
// order wins; since fold order depends on how the pipeline partitioned
// the input, which tied record survives is not stable across
// partitionings. Records without the term are dropped, and an input
// with no carrier at all reduces to an empty batch.
func Max(in []any, arg any) ([]any, error) {
	a, ok := arg.(MaxArgs)
	if !ok {
		return nil, errors.Errorf("index: max wants MaxArgs, got %T", arg)
	}
	var best *record.IndexRecord
	var bestVal any
	for _, v := range flatten(in) {
		rec, ok := v.(record.IndexRecord)
		if !ok {
			diag("index: dropping unrecognized entry", "type", typeOf(v))
			continue
		}
		val, ok := rec.Terms.Get(a.InputTerm)
		if !ok {
			diag("index: dropping record without term", "bucket", rec.Bucket, "key", rec.Key, "term", a.InputTerm)
			continue
		}
		if best == nil || record.Compare(val, bestVal) > 0 {
			r := rec
			best = &r
			bestVal = val
		}
	}
	if best == nil {
		return []any{}, nil
	}
	rec := *best
	if a.Keep == KeepThis {
		rec.Terms = record.TermList{{Name: a.InputTerm, Value: bestVal}}
	}
	return []any{rec}, nil
}

func filterTerm(in []any, term string, keep KeepPolicy, pred func(any) bool) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, v := range flatten(in) {
		rec, ok := v.(record.IndexRecord)
		if !ok {
			diag("index: dropping unrecognized entry", "type", typeOf(v))
			continue
		}
		val, ok := rec.Terms.Get(term)
		if !ok {
			diag("index: dropping record without term", "bucket", rec.Bucket, "key", rec.Key, "term", term)
			continue
		}
		if !pred(val) {
			continue
		}
		if keep == KeepThis {
			rec.Terms = record.TermList{{Name: term, Value: val}}
		}
		out = append(out, rec)
	}
	return out, nil
}

// flatten splices nested sequences before any fold runs. Max in
// particular needs this up front: folding over an unflattened batch
// would compare whole sub-sequences instead of the records inside
// them.
func flatten(in []any) []any {
	flat := make([]any, 0, len(in))
	for _, v := range in {
		if nested, ok := v.([]any); ok {
			flat = append(flat, flatten(nested)...)
			continue
		}
		flat = append(flat, v)
	}
	return flat
}

func asBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	}
	return nil, false
}

func typeOf(v any) string {
	return fmt.Sprintf("%T", v)
}
