// Package phase defines the descriptor the external pipeline consumes
// for each configured phase: which function to run, the opaque
// argument handed to every invocation, and whether the pipeline should
// keep all intermediate results.
package phase

import (
	"github.com/pkg/errors"

	"github.com/Quviq/riak-kv/pkg/record"
)

type Kind int

const (
	MapKind Kind = iota
	ReduceKind
)

func (k Kind) String() string {
	switch k {
	case MapKind:
		return "map"
	case ReduceKind:
		return "reduce"
	}
	return "unknown"
}

// MapFunc transforms one record into zero or more output records.
// keyData is the opaque per-result metadata the pipeline fetched
// alongside the record, arg is the phase argument.
type MapFunc func(rec, keyData, arg any) ([]any, error)

// ReduceFunc folds a batch into a smaller one. The batch may be raw
// input, the output of a prior invocation of the same function, or
// any concatenation of the two; implementations must not assume
// otherwise.
type ReduceFunc func(in []any, arg any) ([]any, error)

// Spec is an immutable phase descriptor. Keep is the accumulate-all
// flag, forwarded verbatim to the pipeline; this module attaches no
// meaning to it.
type Spec struct {
	Kind   Kind
	Map    MapFunc
	Reduce ReduceFunc
	Arg    any
	Keep   bool
}

func NewMap(fn MapFunc, arg any, keep bool) Spec {
	return Spec{Kind: MapKind, Map: fn, Arg: arg, Keep: keep}
}

func NewReduce(fn ReduceFunc, arg any, keep bool) Spec {
	return Spec{Kind: ReduceKind, Reduce: fn, Arg: arg, Keep: keep}
}

// Run applies the spec to one batch: record-wise for a map phase, one
// fold for a reduce phase. The real pipeline drives functions itself
// and supplies keydata per fetch; Run passes along whatever keydata
// the record itself carries, which is what a local run has.
func (s Spec) Run(in []any) ([]any, error) {
	switch s.Kind {
	case MapKind:
		if s.Map == nil {
			return nil, errors.New("phase: map spec without a function")
		}
		out := make([]any, 0, len(in))
		for _, rec := range in {
			part, err := s.Map(rec, keyDataOf(rec), s.Arg)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
		return out, nil
	case ReduceKind:
		if s.Reduce == nil {
			return nil, errors.New("phase: reduce spec without a function")
		}
		return s.Reduce(in, s.Arg)
	}
	return nil, errors.Errorf("phase: unknown kind %d", s.Kind)
}

func keyDataOf(rec any) any {
	switch r := rec.(type) {
	case record.BKeyData:
		return r.KeyData
	case record.NotFound:
		return r.KeyData
	}
	return nil
}
