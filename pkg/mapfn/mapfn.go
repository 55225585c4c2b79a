// Package mapfn provides the built-in map phase functions. They are
// per-record transforms; the only interesting behavior is the
// not-found policy selected by the phase argument.
package mapfn

import (
	"github.com/pkg/errors"

	"github.com/Quviq/riak-kv/pkg/record"
)

// Action selects what a map function emits for a not-found sentinel.
// It is a closed set: an argument outside it is a misconfiguration and
// fails the invocation.
type Action interface {
	notFoundAction()
}

// Filter drops the sentinel.
type Filter struct{}

// IncludeNotFound emits the sentinel itself.
type IncludeNotFound struct{}

// IncludeKeyData emits the keydata the pipeline supplied for the key.
type IncludeKeyData struct{}

// Insert emits Value verbatim in place of the sentinel.
type Insert struct {
	Value []any
}

func (Filter) notFoundAction()          {}
func (IncludeNotFound) notFoundAction() {}
func (IncludeKeyData) notFoundAction()  {}
func (Insert) notFoundAction()          {}

// Identity returns the record unchanged.
func Identity(rec, _, _ any) ([]any, error) {
	return []any{rec}, nil
}

// ObjectValue returns the object's value, or applies the not-found
// policy when the lookup failed.
func ObjectValue(rec, keyData, arg any) ([]any, error) {
	if nf, ok := rec.(record.NotFound); ok {
		return notFoundValue(nf, keyData, arg)
	}
	obj, ok := rec.(record.Object)
	if !ok {
		return nil, errors.Errorf("mapfn: object_value on unhandled entry %T", rec)
	}
	return []any{obj.Value}, nil
}

// ObjectValueList is ObjectValue for objects whose value is itself a
// sequence; the sequence is spliced into the output rather than boxed.
func ObjectValueList(rec, keyData, arg any) ([]any, error) {
	if nf, ok := rec.(record.NotFound); ok {
		return notFoundValue(nf, keyData, arg)
	}
	obj, ok := rec.(record.Object)
	if !ok {
		return nil, errors.Errorf("mapfn: object_value_list on unhandled entry %T", rec)
	}
	vs, ok := obj.Value.([]any)
	if !ok {
		return nil, errors.Errorf("mapfn: object value is %T, not a sequence", obj.Value)
	}
	return append([]any(nil), vs...), nil
}

func notFoundValue(nf record.NotFound, keyData, arg any) ([]any, error) {
	switch a := arg.(type) {
	case Filter:
		return []any{}, nil
	case IncludeNotFound:
		return []any{nf}, nil
	case IncludeKeyData:
		return []any{keyData}, nil
	case Insert:
		return a.Value, nil
	}
	return nil, errors.Errorf("mapfn: unknown not-found action %T", arg)
}
