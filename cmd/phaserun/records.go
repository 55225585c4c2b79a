package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/Quviq/riak-kv/pkg/record"
)

// decodeRecords reads a JSON array and maps objects onto the record
// variants. An object with "bucket" and "key" becomes a BKey, plus
// "data" a BKeyData, plus "value" an Object, plus "terms" an
// IndexRecord; {"not_found": {...}} becomes the sentinel. Everything
// else stays as decoded.
func decodeRecords(r io.Reader) ([]any, error) {
	var raw []any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding record batch")
	}
	out := make([]any, len(raw))
	for i, v := range raw {
		out[i] = decodeRecord(v)
	}
	return out, nil
}

func decodeRecord(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if nf, ok := m["not_found"]; ok {
		nm, _ := nf.(map[string]any)
		b, _ := nm["bucket"].(string)
		k, _ := nm["key"].(string)
		return record.NotFound{Bucket: b, Key: k, KeyData: nm["keydata"]}
	}
	b, okB := m["bucket"].(string)
	k, okK := m["key"].(string)
	if !okB || !okK {
		return v
	}
	if ts, ok := m["terms"]; ok {
		return record.IndexRecord{Bucket: b, Key: k, Terms: decodeTerms(ts)}
	}
	if noTerms, _ := m["no_terms"].(bool); noTerms {
		return record.IndexRecord{Bucket: b, Key: k, NoTerms: true}
	}
	if val, ok := m["value"]; ok {
		return record.Object{Bucket: b, Key: k, Value: val}
	}
	if kd, ok := m["data"]; ok {
		return record.BKeyData{Bucket: b, Key: k, KeyData: kd}
	}
	return record.BKey{Bucket: b, Key: k}
}

func decodeTerms(v any) record.TermList {
	entries, ok := v.([]any)
	if !ok {
		return nil
	}
	terms := make(record.TermList, 0, len(entries))
	for _, e := range entries {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		name, ok := pair[0].(string)
		if !ok {
			continue
		}
		terms = append(terms, record.Term{Name: name, Value: pair[1]})
	}
	return terms
}

func encodeRecord(v any) any {
	switch r := v.(type) {
	case record.BKey:
		return map[string]any{"bucket": r.Bucket, "key": r.Key}
	case record.BKeyData:
		return map[string]any{"bucket": r.Bucket, "key": r.Key, "data": r.KeyData}
	case record.Object:
		return map[string]any{"bucket": r.Bucket, "key": r.Key, "value": r.Value}
	case record.NotFound:
		return map[string]any{"not_found": map[string]any{
			"bucket": r.Bucket, "key": r.Key, "keydata": r.KeyData,
		}}
	case record.IndexRecord:
		if r.NoTerms {
			return map[string]any{"bucket": r.Bucket, "key": r.Key, "no_terms": true}
		}
		terms := make([]any, len(r.Terms))
		for i, t := range r.Terms {
			terms[i] = []any{t.Name, t.Value}
		}
		return map[string]any{"bucket": r.Bucket, "key": r.Key, "terms": terms}
	case record.Pair:
		return []any{r.Key, r.Value}
	case []any:
		out := make([]any, len(r))
		for i, e := range r {
			out[i] = encodeRecord(e)
		}
		return out
	}
	return v
}
