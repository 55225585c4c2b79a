package reduce

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quviq/riak-kv/pkg/phase"
	"github.com/Quviq/riak-kv/pkg/record"
)

// asSets compares two batches ignoring order.
func asSets(t *testing.T, want, got []any) {
	t.Helper()
	less := func(a, b any) bool { return fmt.Sprint(a) < fmt.Sprint(b) }
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(less)); diff != "" {
		t.Errorf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentity(t *testing.T) {
	in := []any{
		record.BKey{Bucket: "b1", Key: "k1"},
		record.BKeyData{Bucket: "b2", Key: "k2", KeyData: "kd"},
		[]any{"b3", "k3"},
		[]any{"b4", "k4", "kd4"},
		[]any{[]byte("b5"), []byte("k5")},
	}
	got, err := Identity(in, nil)
	require.NoError(t, err)
	asSets(t, []any{
		record.BKey{Bucket: "b1", Key: "k1"},
		record.BKeyData{Bucket: "b2", Key: "k2", KeyData: "kd"},
		record.BKey{Bucket: "b3", Key: "k3"},
		record.BKeyData{Bucket: "b4", Key: "k4", KeyData: "kd4"},
		record.BKey{Bucket: "b5", Key: "k5"},
	}, got)
}

func TestIdentityUnhandledEntry(t *testing.T) {
	_, err := Identity([]any{42}, nil)
	assert.Error(t, err)
	_, err = Identity([]any{[]any{"just-one"}}, nil)
	assert.Error(t, err)
	_, err = Identity([]any{record.IndexRecord{Bucket: "b", Key: "k"}}, nil)
	assert.Error(t, err, "index records are not an identity shape")
}

func TestSetUnion(t *testing.T) {
	got, err := SetUnion([]any{"foo", "foo", "bar", "baz"}, nil)
	require.NoError(t, err)
	asSets(t, []any{"foo", "bar", "baz"}, got)
}

func TestSort(t *testing.T) {
	got, err := Sort([]any{4, 2, 1, 3, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3, 4, 5}, got)

	again, err := Sort(got, nil)
	require.NoError(t, err)
	assert.Equal(t, got, again, "sorting sorted data is the identity")
}

func TestSortMixedTypes(t *testing.T) {
	got, err := Sort([]any{"b", 2, []byte("a"), 1.5, "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, 2, "a", "b", []byte("a")}, got)
}

func TestSum(t *testing.T) {
	got, err := Sum([]any{1, 2, 3, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10)}, got)

	rereduced, err := Sum(got, nil)
	require.NoError(t, err)
	assert.Equal(t, got, rereduced)
}

func TestSumSkipsNotFound(t *testing.T) {
	in := []any{
		record.NotFound{Bucket: "b", Key: "k1"},
		5,
		record.NotFound{Bucket: "b", Key: "k2", KeyData: "kd"},
		7,
	}
	got, err := Sum(in, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(12)}, got)
}

func TestSumFloats(t *testing.T) {
	got, err := Sum([]any{1, 2.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{3.5}, got)

	_, err = Sum([]any{"nope"}, nil)
	assert.Error(t, err)
}

func TestSumOversizedUint(t *testing.T) {
	got, err := Sum([]any{uint64(math.MaxUint64), 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(math.MaxUint64) + 1}, got,
		"a uint64 past int64 range goes through the float path instead of wrapping negative")

	counted, err := CountInputs([]any{uint64(math.MaxUint64)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, counted, "an oversized uint is an entry, not a prior count")
}

func TestPlistSum(t *testing.T) {
	in := []any{
		[]any{record.Pair{Key: "a", Value: 1}},
		[]any{record.Pair{Key: "a", Value: 2}},
		[]any{record.Pair{Key: "b", Value: 1}},
		[]any{record.Pair{Key: "b", Value: 4}},
	}
	got, err := PlistSum(in, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{
		record.Pair{Key: "a", Value: int64(3)},
		record.Pair{Key: "b", Value: int64(5)},
	}, got)
}

func TestPlistSumLargeIntegers(t *testing.T) {
	in := []any{
		record.Pair{Key: "a", Value: int64(1) << 60},
		record.Pair{Key: "a", Value: 1},
	}
	got, err := PlistSum(in, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{
		record.Pair{Key: "a", Value: int64(1)<<60 + 1},
	}, got, "integer-only keys must not round through float64")
}

func TestPlistSumMixedPerKey(t *testing.T) {
	in := []any{
		record.Pair{Key: "a", Value: 1},
		record.Pair{Key: "b", Value: 2},
		record.Pair{Key: "b", Value: 0.5},
	}
	got, err := PlistSum(in, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{
		record.Pair{Key: "a", Value: int64(1)},
		record.Pair{Key: "b", Value: 2.5},
	}, got, "a float contribution only affects its own key")
}

func TestPlistSumEmpty(t *testing.T) {
	got, err := PlistSum([]any{}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPlistSumFlatInput(t *testing.T) {
	in := []any{
		record.Pair{Key: "x", Value: 2},
		record.Pair{Key: "y", Value: 3},
		record.Pair{Key: "x", Value: 5},
	}
	got, err := PlistSum(in, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{
		record.Pair{Key: "x", Value: int64(7)},
		record.Pair{Key: "y", Value: int64(3)},
	}, got, "first-seen key order is preserved")
}

func TestCountInputs(t *testing.T) {
	part1, err := CountInputs([]any{
		record.BKey{Bucket: "b4", Key: "k4"},
		record.BKey{Bucket: "b5", Key: "k5"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, part1)

	part2, err := CountInputs([]any{
		record.BKey{Bucket: "b4", Key: "k4"},
		record.BKey{Bucket: "b5", Key: "k5"},
		record.BKey{Bucket: "b5", Key: "k5"},
		record.BKey{Bucket: "b5", Key: "k5"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(4)}, part2)

	merged := []any{
		record.BKey{Bucket: "b1", Key: "k1"},
		record.BKey{Bucket: "b2", Key: "k2"},
		record.BKey{Bucket: "b3", Key: "k3"},
	}
	merged = append(merged, part1...)
	merged = append(merged, part2...)
	got, err := CountInputs(merged, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(9)}, got, "prior counts stand for the records they counted")
}

func TestStringToInteger(t *testing.T) {
	in := []any{
		"1",
		[]byte("23"),
		7,
		record.NotFound{Bucket: "b", Key: "k"},
		int64(9),
	}
	got, err := StringToInteger(in, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(23), 7, int64(9)}, got)
}

func TestStringToIntegerReportsEveryFailure(t *testing.T) {
	_, err := StringToInteger([]any{"12", "abc", 3.5, "34"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc")
	assert.Contains(t, err.Error(), "float64")
}

// Every general reducer must be idempotent: feeding its own output
// back in reproduces the same result.
func TestIdempotence(t *testing.T) {
	cases := []struct {
		name string
		fn   phase.ReduceFunc
		in   []any
	}{
		{"identity", Identity, []any{record.BKey{Bucket: "b", Key: "k"}, []any{"b2", "k2", "kd"}}},
		{"set_union", SetUnion, []any{"foo", "foo", "bar", "baz"}},
		{"sort", Sort, []any{4, 2, 1, 3, 5}},
		{"sum", Sum, []any{1, 2, 3, 4}},
		{"plist_sum", PlistSum, []any{record.Pair{Key: "a", Value: 1}, record.Pair{Key: "a", Value: 2}}},
		{"count_inputs", CountInputs, []any{record.BKey{Bucket: "b", Key: "k"}, record.BKey{Bucket: "b", Key: "k2"}}},
		{"string_to_integer", StringToInteger, []any{"1", "2", 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			once, err := tc.fn(tc.in, nil)
			require.NoError(t, err)
			twice, err := tc.fn(once, nil)
			require.NoError(t, err)
			asSets(t, once, twice)
		})
	}
}
