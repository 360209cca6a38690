package idgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1700000000, 0)

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		last   string
		width  int
		want   string
	}{
		{"first document id", "vin_doc_", "", 4, "vin_doc_0001"},
		{"increment", "vin_doc_", "vin_doc_0009", 4, "vin_doc_0010"},
		{"width overflow", "vin_doc_", "vin_doc_9999", 4, "vin_doc_10000"},
		{"wider existing id", "vin_doc_", "vin_doc_10000", 4, "vin_doc_10001"},
		{"human readable", "vin_mmat_", "vin_mmat_0041", 4, "vin_mmat_0042"},
		{"first sku", "SKU", "", 3, "SKU001"},
		{"sku increment", "SKU", "SKU009", 3, "SKU010"},
		{"corrupt suffix", "vin_doc_", "vin_doc_00a1", 4, "vin_doc_1700000000000"},
		{"signed suffix", "vin_doc_", "vin_doc_+12", 4, "vin_doc_1700000000000"},
		{"bare prefix", "SKU", "SKU", 3, "SKU1700000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.prefix, tt.last, tt.width, fixedNow))
		})
	}
}

func TestParseSuffix(t *testing.T) {
	n, ok := ParseSuffix("vin_doc_", "vin_doc_0042")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), n)

	_, ok = ParseSuffix("vin_doc_", "vin_mmat_0042")
	assert.False(t, ok)

	_, ok = ParseSuffix("SKU", "SKU1_2")
	assert.False(t, ok)
}

func TestSequenceNext(t *testing.T) {
	var gotPrefix string
	seq := Sequence{
		Prefix: "vin_doc_",
		Width:  4,
		Lookup: LookupFunc(func(_ context.Context, prefix string) (string, error) {
			gotPrefix = prefix
			return "vin_doc_0009", nil
		}),
	}

	id, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vin_doc_", gotPrefix)
	assert.Equal(t, "vin_doc_0010", id)
}

func TestSequenceNextDefaultsWidth(t *testing.T) {
	seq := Sequence{
		Prefix: "vin_mmat_",
		Lookup: LookupFunc(func(context.Context, string) (string, error) { return "", nil }),
	}
	id, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vin_mmat_0001", id)
}

func TestSequenceNextLookupError(t *testing.T) {
	boom := errors.New("connection refused")
	seq := Sequence{
		Prefix: "SKU",
		Width:  3,
		Lookup: LookupFunc(func(context.Context, string) (string, error) { return "", boom }),
	}
	_, err := seq.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSequenceNextCorruptUsesClock(t *testing.T) {
	seq := Sequence{
		Prefix: "vin_doc_",
		Width:  4,
		Lookup: LookupFunc(func(context.Context, string) (string, error) { return "vin_doc_x", nil }),
		Now:    func() time.Time { return fixedNow },
	}
	id, err := seq.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vin_doc_1700000000000", id)
}

func TestNextCorruptRetriesGetDistinctIDs(t *testing.T) {
	first := Next("vin_doc_", "vin_doc_x", 4, fixedNow)
	retry := Next("vin_doc_", "vin_doc_x", 4, fixedNow.Add(20*time.Millisecond))
	assert.NotEqual(t, first, retry)
	assert.Equal(t, "vin_doc_1700000000020", retry)
}
