package ports

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(count uint64, tokens map[string]uint64) *TableSnapshot {
	return &TableSnapshot{Tokens: tokens, Count: count}
}

func TestSnapshotValidate_DerivesMissingCorpus(t *testing.T) {
	snap := &Snapshot{Names: map[string]*TableSnapshot{
		"spam": table(3, map[string]uint64{"buy": 2, "now": 1}),
		"ham":  table(2, map[string]uint64{"buy": 1, "lunch": 1}),
	}}
	require.NoError(t, snap.Validate())
	assert.Equal(t, table(5, map[string]uint64{"buy": 3, "now": 1, "lunch": 1}), snap.Corpus)
}

func TestSnapshotValidate_AcceptsMatchingCorpus(t *testing.T) {
	snap := &Snapshot{
		Names:  map[string]*TableSnapshot{"spam": table(2, map[string]uint64{"buy": 2})},
		Corpus: table(2, map[string]uint64{"buy": 2}),
	}
	assert.NoError(t, snap.Validate())
}

func TestSnapshotValidate_Empty(t *testing.T) {
	snap := &Snapshot{}
	require.NoError(t, snap.Validate())
	assert.NotNil(t, snap.Names)
	assert.Equal(t, uint64(0), snap.Corpus.Count)
	assert.NoError(t, NewSnapshot().Validate())
}

func TestSnapshotValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		snap *Snapshot
	}{
		{"nil", nil},
		{"empty class name", &Snapshot{Names: map[string]*TableSnapshot{"": table(0, nil)}}},
		{"nil table", &Snapshot{Names: map[string]*TableSnapshot{"spam": nil}}},
		{"empty token", &Snapshot{Names: map[string]*TableSnapshot{"spam": table(1, map[string]uint64{"": 1})}}},
		{"class total", &Snapshot{Names: map[string]*TableSnapshot{"spam": table(3, map[string]uint64{"buy": 2})}}},
		{"corpus total", &Snapshot{
			Names:  map[string]*TableSnapshot{"spam": table(2, map[string]uint64{"buy": 2})},
			Corpus: table(3, map[string]uint64{"buy": 3}),
		}},
		{"token sum wraps", &Snapshot{Names: map[string]*TableSnapshot{
			"spam": table(1, map[string]uint64{"a": math.MaxUint64, "b": 2}),
		}}},
		{"corpus wraps", &Snapshot{Names: map[string]*TableSnapshot{
			"spam": table(math.MaxUint64, map[string]uint64{"a": math.MaxUint64}),
			"ham":  table(2, map[string]uint64{"a": 2}),
		}}},
		{"corpus token", &Snapshot{
			Names:  map[string]*TableSnapshot{"spam": table(2, map[string]uint64{"buy": 2})},
			Corpus: table(2, map[string]uint64{"buy": 1, "now": 1}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.snap.Validate(), ErrInvalidArgument)
		})
	}
}

func TestCheckArguments(t *testing.T) {
	assert.NoError(t, CheckAdd("spam", "buy", 1))
	assert.ErrorIs(t, CheckAdd("", "buy", 1), ErrInvalidArgument)
	assert.ErrorIs(t, CheckAdd("spam", "", 1), ErrInvalidArgument)
	assert.ErrorIs(t, CheckAdd("spam", "buy", 0), ErrInvalidArgument)

	assert.NoError(t, CheckCount("spam", ""))
	assert.NoError(t, CheckCount("", "buy"))
	assert.ErrorIs(t, CheckCount("", ""), ErrInvalidArgument)

	assert.NoError(t, CheckProbability("spam", "buy"))
	assert.ErrorIs(t, CheckProbability("", "buy"), ErrInvalidArgument)
	assert.ErrorIs(t, CheckProbability("spam", ""), ErrInvalidArgument)
}
