package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemState_ZeroCountsNotStored(t *testing.T) {
	// GIVEN a state with one type
	s := stateOf(t, map[Type]int64{"A": 2})

	// WHEN the count drops to zero
	require.NoError(t, s.Add("A", -2))

	// THEN the entry is gone and reads as zero
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.Get("A"))
	assert.Empty(t, s.Types())
}

func TestSystemState_NegativeSetRejected(t *testing.T) {
	s := NewSystemState()
	err := s.Set("A", -1)
	assert.True(t, errors.Is(err, ErrNegativePopulation))
	assert.Equal(t, 0, s.Len())
}

func TestSystemState_Copy_IsIndependent(t *testing.T) {
	// GIVEN a state and its copy
	s := stateOf(t, map[Type]int64{"A": 2, "B": 5})
	c := s.Copy()

	// WHEN the copy is mutated
	require.NoError(t, c.Add("A", 3))

	// THEN the original is unchanged
	assert.Equal(t, int64(2), s.Get("A"))
	assert.Equal(t, int64(5), c.Get("A"))
	assert.False(t, s.Equal(c))
}

func TestSystemState_AssignFrom_ReplacesContents(t *testing.T) {
	dst := stateOf(t, map[Type]int64{"A": 1, "C": 9})
	src := stateOf(t, map[Type]int64{"A": 4, "B": 2})
	before := dst.Version()

	dst.AssignFrom(src)

	assert.True(t, dst.Equal(src))
	assert.Equal(t, int64(0), dst.Get("C"))
	assert.Greater(t, dst.Version(), before)
}

func TestSystemState_VersionBumpsOnMutation(t *testing.T) {
	s := NewSystemState()
	v0 := s.Version()
	require.NoError(t, s.Set("A", 1))
	assert.Greater(t, s.Version(), v0)
}

func TestSystemState_String_SortedByType(t *testing.T) {
	s := stateOf(t, map[Type]int64{"I": 3, "S": 97, "R": 1})
	assert.Equal(t, "{I=3, R=1, S=97}", s.String())
	assert.Equal(t, "{}", NewSystemState().String())
}
