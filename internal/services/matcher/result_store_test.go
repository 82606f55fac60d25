package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-matchmaker/internal/models"
)

func TestMemoryResultStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryResultStore()

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	first := []models.LenderMatch{
		{Lender: mockLender(map[string]interface{}{"id": int64(1)})},
		{Lender: mockLender(map[string]interface{}{"id": int64(2)})},
	}
	second := []models.LenderMatch{
		{Lender: mockLender(map[string]interface{}{"id": int64(3)})},
	}

	require.NoError(t, store.Save(ctx, "s1", first))
	require.NoError(t, store.Save(ctx, "s1", second))

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Lender.ID)

	require.NoError(t, store.Delete(ctx, "s1"))
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryResultStore_CopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryResultStore()

	p := 0.8
	saved := []models.LenderMatch{{
		Lender:           mockLender(nil),
		Reasons:          []string{"Specializes in home loans"},
		MatchProbability: &p,
	}}
	require.NoError(t, store.Save(ctx, "s1", saved))

	saved[0].Reasons[0] = "mutated"
	saved[0].Lender.EmploymentTypes[0] = "student"
	*saved[0].MatchProbability = 0.1

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Specializes in home loans", got[0].Reasons[0])
	assert.NotEqual(t, "student", got[0].Lender.EmploymentTypes[0])
	assert.Equal(t, 0.8, *got[0].MatchProbability)

	got[0].Reasons[0] = "changed by reader"
	*got[0].MatchProbability = 0.2

	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Specializes in home loans", again[0].Reasons[0])
	assert.Equal(t, 0.8, *again[0].MatchProbability)
}
