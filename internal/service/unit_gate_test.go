package service

import (
	"context"
	"testing"

	"rental-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailable(t *testing.T) {
	f := newFixture(t, 2)
	gate := NewUnitGate()
	ctx := context.Background()

	assert.NoError(t, gate.CheckAvailable(ctx, f.repo, []int64{f.units[0].ID, f.units[1].ID, f.units[0].ID}))

	err := gate.CheckAvailable(ctx, f.repo, []int64{f.units[0].ID, 999})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.repo.ReserveUnit(ctx, f.units[1].ID)
	require.NoError(t, err)
	err = gate.CheckAvailable(ctx, f.repo, []int64{f.units[0].ID, f.units[1].ID})
	assert.True(t, apperr.IsValidation(err))
}

func TestReserveCompensatesOnConflict(t *testing.T) {
	f := newFixture(t, 3)
	gate := NewUnitGate()
	ctx := context.Background()

	repo := &flakyUnits{UnitRepository: f.repo, taken: f.units[2].ID}
	err := gate.Reserve(ctx, repo, []int64{f.units[0].ID, f.units[1].ID, f.units[2].ID})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	for _, u := range f.units {
		assert.True(t, f.unit(t, u.ID).Available, "unit %d", u.ID)
	}
}

func TestReserveCompensatesOnStoreError(t *testing.T) {
	f := newFixture(t, 2)
	gate := NewUnitGate()
	ctx := context.Background()

	repo := &flakyUnits{UnitRepository: f.repo, taken: f.units[1].ID, err: errBroker}
	err := gate.Reserve(ctx, repo, []int64{f.units[0].ID, f.units[1].ID})
	require.ErrorIs(t, err, errBroker)
	assert.False(t, apperr.IsValidation(err))

	assert.True(t, f.unit(t, f.units[0].ID).Available)
}

func TestReserveAndRelease(t *testing.T) {
	f := newFixture(t, 2)
	gate := NewUnitGate()
	ctx := context.Background()

	ids := []int64{f.units[0].ID, f.units[1].ID}
	require.NoError(t, gate.Reserve(ctx, f.repo, ids))
	for _, id := range ids {
		assert.False(t, f.unit(t, id).Available)
	}

	assert.True(t, apperr.IsValidation(gate.Reserve(ctx, f.repo, ids[:1])))

	require.NoError(t, gate.Release(ctx, f.repo, ids))
	for _, id := range ids {
		assert.True(t, f.unit(t, id).Available)
	}
}
