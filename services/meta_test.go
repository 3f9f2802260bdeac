package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svleague/swiss-system/models"
)

type metaFixture struct {
	playerRepo *fakePlayerRepo
	matchRepo  *fakeMatchRepo
	metaRepo   *fakeMetaRepo
	svc        MetaService
	match      *models.Match
	alice      *models.Player
	bob        *models.Player
}

func newMetaFixture(t *testing.T) *metaFixture {
	t.Helper()
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	metaRepo := newFakeMetaRepo()

	alice := &models.Player{TournamentID: 1, ExternalID: "a", DisplayName: "alice", Active: true}
	bob := &models.Player{TournamentID: 1, ExternalID: "b", DisplayName: "bob", Active: true}
	require.NoError(t, playerRepo.Create(ctx, alice))
	require.NoError(t, playerRepo.Create(ctx, bob))

	match := &models.Match{TournamentID: 1, RoundID: 1, TableNumber: 1, P1ID: &alice.ID, P2ID: &bob.ID}
	require.NoError(t, matchRepo.Create(ctx, nil, match))

	return &metaFixture{
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		metaRepo:   metaRepo,
		svc:        NewMetaService(metaRepo, matchRepo, testLogger()),
		match:      match,
		alice:      alice,
		bob:        bob,
	}
}

func TestRecordPickValidation(t *testing.T) {
	ctx := context.Background()
	f := newMetaFixture(t)

	_, err := f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 1, "Clockcraft")
	assert.ErrorIs(t, err, ErrInvalidClass)

	_, err = f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 3, "Forestcraft")
	assert.ErrorIs(t, err, ErrInvalidClass)

	_, err = f.svc.RecordPick(ctx, f.match.ID, 404, 1, "Forestcraft")
	assert.ErrorIs(t, err, ErrPlayerNotInMatch)

	meta, err := f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 1, "Forestcraft")
	require.NoError(t, err)
	require.NotNil(t, meta.Pick1)
	assert.Equal(t, "Forestcraft", *meta.Pick1)

	// The two declared picks must be distinct classes.
	_, err = f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 2, "Forestcraft")
	assert.ErrorIs(t, err, ErrDuplicateClassPick)

	meta, err = f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 2, "Swordcraft")
	require.NoError(t, err)
	require.NotNil(t, meta.Pick2)
	assert.Equal(t, "Swordcraft", *meta.Pick2)

	// Re-declaring a slot replaces it.
	meta, err = f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 1, "Runecraft")
	require.NoError(t, err)
	assert.Equal(t, "Runecraft", *meta.Pick1)
}

func TestRecordActualRequiresCompletePicks(t *testing.T) {
	ctx := context.Background()
	f := newMetaFixture(t)

	_, err := f.svc.RecordActual(ctx, f.match.ID, f.alice.ID, "Forestcraft")
	assert.ErrorIs(t, err, ErrPicksIncomplete)

	_, err = f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 1, "Forestcraft")
	require.NoError(t, err)
	_, err = f.svc.RecordActual(ctx, f.match.ID, f.alice.ID, "Forestcraft")
	assert.ErrorIs(t, err, ErrPicksIncomplete)

	_, err = f.svc.RecordPick(ctx, f.match.ID, f.alice.ID, 2, "Swordcraft")
	require.NoError(t, err)

	_, err = f.svc.RecordActual(ctx, f.match.ID, f.alice.ID, "Dragoncraft")
	assert.ErrorIs(t, err, ErrActualNotAmongPicks)

	meta, err := f.svc.RecordActual(ctx, f.match.ID, f.alice.ID, "Swordcraft")
	require.NoError(t, err)
	require.NotNil(t, meta.Actual)
	assert.Equal(t, "Swordcraft", *meta.Actual)
}

func TestResetPicksClearsAllFields(t *testing.T) {
	ctx := context.Background()
	f := newMetaFixture(t)

	_, err := f.svc.RecordPick(ctx, f.match.ID, f.bob.ID, 1, "Abysscraft")
	require.NoError(t, err)
	_, err = f.svc.RecordPick(ctx, f.match.ID, f.bob.ID, 2, "Havencraft")
	require.NoError(t, err)
	_, err = f.svc.RecordActual(ctx, f.match.ID, f.bob.ID, "Havencraft")
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetPicks(ctx, f.match.ID, f.bob.ID))

	meta, err := f.metaRepo.Get(ctx, f.match.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Nil(t, meta.Pick1)
	assert.Nil(t, meta.Pick2)
	assert.Nil(t, meta.Actual)
}
