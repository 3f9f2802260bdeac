package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svleague/swiss-system/models"
)

func newResultFixture(t *testing.T) (*fakePlayerRepo, *fakeMatchRepo, *fakeRoundRepo, *fakeTournamentRepo, ResultService) {
	t.Helper()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	roundRepo := newFakeRoundRepo()
	tourRepo := newFakeTournamentRepo()
	metaRepo := newFakeMetaRepo()
	svc := NewResultService(stubDB, matchRepo, roundRepo, playerRepo, metaRepo, tourRepo, testLogger())
	return playerRepo, matchRepo, roundRepo, tourRepo, svc
}

func TestRecordResultConcurrentReportersCommitOnce(t *testing.T) {
	ctx := context.Background()
	playerRepo, matchRepo, _, _, svc := newResultFixture(t)

	alice := &models.Player{TournamentID: 1, ExternalID: "a", DisplayName: "alice", Active: true}
	bob := &models.Player{TournamentID: 1, ExternalID: "b", DisplayName: "bob", Active: true}
	require.NoError(t, playerRepo.Create(ctx, alice))
	require.NoError(t, playerRepo.Create(ctx, bob))

	contested := &models.Match{TournamentID: 1, RoundID: 1, TableNumber: 1, P1ID: &alice.ID, P2ID: &bob.ID}
	require.NoError(t, matchRepo.Create(ctx, nil, contested))
	// A second unreported table keeps the round open, so no reporter
	// triggers round completion.
	other := &models.Match{TournamentID: 1, RoundID: 1, TableNumber: 2, P1ID: intPtr(98), P2ID: intPtr(99)}
	require.NoError(t, matchRepo.Create(ctx, nil, other))

	const reporters = 32
	outcomes := make([]*RecordOutcome, reporters)
	errs := make([]error, reporters)

	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			side := SideP1
			if i%2 == 1 {
				side = SideP2
			}
			outcomes[i], errs[i] = svc.RecordResult(ctx, contested.ID, side)
		}(i)
	}
	wg.Wait()

	applied := 0
	var winning *RecordOutcome
	for i := 0; i < reporters; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, outcomes[i])
		if outcomes[i].Applied {
			applied++
			winning = outcomes[i]
		}
	}
	require.Equal(t, 1, applied, "exactly one reporter wins the race")

	final, err := matchRepo.GetByID(ctx, contested.ID)
	require.NoError(t, err)
	require.NotNil(t, final.Result)
	assert.Equal(t, winning.CurrentResult, *final.Result)
	assert.Equal(t, *winning.CurrentWinnerID, *final.WinnerID)

	// Losers observe the committed result, not their own attempt.
	for i := 0; i < reporters; i++ {
		if !outcomes[i].Applied {
			assert.Equal(t, *final.Result, outcomes[i].CurrentResult)
			assert.Equal(t, *final.WinnerID, *outcomes[i].CurrentWinnerID)
		}
	}

	// Points were awarded exactly once.
	winner, err := playerRepo.GetByID(ctx, *final.WinnerID)
	require.NoError(t, err)
	assert.Equal(t, PointsPerWin, winner.Score)
}

func TestRecordResultLostRaceIsAnOutcomeNotAnError(t *testing.T) {
	ctx := context.Background()
	playerRepo, matchRepo, _, _, svc := newResultFixture(t)

	alice := &models.Player{TournamentID: 1, ExternalID: "a", DisplayName: "alice", Active: true}
	bob := &models.Player{TournamentID: 1, ExternalID: "b", DisplayName: "bob", Active: true}
	require.NoError(t, playerRepo.Create(ctx, alice))
	require.NoError(t, playerRepo.Create(ctx, bob))

	match := &models.Match{TournamentID: 1, RoundID: 1, TableNumber: 1, P1ID: &alice.ID, P2ID: &bob.ID}
	require.NoError(t, matchRepo.Create(ctx, nil, match))
	filler := &models.Match{TournamentID: 1, RoundID: 1, TableNumber: 2, P1ID: intPtr(98), P2ID: intPtr(99)}
	require.NoError(t, matchRepo.Create(ctx, nil, filler))

	first, err := svc.RecordResult(ctx, match.ID, SideP1)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := svc.RecordResult(ctx, match.ID, SideP2)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, models.ResultP1Won, second.CurrentResult)
	assert.Equal(t, alice.ID, *second.CurrentWinnerID)
}

func TestRecordResultRejectsEmptySeat(t *testing.T) {
	ctx := context.Background()
	playerRepo, matchRepo, _, _, svc := newResultFixture(t)

	alice := &models.Player{TournamentID: 1, ExternalID: "a", DisplayName: "alice", Active: true}
	require.NoError(t, playerRepo.Create(ctx, alice))

	bye := &models.Match{TournamentID: 1, RoundID: 1, TableNumber: 1, P1ID: &alice.ID}
	require.NoError(t, matchRepo.Create(ctx, nil, bye))

	_, err := svc.RecordResult(ctx, bye.ID, SideP2)
	assert.ErrorIs(t, err, ErrPlayerNotInMatch)
}

func TestRecordResultUnknownMatch(t *testing.T) {
	_, _, _, _, svc := newResultFixture(t)
	_, err := svc.RecordResult(context.Background(), 404, SideP1)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestRecordResultClosesRoundWhenLastTableReports(t *testing.T) {
	ctx := context.Background()
	playerRepo, matchRepo, roundRepo, tourRepo, svc := newResultFixture(t)

	tournament := &models.Tournament{CommunityID: 1, Name: "weekly", Status: models.StatusSwiss}
	require.NoError(t, tourRepo.Create(ctx, tournament))
	round, err := roundRepo.CreateNext(ctx, nil, tournament.ID)
	require.NoError(t, err)

	alice := &models.Player{TournamentID: tournament.ID, ExternalID: "a", DisplayName: "alice", Active: true}
	bob := &models.Player{TournamentID: tournament.ID, ExternalID: "b", DisplayName: "bob", Active: true}
	require.NoError(t, playerRepo.Create(ctx, alice))
	require.NoError(t, playerRepo.Create(ctx, bob))

	match := &models.Match{TournamentID: tournament.ID, RoundID: round.ID, TableNumber: 1, P1ID: &alice.ID, P2ID: &bob.ID}
	require.NoError(t, matchRepo.Create(ctx, nil, match))

	outcome, err := svc.RecordResult(ctx, match.ID, SideP1)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	assert.True(t, outcome.RoundCompleted)
	assert.False(t, outcome.Finished)

	closed, err := roundRepo.GetByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoundFinished, closed.Status)

	// The completion recompute rebuilt scores from history.
	a, err := playerRepo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, PointsPerWin, a.Score)
	b, err := playerRepo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Score)
}

func TestRecordResultFinishesTournamentAfterFinals(t *testing.T) {
	ctx := context.Background()
	playerRepo, matchRepo, roundRepo, tourRepo, svc := newResultFixture(t)

	tournament := &models.Tournament{CommunityID: 1, Name: "weekly", Status: models.StatusTop4Finals}
	require.NoError(t, tourRepo.Create(ctx, tournament))
	round, err := roundRepo.CreateNext(ctx, nil, tournament.ID)
	require.NoError(t, err)

	seeds := make([]*models.Player, 4)
	for i := range seeds {
		seeds[i] = &models.Player{
			TournamentID: tournament.ID,
			ExternalID:   fmt.Sprintf("seed%d", i+1),
			DisplayName:  fmt.Sprintf("seed%d", i+1),
			Active:       true,
		}
		require.NoError(t, playerRepo.Create(ctx, seeds[i]))
	}

	final := &models.Match{
		TournamentID: tournament.ID, RoundID: round.ID, TableNumber: 1,
		P1ID: &seeds[0].ID, P2ID: &seeds[1].ID, Notes: strPtr(models.NoteFinal),
	}
	third := &models.Match{
		TournamentID: tournament.ID, RoundID: round.ID, TableNumber: 2,
		P1ID: &seeds[2].ID, P2ID: &seeds[3].ID, Notes: strPtr(models.NoteThirdPlace),
	}
	require.NoError(t, matchRepo.Create(ctx, nil, final))
	require.NoError(t, matchRepo.Create(ctx, nil, third))

	outcome, err := svc.RecordResult(ctx, third.ID, SideP1)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	assert.False(t, outcome.Finished, "final still unreported")

	// Seed 2 upsets seed 1 in the final.
	outcome, err = svc.RecordResult(ctx, final.ID, SideP2)
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	assert.True(t, outcome.RoundCompleted)
	require.True(t, outcome.Finished)
	require.NotNil(t, outcome.Placements)
	assert.Equal(t, seeds[1].ID, outcome.Placements.First)
	assert.Equal(t, seeds[0].ID, outcome.Placements.Second)
	assert.Equal(t, seeds[2].ID, outcome.Placements.Third)
	assert.Equal(t, seeds[3].ID, outcome.Placements.Fourth)

	finished, err := tourRepo.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, finished.Status)
	assert.NotNil(t, finished.FinishedAt)
}

func TestComputePlacementsDerivesFromFinalsNotSeeding(t *testing.T) {
	// Seeds entered 9/6/3/0: alice vs bob in the final, carol vs dave for
	// third. Upsets decide everything.
	finalResult := models.ResultP2Won
	thirdResult := models.ResultP1Won
	matches := []*models.Match{
		{ID: 1, RoundID: 4, TableNumber: 1, P1ID: intPtr(1), P2ID: intPtr(2),
			Result: &finalResult, WinnerID: intPtr(2), Notes: strPtr(models.NoteFinal)},
		{ID: 2, RoundID: 4, TableNumber: 2, P1ID: intPtr(3), P2ID: intPtr(4),
			Result: &thirdResult, WinnerID: intPtr(3), Notes: strPtr(models.NoteThirdPlace)},
	}

	placements, err := ComputePlacements(matches)
	require.NoError(t, err)
	assert.Equal(t, &models.FinalPlacements{First: 2, Second: 1, Third: 3, Fourth: 4}, placements)
}

func TestComputePlacementsRequiresBothResults(t *testing.T) {
	finalResult := models.ResultP1Won
	matches := []*models.Match{
		{ID: 1, RoundID: 4, TableNumber: 1, P1ID: intPtr(1), P2ID: intPtr(2),
			Result: &finalResult, WinnerID: intPtr(1), Notes: strPtr(models.NoteFinal)},
		{ID: 2, RoundID: 4, TableNumber: 2, P1ID: intPtr(3), P2ID: intPtr(4),
			Notes: strPtr(models.NoteThirdPlace)},
	}

	_, err := ComputePlacements(matches)
	assert.ErrorIs(t, err, ErrUnreportedMatches)
}

func TestComputePlacementsRequiresTaggedMatches(t *testing.T) {
	_, err := ComputePlacements([]*models.Match{
		headToHead(1, 4, 1, 1, 2),
	})
	assert.Error(t, err)
}
