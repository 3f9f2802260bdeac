package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/storage"
)

type fakeUploader struct {
	key         string
	contentType string
	body        []byte
}

func (f *fakeUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.key, f.contentType, f.body = key, contentType, body
	return &storage.UploadResult{Key: key, Location: "https://cdn.example/" + key}, nil
}

func (f *fakeUploader) Delete(context.Context, string) error { return nil }

func (f *fakeUploader) GetPublicURL(key string) string { return "https://cdn.example/" + key }

func TestExportTournamentUploadsArchiveAndMarksArchived(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	matchRepo := newFakeMatchRepo()
	roundRepo := newFakeRoundRepo()
	tourRepo := newFakeTournamentRepo()
	metaRepo := newFakeMetaRepo()
	standings := NewStandingsService(playerRepo, matchRepo, DefaultTieBreakWeights())
	uploader := &fakeUploader{}

	svc := NewExportService(tourRepo, playerRepo, roundRepo, matchRepo, metaRepo, standings, uploader, testLogger())

	tournament := &models.Tournament{CommunityID: 9, Name: "weekly", Status: models.StatusFinished}
	require.NoError(t, tourRepo.Create(ctx, tournament))
	alice := &models.Player{TournamentID: tournament.ID, ExternalID: "a", DisplayName: "alice", Active: true}
	bob := &models.Player{TournamentID: tournament.ID, ExternalID: "b", DisplayName: "bob", Active: true}
	require.NoError(t, playerRepo.Create(ctx, alice))
	require.NoError(t, playerRepo.Create(ctx, bob))
	round, err := roundRepo.CreateNext(ctx, nil, tournament.ID)
	require.NoError(t, err)
	result := models.ResultP1Won
	require.NoError(t, matchRepo.Create(ctx, nil, &models.Match{
		TournamentID: tournament.ID, RoundID: round.ID, TableNumber: 1,
		P1ID: &alice.ID, P2ID: &bob.ID, Result: &result, WinnerID: &alice.ID,
	}))

	exported, err := svc.ExportTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(exported.Key, "archives/tournament-1-"))
	assert.Equal(t, "application/json", uploader.contentType)

	var archive TournamentArchive
	require.NoError(t, json.Unmarshal(uploader.body, &archive))
	assert.Equal(t, tournament.ID, archive.Tournament.ID)
	assert.Len(t, archive.Players, 2)
	assert.Len(t, archive.Rounds, 1)
	assert.Len(t, archive.Matches, 1)
	require.Len(t, archive.Standings, 2)
	assert.Equal(t, alice.ID, archive.Standings[0].PlayerID)

	got, err := tourRepo.GetByID(ctx, tournament.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)
}

func TestExportTournamentWithoutStorage(t *testing.T) {
	tourRepo := newFakeTournamentRepo()
	svc := NewExportService(tourRepo, newFakePlayerRepo(), newFakeRoundRepo(), newFakeMatchRepo(), newFakeMetaRepo(),
		NewStandingsService(newFakePlayerRepo(), newFakeMatchRepo(), DefaultTieBreakWeights()), nil, testLogger())

	_, err := svc.ExportTournament(context.Background(), 1)
	assert.ErrorIs(t, err, ErrArchiveUnavailable)
}
