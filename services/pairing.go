package services

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

// Pairing is one table assignment. B is nil for a bye.
type Pairing struct {
	TableNumber int
	A           *models.Player
	B           *models.Player
}

type PairingService interface {
	// PairRound assigns every active player of the tournament to a table in
	// the given round and persists one match per table. Byes are persisted
	// already resolved with the point award applied. Not idempotent: the
	// state machine guarantees at-most-once invocation per round.
	PairRound(ctx context.Context, tournamentID, roundID int) ([]Pairing, error)
}

type pairingService struct {
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	rng        *rand.Rand
}

// NewPairingService builds the pairing engine. rng may be seeded for
// deterministic tests; pass rand.New(rand.NewSource(time.Now().UnixNano()))
// in production wiring.
func NewPairingService(playerRepo repositories.PlayerRepository, matchRepo repositories.MatchRepository, rng *rand.Rand) PairingService {
	return &pairingService{
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		rng:        rng,
	}
}

func (s *pairingService) PairRound(ctx context.Context, tournamentID, roundID int) ([]Pairing, error) {
	players, err := s.playerRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list active players for pairing: %w", err)
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	pairings := BuildPairings(players, s.rng)

	for _, p := range pairings {
		match := &models.Match{
			TournamentID: tournamentID,
			RoundID:      roundID,
			TableNumber:  p.TableNumber,
		}
		if p.B == nil {
			bye := models.ResultBye
			match.P1ID = &p.A.ID
			match.Result = &bye
			match.WinnerID = &p.A.ID
			notes := "BYE"
			match.Notes = &notes
			if err := s.matchRepo.Create(ctx, nil, match); err != nil {
				return nil, fmt.Errorf("failed to persist bye at table %d: %w", p.TableNumber, err)
			}
			if err := s.playerRepo.AddScore(ctx, nil, p.A.ID, PointsPerWin); err != nil {
				return nil, fmt.Errorf("failed to award bye points to player %d: %w", p.A.ID, err)
			}
			continue
		}
		match.P1ID = &p.A.ID
		match.P2ID = &p.B.ID
		if err := s.matchRepo.Create(ctx, nil, match); err != nil {
			return nil, fmt.Errorf("failed to persist match at table %d: %w", p.TableNumber, err)
		}
	}
	return pairings, nil
}

// BuildPairings partitions players into the top score bracket (everyone tied
// for the maximum score) and the rest, shuffles each partition independently,
// pairs inside the top bracket first and folds a single leftover into the
// remainder pool. One leftover overall receives the bye. There is no general
// rematch avoidance; that matches the documented behavior of the format.
func BuildPairings(players []*models.Player, rng *rand.Rand) []Pairing {
	top := players[0].Score
	for _, p := range players[1:] {
		if p.Score > top {
			top = p.Score
		}
	}

	var bracket, rest []*models.Player
	for _, p := range players {
		if p.Score == top {
			bracket = append(bracket, p)
		} else {
			rest = append(rest, p)
		}
	}
	rng.Shuffle(len(bracket), func(i, j int) { bracket[i], bracket[j] = bracket[j], bracket[i] })
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	var pairings []Pairing
	table := 1
	for len(bracket) >= 2 {
		pairings = append(pairings, Pairing{TableNumber: table, A: bracket[0], B: bracket[1]})
		bracket = bracket[2:]
		table++
	}

	pool := append(rest, bracket...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for len(pool) >= 2 {
		pairings = append(pairings, Pairing{TableNumber: table, A: pool[0], B: pool[1]})
		pool = pool[2:]
		table++
	}
	if len(pool) == 1 {
		pairings = append(pairings, Pairing{TableNumber: table, A: pool[0]})
	}
	return pairings
}
