package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

// PointsPerWin is awarded for every win, byes included.
const PointsPerWin = 3.0

// TieBreakWeights are the coefficients of the composite tie-break blend.
// They are configuration, not derivation: reproduce them exactly.
type TieBreakWeights struct {
	Base   float64
	Points float64
	SOS    float64
	SOSS   float64
	OppMW  float64
}

func DefaultTieBreakWeights() TieBreakWeights {
	return TieBreakWeights{
		Base:   0.26123,
		Points: 0.004312,
		SOS:    -0.007638,
		SOSS:   0.003810,
		OppMW:  0.23119,
	}
}

type StandingsService interface {
	// ComputeStandings ranks all players of the tournament from committed
	// match history. activeOnly filters dropped/banned players from the
	// output; their matches still feed opponents' tie-breaks.
	ComputeStandings(ctx context.Context, tournamentID int, activeOnly bool) ([]models.StandingRow, error)
	// ComputeSwissStandings is the same computation with the finals and
	// third-place matches excluded, producing the final Swiss-phase table.
	ComputeSwissStandings(ctx context.Context, tournamentID int, activeOnly bool) ([]models.StandingRow, error)
}

type standingsService struct {
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
	weights    TieBreakWeights
}

func NewStandingsService(playerRepo repositories.PlayerRepository, matchRepo repositories.MatchRepository, weights TieBreakWeights) StandingsService {
	return &standingsService{
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		weights:    weights,
	}
}

func (s *standingsService) snapshot(ctx context.Context, tournamentID int) ([]*models.Player, []*models.Match, error) {
	var (
		players []*models.Player
		matches []*models.Match
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = s.playerRepo.ListByTournament(gCtx, tournamentID, false)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to read standings snapshot for tournament %d: %w", tournamentID, err)
	}
	return players, matches, nil
}

func (s *standingsService) ComputeStandings(ctx context.Context, tournamentID int, activeOnly bool) ([]models.StandingRow, error) {
	players, matches, err := s.snapshot(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ComputeFromSnapshot(players, matches, s.weights, activeOnly, false), nil
}

func (s *standingsService) ComputeSwissStandings(ctx context.Context, tournamentID int, activeOnly bool) ([]models.StandingRow, error) {
	players, matches, err := s.snapshot(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ComputeFromSnapshot(players, matches, s.weights, activeOnly, true), nil
}

type playerTally struct {
	player    *models.Player
	points    float64
	wins      int
	played    int
	mwp       float64
	oppMW     float64
	sos       float64
	soss      float64
	tieBreak  float64
	opponents map[int]struct{}
}

// ComputeFromSnapshot is the pure core of the scoring engine. Matches with
// no recorded result are ignored; void matches award nothing but still count
// nobody. Byes count as a played win without creating an opponent relation.
func ComputeFromSnapshot(players []*models.Player, matches []*models.Match, weights TieBreakWeights, activeOnly, excludeFinals bool) []models.StandingRow {
	tallies := make(map[int]*playerTally, len(players))
	for _, p := range players {
		tallies[p.ID] = &playerTally{player: p, opponents: make(map[int]struct{})}
	}

	for _, m := range matches {
		if m.Result == nil {
			continue
		}
		if excludeFinals && m.Notes != nil && (*m.Notes == models.NoteFinal || *m.Notes == models.NoteThirdPlace) {
			continue
		}
		switch *m.Result {
		case models.ResultVoid:
			continue
		case models.ResultBye:
			recipient := m.P1ID
			if recipient == nil {
				recipient = m.P2ID
			}
			if recipient != nil {
				if t, ok := tallies[*recipient]; ok {
					t.wins++
					t.played++
					t.points += PointsPerWin
				}
			}
		case models.ResultP1Won, models.ResultP2Won:
			if m.IsBye() {
				// Defensive: a one-sided match recorded as p1/p2 still only
				// credits the present side.
				side := m.P1ID
				if side == nil {
					side = m.P2ID
				}
				if t, ok := tallies[*side]; ok {
					t.wins++
					t.played++
					t.points += PointsPerWin
				}
				continue
			}
			if t, ok := tallies[*m.P1ID]; ok {
				t.played++
			}
			if t, ok := tallies[*m.P2ID]; ok {
				t.played++
			}
			winner := m.P1ID
			if *m.Result == models.ResultP2Won {
				winner = m.P2ID
			}
			if t, ok := tallies[*winner]; ok {
				t.wins++
				t.points += PointsPerWin
			}
			if _, ok1 := tallies[*m.P1ID]; ok1 {
				if _, ok2 := tallies[*m.P2ID]; ok2 {
					tallies[*m.P1ID].opponents[*m.P2ID] = struct{}{}
					tallies[*m.P2ID].opponents[*m.P1ID] = struct{}{}
				}
			}
		}
	}

	for _, t := range tallies {
		if t.played > 0 {
			t.mwp = float64(t.wins) / float64(t.played)
		}
	}

	for _, t := range tallies {
		if len(t.opponents) > 0 {
			var mwpSum float64
			for oppID := range t.opponents {
				opp := tallies[oppID]
				mwpSum += opp.mwp
				t.sos += opp.points
				for opp2ID := range opp.opponents {
					if opp2ID == t.player.ID {
						continue
					}
					t.soss += tallies[opp2ID].points
				}
			}
			t.oppMW = mwpSum / float64(len(t.opponents))
		}
		t.tieBreak = weights.Base +
			weights.Points*t.points +
			weights.SOS*t.sos +
			weights.SOSS*t.soss +
			weights.OppMW*t.oppMW
	}

	ordered := make([]*playerTally, 0, len(tallies))
	for _, t := range tallies {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.oppMW != b.oppMW {
			return a.oppMW > b.oppMW
		}
		return strings.ToLower(a.player.DisplayName) < strings.ToLower(b.player.DisplayName)
	})

	rows := make([]models.StandingRow, 0, len(ordered))
	for _, t := range ordered {
		if activeOnly && (!t.player.Active || t.player.Banned) {
			continue
		}
		rows = append(rows, models.StandingRow{
			Position:         len(rows) + 1,
			PlayerID:         t.player.ID,
			Name:             t.player.DisplayName,
			Points:           t.points,
			MatchWinPercent:  t.mwp,
			OpponentMatchWin: t.oppMW,
			TieBreakScore:    t.tieBreak,
		})
	}
	return rows
}
