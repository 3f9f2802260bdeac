package services

import (
	"context"
	"sort"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
	"golang.org/x/sync/errgroup"
)

type ClassStat struct {
	Class   string  `json:"class"`
	Played  int     `json:"played"`
	Won     int     `json:"won"`
	WinRate float64 `json:"win_rate"`
}

// StatsService aggregates class performance from recorded match meta.
type StatsService interface {
	ClassStats(ctx context.Context, tournamentID int) ([]ClassStat, error)
}

type statsService struct {
	matchRepo repositories.MatchRepository
	metaRepo  repositories.MetaRepository
}

func NewStatsService(matchRepo repositories.MatchRepository, metaRepo repositories.MetaRepository) StatsService {
	return &statsService{matchRepo: matchRepo, metaRepo: metaRepo}
}

func (s *statsService) ClassStats(ctx context.Context, tournamentID int) ([]ClassStat, error) {
	var (
		matches []*models.Match
		metas   []*models.MatchPlayerMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		metas, err = s.metaRepo.ListByTournament(gctx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ComputeClassStats(matches, metas), nil
}

// ComputeClassStats counts, per class, how many resolved head-to-head games a
// player brought it to and how many of those they won. Byes and voided matches
// carry no class information and are skipped.
func ComputeClassStats(matches []*models.Match, metas []*models.MatchPlayerMeta) []ClassStat {
	byMatch := make(map[int]*models.Match, len(matches))
	for _, m := range matches {
		byMatch[m.ID] = m
	}

	played := make(map[string]int)
	won := make(map[string]int)
	for _, meta := range metas {
		if meta.Actual == nil {
			continue
		}
		match, ok := byMatch[meta.MatchID]
		if !ok || match.IsBye() || !match.Resolved() || *match.Result == models.ResultVoid {
			continue
		}
		class := *meta.Actual
		played[class]++
		if match.WinnerID != nil && *match.WinnerID == meta.PlayerID {
			won[class]++
		}
	}

	stats := make([]ClassStat, 0, len(played))
	for class, n := range played {
		stat := ClassStat{Class: class, Played: n, Won: won[class]}
		stat.WinRate = float64(stat.Won) / float64(n)
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Played != stats[j].Played {
			return stats[i].Played > stats[j].Played
		}
		return stats[i].Class < stats[j].Class
	})
	return stats
}
