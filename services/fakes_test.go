package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

// stubDB backs services that open transactions. The fake repositories ignore
// the executor they are handed, so a trivial driver whose transactions
// commit without doing anything is enough.
var stubDB = func() *sql.DB {
	sql.Register("servicestub", stubDriver{})
	db, err := sql.Open("servicestub", "")
	if err != nil {
		panic(err)
	}
	return db
}()

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

// In-memory repository fakes. They mirror the conditional-write and
// uniqueness behavior of the Postgres implementations closely enough for
// service-level tests, including safe concurrent use.

type fakePlayerRepo struct {
	mu      sync.Mutex
	nextID  int
	players map[int]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{nextID: 1, players: make(map[int]*models.Player)}
}

func (f *fakePlayerRepo) Create(_ context.Context, player *models.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.TournamentID == player.TournamentID && p.ExternalID == player.ExternalID {
			return repositories.ErrPlayerConflict
		}
	}
	player.ID = f.nextID
	f.nextID++
	cp := *player
	f.players[player.ID] = &cp
	return nil
}

func (f *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlayerRepo) GetByExternalID(_ context.Context, tournamentID int, externalID string) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.TournamentID == tournamentID && p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (f *fakePlayerRepo) ListByTournament(_ context.Context, tournamentID int, activeOnly bool) ([]*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Player
	for _, p := range f.players {
		if p.TournamentID != tournamentID {
			continue
		}
		if activeOnly && (!p.Active || p.Banned) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePlayerRepo) SetActive(_ context.Context, tournamentID int, externalID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.TournamentID == tournamentID && p.ExternalID == externalID {
			p.Active = active
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (f *fakePlayerRepo) SetBanned(_ context.Context, _ repositories.SQLExecutor, playerID int, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Banned = banned
	if banned {
		p.Active = false
	}
	return nil
}

func (f *fakePlayerRepo) AddScore(_ context.Context, _ repositories.SQLExecutor, playerID int, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Score += delta
	return nil
}

func (f *fakePlayerRepo) ResetScores(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.players {
		if p.TournamentID == tournamentID {
			p.Score = 0
		}
	}
	return nil
}

func (f *fakePlayerRepo) UpdateDecks(_ context.Context, _ repositories.SQLExecutor, playerID int, deck1, deck2, actual *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[playerID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Deck1, p.Deck2, p.ActualClass = deck1, deck2, actual
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func (f *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	match.ID = f.nextID
	f.nextID++
	cp := *match
	f.matches[match.ID] = &cp
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMatchRepo) list(filter func(*models.Match) bool) []*models.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Match
	for _, m := range f.matches {
		if filter(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

func (f *fakeMatchRepo) ListByRound(_ context.Context, roundID int) ([]*models.Match, error) {
	return f.list(func(m *models.Match) bool { return m.RoundID == roundID }), nil
}

func (f *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	return f.list(func(m *models.Match) bool { return m.TournamentID == tournamentID }), nil
}

func (f *fakeMatchRepo) ListByPlayer(_ context.Context, tournamentID, playerID int) ([]*models.Match, error) {
	return f.list(func(m *models.Match) bool {
		if m.TournamentID != tournamentID {
			return false
		}
		return (m.P1ID != nil && *m.P1ID == playerID) || (m.P2ID != nil && *m.P2ID == playerID)
	}), nil
}

func (f *fakeMatchRepo) SetResultIfUnset(_ context.Context, id int, result models.MatchResult, winnerID *int, notes *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return false, repositories.ErrMatchNotFound
	}
	if m.Result != nil {
		return false, nil
	}
	m.Result = &result
	m.WinnerID = winnerID
	if notes != nil {
		m.Notes = notes
	}
	return true, nil
}

func (f *fakeMatchRepo) ForceResult(_ context.Context, _ repositories.SQLExecutor, id int, result models.MatchResult, winnerID *int, notes *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Result = &result
	m.WinnerID = winnerID
	if notes != nil {
		m.Notes = notes
	}
	return nil
}

func (f *fakeMatchRepo) UpdateTableAndPlayers(_ context.Context, _ repositories.SQLExecutor, id int, tableNumber int, p1ID, p2ID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.TableNumber = tableNumber
	m.P1ID, m.P2ID = p1ID, p2ID
	return nil
}

func (f *fakeMatchRepo) CountUnresolvedByRound(_ context.Context, roundID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.matches {
		if m.RoundID == roundID && m.Result == nil {
			count++
		}
	}
	return count, nil
}

type fakeRoundRepo struct {
	mu     sync.Mutex
	nextID int
	rounds map[int]*models.Round
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{nextID: 1, rounds: make(map[int]*models.Round)}
}

func (f *fakeRoundRepo) CreateNext(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	number := 1
	for _, r := range f.rounds {
		if r.TournamentID == tournamentID && r.Number >= number {
			number = r.Number + 1
		}
	}
	round := &models.Round{
		ID:           f.nextID,
		TournamentID: tournamentID,
		Number:       number,
		Status:       models.RoundOngoing,
		CreatedAt:    time.Now(),
	}
	f.nextID++
	f.rounds[round.ID] = round
	cp := *round
	return &cp, nil
}

func (f *fakeRoundRepo) GetByID(_ context.Context, id int) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoundRepo) Current(_ context.Context, tournamentID int) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var current *models.Round
	for _, r := range f.rounds {
		if r.TournamentID != tournamentID {
			continue
		}
		if current == nil || r.Number > current.Number {
			current = r
		}
	}
	if current == nil {
		return nil, repositories.ErrRoundNotFound
	}
	cp := *current
	return &cp, nil
}

func (f *fakeRoundRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Round
	for _, r := range f.rounds {
		if r.TournamentID == tournamentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeRoundRepo) Close(_ context.Context, _ repositories.SQLExecutor, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	r.Status = models.RoundFinished
	return nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]*models.Tournament)}
}

func (f *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	f.nextID++
	cp := *t
	f.tournaments[t.ID] = &cp
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTournamentRepo) LatestByCommunity(_ context.Context, communityID int64) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Tournament
	for _, t := range f.tournaments {
		if t.CommunityID != communityID {
			continue
		}
		if latest == nil || t.ID > latest.ID {
			latest = t
		}
	}
	if latest == nil {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeTournamentRepo) ListByCommunity(_ context.Context, communityID int64, limit, offset int) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Tournament
	for _, t := range f.tournaments {
		if t.CommunityID == communityID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTournamentRepo) MarkFinished(_ context.Context, _ repositories.SQLExecutor, id int, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusFinished
	t.FinishedAt = &finishedAt
	return nil
}

func (f *fakeTournamentRepo) MarkArchived(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Archived = true
	return nil
}

func (f *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(f.tournaments, id)
	return nil
}

type metaKey struct {
	matchID  int
	playerID int
}

type fakeMetaRepo struct {
	mu     sync.Mutex
	nextID int
	metas  map[metaKey]*models.MatchPlayerMeta
}

func newFakeMetaRepo() *fakeMetaRepo {
	return &fakeMetaRepo{nextID: 1, metas: make(map[metaKey]*models.MatchPlayerMeta)}
}

func (f *fakeMetaRepo) Get(_ context.Context, matchID, playerID int) (*models.MatchPlayerMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.metas[metaKey{matchID, playerID}]
	if !ok {
		return &models.MatchPlayerMeta{MatchID: matchID, PlayerID: playerID}, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMetaRepo) UpsertField(_ context.Context, matchID, playerID int, field repositories.MetaField, value *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := metaKey{matchID, playerID}
	m, ok := f.metas[key]
	if !ok {
		m = &models.MatchPlayerMeta{ID: f.nextID, MatchID: matchID, PlayerID: playerID}
		f.nextID++
		f.metas[key] = m
	}
	switch field {
	case repositories.MetaPick1:
		m.Pick1 = value
	case repositories.MetaPick2:
		m.Pick2 = value
	case repositories.MetaActual:
		m.Actual = value
	}
	return nil
}

func (f *fakeMetaRepo) ClearPicks(_ context.Context, matchID, playerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.metas[metaKey{matchID, playerID}]; ok {
		m.Pick1, m.Pick2, m.Actual = nil, nil, nil
	}
	return nil
}

func (f *fakeMetaRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchPlayerMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MatchPlayerMeta
	for key, m := range f.metas {
		if key.matchID == matchID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (f *fakeMetaRepo) ListByTournament(context.Context, int) ([]*models.MatchPlayerMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MatchPlayerMeta
	for _, m := range f.metas {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// stubResultService satisfies ResultService for tests that never report
// through it. RecomputeScores replays match history against the fakes so
// CutToFinals can rebuild the score cache without a database.
type stubResultService struct {
	playerRepo *fakePlayerRepo
	matchRepo  *fakeMatchRepo
}

func (s *stubResultService) RecordResult(context.Context, int, WinnerSide) (*RecordOutcome, error) {
	panic("not used in this test")
}

func (s *stubResultService) RecomputeScores(ctx context.Context, tournamentID int) error {
	if err := s.playerRepo.ResetScores(ctx, nil, tournamentID); err != nil {
		return err
	}
	matches, _ := s.matchRepo.ListByTournament(ctx, tournamentID)
	for _, m := range matches {
		if m.Result == nil || *m.Result == models.ResultVoid {
			continue
		}
		winner := m.WinnerID
		if winner == nil && *m.Result == models.ResultBye {
			winner = m.P1ID
			if winner == nil {
				winner = m.P2ID
			}
		}
		if winner == nil {
			continue
		}
		if err := s.playerRepo.AddScore(ctx, nil, *winner, PointsPerWin); err != nil {
			return err
		}
	}
	return nil
}
