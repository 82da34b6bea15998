// Package memory provides an in-memory Store used by tests and local
// development. It mirrors the semantics of the Postgres store,
// including the reset-then-apply contract of ApplyScore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

type Store struct {
	mu sync.RWMutex

	nextID      int64
	games       map[int64]*models.Game
	players     map[int64]*models.Player
	rounds      map[int64]*models.Round
	variants    map[int64]*models.Variant
	results     map[int64]*models.Result
	tasks       map[int64]*models.Task
	autoAnswers map[string][]string
}

var _ game.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		games:       map[int64]*models.Game{},
		players:     map[int64]*models.Player{},
		rounds:      map[int64]*models.Round{},
		variants:    map[int64]*models.Variant{},
		results:     map[int64]*models.Result{},
		tasks:       map[int64]*models.Task{},
		autoAnswers: map[string][]string{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddAutoAnswers seeds the decoy pool for a language.
func (s *Store) AddAutoAnswers(language string, answers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoAnswers[language] = append(s.autoAnswers[language], answers...)
}

// Games

func (s *Store) CreateGame(ctx context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	cp := *g
	s.games[g.ID] = &cp
	return nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (s *Store) GetActiveGameByCode(ctx context.Context, code string) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.games {
		if g.Code == code && g.Stage != models.GameFinished {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ActiveCodeExists(ctx context.Context, code string) (bool, error) {
	g, err := s.GetActiveGameByCode(ctx, code)
	return g != nil, err
}

func (s *Store) SetGameStage(ctx context.Context, id int64, stage models.GameStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.games[id]; ok {
		g.Stage = stage
	}
	return nil
}

func (s *Store) SetGamePaused(ctx context.Context, id int64, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.games[id]; ok {
		g.IsPaused = paused
	}
	return nil
}

// Players

func (s *Store) CreatePlayer(ctx context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetPlayerByChannel(ctx context.Context, channel string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.Channel != "" && p.Channel == channel {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPlayers(ctx context.Context, gameID int64) ([]*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Player
	for _, p := range s.players {
		if p.GameID == gameID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetPlayerChannel(ctx context.Context, playerID int64, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Channel = channel
	}
	return nil
}

func (s *Store) SetPlayerNickname(ctx context.Context, playerID int64, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Nickname = nickname
	}
	return nil
}

func (s *Store) SetPlayerAvatar(ctx context.Context, playerID int64, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		p.Avatar = avatar
	}
	return nil
}

func (s *Store) ColorTaken(ctx context.Context, gameID int64, color string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.GameID == gameID && p.DrawingColor == color {
			return true, nil
		}
	}
	return false, nil
}

// Rounds

func (s *Store) CreateRound(ctx context.Context, r *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	cp := *r
	s.rounds[r.ID] = &cp
	return nil
}

func (s *Store) roundsOf(gameID int64) []*models.Round {
	var out []*models.Round
	for _, r := range s.rounds {
		if r.GameID == gameID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out
}

func (s *Store) CurrentRound(ctx context.Context, gameID int64) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roundsOf(gameID) {
		if r.Stage != models.RoundNotStarted && r.Stage != models.RoundFinished {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) NextNotStartedRound(ctx context.Context, gameID int64) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roundsOf(gameID) {
		if r.Stage == models.RoundNotStarted {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) NextRoundForPainter(ctx context.Context, gameID, painterID int64) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roundsOf(gameID) {
		if r.Stage == models.RoundNotStarted && r.PainterID == painterID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CountRoundsByStage(ctx context.Context, gameID int64, stage models.RoundStage) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt := 0
	for _, r := range s.rounds {
		if r.GameID == gameID && r.Stage == stage {
			cnt++
		}
	}
	return cnt, nil
}

func (s *Store) CountPaintedPending(ctx context.Context, gameID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt := 0
	for _, r := range s.rounds {
		if r.GameID == gameID && r.Stage == models.RoundNotStarted && r.Painting != "" {
			cnt++
		}
	}
	return cnt, nil
}

func (s *Store) SetRoundStage(ctx context.Context, roundID int64, stage models.RoundStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rounds[roundID]; ok {
		r.Stage = stage
	}
	return nil
}

func (s *Store) SetRoundPainting(ctx context.Context, roundID int64, painting string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rounds[roundID]; ok {
		r.Painting = painting
	}
	return nil
}

// Variants

func (s *Store) CreateVariant(ctx context.Context, v *models.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.id()
	cp := *v
	s.variants[v.ID] = &cp
	return nil
}

func copyVariant(v *models.Variant) *models.Variant {
	cp := *v
	cp.SelectedBy = append([]int64{}, v.SelectedBy...)
	cp.LikedBy = append([]int64{}, v.LikedBy...)
	return &cp
}

func (s *Store) ListVariants(ctx context.Context, roundID int64) ([]*models.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Variant
	for _, v := range s.variants {
		if v.RoundID == roundID {
			out = append(out, copyVariant(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) VariantByAuthor(ctx context.Context, roundID, authorID int64) (*models.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.variants {
		if v.RoundID == roundID && v.AuthorID != nil && *v.AuthorID == authorID {
			return copyVariant(v), nil
		}
	}
	return nil, nil
}

func (s *Store) VariantByText(ctx context.Context, roundID int64, text string) (*models.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.variants {
		if v.RoundID == roundID && v.Text == text {
			return copyVariant(v), nil
		}
	}
	return nil, nil
}

func (s *Store) AddSelection(ctx context.Context, variantID, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.variants[variantID]; ok && !v.SelectedByPlayer(playerID) {
		v.SelectedBy = append(v.SelectedBy, playerID)
	}
	return nil
}

func (s *Store) HasSelected(ctx context.Context, roundID, playerID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.variants {
		if v.RoundID == roundID && v.SelectedByPlayer(playerID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountSelections(ctx context.Context, roundID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt := 0
	for _, v := range s.variants {
		if v.RoundID == roundID {
			cnt += len(v.SelectedBy)
		}
	}
	return cnt, nil
}

func (s *Store) AddLike(ctx context.Context, variantID, playerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.variants[variantID]; ok {
		for _, id := range v.LikedBy {
			if id == playerID {
				return nil
			}
		}
		v.LikedBy = append(v.LikedBy, playerID)
	}
	return nil
}

// Results

func (s *Store) CreateResult(ctx context.Context, r *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	cp := *r
	s.results[r.ID] = &cp
	return nil
}

func (s *Store) ListResults(ctx context.Context, gameID int64) ([]*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Result
	for _, r := range s.results {
		if r.GameID == gameID {
			cp := *r
			if p, ok := s.players[r.PlayerID]; ok {
				cp.Nickname = p.Nickname
				cp.Avatar = p.Avatar
				cp.DrawingColor = p.DrawingColor
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Result != out[j].Result {
			return out[i].Result > out[j].Result
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ApplyScore(ctx context.Context, gameID int64, awards []game.ScoreAward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.GameID == gameID {
			r.RoundIncrement = 0
		}
	}
	for _, a := range awards {
		for _, r := range s.results {
			if r.GameID == gameID && r.PlayerID == a.PlayerID {
				r.Result += a.Points
				r.RoundIncrement += a.Points
			}
		}
	}
	return nil
}

// Task corpora

// CreateTask upserts on (language, text), matching the tasks table
// constraint: re-creating an existing phrase reuses its row.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.tasks {
		if ex.Language == t.Language && ex.Text == t.Text {
			ex.Source = t.Source
			t.ID = ex.ID
			return nil
		}
	}
	t.ID = s.id()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *Store) RandomTask(ctx context.Context, language string, excludeIDs []int64) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	excluded := map[int64]bool{}
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var eligible []*models.Task
	for _, t := range s.tasks {
		if t.Language == language && !excluded[t.ID] {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	cp := *eligible[0]
	return &cp, nil
}

func (s *Store) HasTasks(ctx context.Context, language string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.Language == language {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RandomAutoAnswers(ctx context.Context, language string, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 1 {
		return nil, nil
	}
	answers := s.autoAnswers[language]
	if n > len(answers) {
		n = len(answers)
	}
	return append([]string{}, answers[:n]...), nil
}
