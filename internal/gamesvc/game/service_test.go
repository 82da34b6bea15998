package game_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
	"github.com/sketchroom/sketch-services/internal/gamesvc/store/memory"
)

// fakeBlobs records saved blobs and hands back media references.
type fakeBlobs struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeBlobs) SavePNG(name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	return "/media/" + name, nil
}

// fakeTransport records every message instead of publishing it.
type fakeTransport struct {
	mu       sync.Mutex
	unicasts map[string][]*comm.ServerMessage
	fanouts  []*comm.ServerMessage
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{unicasts: map[string][]*comm.ServerMessage{}}
}

func (f *fakeTransport) Send(channel string, msg *comm.ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts[channel] = append(f.unicasts[channel], msg)
	return nil
}

func (f *fakeTransport) Broadcast(gameID int64, msg *comm.ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fanouts = append(f.fanouts, msg)
	return nil
}

func (f *fakeTransport) sentTo(channel string) []*comm.ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*comm.ServerMessage{}, f.unicasts[channel]...)
}

func (f *fakeTransport) broadcasts() []*comm.ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*comm.ServerMessage{}, f.fanouts...)
}

func pngPayload(content string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

type ServiceSuite struct {
	suite.Suite
	store *memory.Store
	blobs *fakeBlobs
	svc   *game.Service
	ctx   context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.blobs = &fakeBlobs{}

	for _, text := range []string{
		"green house", "yellow submarine", "red tractor",
		"blue whale", "purple rain", "orange fox",
	} {
		err := s.store.CreateTask(s.ctx, &models.Task{Language: "en", Text: text})
		s.Require().NoError(err)
	}

	tasks, err := game.NewTaskRegistry(s.ctx, s.store, []string{"en"}, nil)
	s.Require().NoError(err)
	s.svc = game.NewService(s.store, s.blobs, tasks)
}

// newGame creates a room with a host and the given players.
func (s *ServiceSuite) newGame(cycles int, nicknames ...string) (*models.Game, []*models.Player) {
	g, _, err := s.svc.CreateGame(s.ctx, "host", "en", cycles, "")
	s.Require().NoError(err)
	var players []*models.Player
	for _, nick := range nicknames {
		_, p, err := s.svc.JoinGame(s.ctx, g.Code, nick)
		s.Require().NoError(err)
		players = append(players, p)
	}
	return g, players
}

func (s *ServiceSuite) advance(gameID int64) {
	s.Require().NoError(game.Advance(s.ctx, s.store, gameID))
}

// startedGame moves a fresh two-player game into the first writing
// stage.
func (s *ServiceSuite) startedGame() (*models.Game, []*models.Player, *models.Round) {
	g, players := s.newGame(1, "alice", "bob")
	s.Require().NoError(s.svc.StartGame(s.ctx, g.ID))
	s.advance(g.ID) // pregame -> preround
	s.advance(g.ID) // preround -> round, arms the first round
	round, err := s.store.CurrentRound(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Require().NotNil(round)
	s.Require().Equal(models.RoundWriting, round.Stage)
	return g, players, round
}

func (s *ServiceSuite) TestCreateGame() {
	g, host, err := s.svc.CreateGame(s.ctx, "host", "en", 0, "")
	s.Require().NoError(err)

	s.Len(g.Code, game.GameCodeLen)
	for _, r := range g.Code {
		s.True(r >= 'A' && r <= 'Z')
	}
	s.Equal(models.GamePregame, g.Stage)
	s.Equal(2, g.Cycles, "cycles default")
	s.True(host.IsHost)
}

func (s *ServiceSuite) TestCreateGameUnknownLanguage() {
	_, _, err := s.svc.CreateGame(s.ctx, "host", "fr", 1, "")
	var se *game.StateError
	s.Require().ErrorAs(err, &se)
}

func (s *ServiceSuite) TestJoinAssignsDistinctColors() {
	g, _ := s.newGame(1)
	seen := map[string]bool{}
	for i := 0; i < len(game.DrawingColors); i++ {
		_, p, err := s.svc.JoinGame(s.ctx, g.Code, "player")
		s.Require().NoError(err)
		s.NotEmpty(p.DrawingColor)
		s.False(seen[p.DrawingColor], "color %s handed out twice", p.DrawingColor)
		seen[p.DrawingColor] = true
	}
}

func (s *ServiceSuite) TestJoinCaseInsensitiveCode() {
	g, _ := s.newGame(1)
	_, _, err := s.svc.JoinGame(s.ctx, "  "+g.Code, "alice")
	s.Require().Error(err, "padded code does not resolve")

	_, p2, err := s.svc.JoinGame(s.ctx, lower(g.Code), "alice")
	s.Require().NoError(err)
	s.Equal(g.ID, p2.GameID)
}

func (s *ServiceSuite) TestJoinAfterStartRejected() {
	g, _ := s.newGame(1, "alice", "bob")
	s.Require().NoError(s.svc.StartGame(s.ctx, g.ID))
	s.advance(g.ID)

	_, _, err := s.svc.JoinGame(s.ctx, g.Code, "late")
	var se *game.StateError
	s.Require().ErrorAs(err, &se)
}

func (s *ServiceSuite) TestStartRequiresTwoPlayers() {
	g, _ := s.newGame(1, "alone")
	err := s.svc.StartGame(s.ctx, g.ID)
	var se *game.StateError
	s.Require().ErrorAs(err, &se)
	s.Equal(game.ErrKindStartGame, se.Kind)
}

func (s *ServiceSuite) TestStartCreatesRoundsSeedsAndResults() {
	g, players := s.newGame(2, "alice", "bob")
	s.Require().NoError(s.svc.StartGame(s.ctx, g.ID))

	var rounds []*models.Round
	for {
		r, err := s.store.NextNotStartedRound(s.ctx, g.ID)
		s.Require().NoError(err)
		if r == nil {
			break
		}
		rounds = append(rounds, r)
		s.Require().NoError(s.store.SetRoundStage(s.ctx, r.ID, models.RoundFinished))
	}
	s.Require().Len(rounds, 4, "two players times two cycles")

	usedTasks := map[string]bool{}
	for i, r := range rounds {
		s.Equal(i, r.OrderNumber)
		s.Equal(players[i%2].ID, r.PainterID, "painters rotate")
		s.False(usedTasks[r.PaintingTask], "task %q repeated", r.PaintingTask)
		usedTasks[r.PaintingTask] = true

		seed, err := s.store.VariantByAuthor(s.ctx, r.ID, r.PainterID)
		s.Require().NoError(err)
		s.Require().NotNil(seed)
		s.Equal(r.PaintingTask, seed.Text)
		s.Require().NotNil(seed.TaskID)
	}

	results, err := s.store.ListResults(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Len(results, 2, "one zeroed result per painter, none for the host")
	for _, r := range results {
		s.Zero(r.Result)
	}
}

func (s *ServiceSuite) TestStartTwiceRejected() {
	g, _ := s.newGame(1, "alice", "bob")
	s.Require().NoError(s.svc.StartGame(s.ctx, g.ID))
	s.advance(g.ID)

	err := s.svc.StartGame(s.ctx, g.ID)
	var se *game.StateError
	s.Require().ErrorAs(err, &se)
	s.Equal(game.ErrKindStartGame, se.Kind)
}

func (s *ServiceSuite) TestAvatarUpload() {
	g, players := s.newGame(1, "alice", "bob")
	alice := players[0]

	err := s.svc.SubmitMedia(s.ctx, game.MediaPainting, g.ID, alice.ID, pngPayload("selfie"))
	s.Require().NoError(err)

	p, err := s.store.GetPlayer(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.NotEmpty(p.Avatar)

	err = s.svc.SubmitMedia(s.ctx, game.MediaPainting, g.ID, alice.ID, pngPayload("selfie again"))
	var ve *game.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal(game.ErrCodeDuplicate, ve.Code)
}

func (s *ServiceSuite) TestPaintingUpload() {
	g, players := s.newGame(1, "alice", "bob")
	alice := players[0]
	s.Require().NoError(s.svc.StartGame(s.ctx, g.ID))
	s.advance(g.ID) // preround

	err := s.svc.SubmitMedia(s.ctx, game.MediaPainting, g.ID, alice.ID, pngPayload("drawing"))
	s.Require().NoError(err)

	round, err := s.store.NextRoundForPainter(s.ctx, g.ID, alice.ID)
	s.Require().NoError(err)
	s.Require().NotNil(round)
	s.NotEmpty(round.Painting)

	err = s.svc.SubmitMedia(s.ctx, game.MediaPainting, g.ID, alice.ID, pngPayload("drawing again"))
	var ve *game.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal(game.ErrCodeDuplicate, ve.Code)
}

func (s *ServiceSuite) TestApplyVariant() {
	g, players, round := s.startedGame()
	guesser := players[1]
	if round.PainterID == guesser.ID {
		guesser = players[0]
	}

	// mixed-alphabet word is rejected
	err := s.svc.SubmitMedia(s.ctx, game.MediaVariant, g.ID, guesser.ID, "кoшка")
	var ve *game.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal(game.ErrCodeInvalidAlphabet, ve.Code)

	// near-duplicate of the correct answer is rejected
	err = s.svc.SubmitMedia(s.ctx, game.MediaVariant, g.ID, guesser.ID, round.PaintingTask+"s")
	s.Require().ErrorAs(err, &ve)
	s.Equal(game.ErrCodeDuplicate, ve.Code)

	// sufficiently distinct guess is accepted
	err = s.svc.SubmitMedia(s.ctx, game.MediaVariant, g.ID, guesser.ID, "Giant Mushroom")
	s.Require().NoError(err)
	v, err := s.store.VariantByAuthor(s.ctx, round.ID, guesser.ID)
	s.Require().NoError(err)
	s.Require().NotNil(v)
	s.Equal("giant mushroom", v.Text, "stored normalized")

	// resubmission is a silent no-op
	err = s.svc.SubmitMedia(s.ctx, game.MediaVariant, g.ID, guesser.ID, "another idea")
	s.Require().NoError(err)
	variants, err := s.store.ListVariants(s.ctx, round.ID)
	s.Require().NoError(err)
	s.Len(variants, 2, "seed plus one guess")
}

func (s *ServiceSuite) TestSelectVariant() {
	g, players, round := s.startedGame()
	guesser := players[1]
	if round.PainterID == guesser.ID {
		guesser = players[0]
	}

	err := s.svc.SubmitMedia(s.ctx, game.MediaAnswer, g.ID, guesser.ID, round.PaintingTask)
	s.Require().NoError(err)

	correct, err := s.store.VariantByAuthor(s.ctx, round.ID, round.PainterID)
	s.Require().NoError(err)
	s.True(correct.SelectedByPlayer(guesser.ID))

	// a second pick is rejected
	err = s.svc.SubmitMedia(s.ctx, game.MediaAnswer, g.ID, guesser.ID, round.PaintingTask)
	var ve *game.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal(game.ErrCodeDuplicate, ve.Code)
}

func (s *ServiceSuite) TestPopulateDecoys() {
	s.store.AddAutoAnswers("en", "a decoy phrase", "another decoy", "third decoy")
	g, _, round := s.startedGame()

	// only the seed variant exists, two players -> one decoy
	s.Require().NoError(s.svc.PopulateDecoys(s.ctx, g.ID))

	variants, err := s.store.ListVariants(s.ctx, round.ID)
	s.Require().NoError(err)
	s.Require().Len(variants, 2)
	decoys := 0
	for _, v := range variants {
		if v.AuthorID == nil {
			decoys++
		}
	}
	s.Equal(1, decoys)

	// a second pass adds nothing
	s.Require().NoError(s.svc.PopulateDecoys(s.ctx, g.ID))
	variants, err = s.store.ListVariants(s.ctx, round.ID)
	s.Require().NoError(err)
	s.Len(variants, 2)
}

func (s *ServiceSuite) TestApplyLikes() {
	g, players, round := s.startedGame()
	painter := players[0]
	guesser := players[1]
	if round.PainterID != painter.ID {
		painter, guesser = guesser, painter
	}
	s.Require().NoError(s.svc.ApplyVariant(s.ctx, g.ID, guesser.ID, "giant mushroom"))
	guess, err := s.store.VariantByAuthor(s.ctx, round.ID, guesser.ID)
	s.Require().NoError(err)

	// own variant is skipped, someone else's is recorded
	s.Require().NoError(s.svc.ApplyLikes(s.ctx, g.ID, guesser.ID, []int64{guess.ID}))
	s.Require().NoError(s.svc.ApplyLikes(s.ctx, g.ID, painter.ID, []int64{guess.ID}))
	s.Require().NoError(s.svc.ApplyLikes(s.ctx, g.ID, painter.ID, []int64{guess.ID}))

	guess, err = s.store.VariantByAuthor(s.ctx, round.ID, guesser.ID)
	s.Require().NoError(err)
	s.Equal([]int64{painter.ID}, guess.LikedBy)
}

func (s *ServiceSuite) TestRestartClonesRoster() {
	g, _ := s.newGame(1, "alice", "bob")
	s.Require().NoError(s.store.SetGameStage(s.ctx, g.ID, models.GameFinished))

	fresh, err := s.svc.RestartGame(s.ctx, g.ID)
	s.Require().NoError(err)
	s.NotEqual(g.ID, fresh.ID)
	s.Equal(g.Code, fresh.Code, "finished game frees its code")

	players, err := s.store.ListPlayers(s.ctx, fresh.ID)
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	nicknames := map[string]bool{}
	for _, p := range players {
		nicknames[p.Nickname] = true
	}
	s.True(nicknames["host"] && nicknames["alice"] && nicknames["bob"])
}

// restarting mid-game finishes the old room so its coordinator stops
// and its code is handed to the clone
func (s *ServiceSuite) TestRestartMidGameFinishesOldGame() {
	g, _, _ := s.startedGame()

	fresh, err := s.svc.RestartGame(s.ctx, g.ID)
	s.Require().NoError(err)
	s.NotEqual(g.ID, fresh.ID)
	s.Equal(g.Code, fresh.Code)

	old, err := s.store.GetGame(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(models.GameFinished, old.Stage)
}

func (s *ServiceSuite) TestUnknownMediaType() {
	g, players := s.newGame(1, "alice", "bob")
	err := s.svc.SubmitMedia(s.ctx, "sculpture", g.ID, players[0].ID, "x")
	var se *game.StateError
	s.Require().True(errors.As(err, &se))
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
