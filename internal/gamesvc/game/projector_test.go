package game_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
	"github.com/sketchroom/sketch-services/internal/gamesvc/store/memory"
)

type ProjectorSuite struct {
	suite.Suite
	store     *memory.Store
	transport *fakeTransport
	ctx       context.Context

	game   *models.Game
	host   *models.Player
	alice  *models.Player
	bob    *models.Player
	projct *game.Projector
}

func TestProjectorSuite(t *testing.T) {
	suite.Run(t, new(ProjectorSuite))
}

func (s *ProjectorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.transport = newFakeTransport()

	s.game = &models.Game{Code: "PROJ", Language: "en", Cycles: 1, Stage: models.GamePregame}
	s.Require().NoError(s.store.CreateGame(s.ctx, s.game))

	s.host = s.addPlayer("host", true, "ch-host")
	s.alice = s.addPlayer("alice", false, "ch-alice")
	s.bob = s.addPlayer("bob", false, "ch-bob")

	s.projct = game.NewProjector(s.store, s.transport, game.DefaultStageTimes(), s.game.ID)
}

func (s *ProjectorSuite) addPlayer(nick string, isHost bool, channel string) *models.Player {
	p := &models.Player{GameID: s.game.ID, IsHost: isHost, Nickname: nick, Channel: channel}
	s.Require().NoError(s.store.CreatePlayer(s.ctx, p))
	return p
}

func (s *ProjectorSuite) lastUpdate(channel string) *comm.Update {
	msgs := s.transport.sentTo(channel)
	s.Require().NotEmpty(msgs, "no update reached %s", channel)
	last := msgs[len(msgs)-1]
	s.Require().Equal("update", last.Command)
	var view comm.Update
	s.Require().NoError(json.Unmarshal(last.Data, &view))
	return &view
}

func (s *ProjectorSuite) TestPregameViews() {
	// alice has an avatar already, bob has not
	s.Require().NoError(s.store.SetPlayerAvatar(s.ctx, s.alice.ID, "/media/a.png"))

	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))

	hostView := s.lastUpdate("ch-host")
	s.Equal(game.ScreenStatus, hostView.ActiveScreen)
	s.Len(hostView.Players, 2, "host roster lists the painters only")
	s.True(hostView.Players["alice"].Finished)
	s.False(hostView.Players["bob"].Finished)

	s.Equal(game.ScreenStatus, s.lastUpdate("ch-alice").ActiveScreen)

	bobView := s.lastUpdate("ch-bob")
	s.Equal(game.ScreenTask, bobView.ActiveScreen)
	s.Equal(game.TaskDrawing, bobView.TaskType)
}

func (s *ProjectorSuite) TestIdenticalViewsAreSuppressed() {
	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))
	first := len(s.transport.sentTo("ch-bob"))
	s.Require().NotZero(first)

	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))
	s.Equal(first, len(s.transport.sentTo("ch-bob")), "unchanged view resent")

	// state change reaches the client again
	s.Require().NoError(s.store.SetPlayerAvatar(s.ctx, s.bob.ID, "/media/b.png"))
	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))
	s.Greater(len(s.transport.sentTo("ch-bob")), first)
}

func (s *ProjectorSuite) TestPausedGameSendsNothing() {
	s.Require().NoError(s.store.SetGamePaused(s.ctx, s.game.ID, true))
	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))
	s.Empty(s.transport.sentTo("ch-alice"))
	s.Empty(s.transport.sentTo("ch-host"))
}

// a reconnected socket gets the current view even when it is identical
// to what the previous socket already saw
func (s *ProjectorSuite) TestReconnectedPlayerGetsCurrentView() {
	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))
	s.Require().NotEmpty(s.transport.sentTo("ch-bob"))

	s.Require().NoError(s.store.SetPlayerChannel(s.ctx, s.bob.ID, "ch-bob-2"))
	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))

	view := s.lastUpdate("ch-bob-2")
	s.Equal(game.ScreenTask, view.ActiveScreen)
	s.Equal(game.TaskDrawing, view.TaskType)
}

func (s *ProjectorSuite) TestDisconnectedPlayerIsSkipped() {
	s.Require().NoError(s.store.SetPlayerChannel(s.ctx, s.bob.ID, ""))
	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))
	s.Empty(s.transport.sentTo("ch-bob"))
	s.NotEmpty(s.transport.sentTo("ch-alice"))
}

// selecting: every recipient sees all variants except their own, the
// painter and finished players see the waiting roster instead.
func (s *ProjectorSuite) TestSelectingViews() {
	s.Require().NoError(s.store.SetGameStage(s.ctx, s.game.ID, models.GameRound))
	round := &models.Round{
		GameID:       s.game.ID,
		PainterID:    s.alice.ID,
		PaintingTask: "a cat",
		Painting:     "/media/p.png",
		Stage:        models.RoundSelecting,
	}
	s.Require().NoError(s.store.CreateRound(s.ctx, round))

	for _, v := range []*models.Variant{
		{RoundID: round.ID, Text: "a cat", AuthorID: &s.alice.ID},
		{RoundID: round.ID, Text: "a fat rat", AuthorID: &s.bob.ID},
		{RoundID: round.ID, Text: "a decoy"},
	} {
		s.Require().NoError(s.store.CreateVariant(s.ctx, v))
	}

	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))

	bobView := s.lastUpdate("ch-bob")
	s.Equal(game.ScreenTask, bobView.ActiveScreen)
	s.Equal(game.TaskSelecting, bobView.TaskType)
	s.ElementsMatch([]string{"a cat", "a decoy"}, bobView.Variants, "own variant hidden")

	aliceView := s.lastUpdate("ch-alice")
	s.Equal(game.ScreenStatus, aliceView.ActiveScreen, "the painter waits")
}

func (s *ProjectorSuite) TestResultsView() {
	s.Require().NoError(s.store.SetGameStage(s.ctx, s.game.ID, models.GameFinished))
	for i, p := range []*models.Player{s.alice, s.bob} {
		s.Require().NoError(s.store.CreateResult(s.ctx, &models.Result{
			GameID:   s.game.ID,
			PlayerID: p.ID,
			Result:   1000 * (i + 1),
		}))
	}

	s.Require().NoError(s.projct.BroadcastOnce(s.ctx))

	view := s.lastUpdate("ch-host")
	s.Equal(game.ScreenResults, view.ActiveScreen)
	s.Require().Len(view.Results, 2)
	s.Equal("bob", view.Results[0].Nickname, "sorted by score descending")
	s.Equal(2000, view.Results[0].Result)
}
