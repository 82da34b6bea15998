package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
	"github.com/sketchroom/sketch-services/internal/gamesvc/store/memory"
)

type nopBlobs struct{}

func (nopBlobs) SavePNG(name string, data []byte) (string, error) {
	return "/media/" + name, nil
}

type BrokerSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	svc   *game.Service
	b     *Broker

	game  *models.Game
	host  *models.Player
	guest *models.Player
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerSuite))
}

func (s *BrokerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()

	tasks, err := game.NewTaskRegistry(s.ctx, s.store, []string{"en"}, map[string][]string{
		"en": {"quiet lighthouse", "broken robot"},
	})
	s.Require().NoError(err)
	s.svc = game.NewService(s.store, nopBlobs{}, tasks)
	s.b = NewBroker(nil, s.svc, game.DefaultStageTimes())

	g, host, err := s.svc.CreateGame(s.ctx, "host", "en", 1, "")
	s.Require().NoError(err)
	_, guest, err := s.svc.JoinGame(s.ctx, g.Code, "alice")
	s.Require().NoError(err)
	s.game, s.host, s.guest = g, host, guest

	s.Require().NoError(s.store.SetPlayerChannel(s.ctx, host.ID, "sock-host"))
	s.Require().NoError(s.store.SetPlayerChannel(s.ctx, guest.ID, "sock-guest"))
}

func (s *BrokerSuite) command(cmd, socketID string) *comm.WSMessage {
	return &comm.WSMessage{Command: cmd, GameId: s.game.ID, SocketId: socketID}
}

// room-control commands are accepted from the host's socket only
func (s *BrokerSuite) TestRoomControlRequiresHost() {
	for _, cmd := range []string{"start", "pause", "resume", "cancel", "restart"} {
		s.True(s.b.senderIsHost(s.ctx, s.command(cmd, "sock-host")), cmd)
		s.False(s.b.senderIsHost(s.ctx, s.command(cmd, "sock-guest")), cmd)
		s.False(s.b.senderIsHost(s.ctx, s.command(cmd, "sock-nobody")), cmd)
	}
}

// hosting one room grants no control over another
func (s *BrokerSuite) TestHostOfAnotherGameRejected() {
	_, other, err := s.svc.CreateGame(s.ctx, "stranger", "en", 1, "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.SetPlayerChannel(s.ctx, other.ID, "sock-stranger"))

	s.False(s.b.senderIsHost(s.ctx, s.command("cancel", "sock-stranger")))
}
