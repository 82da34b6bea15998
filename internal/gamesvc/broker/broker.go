package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/gamesvc/game"
	"github.com/sketchroom/sketch-services/internal/gamesvc/models"
)

const (
	TopicSocketService = "socket.service"
	TopicGameOut       = "game.out"
)

// Broker consumes client commands relayed by the socket service,
// dispatches them to the game service and keeps one coordinator plus
// projector pair running per active room. It is also the Transport the
// coordinators publish through.
type Broker struct {
	Conn  *nats.Conn
	svc   *game.Service
	times game.StageTimes

	mtx   sync.Mutex
	rooms map[int64]*room
}

type room struct {
	ctx         context.Context
	cancel      context.CancelFunc
	projector   *game.Projector
	coordinated bool
}

var _ game.Transport = (*Broker)(nil)

func NewBroker(nc *nats.Conn, svc *game.Service, times game.StageTimes) *Broker {
	return &Broker{
		Conn:  nc,
		svc:   svc,
		times: times,
		rooms: map[int64]*room{},
	}
}

// handles message coming from socket service
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch msg.Command {
	case "connected":
		b.handleConnected(ctx, msg)
	case "disconnected":
		b.handleDisconnected(ctx, msg)
	case "start", "pause", "resume", "cancel", "restart":
		if !b.authorizeHost(ctx, msg) {
			return
		}
		switch msg.Command {
		case "start":
			b.handleStart(ctx, msg)
		case "pause":
			b.setPaused(ctx, msg.GameId, true)
		case "resume":
			b.setPaused(ctx, msg.GameId, false)
		case "cancel":
			b.handleCancel(ctx, msg)
		case "restart":
			b.handleRestart(ctx, msg)
		}
	case "like":
		b.handleLike(ctx, msg)
	default:
		log.Warnf("unknown command %q from socket %s", msg.Command, msg.SocketId)
	}
}

// authorizeHost rejects room-control commands whose sender is not the
// host of the addressed game; the sender gets a command-level error.
func (b *Broker) authorizeHost(ctx context.Context, msg *comm.WSMessage) bool {
	if b.senderIsHost(ctx, msg) {
		return true
	}
	log.Warnf("socket %s is not the host of game %d, %q refused", msg.SocketId, msg.GameId, msg.Command)
	b.unicast("error", msg.SocketId, comm.CommandError{
		Command: msg.Command,
		Kind:    game.ErrKindHostOnly,
		Message: "only the host can control the game",
	})
	return false
}

func (b *Broker) senderIsHost(ctx context.Context, msg *comm.WSMessage) bool {
	p, err := b.svc.Store().GetPlayerByChannel(ctx, msg.SocketId)
	if err != nil {
		log.Errorf("resolve sender %s: %s", msg.SocketId, err)
		return false
	}
	return p != nil && p.IsHost && p.GameID == msg.GameId
}

// handleConnected binds the socket to the player, replays the game
// state to the newcomer and revives the room coordinator when the game
// is mid-flight.
func (b *Broker) handleConnected(ctx context.Context, msg *comm.WSMessage) {
	store := b.svc.Store()
	g, err := store.GetGame(ctx, msg.GameId)
	if err != nil || g == nil {
		log.Errorf("connected: game %d not found: %v", msg.GameId, err)
		return
	}
	p, err := store.GetPlayer(ctx, msg.PlayerId)
	if err != nil || p == nil {
		log.Errorf("connected: player %d not found: %v", msg.PlayerId, err)
		return
	}
	if err := store.SetPlayerChannel(ctx, p.ID, msg.SocketId); err != nil {
		log.Errorf("connected: bind channel for player %d: %s", p.ID, err)
		return
	}
	log.Infof("player %s connected to game %d as %s", p.Nickname, g.ID, msg.SocketId)

	b.unicast("state", msg.SocketId, comm.GameState{
		IsPaused: g.IsPaused,
		GameCode: g.Code,
		Stage:    string(g.Stage),
	})
	if p.IsHost {
		b.unicast("init_stage", msg.SocketId, comm.InitStage{Stage: string(g.Stage)})
		b.unicast("init_buttons", msg.SocketId, hostButtons(g))
	}

	b.ensureRoom(g.ID)
	if g.Stage == models.GamePreround || g.Stage == models.GameRound {
		b.ensureCoordinator(g.ID)
	}
	b.Notify(g.ID)
}

// handleDisconnected clears the socket binding; when the host drops the
// game is paused so no stage elapses unattended.
func (b *Broker) handleDisconnected(ctx context.Context, msg *comm.WSMessage) {
	store := b.svc.Store()
	p, err := store.GetPlayerByChannel(ctx, msg.SocketId)
	if err != nil || p == nil {
		return
	}
	if err := store.SetPlayerChannel(ctx, p.ID, ""); err != nil {
		log.Errorf("disconnected: unbind channel for player %d: %s", p.ID, err)
		return
	}
	log.Infof("player %s disconnected from game %d", p.Nickname, p.GameID)

	if p.IsHost {
		g, err := store.GetGame(ctx, p.GameID)
		if err != nil || g == nil || g.Stage == models.GameFinished {
			return
		}
		if err := store.SetGamePaused(ctx, p.GameID, true); err != nil {
			log.Errorf("pause after host disconnect: %s", err)
			return
		}
		b.broadcastCommand(p.GameID, "pause", comm.Notice{Text: "host disconnected"})
	}
}

func (b *Broker) handleStart(ctx context.Context, msg *comm.WSMessage) {
	if err := b.svc.StartGame(ctx, msg.GameId); err != nil {
		var se *game.StateError
		if errors.As(err, &se) {
			b.unicast("error", msg.SocketId, comm.CommandError{
				Command: "start",
				Kind:    se.Kind,
				Message: se.Message,
			})
			return
		}
		log.Errorf("start game %d: %s", msg.GameId, err)
		return
	}
	if err := game.Advance(ctx, b.svc.Store(), msg.GameId); err != nil {
		log.Errorf("advance game %d after start: %s", msg.GameId, err)
		return
	}
	b.ensureRoom(msg.GameId)
	b.ensureCoordinator(msg.GameId)
}

func (b *Broker) setPaused(ctx context.Context, gameID int64, paused bool) {
	if err := b.svc.Store().SetGamePaused(ctx, gameID, paused); err != nil {
		log.Errorf("set paused=%v for game %d: %s", paused, gameID, err)
		return
	}
	command := "resume"
	if paused {
		command = "pause"
	}
	b.broadcastCommand(gameID, command, nil)
}

func (b *Broker) handleCancel(ctx context.Context, msg *comm.WSMessage) {
	if err := b.svc.Store().SetGameStage(ctx, msg.GameId, models.GameFinished); err != nil {
		log.Errorf("cancel game %d: %s", msg.GameId, err)
		return
	}
	b.stopRoom(msg.GameId)
	b.broadcastCommand(msg.GameId, "cancel", nil)
	log.Infof("game %d cancelled", msg.GameId)
}

// handleRestart tears the old room down before cloning it so its
// coordinator stops ticking and its code is free for the clone.
func (b *Broker) handleRestart(ctx context.Context, msg *comm.WSMessage) {
	b.stopRoom(msg.GameId)
	g, err := b.svc.RestartGame(ctx, msg.GameId)
	if err != nil {
		log.Errorf("restart game %d: %s", msg.GameId, err)
		return
	}
	b.broadcastCommand(msg.GameId, "redirect", comm.Redirect{GameId: g.ID, Code: g.Code})
}

func (b *Broker) handleLike(ctx context.Context, msg *comm.WSMessage) {
	var payload struct {
		VariantIDs []int64 `json:"variant_ids"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("like: malformed payload from %s: %s", msg.SocketId, err)
		return
	}
	if err := b.svc.ApplyLikes(ctx, msg.GameId, msg.PlayerId, payload.VariantIDs); err != nil {
		log.Errorf("like: apply for player %d: %s", msg.PlayerId, err)
	}
}

func hostButtons(g *models.Game) comm.InitButtons {
	buttons := []string{"cancel"}
	if g.IsPaused {
		buttons = append(buttons, "resume")
	} else {
		buttons = append(buttons, "pause")
	}
	if g.Stage == models.GameFinished {
		buttons = []string{"restart"}
	}
	return comm.InitButtons{Buttons: buttons}
}

// ensureRoom starts the projector goroutine for the game unless one is
// already running. The projector exits by itself once the game is
// finished.
func (b *Broker) ensureRoom(gameID int64) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if _, ok := b.rooms[gameID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	projector := game.NewProjector(b.svc.Store(), b, b.times, gameID)
	b.rooms[gameID] = &room{ctx: ctx, cancel: cancel, projector: projector}

	go func() {
		if err := projector.Run(ctx); err != nil {
			log.Errorf("projector for game %d: %v", gameID, err)
		}
	}()
}

// ensureCoordinator attaches the stage-driving goroutine to an existing
// room once the game is past pregame. When it returns the whole room is
// torn down.
func (b *Broker) ensureCoordinator(gameID int64) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	r, ok := b.rooms[gameID]
	if !ok || r.coordinated {
		return
	}
	r.coordinated = true

	coordinator := game.NewCoordinator(b.svc, b, r.projector, b.times, gameID)
	go func() {
		if err := coordinator.Run(r.ctx); err != nil {
			log.Errorf("coordinator for game %d: %v", gameID, err)
		}
		b.stopRoom(gameID)
	}()
}

func (b *Broker) stopRoom(gameID int64) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if r, ok := b.rooms[gameID]; ok {
		r.cancel()
		delete(b.rooms, gameID)
	}
}

// Stop cancels every running room, used on shutdown.
func (b *Broker) Stop() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	for id, r := range b.rooms {
		r.cancel()
		delete(b.rooms, id)
	}
}

// Notify nudges the game's projector after an out-of-band state change,
// e.g. a media upload over HTTP.
func (b *Broker) Notify(gameID int64) {
	b.mtx.Lock()
	r, ok := b.rooms[gameID]
	b.mtx.Unlock()
	if ok {
		r.projector.Notify()
	}
}

func (b *Broker) unicast(command, socketID string, payload any) {
	msg, err := game.Message(command, 0, socketID, payload)
	if err != nil {
		log.Errorf("marshal %s payload: %s", command, err)
		return
	}
	if err := b.Send(socketID, msg); err != nil {
		log.Errorf("unicast %s to %s: %s", command, socketID, err)
	}
}

func (b *Broker) broadcastCommand(gameID int64, command string, payload any) {
	msg, err := game.Message(command, gameID, "", payload)
	if err != nil {
		log.Errorf("marshal %s payload: %s", command, err)
		return
	}
	if err := b.Broadcast(gameID, msg); err != nil {
		log.Errorf("broadcast %s to game %d: %s", command, gameID, err)
	}
}

// Send delivers a unicast message through the socket service.
func (b *Broker) Send(channel string, msg *comm.ServerMessage) error {
	msg.SocketId = channel
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.Publish(TopicGameOut, payload)
}

// Broadcast fans a message out to every socket joined to the game.
func (b *Broker) Broadcast(gameID int64, msg *comm.ServerMessage) error {
	msg.GameId = gameID
	msg.SocketId = ""
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.Publish(TopicGameOut, payload)
}

// consume commands relayed from the socket service
func (b *Broker) SubscribeSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}
	return nil
}
