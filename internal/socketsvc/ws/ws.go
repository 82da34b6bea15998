package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/comm"
	"github.com/sketchroom/sketch-services/internal/socketsvc/broker"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	roomMap sync.Map // to keep track of socketId with its gameId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Command {
	case "connected":
		// remember which room the socket belongs to for broadcasts
		s.StoreRoom(socketId, message.GameId)
		s.forward(socketId, message)
	case "start", "pause", "resume", "cancel", "restart", "like":
		s.forward(socketId, message)
	default:
		log.Warnf("unknown command received: %s", message.Command)
	}
}

// forward relays the command to the game service with the socket id
// attached.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "socket.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}

	log.Debugf("forwarded %s command from socket %s", msg.Command, socketId)
}

// HandleDisconnect drops the socket from the registries and tells the
// game service so it can unbind the player.
func (s *Ws) HandleDisconnect(socketId string) {
	gameId, hadRoom := s.GetRoom(socketId)
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)

	msg := &comm.WSMessage{Command: "disconnected", SocketId: socketId}
	if hadRoom {
		msg.GameId = gameId
	}
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal disconnect for NATS: %v", err)
		return
	}
	if err := s.Broker.Publish("socket.service", bytes); err != nil {
		log.Errorf("Failed to publish disconnect for socket %s: %v", socketId, err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) StoreRoom(socketId string, gameId int64) {
	s.roomMap.Store(socketId, gameId)
}

func (s *Ws) GetRoom(socketId string) (int64, bool) {
	room, ok := s.roomMap.Load(socketId)
	if !ok {
		return 0, false
	}
	return room.(int64), true
}

func (s *Ws) GetRoomSockets(gameId int64) ([]string, bool) {
	var sockets []string
	found := false

	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(int64) == gameId {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}
