package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/sketchroom/sketch-services/internal/comm"
)

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*websocket.Conn, bool)
	GetRoomSockets func(int64) ([]string, bool)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncGetRoomSockets func(int64) ([]string, bool)) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetRoomSockets: fncGetRoomSockets,
	}
}

// consume messages from game service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish commands to game service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receives a message from the game service and routes it
// to one socket or fans it out to the whole room.
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.ServerMessage{}
	err := json.Unmarshal(msgNats.Data, message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if message.SocketId != "" {
		b.sendMessage(message.SocketId, message)
		return
	}
	if message.GameId != 0 {
		b.broadcastMessage(message)
		return
	}
	log.Warnf("message %q without recipient", message.Command)
}

// send socket message to one web client
func (b *Broker) sendMessage(socketId string, m *comm.ServerMessage) {
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Errorf("write to socket %s: %v", socketId, err)
		}
	}
}

// fan the message out to every socket joined to the game
func (b *Broker) broadcastMessage(m *comm.ServerMessage) {
	sockets, ok := b.GetRoomSockets(m.GameId)
	if !ok {
		return
	}
	for _, socketId := range sockets {
		b.sendMessage(socketId, m)
	}
}
