package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 12
)

type outFrame struct {
	binary bool
	data   []byte
}

// Client is one websocket connection. It is the gateway between the
// transport and the room the player was admitted to.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan outFrame
	id         string
	remoteAddr string
	binary     bool
	limiter    *rate.Limiter

	// set once by admit, read only by ReadPump
	room   *Room
	player *Player
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, binary bool) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan outFrame, sendBufSize),
		id:         GenerateID(),
		remoteAddr: remoteAddr,
		binary:     binary,
		limiter:    rate.NewLimiter(maxMessagesPerSec, maxMessagesPerSec),
	}
}

// admit joins the requested room. On a full room the client gets one toast
// and the connection is closed by the server.
func (c *Client) admit(code, name string) bool {
	room, player, err := c.hub.rooms.Join(code, c.id, name, c)
	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			c.SendJSON(NewToast("Room %s is full", code))
		} else {
			c.SendJSON(NewToast("Cannot join room %s right now", code))
		}
		log.Info().Err(err).Str("room", code).Str("addr", c.remoteAddr).Msg("join refused")
		c.hub.Unregister(c)
		return false
	}
	c.room = room
	c.player = player
	return true
}

// leave removes the player from its room; the room is destroyed if empty
func (c *Client) leave() {
	if c.room == nil {
		return
	}
	c.hub.rooms.Leave(c.room.Code, c.player.ID)
	c.room = nil
	c.player = nil
}

// ReadPump admits the client into its room and then reads messages from the
// WebSocket connection until it closes.
func (c *Client) ReadPump(code, name string) {
	defer func() {
		c.leave()
		c.hub.Unregister(c)
		c.hub.TrackDisconnect(c.remoteAddr)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// a refused client keeps reading until WritePump has flushed the toast
	// and closed the socket
	c.admit(code, name)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("addr", c.remoteAddr).Msg("ws read error")
			}
			break
		}

		if !c.limiter.Allow() {
			log.Warn().Str("addr", c.remoteAddr).Msg("rate limit exceeded, disconnecting")
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			msgType := websocket.TextMessage
			if frame.binary {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, frame.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound message")
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text message
func (c *Client) SendRaw(data []byte) {
	c.enqueue(outFrame{data: data})
}

// SendBinary queues pre-marshaled bytes as a binary message
func (c *Client) SendBinary(data []byte) {
	c.enqueue(outFrame{binary: true, data: data})
}

// WantsBinary reports whether state frames should be msgpack
func (c *Client) WantsBinary() bool {
	return c.binary
}

func (c *Client) enqueue(f outFrame) {
	select {
	case c.send <- f:
	default:
		// client too slow, drop the frame; the next state is complete anyway
	}
}

// handleMessage decodes one inbound frame and forwards it to the room.
// Malformed and unknown messages are ignored.
func (c *Client) handleMessage(raw []byte) {
	if c.room == nil {
		return
	}
	cmd, err := DecodeCommand(raw)
	if err != nil {
		log.Debug().Err(err).Str("player", c.player.ID).Msg("ignored message")
		return
	}
	c.room.Handle(c.player.ID, cmd)
}
