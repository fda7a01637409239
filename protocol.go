package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Client -> Server message types
const (
	MsgJoin    = "join"
	MsgStart   = "start"
	MsgRestart = "restart"
	MsgThrow   = "throw"
)

// Server -> Client message types
const (
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgToast   = "toast"
	// MsgStart is also sent server -> client as the round start signal
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownMessage   = errors.New("unknown message type")
)

// InMessage is the wire shape shared by every inbound message; Type selects
// which of the other fields matter.
type InMessage struct {
	Type string   `json:"type"`
	ID   string   `json:"id,omitempty"`
	VX   *float64 `json:"vx,omitempty"`
	VY   *float64 `json:"vy,omitempty"`
}

// Command is a decoded inbound message. The concrete types below are the
// only implementations.
type Command interface {
	command()
}

// JoinCmd acknowledges the connection; admission already happened on upgrade
type JoinCmd struct{}

// StartCmd starts the first round
type StartCmd struct{}

// RestartCmd starts a new round after a win. ID must be the owner's role.
type RestartCmd struct {
	ID string
}

// ThrowCmd launches the sender's ball. VX/VY are direction components as
// produced by the aiming gesture; the room applies all scaling.
type ThrowCmd struct {
	ID     string
	VX, VY float64
}

func (JoinCmd) command()    {}
func (StartCmd) command()   {}
func (RestartCmd) command() {}
func (ThrowCmd) command()   {}

// DecodeCommand parses one inbound frame into its Command
func DecodeCommand(raw []byte) (Command, error) {
	var msg InMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch msg.Type {
	case MsgJoin:
		return JoinCmd{}, nil
	case MsgStart:
		return StartCmd{}, nil
	case MsgRestart:
		return RestartCmd{ID: msg.ID}, nil
	case MsgThrow:
		if msg.VX == nil || msg.VY == nil {
			return nil, fmt.Errorf("%w: throw without vx/vy", ErrMalformedMessage)
		}
		if !isFinite(*msg.VX) || !isFinite(*msg.VY) {
			return nil, fmt.Errorf("%w: non-finite throw", ErrMalformedMessage)
		}
		return ThrowCmd{ID: msg.ID, VX: *msg.VX, VY: *msg.VY}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// EncodeBinary packs an outbound message as msgpack using the same field
// names as the JSON encoding.
func EncodeBinary(msg interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBinary is the inverse of EncodeBinary
func DecodeBinary(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// WelcomeMsg is sent once to a player when they are admitted
type WelcomeMsg struct {
	Type   string `json:"type"`
	Player string `json:"player"`
	Name   string `json:"name"`
	Owner  bool   `json:"owner"`
}

// StateMsg carries the full room snapshot
type StateMsg struct {
	Type string    `json:"type"`
	Game GameState `json:"game"`
}

// StartMsg signals a round (re)start so clients can run a countdown
type StartMsg struct {
	Type string `json:"type"`
}

// ToastMsg is a short human-readable notification
type ToastMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewWelcome(p *Player, owner bool) WelcomeMsg {
	return WelcomeMsg{Type: MsgWelcome, Player: p.ID, Name: p.Name, Owner: owner}
}

func NewStateMsg(gs GameState) StateMsg {
	return StateMsg{Type: MsgState, Game: gs}
}

func NewStartMsg() StartMsg {
	return StartMsg{Type: MsgStart}
}

func NewToast(format string, args ...any) ToastMsg {
	return ToastMsg{Type: MsgToast, Message: fmt.Sprintf(format, args...)}
}

// BallState is a ball in the snapshot
type BallState struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Ball  BallState `json:"ball"`
	Boost bool      `json:"boost,omitempty"`
}

// GoalState is the goal circle
type GoalState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

// ObstacleState is one obstacle rectangle
type ObstacleState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ItemState is the live pickup
type ItemState struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FreezeState is the global freeze block
type FreezeState struct {
	Active bool     `json:"active"`
	By     string   `json:"by,omitempty"`
	Until  int64    `json:"until"`
	Frozen []string `json:"frozen"`
}

// ReverseState is the global reverse block
type ReverseState struct {
	Active bool   `json:"active"`
	By     string `json:"by,omitempty"`
	Until  int64  `json:"until"`
}

// GameState is the full state broadcast
type GameState struct {
	Phase     string          `json:"phase"`
	Winner    string          `json:"winner,omitempty"`
	Owner     string          `json:"owner,omitempty"`
	Players   []PlayerState   `json:"players"`
	Goal      GoalState       `json:"goal"`
	Obstacles []ObstacleState `json:"obstacles"`
	Items     []ItemState     `json:"items"`
	Freeze    FreezeState     `json:"freeze"`
	Reverse   ReverseState    `json:"reverse"`
	Tick      uint64          `json:"tick"`
	Now       int64           `json:"now"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}
