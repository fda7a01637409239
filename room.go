package main

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	TickRate          = 60 // physics ticks per second
	TickDuration      = time.Second / TickRate
	MaxPlayersPerRoom = 30
)

var ErrRoomFull = errors.New("room is full")

// Broadcaster sends messages to one connection. Sends never block.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
	WantsBinary() bool
}

// Room is one isolated game: its players, round state and tick driver.
// Commands and ticks are serialized by mu.
type Room struct {
	Code string

	mu       sync.Mutex
	players  []*Player // join order; players[0] is the owner
	conns    map[string]Broadcaster
	game     *Game
	nextSeq  int
	recorder Recorder
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRoom creates a room in the waiting phase. Run must be started by the
// caller.
func NewRoom(code string, rec Recorder) *Room {
	if rec == nil {
		rec = nopRecorder{}
	}
	r := &Room{
		Code:     code,
		conns:    make(map[string]Broadcaster),
		recorder: rec,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	r.game = NewGame(r.nowMs())
	return r
}

func (r *Room) nowMs() int64 {
	return r.now().UnixMilli()
}

// Run drives the room at TickRate until Stop is called
func (r *Room) Run() {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.update()
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the tick driver. Safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// Stopped reports whether Stop has been called
func (r *Room) Stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// Join admits a new player bound to conn. The joiner gets a welcome, everyone
// gets a toast and a fresh state.
func (r *Room) Join(connID, name string, conn Broadcaster) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= MaxPlayersPerRoom {
		return nil, ErrRoomFull
	}

	r.nextSeq++
	balls := make([]*Ball, 0, len(r.players))
	for _, p := range r.players {
		balls = append(balls, p.Ball)
	}
	x, y := r.game.SpawnPoint(balls)
	player := NewPlayer(r.nextSeq, name, connID, x, y)
	r.players = append(r.players, player)
	r.conns[connID] = conn

	conn.SendJSON(NewWelcome(player, r.ownerID() == player.ID))
	r.broadcastMsg(NewToast("%s joined", player.Name))
	r.broadcastState()

	log.Info().Str("room", r.Code).Str("player", player.ID).Str("name", player.Name).
		Int("players", len(r.players)).Msg("player joined")
	r.recorder.Track(EvtJoin, r.Code, player.ID, "")
	return player, nil
}

// Leave removes a player and returns how many remain
func (r *Room) Leave(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(playerID)
	if idx < 0 {
		return len(r.players)
	}
	p := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.conns, p.ConnID)
	r.game.Effects.DropPlayer(p.ID)

	log.Info().Str("room", r.Code).Str("player", p.ID).Int("players", len(r.players)).Msg("player left")
	r.recorder.Track(EvtLeave, r.Code, p.ID, "")

	if len(r.players) > 0 {
		r.broadcastMsg(NewToast("%s left", p.Name))
		if idx == 0 {
			r.broadcastMsg(NewToast("%s is now the host", r.players[0].Name))
		}
		r.broadcastState()
	}
	return len(r.players)
}

// Handle applies one command from playerID. Commands whose preconditions do
// not hold are dropped without a reply.
func (r *Room) Handle(playerID string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.player(playerID)
	if p == nil {
		return
	}

	switch c := cmd.(type) {
	case JoinCmd:
		if conn, ok := r.conns[p.ConnID]; ok {
			r.sendState(conn)
		}
	case StartCmd:
		if r.ownerID() != p.ID || r.game.Phase != PhaseWaiting {
			return
		}
		r.startRound()
	case RestartCmd:
		if r.ownerID() != p.ID || c.ID != p.ID || r.game.Phase != PhaseEnded {
			return
		}
		r.startRound()
	case ThrowCmd:
		if !r.game.Throw(p, c, r.nowMs()) {
			return
		}
		r.broadcastState()
	}
}

// PlayerCount returns the number of players
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Info summarizes the room for listings
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{Code: r.Code, Players: len(r.players), Phase: r.game.Phase.String()}
}

// Snapshot returns the current broadcast state
func (r *Room) Snapshot() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Snapshot(r.players, r.ownerID(), r.nowMs())
}

func (r *Room) startRound() {
	nowMs := r.nowMs()
	r.game.NewRound(r.players, nowMs)
	r.broadcastMsg(NewStartMsg())
	r.broadcastState()

	log.Info().Str("room", r.Code).Int("players", len(r.players)).Msg("round started")
	r.recorder.Track(EvtRoundStart, r.Code, r.ownerID(), "")
}

// update runs one game tick
func (r *Room) update() {
	r.mu.Lock()
	defer r.mu.Unlock()

	nowMs := r.nowMs()
	ev := r.game.Step(r.players, nowMs)

	for _, t := range ev.Expired {
		log.Debug().Str("room", r.Code).Str("effect", string(t)).Msg("effect expired")
	}
	if ev.Spawned != nil {
		log.Debug().Str("room", r.Code).Str("item", string(ev.Spawned.Type)).Msg("item spawned")
	}
	if ev.Picked != nil {
		r.broadcastMsg(pickupToast(ev.Picked.Type, ev.Picker))
		log.Debug().Str("room", r.Code).Str("player", ev.Picker.ID).Str("item", string(ev.Picked.Type)).Msg("item picked up")
		r.recorder.Track(EvtPickup, r.Code, ev.Picker.ID, string(ev.Picked.Type))
	}
	if ev.Winner != nil {
		r.broadcastMsg(NewToast("%s reached the goal!", ev.Winner.Name))
		log.Info().Str("room", r.Code).Str("winner", ev.Winner.ID).Msg("round won")
		r.recorder.RecordRound(RoundResult{
			Room:       r.Code,
			Winner:     ev.Winner.ID,
			WinnerName: ev.Winner.Name,
			Players:    len(r.players),
			DurationMs: nowMs - r.game.StartedAt,
			EndedAt:    time.UnixMilli(nowMs).UTC(),
		})
	}

	r.broadcastState()
}

func pickupToast(t ItemType, by *Player) ToastMsg {
	switch t {
	case ItemFreeze:
		return NewToast("%s froze everyone!", by.Name)
	case ItemReverse:
		return NewToast("%s reversed the arena!", by.Name)
	default:
		return NewToast("%s grabbed a boost", by.Name)
	}
}

func (r *Room) ownerID() string {
	if len(r.players) == 0 {
		return ""
	}
	return r.players[0].ID
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) player(playerID string) *Player {
	if i := r.indexOf(playerID); i >= 0 {
		return r.players[i]
	}
	return nil
}

// broadcastState sends the current snapshot to every connection. The JSON
// frame is built once; the msgpack frame only when a client asked for it.
func (r *Room) broadcastState() {
	if len(r.conns) == 0 {
		return
	}
	msg := NewStateMsg(r.game.Snapshot(r.players, r.ownerID(), r.nowMs()))
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", r.Code).Msg("marshal state")
		return
	}
	var packed []byte
	for _, c := range r.conns {
		if !c.WantsBinary() {
			c.SendRaw(data)
			continue
		}
		if packed == nil {
			if packed, err = EncodeBinary(msg); err != nil {
				log.Error().Err(err).Str("room", r.Code).Msg("pack state")
				continue
			}
		}
		c.SendBinary(packed)
	}
}

func (r *Room) sendState(c Broadcaster) {
	msg := NewStateMsg(r.game.Snapshot(r.players, r.ownerID(), r.nowMs()))
	if c.WantsBinary() {
		if packed, err := EncodeBinary(msg); err == nil {
			c.SendBinary(packed)
		}
		return
	}
	c.SendJSON(msg)
}

// broadcastMsg sends a message to all clients in the room
func (r *Room) broadcastMsg(msg interface{}) {
	for _, c := range r.conns {
		c.SendJSON(msg)
	}
}
