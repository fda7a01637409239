package main

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultRoomCode = "PUBLIC"
	maxRooms        = 500
	maxRoomCodeLen  = 16
)

var ErrTooManyRooms = errors.New("too many active rooms")

// RoomRegistry maps room codes to live rooms. A room is created on the first
// join for its code and removed, with its tick driver stopped, when the last
// player leaves. Nothing survives a process restart.
type RoomRegistry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	recorder Recorder
}

// NewRoomRegistry creates an empty registry
func NewRoomRegistry(rec Recorder) *RoomRegistry {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &RoomRegistry{
		rooms:    make(map[string]*Room),
		recorder: rec,
	}
}

// Join admits a player into the room for code, creating and starting the
// room if needed. The registry lock is held throughout so a join never lands
// in a room that is being torn down.
func (rr *RoomRegistry) Join(code, connID, name string, conn Broadcaster) (*Room, *Player, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	room, ok := rr.rooms[code]
	created := false
	if !ok {
		if len(rr.rooms) >= maxRooms {
			return nil, nil, ErrTooManyRooms
		}
		room = NewRoom(code, rr.recorder)
		rr.rooms[code] = room
		go room.Run()
		created = true
		log.Info().Str("room", code).Msg("room created")
		rr.recorder.Track(EvtRoomOpen, code, "", "")
	}

	player, err := room.Join(connID, name, conn)
	if err != nil {
		if created {
			rr.destroy(room)
		}
		return nil, nil, err
	}
	return room, player, nil
}

// Leave removes a player and destroys the room once it is empty
func (rr *RoomRegistry) Leave(code, playerID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	room, ok := rr.rooms[code]
	if !ok {
		return
	}
	if room.Leave(playerID) == 0 {
		rr.destroy(room)
	}
}

// destroy stops the room and forgets it. Caller holds rr.mu.
func (rr *RoomRegistry) destroy(room *Room) {
	room.Stop()
	delete(rr.rooms, room.Code)
	log.Info().Str("room", room.Code).Msg("room destroyed")
	rr.recorder.Track(EvtRoomClose, room.Code, "", "")
}

// Get returns the room for code, or nil
func (rr *RoomRegistry) Get(code string) *Room {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return rr.rooms[code]
}

// Count returns the number of live rooms
func (rr *RoomRegistry) Count() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.rooms)
}

// List returns info about all active rooms ordered by code
func (rr *RoomRegistry) List() []RoomInfo {
	rr.mu.Lock()
	rooms := make([]*Room, 0, len(rr.rooms))
	for _, r := range rr.rooms {
		rooms = append(rooms, r)
	}
	rr.mu.Unlock()

	list := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, r.Info())
	}
	slices.SortFunc(list, func(a, b RoomInfo) int {
		return strings.Compare(a.Code, b.Code)
	})
	return list
}

// StopAll stops every room's tick driver, used on shutdown
func (rr *RoomRegistry) StopAll() {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	for code, r := range rr.rooms {
		r.Stop()
		delete(rr.rooms, code)
	}
}
