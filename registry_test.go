package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreatesAndDestroysRooms(t *testing.T) {
	rec := &fakeRecorder{}
	reg := NewRoomRegistry(rec)

	room, p1, err := reg.Join("RED", "c1", "Ann", &fakeConn{})
	require.NoError(t, err)
	_, p2, err := reg.Join("RED", "c2", "Bob", &fakeConn{})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Count())
	assert.Same(t, room, reg.Get("RED"))
	assert.Equal(t, 2, room.PlayerCount())

	reg.Leave("RED", p1.ID)
	assert.Equal(t, 1, reg.Count())
	assert.False(t, room.Stopped())

	reg.Leave("RED", p2.ID)
	assert.Equal(t, 0, reg.Count())
	assert.Nil(t, reg.Get("RED"))
	assert.True(t, room.Stopped())

	assert.Equal(t, []string{EvtRoomOpen, EvtJoin, EvtJoin, EvtLeave, EvtLeave, EvtRoomClose}, rec.Types())
}

func TestRegistryRoomsAreIsolated(t *testing.T) {
	reg := NewRoomRegistry(nil)
	defer reg.StopAll()

	red, pr, err := reg.Join("RED", "c1", "Ann", &fakeConn{})
	require.NoError(t, err)
	blue, pb, err := reg.Join("BLUE", "c2", "Bob", &fakeConn{})
	require.NoError(t, err)

	assert.NotSame(t, red, blue)
	// roles restart per room
	assert.Equal(t, "P1", pr.ID)
	assert.Equal(t, "P1", pb.ID)

	assert.Equal(t, []RoomInfo{
		{Code: "BLUE", Players: 1, Phase: "waiting"},
		{Code: "RED", Players: 1, Phase: "waiting"},
	}, reg.List())
}

func TestRegistryFullRoomIsKept(t *testing.T) {
	reg := NewRoomRegistry(nil)
	defer reg.StopAll()

	for i := range MaxPlayersPerRoom {
		_, _, err := reg.Join("FULL", fmt.Sprintf("c%d", i), "", &fakeConn{})
		require.NoError(t, err)
	}
	_, _, err := reg.Join("FULL", "late", "", &fakeConn{})
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 1, reg.Count())
	assert.Equal(t, MaxPlayersPerRoom, reg.Get("FULL").PlayerCount())
}

func TestRegistryLeaveUnknownRoom(t *testing.T) {
	reg := NewRoomRegistry(nil)
	reg.Leave("NOPE", "P1")
	assert.Zero(t, reg.Count())
}

func TestRegistryStopAll(t *testing.T) {
	reg := NewRoomRegistry(nil)
	a, _, err := reg.Join("A", "c1", "", &fakeConn{})
	require.NoError(t, err)
	b, _, err := reg.Join("B", "c2", "", &fakeConn{})
	require.NoError(t, err)

	reg.StopAll()
	assert.True(t, a.Stopped())
	assert.True(t, b.Stopped())
	assert.Zero(t, reg.Count())
}
