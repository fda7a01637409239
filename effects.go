package main

import "slices"

// Effect durations in milliseconds
const (
	FreezeDuration  = 4000
	ReverseDuration = 5000
)

// ItemType identifies a pickup and the effect it triggers
type ItemType string

const (
	ItemFreeze  ItemType = "freeze"
	ItemReverse ItemType = "reverse"
	ItemBoost   ItemType = "boost"
)

// ItemTypes lists every pickup type, used for uniform random spawning
var ItemTypes = []ItemType{ItemFreeze, ItemReverse, ItemBoost}

// Freeze immobilizes every ball whose owner is listed in Frozen
type Freeze struct {
	Active bool
	By     string
	Until  int64
	Frozen []string
}

// Reverse mirrors ball velocities while active
type Reverse struct {
	Active bool
	By     string
	Until  int64
}

// Effects holds the room-global timed effects. Boost is per player and
// lives on Player.
type Effects struct {
	Freeze  Freeze
	Reverse Reverse
}

// Reset clears every global effect
func (e *Effects) Reset() {
	e.Freeze = Freeze{}
	e.Reverse = Reverse{}
}

// Apply dispatches a picked-up item to the matching effect
func (e *Effects) Apply(t ItemType, by *Player, players []*Player, nowMs int64) {
	switch t {
	case ItemFreeze:
		others := make([]string, 0, len(players))
		for _, p := range players {
			if p.ID != by.ID {
				others = append(others, p.ID)
			}
		}
		e.TriggerFreeze(by.ID, others, nowMs)
	case ItemReverse:
		balls := make([]*Ball, 0, len(players))
		for _, p := range players {
			balls = append(balls, p.Ball)
		}
		e.TriggerReverse(by.ID, balls, nowMs)
	case ItemBoost:
		by.GrantBoost(nowMs)
	}
}

// TriggerFreeze freezes the given players. A second trigger while active
// replaces the first.
func (e *Effects) TriggerFreeze(by string, frozen []string, nowMs int64) {
	e.Freeze = Freeze{
		Active: true,
		By:     by,
		Until:  nowMs + FreezeDuration,
		Frozen: frozen,
	}
}

// TriggerReverse inverts every ball's velocity once and mirrors new throws
// until expiry.
func (e *Effects) TriggerReverse(by string, balls []*Ball, nowMs int64) {
	e.Reverse = Reverse{
		Active: true,
		By:     by,
		Until:  nowMs + ReverseDuration,
	}
	for _, b := range balls {
		b.VX = -b.VX
		b.VY = -b.VY
	}
}

// IsFrozen reports whether the player is currently immobilized
func (e *Effects) IsFrozen(playerID string) bool {
	return e.Freeze.Active && slices.Contains(e.Freeze.Frozen, playerID)
}

// HoldFrozen forces the velocity of every frozen player's ball to zero
func (e *Effects) HoldFrozen(players []*Player) {
	if !e.Freeze.Active {
		return
	}
	for _, p := range players {
		if e.IsFrozen(p.ID) {
			p.Ball.Stop()
		}
	}
}

// Expire deactivates effects whose deadline has passed and returns the
// types that ended this call.
func (e *Effects) Expire(nowMs int64) []ItemType {
	var ended []ItemType
	if e.Freeze.Active && nowMs > e.Freeze.Until {
		e.Freeze = Freeze{}
		ended = append(ended, ItemFreeze)
	}
	if e.Reverse.Active && nowMs > e.Reverse.Until {
		e.Reverse = Reverse{}
		ended = append(ended, ItemReverse)
	}
	return ended
}

// DropPlayer removes a departed player from the frozen set
func (e *Effects) DropPlayer(playerID string) {
	if !e.Freeze.Active {
		return
	}
	e.Freeze.Frozen = slices.DeleteFunc(e.Freeze.Frozen, func(id string) bool {
		return id == playerID
	})
}

// ToState converts to protocol state
func (e *Effects) ToState() (FreezeState, ReverseState) {
	frozen := make([]string, len(e.Freeze.Frozen))
	copy(frozen, e.Freeze.Frozen)
	return FreezeState{
			Active: e.Freeze.Active,
			By:     e.Freeze.By,
			Until:  e.Freeze.Until,
			Frozen: frozen,
		}, ReverseState{
			Active: e.Reverse.Active,
			By:     e.Reverse.By,
			Until:  e.Reverse.Until,
		}
}
