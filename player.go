package main

import "fmt"

const (
	BoostDuration   = 6000 // ms
	BoostMultiplier = 1.5
)

// Player is one connected occupant of a room. ID doubles as the role label
// ("P1", "P2", ...). ConnID names the transport handle without owning it.
type Player struct {
	ID         string
	Name       string
	ConnID     string
	Ball       *Ball
	BoostUntil int64 // epoch ms, 0 = none
}

// NewPlayer creates a player with a ball at rest at (x, y)
func NewPlayer(seq int, name, connID string, x, y float64) *Player {
	role := fmt.Sprintf("P%d", seq)
	return &Player{
		ID:     role,
		Name:   SanitizeName(name, role),
		ConnID: connID,
		Ball:   &Ball{X: x, Y: y},
	}
}

// HasBoost reports whether a boost is pending at nowMs
func (p *Player) HasBoost(nowMs int64) bool {
	return p.BoostUntil != 0 && nowMs <= p.BoostUntil
}

// GrantBoost arms the boost for the next throw
func (p *Player) GrantBoost(nowMs int64) {
	p.BoostUntil = nowMs + BoostDuration
}

// ToState converts to protocol state
func (p *Player) ToState(nowMs int64) PlayerState {
	return PlayerState{
		ID:    p.ID,
		Name:  p.Name,
		Ball:  BallState{X: round2(p.Ball.X), Y: round2(p.Ball.Y), VX: round2(p.Ball.VX), VY: round2(p.Ball.VY)},
		Boost: p.HasBoost(nowMs),
	}
}
