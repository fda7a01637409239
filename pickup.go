package main

import "math/rand/v2"

const (
	ItemRadius       = 18.0
	ItemRespawnDelay = 6000 // ms
	ItemRoundDelay   = 1200 // ms, first spawn after a round start
	itemBorderMargin = 60.0
)

// Item is a pickup lying in the arena
type Item struct {
	ID   string
	Type ItemType
	X, Y float64
}

// ItemSpawner keeps at most one item alive and schedules the next one
type ItemSpawner struct {
	item       *Item
	nextItemAt int64 // epoch ms
}

// NewItemSpawner schedules the first spawn one respawn delay from now
func NewItemSpawner(nowMs int64) *ItemSpawner {
	return &ItemSpawner{nextItemAt: nowMs + ItemRespawnDelay}
}

// Item returns the live item or nil
func (s *ItemSpawner) Item() *Item {
	return s.item
}

// NextAt returns the epoch ms of the next scheduled spawn
func (s *ItemSpawner) NextAt() int64 {
	return s.nextItemAt
}

// ResetRound clears the arena and schedules the quick first spawn
func (s *ItemSpawner) ResetRound(nowMs int64) {
	s.item = nil
	s.nextItemAt = nowMs + ItemRoundDelay
}

// Update spawns an item when none exists and the delay has elapsed.
// Returns the spawned item, or nil.
func (s *ItemSpawner) Update(nowMs int64) *Item {
	if s.item != nil || nowMs < s.nextItemAt {
		return nil
	}
	s.item = NewItem(ArenaWidth, ArenaHeight)
	return s.item
}

// TryPickup checks every player's ball against the live item. The first
// player in order that touches it takes it; the item is removed and the next
// spawn is scheduled.
func (s *ItemSpawner) TryPickup(players []*Player, nowMs int64) (*Item, *Player) {
	if s.item == nil {
		return nil, nil
	}
	it := s.item
	for _, p := range players {
		if Distance(p.Ball.X, p.Ball.Y, it.X, it.Y) < BallRadius+ItemRadius {
			s.item = nil
			s.nextItemAt = nowMs + ItemRespawnDelay
			return it, p
		}
	}
	return nil, nil
}

// NewItem creates an item of random type at a random position away from edges
func NewItem(worldW, worldH float64) *Item {
	return &Item{
		ID:   GenerateID(),
		Type: ItemTypes[rand.IntN(len(ItemTypes))],
		X:    randRange(itemBorderMargin, worldW-itemBorderMargin),
		Y:    randRange(itemBorderMargin, worldH-itemBorderMargin),
	}
}

// ToState converts to protocol state
func (it *Item) ToState() ItemState {
	return ItemState{
		ID:   it.ID,
		Type: string(it.Type),
		X:    round2(it.X),
		Y:    round2(it.Y),
	}
}
