package main

import "math"

const (
	ThrowMultiplier = 4.0
	MaxBallSpeed    = 14.0 // pixels/tick
	MoveThreshold   = 0.2  // total speed at or above which a throw is refused
	obstacleCount   = 5
	spawnAttempts   = 20
)

// Phase is the round lifecycle
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePlaying
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "waiting"
	}
}

// Game holds one room's round state. It is not safe for concurrent use; the
// owning Room serializes access.
type Game struct {
	Phase     Phase
	Winner    string
	Goal      Goal
	Obstacles []Obstacle
	Effects   Effects
	Spawner   *ItemSpawner
	Tick      uint64
	StartedAt int64 // epoch ms of the current round start
}

// TickEvents reports what happened during one Step
type TickEvents struct {
	Expired []ItemType
	Spawned *Item
	Picked  *Item
	Picker  *Player
	Winner  *Player
}

// NewGame creates a game in the waiting phase with an initial layout
func NewGame(nowMs int64) *Game {
	return &Game{
		Phase:     PhaseWaiting,
		Goal:      randomGoal(),
		Obstacles: randomObstacles(),
		Spawner:   NewItemSpawner(nowMs),
	}
}

// NewRound regenerates the layout, clears effects and items, puts every ball
// at rest on a fresh spawn point and enters the playing phase.
func (g *Game) NewRound(players []*Player, nowMs int64) {
	g.Goal = randomGoal()
	g.Obstacles = randomObstacles()
	g.Effects.Reset()
	g.Spawner.ResetRound(nowMs)
	g.Winner = ""
	g.Phase = PhasePlaying
	g.StartedAt = nowMs

	placed := make([]*Ball, 0, len(players))
	for _, p := range players {
		x, y := g.SpawnPoint(placed)
		p.Ball.X, p.Ball.Y = x, y
		p.Ball.Stop()
		p.BoostUntil = 0
		placed = append(placed, p.Ball)
	}
}

// SpawnPoint picks a position in the central 60% of the arena, retrying to
// stay clear of obstacles, the goal and the balls already placed.
func (g *Game) SpawnPoint(others []*Ball) (float64, float64) {
	var x, y float64
	for range spawnAttempts {
		x = ArenaWidth * randRange(0.2, 0.8)
		y = ArenaHeight * randRange(0.2, 0.8)
		if g.spawnClear(x, y, others) {
			break
		}
	}
	return x, y
}

func (g *Game) spawnClear(x, y float64, others []*Ball) bool {
	probe := Ball{X: x, Y: y}
	for _, o := range g.Obstacles {
		if CollideObstacle(&probe, o) {
			return false
		}
	}
	if Distance(x, y, g.Goal.X, g.Goal.Y) < g.Goal.R+2*BallRadius {
		return false
	}
	for _, b := range others {
		if Distance(x, y, b.X, b.Y) < 2*BallRadius {
			return false
		}
	}
	return true
}

// Throw applies a throw command for p. Returns false when a precondition
// fails and nothing changed.
func (g *Game) Throw(p *Player, cmd ThrowCmd, nowMs int64) bool {
	if g.Phase != PhasePlaying || g.Winner != "" {
		return false
	}
	if cmd.ID != "" && cmd.ID != p.ID {
		return false
	}
	if g.Effects.IsFrozen(p.ID) {
		return false
	}
	if p.Ball.TotalSpeed() >= MoveThreshold {
		return false
	}
	if !isFinite(cmd.VX) || !isFinite(cmd.VY) {
		return false
	}

	mul := ThrowMultiplier
	if p.HasBoost(nowMs) {
		mul *= BoostMultiplier
		p.BoostUntil = 0
	}
	if g.Effects.Reverse.Active {
		mul = -mul
	}
	p.Ball.VX = cmd.VX * mul
	p.Ball.VY = cmd.VY * mul
	ClampSpeed(p.Ball, MaxBallSpeed)
	return true
}

// Step advances the game by one tick
func (g *Game) Step(players []*Player, nowMs int64) TickEvents {
	var ev TickEvents
	g.Tick++
	ev.Expired = g.Effects.Expire(nowMs)
	if g.Phase != PhasePlaying {
		return ev
	}

	g.Effects.HoldFrozen(players)
	balls := make([]*Ball, len(players))
	for i, p := range players {
		balls[i] = p.Ball
	}
	StepBalls(balls, g.Obstacles)
	g.Effects.HoldFrozen(players)

	ev.Spawned = g.Spawner.Update(nowMs)
	if it, picker := g.Spawner.TryPickup(players, nowMs); it != nil {
		g.Effects.Apply(it.Type, picker, players, nowMs)
		ev.Picked, ev.Picker = it, picker
	}

	for _, p := range players {
		if InGoal(p.Ball, g.Goal) {
			g.Winner = p.ID
			g.Phase = PhaseEnded
			ev.Winner = p
			break
		}
	}
	return ev
}

// Snapshot builds the broadcast state from the authoritative player list
func (g *Game) Snapshot(players []*Player, owner string, nowMs int64) GameState {
	gs := GameState{
		Phase:     g.Phase.String(),
		Winner:    g.Winner,
		Owner:     owner,
		Players:   make([]PlayerState, 0, len(players)),
		Goal:      GoalState{X: round2(g.Goal.X), Y: round2(g.Goal.Y), R: g.Goal.R},
		Obstacles: make([]ObstacleState, 0, len(g.Obstacles)),
		Items:     make([]ItemState, 0, 1),
		Tick:      g.Tick,
		Now:       nowMs,
	}
	for _, p := range players {
		gs.Players = append(gs.Players, p.ToState(nowMs))
	}
	for _, o := range g.Obstacles {
		gs.Obstacles = append(gs.Obstacles, ObstacleState{X: round2(o.X), Y: round2(o.Y), W: round2(o.W), H: round2(o.H)})
	}
	if it := g.Spawner.Item(); it != nil {
		gs.Items = append(gs.Items, it.ToState())
	}
	gs.Freeze, gs.Reverse = g.Effects.ToState()
	return gs
}

// randomObstacles lays out the round's obstacles in the interior band
func randomObstacles() []Obstacle {
	obs := make([]Obstacle, 0, obstacleCount)
	for range obstacleCount {
		w := randRange(130, 170)
		h := randRange(24, 34)
		obs = append(obs, Obstacle{
			X: randRange(120, ArenaWidth-120-w),
			Y: randRange(140, ArenaHeight-80-h),
			W: w,
			H: h,
		})
	}
	return obs
}

// randomGoal places the goal in the right-hand band of the arena
func randomGoal() Goal {
	return Goal{
		X: math.Round(ArenaWidth * randRange(0.6, 0.85)),
		Y: math.Round(ArenaHeight * randRange(0.2, 0.8)),
		R: GoalRadius,
	}
}
