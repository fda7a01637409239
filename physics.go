package main

import "math"

const (
	ArenaWidth          = 900.0
	ArenaHeight         = 600.0
	BallRadius          = 14.0
	GoalRadius          = 38.0
	Friction            = 0.992 // velocity multiplier per tick
	WallRestitution     = -0.7
	ObstacleRestitution = 1.4
	SnapSpeed           = 0.02 // per-axis speed snapped to zero
	GoalStopSpeed       = 0.05 // |vx|+|vy| below this counts as stopped
	GoalReach           = 0.9  // fraction of the goal radius that counts
	obstacleSlop        = 0.5
)

// Ball is a player's ball. Units are arena pixels and pixels/tick.
type Ball struct {
	X, Y   float64
	VX, VY float64
}

// Obstacle is a static axis-aligned rectangle
type Obstacle struct {
	X, Y, W, H float64
}

// Goal is the target circle
type Goal struct {
	X, Y, R float64
}

// TotalSpeed is |vx|+|vy|, the metric used for stop checks
func (b *Ball) TotalSpeed() float64 {
	return math.Abs(b.VX) + math.Abs(b.VY)
}

// Speed is the velocity magnitude
func (b *Ball) Speed() float64 {
	return math.Hypot(b.VX, b.VY)
}

// Stop zeroes the velocity
func (b *Ball) Stop() {
	b.VX, b.VY = 0, 0
}

// Integrate applies friction, moves the ball one tick and snaps tiny
// velocity components to zero.
func Integrate(b *Ball) {
	b.VX *= Friction
	b.VY *= Friction
	b.X += b.VX
	b.Y += b.VY
	if math.Abs(b.VX) < SnapSpeed {
		b.VX = 0
	}
	if math.Abs(b.VY) < SnapSpeed {
		b.VY = 0
	}
}

// Bounce clamps the ball inside [r, dim-r] on both axes and reflects the
// offending velocity component with wall restitution.
func Bounce(b *Ball, width, height float64) {
	if b.X < BallRadius {
		b.X = BallRadius
		b.VX *= WallRestitution
	} else if b.X > width-BallRadius {
		b.X = width - BallRadius
		b.VX *= WallRestitution
	}
	if b.Y < BallRadius {
		b.Y = BallRadius
		b.VY *= WallRestitution
	} else if b.Y > height-BallRadius {
		b.Y = height - BallRadius
		b.VY *= WallRestitution
	}
}

// CollideObstacle resolves circle-vs-rectangle penetration. Returns true when
// the ball was touching the obstacle.
func CollideObstacle(b *Ball, o Obstacle) bool {
	nearestX := Clamp(b.X, o.X, o.X+o.W)
	nearestY := Clamp(b.Y, o.Y, o.Y+o.H)
	dx := b.X - nearestX
	dy := b.Y - nearestY
	dist := math.Hypot(dx, dy)
	if dist >= BallRadius {
		return false
	}

	nx, ny := 1.0, 0.0
	if dist > 0 {
		nx, ny = dx/dist, dy/dist
	}
	overlap := BallRadius - dist + obstacleSlop
	b.X += nx * overlap
	b.Y += ny * overlap

	vn := b.VX*nx + b.VY*ny
	b.VX -= ObstacleRestitution * vn * nx
	b.VY -= ObstacleRestitution * vn * ny
	return true
}

// CollideBalls resolves an equal-mass elastic collision between two balls.
// The normal velocity components are exchanged; tangential ones are kept.
func CollideBalls(a, b *Ball) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	minDist := 2 * BallRadius
	if dist >= minDist {
		return false
	}

	nx, ny := 1.0, 0.0
	if dist > 0 {
		nx, ny = dx/dist, dy/dist
	}
	half := (minDist - dist) / 2
	a.X -= nx * half
	a.Y -= ny * half
	b.X += nx * half
	b.Y += ny * half

	van := a.VX*nx + a.VY*ny
	vbn := b.VX*nx + b.VY*ny
	dv := vbn - van
	a.VX += dv * nx
	a.VY += dv * ny
	b.VX -= dv * nx
	b.VY -= dv * ny
	return true
}

// InGoal reports whether the ball rests inside the goal this tick
func InGoal(b *Ball, g Goal) bool {
	if b.TotalSpeed() >= GoalStopSpeed {
		return false
	}
	return Distance(b.X, b.Y, g.X, g.Y) < BallRadius+GoalReach*g.R
}

// ClampSpeed scales the velocity down uniformly so its magnitude is at most max
func ClampSpeed(b *Ball, max float64) {
	speed := b.Speed()
	if speed > max {
		scale := max / speed
		b.VX *= scale
		b.VY *= scale
	}
}

// StepBalls runs the per-tick kernel over every ball: integration, walls,
// obstacles, then all-pairs ball collisions and a final wall clamp.
func StepBalls(balls []*Ball, obstacles []Obstacle) {
	for _, b := range balls {
		Integrate(b)
		Bounce(b, ArenaWidth, ArenaHeight)
		for _, o := range obstacles {
			CollideObstacle(b, o)
		}
	}
	for i := 0; i < len(balls); i++ {
		for j := i + 1; j < len(balls); j++ {
			CollideBalls(balls[i], balls[j])
		}
	}
	// separation can push a ball past a wall
	for _, b := range balls {
		Bounce(b, ArenaWidth, ArenaHeight)
	}
}
