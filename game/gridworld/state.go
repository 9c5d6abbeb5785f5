package gridworld

import (
	"fmt"

	"mcts/game"
)

// Action is a compass move. Every action is stochastic: the walker slips
// perpendicular to the intended direction with the layout's slip
// probability.
type Action int

const (
	North Action = iota
	East
	South
	West
)

func (a Action) IsStochastic() bool { return true }

func (a Action) String() string {
	switch a {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	default:
		return "west"
	}
}

func (a Action) left() Action  { return (a + 3) % 4 }
func (a Action) right() Action { return (a + 1) % 4 }

var actions = []game.Move{North, East, South, West}

type Point struct {
	X, Y int
}

func (p Point) shift(a Action) Point {
	switch a {
	case North:
		return Point{p.X, p.Y + 1}
	case East:
		return Point{p.X + 1, p.Y}
	case South:
		return Point{p.X, p.Y - 1}
	default:
		return Point{p.X - 1, p.Y}
	}
}

// Layout is the immutable map an episode runs on. (0, 0) is the bottom
// left corner.
type Layout struct {
	Width, Height int
	Start, Goal   Point
	Pits          []Point
	Walls         []Point
	Slip          float64
	MaxSteps      int
}

// DefaultLayout is the classic 4x3 grid: one wall in the middle, a pit
// next to the goal.
func DefaultLayout() Layout {
	return Layout{
		Width:    4,
		Height:   3,
		Start:    Point{0, 0},
		Goal:     Point{3, 2},
		Pits:     []Point{{3, 1}},
		Walls:    []Point{{1, 1}},
		Slip:     0.2,
		MaxSteps: 40,
	}
}

// grid is the shared lookup form of a Layout.
type grid struct {
	Layout
	walls   map[Point]bool
	pits    map[Point]bool
	weights []float64 // intended, slip left, slip right
}

// State is the walker's position on a grid.
type State struct {
	grid  *grid
	pos   Point
	steps int
	rng   *game.RNG
}

// New starts an episode on the layout. The seed drives all slips.
func New(layout Layout, seed uint64) State {
	if layout.Width < 1 || layout.Height < 1 {
		panic(fmt.Sprintf("degenerate grid %dx%d", layout.Width, layout.Height))
	}
	if layout.Slip < 0 || layout.Slip >= 1 {
		panic(fmt.Sprintf("slip probability %v outside [0, 1)", layout.Slip))
	}
	if layout.MaxSteps < 1 {
		panic("layout needs a positive step limit")
	}
	g := &grid{
		Layout:  layout,
		walls:   make(map[Point]bool, len(layout.Walls)),
		pits:    make(map[Point]bool, len(layout.Pits)),
		weights: []float64{1 - layout.Slip, layout.Slip / 2, layout.Slip / 2},
	}
	for _, p := range layout.Walls {
		g.walls[p] = true
	}
	for _, p := range layout.Pits {
		g.pits[p] = true
	}
	if !g.open(layout.Start) {
		panic(fmt.Sprintf("start %v is not an open cell", layout.Start))
	}
	if !g.open(layout.Goal) {
		panic(fmt.Sprintf("goal %v is not an open cell", layout.Goal))
	}
	return State{grid: g, pos: layout.Start, rng: game.NewRNG(seed)}
}

func (g *grid) open(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height && !g.walls[p]
}

func (s State) Player() string { return "walker" }

func (s State) LegalMoves() []game.Move {
	if s.IsTerminal() {
		return nil
	}
	return actions
}

// Play samples the actual direction, then moves. Bumping a wall or the
// edge keeps the walker in place but still costs the step.
func (s State) Play(move game.Move) game.State {
	a, ok := move.(Action)
	if !ok {
		panic(fmt.Sprintf("not a gridworld move: %v", move))
	}
	if s.IsTerminal() {
		panic("play on a terminal state")
	}
	actual := a
	switch s.rng.Weighted(s.grid.weights) {
	case 1:
		actual = a.left()
	case 2:
		actual = a.right()
	}
	next := s.pos.shift(actual)
	if s.grid.open(next) {
		s.pos = next
	}
	s.steps++
	return s
}

func (s State) IsTerminal() bool {
	return s.pos == s.grid.Goal || s.grid.pits[s.pos] || s.steps >= s.grid.MaxSteps
}

// Reward pays the goal by how quickly it was reached, a pit -1, and
// running out of steps 0.
func (s State) Reward() float64 {
	if !s.IsTerminal() {
		panic("reward on a non-terminal state")
	}
	switch {
	case s.pos == s.grid.Goal:
		return 1 - 0.5*float64(s.steps)/float64(s.grid.MaxSteps)
	case s.grid.pits[s.pos]:
		return -1
	default:
		return 0
	}
}

func (s State) Hash() game.StateHash {
	return game.HashValues(uint64(s.pos.X)<<32|uint64(s.pos.Y), uint64(s.steps))
}

func (s State) Pos() Point { return s.pos }

func (s State) Steps() int { return s.steps }

func (s State) Grid() Layout { return s.grid.Layout }
