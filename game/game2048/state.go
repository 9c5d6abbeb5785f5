package game2048

import (
	"fmt"
	"strings"

	"mcts/game"
)

// Size is the board edge length.
const Size = 4

// maxExponent is the largest tile exponent reachable on a 4x4 board.
const maxExponent = 17

// Direction is a swipe move. Every swipe is stochastic because a new tile
// spawns on a random empty cell afterwards.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) IsStochastic() bool { return true }

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return "right"
	}
}

var directions = []Direction{Up, Down, Left, Right}

var spawnWeights = []float64{0.9, 0.1} // tile 2 vs tile 4

// State is a 4x4 board. Cells hold tile exponents, zero is empty.
type State struct {
	board [Size][Size]uint8
	score int
	rng   *game.RNG
}

// New deals a board with two starting tiles. States derived from the same
// seed replay the same spawn sequence.
func New(seed uint64) State {
	s := State{rng: game.NewRNG(seed)}
	s = s.spawn()
	s = s.spawn()
	return s
}

func (s State) Player() string { return "solo" }

// LegalMoves returns the directions whose swipe changes the board, in
// up/down/left/right order.
func (s State) LegalMoves() []game.Move {
	var moves []game.Move
	for _, d := range directions {
		if _, _, changed := slide(s.board, d); changed {
			moves = append(moves, d)
		}
	}
	return moves
}

func (s State) Play(move game.Move) game.State {
	d, ok := move.(Direction)
	if !ok {
		panic(fmt.Sprintf("not a 2048 move: %v", move))
	}
	board, gained, changed := slide(s.board, d)
	if !changed {
		panic(fmt.Sprintf("illegal move %v: swipe does not change the board", d))
	}
	next := State{board: board, score: s.score + gained, rng: s.rng}
	return next.spawn()
}

func (s State) IsTerminal() bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if s.board[r][c] == 0 {
				return false
			}
			if c+1 < Size && s.board[r][c] == s.board[r][c+1] {
				return false
			}
			if r+1 < Size && s.board[r][c] == s.board[r+1][c] {
				return false
			}
		}
	}
	return true
}

// Reward scales the best tile reached into [0, 1].
func (s State) Reward() float64 {
	if !s.IsTerminal() {
		panic("reward on a non-terminal state")
	}
	return float64(s.maxExponent()) / maxExponent
}

func (s State) Hash() game.StateHash {
	var a, b uint64
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			k := r*Size + c
			if k < 8 {
				a |= uint64(s.board[r][c]) << (8 * k)
			} else {
				b |= uint64(s.board[r][c]) << (8 * (k - 8))
			}
		}
	}
	return game.HashValues(a, b)
}

// Score is the sum of merge points so far.
func (s State) Score() int { return s.score }

// Tile returns the face value at (row, col), 0 for an empty cell.
func (s State) Tile(row, col int) int {
	if s.board[row][col] == 0 {
		return 0
	}
	return 1 << s.board[row][col]
}

func (s State) String() string {
	var b strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < Size; c++ {
			fmt.Fprintf(&b, "%6d", s.Tile(r, c))
		}
	}
	return b.String()
}

// spawn places a 2 (90%) or a 4 (10%) on a uniformly random empty cell.
func (s State) spawn() State {
	var empty [][2]int
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if s.board[r][c] == 0 {
				empty = append(empty, [2]int{r, c})
			}
		}
	}
	if len(empty) == 0 {
		return s
	}
	cell := empty[s.rng.Intn(len(empty))]
	exp := uint8(1)
	if s.rng.Weighted(spawnWeights) == 1 {
		exp = 2
	}
	s.board[cell[0]][cell[1]] = exp
	return s
}

func (s State) maxExponent() uint8 {
	var max uint8
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if s.board[r][c] > max {
				max = s.board[r][c]
			}
		}
	}
	return max
}

// index maps position j along slide line i to board coordinates, so that
// j = 0 is the edge tiles move toward.
func index(d Direction, i, j int) (int, int) {
	switch d {
	case Left:
		return i, j
	case Right:
		return i, Size - 1 - j
	case Up:
		return j, i
	default: // Down
		return Size - 1 - j, i
	}
}

// slide compacts and merges every line toward the swipe edge. Equal
// neighbors merge once per swipe, front to back. Returns the new board,
// the points gained, and whether anything moved.
func slide(board [Size][Size]uint8, d Direction) ([Size][Size]uint8, int, bool) {
	var out [Size][Size]uint8
	gained := 0
	for i := 0; i < Size; i++ {
		var tiles []uint8
		for j := 0; j < Size; j++ {
			r, c := index(d, i, j)
			if board[r][c] != 0 {
				tiles = append(tiles, board[r][c])
			}
		}
		j := 0
		for k := 0; k < len(tiles); k++ {
			exp := tiles[k]
			if k+1 < len(tiles) && tiles[k] == tiles[k+1] {
				exp++
				gained += 1 << exp
				k++
			}
			r, c := index(d, i, j)
			out[r][c] = exp
			j++
		}
	}
	return out, gained, out != board
}
