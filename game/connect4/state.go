package connect4

import (
	"fmt"
	"strings"

	"mcts/game"
)

const (
	Cols = 7
	Rows = 6
)

const (
	Red    = "red"
	Yellow = "yellow"
)

// Move drops a disc into a column.
type Move int

func (m Move) IsStochastic() bool { return false }

func (m Move) String() string { return fmt.Sprintf("drop %d", int(m)) }

// State keeps one bitboard per player. Bit col*7+row with row 0 at the
// bottom; the seventh bit of each column stays empty so the win scan
// cannot wrap between columns.
type State struct {
	boards  [2]uint64
	heights [Cols]uint8
	turn    uint8
	moves   uint8
}

func New() State { return State{} }

func (s State) Player() string {
	if s.turn == 0 {
		return Red
	}
	return Yellow
}

// LegalMoves returns the playable columns left to right.
func (s State) LegalMoves() []game.Move {
	if s.IsTerminal() {
		return nil
	}
	moves := make([]game.Move, 0, Cols)
	for c := 0; c < Cols; c++ {
		if s.heights[c] < Rows {
			moves = append(moves, Move(c))
		}
	}
	return moves
}

func (s State) Play(move game.Move) game.State {
	m, ok := move.(Move)
	if !ok {
		panic(fmt.Sprintf("not a connect4 move: %v", move))
	}
	c := int(m)
	if c < 0 || c >= Cols || s.heights[c] >= Rows {
		panic(fmt.Sprintf("illegal move %v", move))
	}
	s.boards[s.turn] |= 1 << (uint(c)*7 + uint(s.heights[c]))
	s.heights[c]++
	s.moves++
	s.turn ^= 1
	return s
}

func (s State) IsTerminal() bool {
	return hasWon(s.boards[0]) || hasWon(s.boards[1]) || s.moves == Rows*Cols
}

// Reward is scored for the player to move: if the opponent just connected
// four the mover has lost.
func (s State) Reward() float64 {
	if !s.IsTerminal() {
		panic("reward on a non-terminal state")
	}
	if hasWon(s.boards[s.turn^1]) {
		return -1
	}
	return 0
}

func (s State) Hash() game.StateHash {
	return game.HashValues(s.boards[0], s.boards[1])
}

// Winner names the player with four in a row, or "" for a draw or an
// unfinished game.
func Winner(s game.State) string {
	st, ok := s.(State)
	if !ok {
		return ""
	}
	if hasWon(st.boards[0]) {
		return Red
	}
	if hasWon(st.boards[1]) {
		return Yellow
	}
	return ""
}

// At returns the player occupying (row, col) with row 0 at the bottom, or
// "" for an empty cell.
func (s State) At(row, col int) string {
	bit := uint64(1) << (uint(col)*7 + uint(row))
	if s.boards[0]&bit != 0 {
		return Red
	}
	if s.boards[1]&bit != 0 {
		return Yellow
	}
	return ""
}

func (s State) String() string {
	var b strings.Builder
	for r := Rows - 1; r >= 0; r-- {
		if r < Rows-1 {
			b.WriteByte('\n')
		}
		for c := 0; c < Cols; c++ {
			switch s.At(r, c) {
			case Red:
				b.WriteString("R ")
			case Yellow:
				b.WriteString("Y ")
			default:
				b.WriteString(". ")
			}
		}
	}
	return b.String()
}

// hasWon scans all four directions with the shift trick: 1 vertical, 7
// horizontal, 6 and 8 diagonal on the 7-bit column layout.
func hasWon(bb uint64) bool {
	for _, shift := range []uint{1, 7, 6, 8} {
		m := bb & (bb >> shift)
		if m&(m>>(2*shift)) != 0 {
			return true
		}
	}
	return false
}
