package game

import "fmt"

// Move is a single action available to the player to move. A stochastic
// move leads to a sampled successor, so repeated Play calls with the same
// move may return different states.
type Move interface {
	fmt.Stringer
	IsStochastic() bool
}

type StateHash uint64

// State should be immutable - operations on State always return a new copy.
// LegalMoves lists moves in a stable order and is non-empty unless the
// state is terminal. Reward scores a terminal state for the player to move
// (-1 loss, 0 draw, +1 win in adversarial games, [0, 1] in single-player
// games) and panics on non-terminal states.
type State interface {
	Player() string
	LegalMoves() []Move
	Play(Move) State
	Hash() StateHash
	IsTerminal() bool
	Reward() float64
}

// Evaluates the game state to a score between -1 and 1 indicating how
// favorable the current player's position is to a winning (positive)
// outcome.
type Evaluate func(State) float64

// HashValues folds values into a single FNV-1a hash. Domains use it to
// build state hashes from their packed representations.
func HashValues(vs ...uint64) StateHash {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, v := range vs {
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * i)) & 0xff
			h *= prime64
		}
	}
	return StateHash(h)
}
