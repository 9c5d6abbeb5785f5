package searcher

import (
	"fmt"
	"math"
	"math/rand"

	"mcts/game"
)

// NoCutoff lets rollouts run until a terminal state.
const NoCutoff = math.MaxInt32

// Rollout plays out a state and scores it. Implementations draw all of
// their randomness from the rng handed in by the search worker so that
// seeded searches reproduce. full reports whether the playout reached a
// terminal state rather than a cutoff.
type Rollout interface {
	Simulate(state game.State, rng *rand.Rand) (player string, score float64, full bool)
}

// epsilonGreedy mixes uniform random moves with greedy one-step lookahead
// picks. At the cutoff depth the playout truncates and reports the
// heuristic evaluation of the reached state as a normal outcome.
type epsilonGreedy struct {
	epsilon  float64
	cutoff   int
	evaluate game.Evaluate
}

// NewRandomRollout plays uniformly random legal moves. evaluate scores
// the cutoff state and may be nil when cutoff is NoCutoff; a truncated
// playout without one scores a neutral 0.
func NewRandomRollout(cutoff int, evaluate game.Evaluate) Rollout {
	return newEpsilonGreedy(1, cutoff, evaluate)
}

// NewGreedyRollout always plays the move whose successor evaluates best
// for the player to move.
func NewGreedyRollout(cutoff int, evaluate game.Evaluate) Rollout {
	return newEpsilonGreedy(0, cutoff, evaluate)
}

// NewEpsilonGreedyRollout explores with probability epsilon and follows
// the evaluation function otherwise.
func NewEpsilonGreedyRollout(epsilon float64, cutoff int, evaluate game.Evaluate) Rollout {
	return newEpsilonGreedy(epsilon, cutoff, evaluate)
}

func newEpsilonGreedy(epsilon float64, cutoff int, evaluate game.Evaluate) *epsilonGreedy {
	if epsilon < 0 || epsilon > 1 || math.IsNaN(epsilon) {
		panic(fmt.Sprintf("epsilon %v outside [0, 1]", epsilon))
	}
	if cutoff < 1 {
		panic(fmt.Sprintf("invalid rollout cutoff %d", cutoff))
	}
	if evaluate == nil {
		if epsilon < 1 {
			panic("greedy rollout moves require an evaluation function")
		}
		evaluate = func(game.State) float64 { return 0 }
	}
	return &epsilonGreedy{epsilon: epsilon, cutoff: cutoff, evaluate: evaluate}
}

func (e *epsilonGreedy) Simulate(state game.State, rng *rand.Rand) (string, float64, bool) {
	for depth := 0; depth < e.cutoff; depth++ {
		if state.IsTerminal() {
			return state.Player(), state.Reward(), true
		}
		moves := state.LegalMoves()
		if len(moves) == 0 {
			panic(fmt.Sprintf("no legal moves in non-terminal state %d", state.Hash()))
		}
		var move game.Move
		if e.epsilon > 0 && rng.Float64() < e.epsilon {
			move = moves[rng.Intn(len(moves))]
		} else {
			move = e.greedyMove(state, moves)
		}
		state = state.Play(move)
	}
	if state.IsTerminal() {
		return state.Player(), state.Reward(), true
	}
	return state.Player(), e.evaluate(state), false
}

// greedyMove maximizes the successor evaluation for the player to move,
// keeping the first best in move order.
func (e *epsilonGreedy) greedyMove(state game.State, moves []game.Move) game.Move {
	player := state.Player()
	best := moves[0]
	bestValue := math.Inf(-1)
	for _, move := range moves {
		if v := valueFor(state.Play(move), player, e.evaluate); v > bestValue {
			best, bestValue = move, v
		}
	}
	return best
}

// valueFor scores a state from player's perspective. Terminal states
// report their exact reward; zero-sum turn taking negates scores held by
// the other player.
func valueFor(state game.State, player string, evaluate game.Evaluate) float64 {
	var v float64
	if state.IsTerminal() {
		v = state.Reward()
	} else {
		v = evaluate(state)
	}
	if state.Player() != player {
		v = -v
	}
	return v
}
