package searcher

import (
	"fmt"
	"math"

	"mcts/game"
)

// Default exploration constants.
const (
	DefaultC     = math.Sqrt2
	DefaultPUCTC = 1.5
)

// SelectionPolicy picks which child of a fully expanded node to descend
// into. Select runs with the node's lock held and must only read node
// state. Priors returns the expansion-time distribution over moves, or
// nil for policies that grow children incrementally instead.
type SelectionPolicy interface {
	Select(d *decision) int
	Priors(state game.State, moves []game.Move) []float64
}

// PriorPolicy produces a probability per legal move. The result aligns
// with moves by index and sums to 1.
type PriorPolicy func(state game.State, moves []game.Move) []float64

// UCT is the classic upper confidence bound policy: mean reward plus an
// exploration bonus that shrinks with child visits.
type UCT struct {
	c2 float64
}

func NewUCT(c float64) UCT {
	if c < 0 || math.IsNaN(c) {
		panic(fmt.Sprintf("invalid exploration constant %v", c))
	}
	return UCT{c2: c * c}
}

// Select maximizes q + sqrt(c^2*ln(N)/n). An unexplored child scores
// infinite and wins immediately; ties keep the first child in move order.
func (u UCT) Select(d *decision) int {
	if d.visits == 0 {
		panic("cannot select from an unvisited node")
	}
	c2LnN := u.c2 * math.Log(float64(d.visits))

	best := 0
	bestScore := math.Inf(-1)
	for i, child := range d.children {
		visits, rewards := child.stats()
		score := ucb1(rewards, visits, c2LnN)
		if score == math.Inf(1) {
			return i
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func (u UCT) Priors(game.State, []game.Move) []float64 { return nil }

func ucb1(rewards float64, visits int, c2LnN float64) float64 {
	if visits == 0 { // Unexplored children rank above everything
		return math.Inf(1)
	}
	return rewards/float64(visits) + math.Sqrt(c2LnN/float64(visits))
}

// PUCT weighs the exploration bonus by a prior probability per move, so
// moves the prior favors get explored first.
type PUCT struct {
	c     float64
	prior PriorPolicy
}

func NewPUCT(c float64, prior PriorPolicy) PUCT {
	if c < 0 || math.IsNaN(c) {
		panic(fmt.Sprintf("invalid exploration constant %v", c))
	}
	if prior == nil {
		panic("PUCT requires a prior policy")
	}
	return PUCT{c: c, prior: prior}
}

// Select maximizes q + c*prior*sqrt(N)/(1+n) with q = 0 for unvisited
// children, so the priors order a fresh node's children.
func (p PUCT) Select(d *decision) int {
	sqrtN := math.Sqrt(math.Max(1, float64(d.visits)))

	best := 0
	bestScore := math.Inf(-1)
	for i, child := range d.children {
		visits, rewards := child.stats()
		score := mean(rewards, visits) + p.c*d.priors[i]*sqrtN/float64(1+visits)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func (p PUCT) Priors(state game.State, moves []game.Move) []float64 {
	return p.prior(state, moves)
}

// UniformPriors spreads probability evenly over the legal moves.
func UniformPriors(_ game.State, moves []game.Move) []float64 {
	priors := make([]float64, len(moves))
	for i := range priors {
		priors[i] = 1 / float64(len(moves))
	}
	return priors
}

// HeuristicPriors softmaxes one-step lookahead evaluations at the given
// temperature. Stochastic successors are sampled once, which keeps the
// priors cheap at the cost of sampling noise.
func HeuristicPriors(evaluate game.Evaluate, temperature float64) PriorPolicy {
	if evaluate == nil {
		panic("heuristic priors require an evaluation function")
	}
	if temperature <= 0 || math.IsNaN(temperature) {
		panic(fmt.Sprintf("invalid temperature %v", temperature))
	}
	return func(state game.State, moves []game.Move) []float64 {
		player := state.Player()
		values := make([]float64, len(moves))
		maxValue := math.Inf(-1)
		for i, move := range moves {
			values[i] = valueFor(state.Play(move), player, evaluate)
			if values[i] > maxValue {
				maxValue = values[i]
			}
		}
		priors := make([]float64, len(moves))
		sum := 0.0
		for i, v := range values {
			priors[i] = math.Exp((v - maxValue) / temperature)
			sum += priors[i]
		}
		for i := range priors {
			priors[i] /= sum
		}
		return priors
	}
}

// NormalizePriors rescales non-negative weights into a distribution.
// Sources scoring a wider support than the legal moves can project onto
// the move slice and renormalize through this. All-zero weights fall
// back to uniform.
func NormalizePriors(weights []float64) []float64 {
	priors := make([]float64, len(weights))
	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum == 0 {
		for i := range priors {
			priors[i] = 1 / float64(len(priors))
		}
		return priors
	}
	for i, w := range weights {
		if w > 0 {
			priors[i] = w / sum
		}
	}
	return priors
}

// validatePriors panics unless priors is a proper distribution over the
// move count. Expansion is the one place every prior passes through, so
// a bad prior source fails fast instead of skewing the search silently.
func validatePriors(priors []float64, moves int) {
	if len(priors) != moves {
		panic(fmt.Sprintf("%d priors for %d moves", len(priors), moves))
	}
	sum := 0.0
	for _, p := range priors {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			panic(fmt.Sprintf("invalid prior %v", p))
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		panic(fmt.Sprintf("priors sum to %v, expected 1", sum))
	}
}
