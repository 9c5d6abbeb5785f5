package engine

import (
	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher"
)

const MaxMoves = 10000

// Agent decides one player's moves. lineage carries the moves played by
// anyone since the agent's previous turn, so a searching agent can
// re-root its tree. searcher.MCTS satisfies this.
type Agent interface {
	FindMove(state game.State, lineage []searcher.Segment) (game.Move, metrics.SearchMetric)
}

type Engine interface {
	// Run plays a game till a terminal state or a max number of moves is reached
	Run() (winner string, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric)
}
