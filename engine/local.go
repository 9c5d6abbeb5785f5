package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/searcher"
)

// LocalEngine runs every agent in process. After each move it appends a
// lineage segment to every player's pending list and hands a player its
// accumulated list when its turn comes, so agents can follow the game
// through their own trees.
type LocalEngine struct {
	state  game.State
	agents map[string]Agent

	// Observer, when set, is called after every played move with the
	// resulting state.
	Observer func(move game.Move, state game.State)
}

func NewLocalEngine(state game.State, agents map[string]Agent) *LocalEngine {
	if state == nil || state.IsTerminal() {
		panic("engine requires a playable starting state")
	}
	if len(agents) == 0 {
		panic("engine requires at least one agent")
	}
	if _, ok := agents[state.Player()]; !ok {
		panic(fmt.Sprintf("no agent for starting player %s", state.Player()))
	}
	return &LocalEngine{state: state, agents: agents}
}

// State returns the engine's current game state.
func (e *LocalEngine) State() game.State {
	return e.state
}

func (e *LocalEngine) Run() (string, metrics.GameMetric, []metrics.MoveMetric) {
	players := make([]string, 0, len(e.agents))
	for player := range e.agents {
		players = append(players, player)
	}
	pending := make(map[string][]searcher.Segment, len(e.agents))

	start := time.Now()
	startingPlayer := e.state.Player()
	log.Info().Str("player", startingPlayer).Msg("starting game")

	var moveMetrics []metrics.MoveMetric
	step := 0
	for !e.state.IsTerminal() && step < MaxMoves {
		player := e.state.Player()
		agent, ok := e.agents[player]
		if !ok {
			panic(fmt.Sprintf("no agent for player %s", player))
		}

		move, metric := agent.FindMove(e.state, pending[player])
		pending[player] = nil

		next := e.state.Play(move)
		segment := searcher.Segment{Move: move, StateHash: next.Hash()}
		for _, p := range players {
			pending[p] = append(pending[p], segment)
		}

		e.state = next
		step++
		if e.Observer != nil {
			e.Observer(move, next)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         step,
			Player:       player,
			SearchMetric: metric,
		})
		log.Debug().Int("step", step).Str("player", player).Stringer("move", move).Msg("played move")
	}

	winner := ""
	if e.state.IsTerminal() {
		winner = winnerOf(e.state, players)
	}
	end := time.Now()
	log.Info().Str("winner", winner).Int("moves", step).Msg("game over")

	return winner, metrics.GameMetric{
		StartingPlayer: startingPlayer,
		Winner:         winner,
		StartTime:      start,
		EndTime:        end,
		Duration:       end.Sub(start),
		TotalMoves:     step,
	}, moveMetrics
}

// winnerOf names the winner of a finished two player game. Single player
// games and draws have none.
func winnerOf(state game.State, players []string) string {
	if len(players) != 2 {
		return ""
	}
	reward := state.Reward()
	if reward == 0 {
		return ""
	}
	mover := state.Player()
	other := players[0]
	if other == mover {
		other = players[1]
	}
	if reward > 0 {
		return mover
	}
	return other
}
