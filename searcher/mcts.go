package searcher

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mcts/experiments/metrics"
	"mcts/game"
)

type Option func(m *MCTS)

// Segment is one step of a move lineage: the move played and the hash of
// the state it produced. A lineage lets the next search descend the old
// tree to the new root instead of starting over.
type Segment struct {
	Move      game.Move
	StateHash game.StateHash
}

type MCTS struct {
	goroutines int
	duration   time.Duration
	episodes   int
	cutoff     int
	evaluate   game.Evaluate
	selection  SelectionPolicy
	rollout    Rollout
	seed       int64
	seeded     bool
	metrics    metrics.Collector
	root       *decision
}

// WithDuration bounds each search by wall clock time. Workers check the
// deadline between iterations, so at least one iteration always runs.
func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

// WithEpisodes bounds each search by iteration count.
func WithEpisodes(episodes int) Option {
	return func(m *MCTS) {
		if episodes > 0 {
			m.episodes = episodes
		}
	}
}

// WithCutoff truncates the default rollout after depth moves.
func WithCutoff(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.cutoff = depth
		}
	}
}

// WithEvaluationFn scores truncated playouts and greedy moves of the
// default rollout.
func WithEvaluationFn(evaluate game.Evaluate) Option {
	return func(m *MCTS) {
		if evaluate != nil {
			m.evaluate = evaluate
		}
	}
}

// WithSelectionPolicy replaces the default UCT policy.
func WithSelectionPolicy(policy SelectionPolicy) Option {
	return func(m *MCTS) {
		if policy != nil {
			m.selection = policy
		}
	}
}

// WithRollout replaces the default uniform random rollout.
func WithRollout(rollout Rollout) Option {
	return func(m *MCTS) {
		if rollout != nil {
			m.rollout = rollout
		}
	}
}

// WithSeed makes searches reproducible when run on a single goroutine.
// Worker i draws from a generator seeded with seed+i.
func WithSeed(seed int64) Option {
	return func(m *MCTS) {
		m.seed = seed
		m.seeded = true
	}
}

// WithMetrics collects aggregate statistics per search.
func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

// WithEventSink streams one progress event per iteration into sink on
// top of the aggregate statistics. Sends never block; events beyond the
// sink's buffer are dropped and counted.
func WithEventSink(sink chan<- metrics.Event) Option {
	return func(m *MCTS) {
		if sink != nil {
			m.metrics = metrics.NewStreamingCollector(sink)
		}
	}
}

func NewMCTS(goroutines int, options ...Option) *MCTS {
	if goroutines < 1 {
		panic(fmt.Sprintf("invalid goroutine count %d", goroutines))
	}
	m := &MCTS{ // Default values
		goroutines: goroutines,
		cutoff:     NoCutoff,
		selection:  NewUCT(DefaultC),
		metrics:    metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.episodes <= 0 && m.duration <= 0 {
		panic("Must specify search episodes or duration")
	}
	if m.rollout == nil {
		m.rollout = NewRandomRollout(m.cutoff, m.evaluate)
	}
	return m
}

// FindMove searches from state and returns the most visited root move.
// lineage holds the moves played since the previous search by any player;
// a lineage that leads through the explored tree re-roots it, anything
// else starts a fresh tree.
func (m *MCTS) FindMove(state game.State, lineage []Segment) (game.Move, metrics.SearchMetric) {
	metric := m.search(state, lineage)
	return m.root.findBestMove(), metric
}

// Simulate is FindMove without the decision: it returns every root
// move's visit count for callers that want the whole policy.
func (m *MCTS) Simulate(state game.State, lineage []Segment) (map[game.Move]float64, metrics.SearchMetric) {
	metric := m.search(state, lineage)
	return m.root.Policy(), metric
}

func (m *MCTS) search(state game.State, lineage []Segment) metrics.SearchMetric {
	if state.IsTerminal() {
		panic("cannot search a terminal state")
	}

	m.metrics.Start(m.goroutines)
	m.findRoot(lineage, state)

	if m.episodes > 0 {
		m.iterate(state)
	} else {
		m.countdown(state)
	}

	if visits, _ := m.root.stats(); visits == 0 {
		// A tiny duration budget can expire before the first iteration
		// completes; a decision still needs one.
		m.step(state, m.workerRNG(0))
	}

	return m.metrics.Complete()
}

func (m *MCTS) iterate(state game.State) {
	task := make(chan any, m.episodes)
	for i := 0; i < m.episodes; i++ {
		task <- nil
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()

			for range task {
				m.step(state, rng)
			}
		}(m.workerRNG(i))
	}

	wg.Wait()
}

func (m *MCTS) countdown(state game.State) {
	done := make(chan any)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func(rng *rand.Rand) {
			defer wg.Done()

			for {
				select {
				case <-done:
					return
				default:
					m.step(state, rng)
				}
			}
		}(m.workerRNG(i))
	}

	<-time.After(m.duration)
	close(done)
	wg.Wait()
}

func (m *MCTS) workerRNG(worker int) *rand.Rand {
	seed := m.seed
	if !m.seeded {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + int64(worker)))
}

// step runs one iteration and records its statistics.
func (m *MCTS) step(state game.State, rng *rand.Rand) {
	depth, expanded := m.simulate(state, rng)
	if expanded {
		m.metrics.AddExpansion()
	}
	regret := 0.0
	if m.metrics.Streaming() {
		regret = m.root.regret()
	}
	m.metrics.EndEpisode(depth, regret)
}

func (m *MCTS) simulate(state game.State, rng *rand.Rand) (int, bool) {
	newNode, newState, depth, expanded := m.selectThenExpand(state)
	player, score, full := m.rollout.Simulate(newState, rng)
	if full {
		m.metrics.AddFullPlayout()
	}
	backup(newNode, player, score)
	return depth, expanded
}

// selectThenExpand descends the explored tree until it expands a new
// node or bottoms out on a terminal one. It reports the reached node,
// that node's state, the descent depth, and whether a node was expanded.
func (m *MCTS) selectThenExpand(state game.State) (Node, game.State, int, bool) {
	var parent Node = m.root
	depth := 0
	child, state, selected := parent.SelectOrExpand(state, m.selection)
	for selected && child != parent {
		depth++
		parent = child
		child, state, selected = parent.SelectOrExpand(state, m.selection)
	}
	expanded := child != parent
	if expanded {
		depth++
	}
	return child, state, depth, expanded
}

// findRoot re-roots the tree at the node the lineage leads to, or resets
// to a fresh root when the lineage leaves the explored tree.
func (m *MCTS) findRoot(lineage []Segment, state game.State) {
	node := traverse(m.root, lineage)
	if node == nil || node.hash != state.Hash() {
		m.root = newDecision(nil, state.Player())
		m.metrics.SetTreeReused(false)
		return
	}
	node.parent = nil
	m.root = node
	m.metrics.SetTreeReused(true)
}

func traverse(root *decision, path []Segment) *decision {
	if root == nil {
		return nil
	}

	node := root
	for _, segment := range path {
		child := node.childFor(segment.Move)
		if child == nil { // Node never expanded this move
			return nil
		}

		switch child := child.(type) {
		case *decision:
			if !child.ready { // Unvisited shell, nothing to reuse
				return nil
			}
			if child.hash != segment.StateHash {
				log.Warn().Msgf("node's state hash %d does not match segment's state hash %d", child.hash, segment.StateHash)
				return nil
			}
			node = child
		case *chance:
			grandChild := child.selects(segment.StateHash)
			if grandChild == nil { // Sampled outcome never explored
				return nil
			}
			node = grandChild
		default:
			panic("unexpected node type")
		}
	}
	return node
}

func backup(newNode Node, player string, score float64) {
	node := newNode
	for node != nil {
		node = node.Backup(player, score)
	}
}
