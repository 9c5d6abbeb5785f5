package searcher

import (
	"fmt"
	"sync"

	"mcts/game"
)

// Virtual loss discourages concurrent workers from piling onto the same
// line. It is applied on the way down and reversed during backup.
const loss = -1.0

// Node is a search tree node shared by concurrent workers. Every node
// keeps rewards relative to a perspective player: the player who chose
// the move leading into it. The root's perspective is its own player to
// move, so a child's mean reward is the value of the child's move to the
// player who picked it and a parent compares its children directly.
type Node interface {
	// SelectOrExpand descends one step. It returns the child, the child's
	// state, and whether the child was an already explored node (false
	// means the step expanded a new child or stopped on a terminal node).
	SelectOrExpand(state game.State, sel SelectionPolicy) (child Node, childState game.State, selected bool)
	// Backup propagates an outcome one step and returns the parent.
	// score is from player's perspective; zero-sum turn taking negates it
	// for nodes held by the other player.
	Backup(player string, score float64) Node
	applyLoss()
	stats() (visits int, rewards float64)
}

// decision is a node at which a player picks a move. Children align with
// moves by index; under a prior-guided policy all children exist up front
// as unvisited shells, otherwise they grow one per expansion in move
// order.
type decision struct {
	sync.RWMutex
	parent   Node
	player   string
	hash     game.StateHash
	moves    []game.Move
	children []Node
	priors   []float64
	ready    bool
	terminal bool
	rewards  float64
	visits   int
}

func newDecision(parent Node, player string) *decision {
	return &decision{parent: parent, player: player}
}

// init enumerates moves on first arrival. Shell nodes created ahead of
// their first visit defer this until a worker actually reaches them with
// the state in hand.
func (d *decision) init(state game.State, sel SelectionPolicy) {
	d.hash = state.Hash()
	if state.IsTerminal() {
		d.terminal = true
		d.ready = true
		return
	}
	moves := state.LegalMoves()
	if len(moves) == 0 {
		panic(fmt.Sprintf("no legal moves in non-terminal state %d", state.Hash()))
	}
	d.moves = moves
	if priors := sel.Priors(state, moves); priors != nil {
		validatePriors(priors, len(moves))
		d.priors = priors
		d.children = make([]Node, len(moves))
		for i, move := range moves {
			d.children[i] = d.newChild(move, state.Player())
		}
	} else {
		d.children = make([]Node, 0, len(moves))
	}
	d.ready = true
}

func (d *decision) newChild(move game.Move, player string) Node {
	if move.IsStochastic() {
		return newChance(d, player)
	}
	return newDecision(d, player)
}

func (d *decision) SelectOrExpand(state game.State, sel SelectionPolicy) (Node, game.State, bool) {
	d.Lock()
	defer d.Unlock()

	fresh := !d.ready
	if fresh {
		d.init(state, sel)
	}

	if d.terminal {
		return d, state, false
	}

	if d.priors == nil && len(d.children) < len(d.moves) { // Expandable node
		move := d.moves[len(d.children)]
		child := d.newChild(move, state.Player())
		d.children = append(d.children, child)
		child.applyLoss()
		return child, state.Play(move), false
	}

	// Fully expanded node: descend by policy score. A node that grew all
	// its shells this very call still counts as an expansion, so the
	// chosen shell becomes this iteration's new node.
	i := sel.Select(d)
	child := d.children[i]
	child.applyLoss()
	return child, state.Play(d.moves[i]), !fresh
}

func (d *decision) applyLoss() {
	d.Lock()
	defer d.Unlock()
	d.rewards += loss
	d.visits++
}

func (d *decision) reverseLoss() {
	d.rewards -= loss
	d.visits--
}

func (d *decision) Backup(player string, score float64) Node {
	d.Lock()
	defer d.Unlock()
	if d.parent != nil { // Loss was applied on the way down
		d.reverseLoss()
	}
	if player == d.player {
		d.rewards += score
	} else {
		d.rewards -= score
	}
	d.visits++
	return d.parent
}

func (d *decision) stats() (int, float64) {
	d.RLock()
	defer d.RUnlock()
	return d.visits, d.rewards
}

// childFor returns the explored child for move, or nil.
func (d *decision) childFor(move game.Move) Node {
	d.RLock()
	defer d.RUnlock()
	for i, m := range d.moves {
		if i >= len(d.children) {
			break
		}
		if m == move {
			return d.children[i]
		}
	}
	return nil
}

// findBestMove picks the most visited move, breaking ties by mean reward
// and then by move order.
func (d *decision) findBestMove() game.Move {
	d.RLock()
	defer d.RUnlock()
	if len(d.children) == 0 {
		panic("node has no children")
	}
	best := 0
	bestVisits, bestRewards := d.children[0].stats()
	for i, child := range d.children[1:] {
		visits, rewards := child.stats()
		if visits < bestVisits {
			continue
		}
		if visits > bestVisits ||
			mean(rewards, visits) > mean(bestRewards, bestVisits) {
			best = i + 1
			bestVisits, bestRewards = visits, rewards
		}
	}
	return d.moves[best]
}

// Policy returns each explored move's visit count. Unvisited shells
// count zero.
func (d *decision) Policy() map[game.Move]float64 {
	d.RLock()
	defer d.RUnlock()
	policy := make(map[game.Move]float64, len(d.children))
	for i, child := range d.children {
		visits, _ := child.stats()
		policy[d.moves[i]] = float64(visits)
	}
	return policy
}

// regret estimates the cost of recommending the most visited child over
// the best scoring one.
func (d *decision) regret() float64 {
	d.RLock()
	defer d.RUnlock()
	bestVisits := -1
	bestMean := 0.0
	maxMean := 0.0
	for _, child := range d.children {
		visits, rewards := child.stats()
		if visits == 0 {
			continue
		}
		m := mean(rewards, visits)
		if bestVisits < 0 || m > maxMean {
			maxMean = m
		}
		if visits > bestVisits {
			bestVisits, bestMean = visits, m
		}
	}
	if bestVisits < 0 || maxMean < bestMean {
		return 0
	}
	return maxMean - bestMean
}

func mean(rewards float64, visits int) float64 {
	if visits == 0 {
		return 0
	}
	return rewards / float64(visits)
}

// chance is a node owned by a stochastic move. Its children are the
// sampled outcomes seen so far, matched by state hash; the perspective
// player carries through unchanged since no player acts at the hop.
type chance struct {
	sync.RWMutex
	parent   Node
	player   string
	children []*decision
	rewards  float64
	visits   int
}

func newChance(parent Node, player string) *chance {
	return &chance{parent: parent, player: player}
}

// SelectOrExpand matches the freshly sampled outcome in state against the
// explored outcomes, expanding a new child for a first-seen outcome. The
// outcome child initializes eagerly since its state is in hand.
func (c *chance) SelectOrExpand(state game.State, sel SelectionPolicy) (Node, game.State, bool) {
	c.Lock()
	defer c.Unlock()

	selected := true
	child := c.selects(state.Hash())
	if child == nil {
		child = c.expands(state, sel)
		selected = false
	}

	child.applyLoss()
	return child, state, selected
}

func (c *chance) selects(hash game.StateHash) *decision {
	for _, child := range c.children {
		if child.hash == hash {
			return child
		}
	}
	return nil
}

func (c *chance) expands(state game.State, sel SelectionPolicy) *decision {
	child := newDecision(c, c.player)
	child.init(state, sel)
	c.children = append(c.children, child)
	return child
}

func (c *chance) applyLoss() {
	c.Lock()
	defer c.Unlock()
	c.rewards += loss
	c.visits++
}

func (c *chance) Backup(player string, score float64) Node {
	c.Lock()
	defer c.Unlock()
	c.rewards -= loss // Loss was applied on the way down
	c.visits--
	if player == c.player {
		c.rewards += score
	} else {
		c.rewards -= score
	}
	c.visits++
	return c.parent
}

func (c *chance) stats() (int, float64) {
	c.RLock()
	defer c.RUnlock()
	return c.visits, c.rewards
}
