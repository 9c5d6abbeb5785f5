package gridworld

import "mcts/game"

// Evaluate is the normalized closeness to the goal, in [0, 1].
func Evaluate(s game.State) float64 {
	st, ok := s.(State)
	if !ok {
		panic("evaluating a non-gridworld state")
	}
	span := st.grid.Width + st.grid.Height - 2
	if span <= 0 {
		return 1
	}
	d := abs(st.pos.X-st.grid.Goal.X) + abs(st.pos.Y-st.grid.Goal.Y)
	return 1 - float64(d)/float64(span)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
