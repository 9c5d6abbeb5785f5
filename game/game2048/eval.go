package game2048

import "mcts/game"

// Evaluate favors open boards that keep the biggest tile in a corner.
// Scores stay in [0, 1].
func Evaluate(s game.State) float64 {
	st, ok := s.(State)
	if !ok {
		panic("evaluating a non-2048 state")
	}

	empty := 0
	var max uint8
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if st.board[r][c] == 0 {
				empty++
			} else if st.board[r][c] > max {
				max = st.board[r][c]
			}
		}
	}

	corner := 0.0
	for _, cell := range [][2]int{{0, 0}, {0, Size - 1}, {Size - 1, 0}, {Size - 1, Size - 1}} {
		if st.board[cell[0]][cell[1]] == max {
			corner = 1
			break
		}
	}

	return 0.5*float64(empty)/(Size*Size-1) + 0.4*float64(max)/maxExponent + 0.1*corner
}
