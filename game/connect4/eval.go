package connect4

import (
	"math/bits"

	"mcts/game"
)

// Column 3, the six playable bits.
const centerMask = uint64(0x3F) << (3 * 7)

// Evaluate scores three-in-a-row threats and center control for the
// player to move, clamped inside (-1, 1) so terminal outcomes stay
// strictly stronger.
func Evaluate(s game.State) float64 {
	st, ok := s.(State)
	if !ok {
		panic("evaluating a non-connect4 state")
	}

	me := st.boards[st.turn]
	opp := st.boards[st.turn^1]
	v := 0.18*float64(threats(me)-threats(opp)) + 0.04*float64(center(me)-center(opp))
	if v > 0.95 {
		return 0.95
	}
	if v < -0.95 {
		return -0.95
	}
	return v
}

// threats counts three aligned discs in any direction.
func threats(bb uint64) int {
	n := 0
	for _, shift := range []uint{1, 7, 6, 8} {
		n += bits.OnesCount64(bb & (bb >> shift) & (bb >> (2 * shift)))
	}
	return n
}

func center(bb uint64) int {
	return bits.OnesCount64(bb & centerMask)
}
