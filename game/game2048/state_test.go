package game2048

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcts/game"
)

func TestSlide(t *testing.T) {
	t.Run("merges equal neighbors once per swipe", func(t *testing.T) {
		board := [Size][Size]uint8{{1, 1, 2, 3}}

		out, gained, changed := slide(board, Left)

		require.True(t, changed, "Compacting the row should count as a change")
		require.Equal(t, [Size]uint8{2, 2, 3, 0}, out[0],
			"The tile created by a merge should not merge again in the same swipe")
		require.Equal(t, 4, gained, "Merging two 2s should score 4")
	})

	t.Run("merges both pairs of a full line", func(t *testing.T) {
		board := [Size][Size]uint8{{1, 1, 1, 1}}

		out, gained, _ := slide(board, Left)

		require.Equal(t, [Size]uint8{2, 2, 0, 0}, out[0])
		require.Equal(t, 8, gained, "Two merges into 4 should score 4 each")
	})

	t.Run("compacts toward the swipe edge", func(t *testing.T) {
		board := [Size][Size]uint8{{0, 1, 0, 1}}

		out, gained, changed := slide(board, Right)

		require.True(t, changed)
		require.Equal(t, [Size]uint8{0, 0, 0, 2}, out[0], "Tiles should merge against the right edge")
		require.Equal(t, 4, gained)
	})

	t.Run("slides columns for vertical swipes", func(t *testing.T) {
		var board [Size][Size]uint8
		board[1][2] = 3
		board[3][2] = 3

		out, gained, _ := slide(board, Up)

		require.Equal(t, uint8(4), out[0][2], "Equal tiles in a column should merge at the top")
		require.Equal(t, uint8(0), out[1][2])
		require.Equal(t, uint8(0), out[3][2])
		require.Equal(t, 16, gained)
	})

	t.Run("reports unchanged boards", func(t *testing.T) {
		board := [Size][Size]uint8{{1, 2, 3, 4}}

		_, _, changed := slide(board, Left)

		require.False(t, changed, "A compact unmergeable line should not move")
	})
}

func TestLegalMoves(t *testing.T) {
	t.Run("excludes directions that change nothing", func(t *testing.T) {
		s := State{rng: game.NewRNG(1)}
		s.board[0][0] = 1
		s.board[1][0] = 2
		s.board[2][0] = 3
		s.board[3][0] = 4

		moves := s.LegalMoves()

		require.Equal(t, []game.Move{Right}, moves,
			"A compact unmergeable first column can only swipe right")
	})

	t.Run("is empty on a terminal board", func(t *testing.T) {
		s := checkered()

		require.Empty(t, s.LegalMoves())
		require.True(t, s.IsTerminal())
	})
}

func TestPlay(t *testing.T) {
	t.Run("spawns one tile after the swipe", func(t *testing.T) {
		s := State{rng: game.NewRNG(3)}
		s.board[0][0] = 1
		s.board[0][1] = 1

		next := s.Play(Left).(State)

		require.Equal(t, 2, tileCount(next), "The merged tile plus one spawn should remain")
		require.Equal(t, 4, next.Score(), "The merge points should accumulate")
	})

	t.Run("panics on a swipe that changes nothing", func(t *testing.T) {
		s := State{rng: game.NewRNG(3)}
		s.board[0][0] = 1

		require.Panics(t, func() { s.Play(Up) }, "An illegal swipe should fail fast")
	})

	t.Run("does not mutate the original state", func(t *testing.T) {
		s := State{rng: game.NewRNG(3)}
		s.board[0][0] = 1
		s.board[0][1] = 1
		before := s.board

		s.Play(Left)

		require.Equal(t, before, s.board, "Play should return a copy")
	})
}

func TestDeterminism(t *testing.T) {
	a := New(9)
	b := New(9)
	require.Equal(t, a.board, b.board, "Same seed should deal the same board")

	for i := 0; i < 5; i++ {
		moves := a.LegalMoves()
		require.NotEmpty(t, moves)
		a = a.Play(moves[0]).(State)
		b = b.Play(moves[0]).(State)
		require.Equal(t, a.Hash(), b.Hash(), "Same seed should spawn the same tiles")
	}
}

func TestReward(t *testing.T) {
	t.Run("panics before the game is over", func(t *testing.T) {
		s := New(5)
		require.Panics(t, func() { s.Reward() })
	})

	t.Run("scales the best tile", func(t *testing.T) {
		s := checkered()
		require.True(t, s.IsTerminal())
		require.InDelta(t, 2.0/maxExponent, s.Reward(), 1e-9)
	})
}

func TestHash(t *testing.T) {
	a := New(11)
	b := a
	require.Equal(t, a.Hash(), b.Hash(), "Copies should hash the same")

	c := a.Play(a.LegalMoves()[0]).(State)
	require.NotEqual(t, a.Hash(), c.Hash(), "A played move should change the hash")
}

func TestEvaluate(t *testing.T) {
	t.Run("prefers open boards", func(t *testing.T) {
		open := State{rng: game.NewRNG(1)}
		open.board[0][0] = 3

		require.Greater(t, Evaluate(open), Evaluate(checkered()),
			"A nearly empty board should score above a gridlocked one")
	})

	t.Run("rewards a cornered max tile", func(t *testing.T) {
		cornered := State{rng: game.NewRNG(1)}
		cornered.board[0][0] = 5

		centered := State{rng: game.NewRNG(1)}
		centered.board[1][1] = 5

		require.Greater(t, Evaluate(cornered), Evaluate(centered))
	})
}

// checkered returns a full board with no adjacent equal tiles.
func checkered() State {
	s := State{rng: game.NewRNG(1)}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			s.board[r][c] = uint8(1 + (r+c)%2)
		}
	}
	return s
}

func tileCount(s State) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if s.board[r][c] != 0 {
				n++
			}
		}
	}
	return n
}
