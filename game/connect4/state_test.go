package connect4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// play drops the columns in order, alternating players.
func play(cols ...int) State {
	s := New()
	for _, c := range cols {
		s = s.Play(Move(c)).(State)
	}
	return s
}

func TestWinDetection(t *testing.T) {
	t.Run("vertical", func(t *testing.T) {
		s := play(0, 1, 0, 1, 0, 1, 0)

		require.True(t, s.IsTerminal(), "Four reds in column 0 should end the game")
		require.Equal(t, Red, Winner(s))
		require.Equal(t, Yellow, s.Player(), "The loser should be on the move")
		require.Equal(t, -1.0, s.Reward(), "The player to move has lost")
	})

	t.Run("horizontal", func(t *testing.T) {
		s := play(0, 0, 1, 1, 2, 2, 3)

		require.True(t, s.IsTerminal())
		require.Equal(t, Red, Winner(s))
	})

	t.Run("diagonal", func(t *testing.T) {
		s := play(0, 1, 1, 2, 2, 3, 2, 3, 3, 6, 3)

		require.True(t, s.IsTerminal(), "Red should have a rising diagonal from (0,0) to (3,3)")
		require.Equal(t, Red, Winner(s))
	})

	t.Run("no premature win", func(t *testing.T) {
		s := play(0, 1, 0, 1, 0, 1)

		require.False(t, s.IsTerminal(), "Three in a row is not a win")
		require.Equal(t, "", Winner(s))
	})
}

func TestDraw(t *testing.T) {
	// A full board with no run of four: colors alternate by column parity
	// and flip every two rows.
	s := State{turn: 0, moves: Rows * Cols}
	for c := 0; c < Cols; c++ {
		s.heights[c] = Rows
		for r := 0; r < Rows; r++ {
			red := ((r/2)%2 == 0) == (c%2 == 0)
			if red {
				s.boards[0] |= 1 << (uint(c)*7 + uint(r))
			} else {
				s.boards[1] |= 1 << (uint(c)*7 + uint(r))
			}
		}
	}

	require.True(t, s.IsTerminal(), "A full board should be terminal")
	require.Equal(t, "", Winner(s))
	require.Equal(t, 0.0, s.Reward(), "A draw should score zero")
	require.Empty(t, s.LegalMoves())
}

func TestLegalMoves(t *testing.T) {
	t.Run("skips full columns", func(t *testing.T) {
		s := play(0, 0, 0, 0, 0, 0)

		moves := s.LegalMoves()

		require.Len(t, moves, Cols-1)
		require.Equal(t, Move(1), moves[0], "Column 0 is full and should be skipped")
	})

	t.Run("panics on a full column", func(t *testing.T) {
		s := play(0, 0, 0, 0, 0, 0)

		require.Panics(t, func() { s.Play(Move(0)) }, "Dropping into a full column should fail fast")
	})
}

func TestBoardAccess(t *testing.T) {
	s := play(3, 4)

	require.Equal(t, Red, s.At(0, 3))
	require.Equal(t, Yellow, s.At(0, 4))
	require.Equal(t, "", s.At(1, 3))
	require.Equal(t, Red, s.Player(), "Turn should come back around")
}

func TestHash(t *testing.T) {
	a := play(3)
	b := play(3)
	c := play(2)

	require.Equal(t, a.Hash(), b.Hash(), "Same position should hash the same")
	require.NotEqual(t, a.Hash(), c.Hash(), "Different positions should hash apart")
}

func TestEvaluate(t *testing.T) {
	t.Run("prefers own threats", func(t *testing.T) {
		s := play(0, 0, 1, 6, 2, 6)

		require.Greater(t, Evaluate(s), 0.0,
			"Red is to move with an open three on the bottom row")
	})

	t.Run("is symmetric at the start", func(t *testing.T) {
		require.Equal(t, 0.0, Evaluate(New()))
	})

	t.Run("stays inside the terminal range", func(t *testing.T) {
		s := play(0, 0, 1, 6, 2, 6)

		v := Evaluate(s)
		require.Less(t, v, 1.0)
		require.Greater(t, v, -1.0)
	})
}
