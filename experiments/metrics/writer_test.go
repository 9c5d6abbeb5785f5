package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

func testRecords() ([]GameRecord, []MoveRecord) {
	start := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	games := []GameRecord{
		{
			ID:     1,
			Agent1: 0,
			Agent2: 2,
			GameMetric: GameMetric{
				StartingPlayer: "red",
				Winner:         "yellow",
				StartTime:      start,
				EndTime:        start.Add(2 * time.Second),
				Duration:       2 * time.Second,
				TotalMoves:     2,
			},
		},
	}
	moves := []MoveRecord{
		{
			Game: 1,
			MoveMetric: MoveMetric{
				Step:   1,
				Player: "red",
				SearchMetric: SearchMetric{
					Goroutines:    4,
					Duration:      1500 * time.Microsecond,
					Episodes:      200,
					NodesExpanded: 180,
					MaxDepth:      9,
					FullPlayouts:  150,
					IsTreeReused:  false,
				},
			},
		},
		{
			Game: 1,
			MoveMetric: MoveMetric{
				Step:   2,
				Player: "yellow",
				SearchMetric: SearchMetric{
					Goroutines:    4,
					Duration:      900 * time.Microsecond,
					Episodes:      200,
					NodesExpanded: 120,
					MaxDepth:      12,
					FullPlayouts:  200,
					IsTreeReused:  true,
				},
			},
		},
	}
	return games, moves
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriterCSV(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	games, moves := testRecords()

	t.Run("agent configs", func(t *testing.T) {
		configs := []AgentConfig{
			{ID: 0, Goroutines: 1, Episodes: 200, Policy: "uct", C: 1.4142135623730951},
			{ID: 1, Goroutines: 8, Duration: 50 * time.Millisecond, Cutoff: 12, Policy: "puct", C: 1.5},
		}
		require.NoError(t, w.WriteAgentConfigs(configs))

		rows := readCSV(t, filepath.Join(w.BaseDir(), "agent_configs.csv"))
		require.Equal(t, []string{"id", "goroutines", "duration", "episodes", "cutoff", "policy", "exploration"}, rows[0])
		require.Len(t, rows, 3)
		require.Equal(t, []string{"1", "8", "50ms", "0", "12", "puct", "1.5"}, rows[2])
	})

	t.Run("game records", func(t *testing.T) {
		require.NoError(t, w.WriteGameRecords(games))

		rows := readCSV(t, filepath.Join(w.BaseDir(), "game_records.csv"))
		require.Equal(t, []string{"id", "agent1", "agent2", "starting_player", "winner",
			"start_time", "end_time", "duration", "total_moves"}, rows[0])
		require.Equal(t, []string{"1", "0", "2", "red", "yellow",
			"2025-03-14T09:30:00Z", "2025-03-14T09:30:02Z", "2s", "2"}, rows[1])
	})

	t.Run("move records", func(t *testing.T) {
		require.NoError(t, w.WriteMoveRecords(moves))

		rows := readCSV(t, filepath.Join(w.BaseDir(), "move_records.csv"))
		require.Equal(t, []string{"game", "step", "player", "duration", "episodes",
			"nodes_expanded", "max_depth", "full_playouts", "is_tree_reused"}, rows[0])
		require.Equal(t, []string{"1", "1", "red", "1.5ms", "200", "180", "9", "150", "false"}, rows[1])
		require.Equal(t, []string{"1", "2", "yellow", (900 * time.Microsecond).String(), "200", "120", "12", "200", "true"}, rows[2])
	})
}

func TestMoveParquetRoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	_, moves := testRecords()

	require.NoError(t, w.WriteMoveParquet(moves))

	path := filepath.Join(w.BaseDir(), "move_records.parquet")
	_, statErr := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(statErr), "The temp file should be renamed away")

	got, err := ReadMoveParquet(path)
	require.NoError(t, err)
	require.Equal(t, moves, got, "Rows should round trip through parquet")
}

func TestEventParquet(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	events := []EventRecord{
		{Config: 1, Event: Event{Episode: 1, NodesExpanded: 1, TreeDepth: 1, Elapsed: 120 * time.Microsecond, Regret: 0.5}},
		{Config: 1, Event: Event{Episode: 2, NodesExpanded: 2, TreeDepth: 2, Elapsed: 250 * time.Microsecond, Regret: 0.25}},
	}

	require.NoError(t, w.WriteEventParquet(events))

	rows, err := parquet.ReadFile[eventRow](filepath.Join(w.BaseDir(), "search_events.parquet"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int32(1), rows[1].Config)
	require.Equal(t, int32(2), rows[1].Episode)
	require.Equal(t, int64(250), rows[1].ElapsedUS)
	require.Equal(t, 0.25, rows[1].Regret)
}
