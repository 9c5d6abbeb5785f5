package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// AgentConfig describes one searcher configuration under measurement.
type AgentConfig struct {
	ID         int
	Goroutines int
	Duration   time.Duration
	Episodes   int
	Cutoff     int
	Policy     string
	C          float64
}

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

type EventRecord struct {
	Config int // AgentConfig.ID
	Event
}

type Writer struct {
	baseDir string
}

// NewWriter creates a timestamped run directory under base and writes
// every record file into it.
func NewWriter(base string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(base, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the run directory records are written into.
func (w *Writer) BaseDir() string {
	return w.baseDir
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	path := filepath.Join(w.baseDir, "agent_configs.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create agent configs file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"id", "goroutines", "duration", "episodes", "cutoff", "policy", "exploration"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write agent configs header: %w", err)
	}

	for _, config := range configs {
		row := []string{
			strconv.Itoa(config.ID),
			strconv.Itoa(config.Goroutines),
			config.Duration.String(),
			strconv.Itoa(config.Episodes),
			strconv.Itoa(config.Cutoff),
			config.Policy,
			strconv.FormatFloat(config.C, 'g', -1, 64),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write agent config row: %w", err)
		}
	}

	return nil
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	path := filepath.Join(w.baseDir, "game_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create game records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"id", "agent1", "agent2", "starting_player", "winner", "start_time", "end_time", "duration", "total_moves"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write game records header: %w", err)
	}

	for _, record := range records {
		row := []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			record.StartingPlayer,
			record.Winner,
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.TotalMoves),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write game record row: %w", err)
		}
	}

	return nil
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	path := filepath.Join(w.baseDir, "move_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create move records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"game", "step", "player", "duration", "episodes", "nodes_expanded", "max_depth", "full_playouts", "is_tree_reused"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write move records header: %w", err)
	}

	for _, record := range records {
		row := []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			record.Player,
			record.Duration.String(),
			strconv.Itoa(record.Episodes),
			strconv.Itoa(record.NodesExpanded),
			strconv.Itoa(record.MaxDepth),
			strconv.Itoa(record.FullPlayouts),
			strconv.FormatBool(record.IsTreeReused),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write move record row: %w", err)
		}
	}

	return nil
}

// moveRow is the parquet projection of a MoveRecord.
type moveRow struct {
	Game          int32  `parquet:"game"`
	Step          int32  `parquet:"step"`
	Player        string `parquet:"player,dict"`
	DurationUS    int64  `parquet:"duration_us"`
	Goroutines    int32  `parquet:"goroutines"`
	Episodes      int32  `parquet:"episodes"`
	NodesExpanded int32  `parquet:"nodes_expanded"`
	MaxDepth      int32  `parquet:"max_depth"`
	FullPlayouts  int32  `parquet:"full_playouts"`
	TreeReused    bool   `parquet:"is_tree_reused"`
}

// WriteMoveParquet writes the move records as a zstd compressed parquet
// file for notebook analysis. The file lands atomically via a temp file
// rename so readers never observe a partial file.
func (w *Writer) WriteMoveParquet(records []MoveRecord) error {
	rows := make([]moveRow, len(records))
	for i, record := range records {
		rows[i] = moveRow{
			Game:          int32(record.Game),
			Step:          int32(record.Step),
			Player:        record.Player,
			DurationUS:    record.Duration.Microseconds(),
			Goroutines:    int32(record.Goroutines),
			Episodes:      int32(record.Episodes),
			NodesExpanded: int32(record.NodesExpanded),
			MaxDepth:      int32(record.MaxDepth),
			FullPlayouts:  int32(record.FullPlayouts),
			TreeReused:    record.IsTreeReused,
		}
	}

	outPath := filepath.Join(w.baseDir, "move_records.parquet")
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "move_record_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write move records parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename move records parquet: %w", err)
	}
	return nil
}

// ReadMoveParquet loads the rows written by WriteMoveParquet.
func ReadMoveParquet(path string) ([]MoveRecord, error) {
	rows, err := parquet.ReadFile[moveRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read move records parquet: %w", err)
	}
	records := make([]MoveRecord, len(rows))
	for i, row := range rows {
		records[i] = MoveRecord{
			Game: int(row.Game),
			MoveMetric: MoveMetric{
				Step:   int(row.Step),
				Player: row.Player,
				SearchMetric: SearchMetric{
					Goroutines:    int(row.Goroutines),
					Duration:      time.Duration(row.DurationUS) * time.Microsecond,
					Episodes:      int(row.Episodes),
					NodesExpanded: int(row.NodesExpanded),
					MaxDepth:      int(row.MaxDepth),
					FullPlayouts:  int(row.FullPlayouts),
					IsTreeReused:  row.TreeReused,
				},
			},
		}
	}
	return records, nil
}

// eventRow is the parquet projection of an EventRecord.
type eventRow struct {
	Config        int32   `parquet:"config"`
	Episode       int32   `parquet:"episode"`
	NodesExpanded int32   `parquet:"nodes_expanded"`
	TreeDepth     int32   `parquet:"tree_depth"`
	ElapsedUS     int64   `parquet:"elapsed_us"`
	Regret        float64 `parquet:"regret"`
}

// WriteEventParquet writes per iteration search events, one row per
// episode, for convergence analysis.
func (w *Writer) WriteEventParquet(records []EventRecord) error {
	rows := make([]eventRow, len(records))
	for i, record := range records {
		rows[i] = eventRow{
			Config:        int32(record.Config),
			Episode:       int32(record.Episode),
			NodesExpanded: int32(record.NodesExpanded),
			TreeDepth:     int32(record.TreeDepth),
			ElapsedUS:     record.Elapsed.Microseconds(),
			Regret:        record.Regret,
		}
	}

	outPath := filepath.Join(w.baseDir, "search_events.parquet")
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "search_event_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write search events parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename search events parquet: %w", err)
	}
	return nil
}
