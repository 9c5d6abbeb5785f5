package experiments

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"mcts/engine"
	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/game/connect4"
	"mcts/game/game2048"
	"mcts/game/gridworld"
	"mcts/searcher"
)

const NumGames = 20 // Per match up

// RunBudgetExperiment sweeps iteration budgets on one starting position
// and streams every search's per episode events into a parquet file, so
// convergence of depth and decision regret can be plotted against budget.
func RunBudgetExperiment(domain, out string) error {
	state, err := startingState(domain)
	if err != nil {
		return err
	}

	configs := []metrics.AgentConfig{
		{ID: 1, Goroutines: 1, Episodes: 64, Policy: "uct", C: searcher.DefaultC},
		{ID: 2, Goroutines: 1, Episodes: 256, Policy: "uct", C: searcher.DefaultC},
		{ID: 3, Goroutines: 1, Episodes: 1024, Policy: "uct", C: searcher.DefaultC},
		{ID: 4, Goroutines: 1, Episodes: 4096, Policy: "uct", C: searcher.DefaultC},
	}

	log.Info().Str("domain", domain).Msg("starting budget experiment")

	var events []metrics.EventRecord
	for _, config := range configs {
		log.Info().Int("config", config.ID).Int("episodes", config.Episodes).Msg("searching")

		sink := make(chan metrics.Event, config.Episodes)
		m := createMCTS(config, searcher.WithSeed(42), searcher.WithEventSink(sink))
		m.Simulate(state, nil)

		var regrets []float64
		for len(sink) > 0 {
			event := <-sink
			events = append(events, metrics.EventRecord{Config: config.ID, Event: event})
			regrets = append(regrets, event.Regret)
		}

		tail := regrets[len(regrets)*3/4:]
		log.Info().
			Int("config", config.ID).
			Float64("final_regret", stat.Mean(tail, nil)).
			Msg("search complete")
	}

	writer, err := metrics.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	if err := writer.WriteEventParquet(events); err != nil {
		return fmt.Errorf("failed to store search events: %w", err)
	}

	log.Info().Str("dir", writer.BaseDir()).Msg("completed budget experiment")
	return nil
}

// RunStrengthExperiment plays a baseline searcher against candidate
// configurations on connect four and records every game and move. Colors
// alternate between games so first move advantage cancels out.
func RunStrengthExperiment(out string) error {
	baseline := metrics.AgentConfig{ID: 0, Goroutines: 1, Episodes: 200, Policy: "uct", C: searcher.DefaultC}
	candidates := []metrics.AgentConfig{
		{ID: 1, Goroutines: 1, Episodes: 200, Policy: "uct", C: 0.5},
		{ID: 2, Goroutines: 1, Episodes: 200, Policy: "uct", C: 3},
		{ID: 3, Goroutines: 1, Episodes: 200, Policy: "puct", C: searcher.DefaultPUCTC},
		{ID: 4, Goroutines: 1, Episodes: 200, Policy: "uct", C: searcher.DefaultC, Cutoff: 12},
	}

	log.Info().Msg("starting strength experiment")

	count := 0
	var gameRecords []metrics.GameRecord
	var moveRecords []metrics.MoveRecord
	for _, candidate := range candidates {
		log.Info().Int("candidate", candidate.ID).Msg("starting matchup")

		var wins, moves []float64
		for i := 0; i < NumGames; i++ {
			red, yellow := baseline, candidate
			if i%2 == 1 { // Alternate colors
				red, yellow = candidate, baseline
			}

			winner, gameMetric, moveMetrics := runGame(red, yellow)
			count++
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent1:     red.ID, // Agent1 holds red
				Agent2:     yellow.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					MoveMetric: mm,
				})
			}

			switch {
			case winner == connect4.Red && red.ID == candidate.ID,
				winner == connect4.Yellow && yellow.ID == candidate.ID:
				wins = append(wins, 1)
			case winner == "":
				wins = append(wins, 0.5)
			default:
				wins = append(wins, 0)
			}
			moves = append(moves, float64(gameMetric.TotalMoves))
		}

		log.Info().
			Int("candidate", candidate.ID).
			Float64("win_rate", stat.Mean(wins, nil)).
			Float64("mean_moves", stat.Mean(moves, nil)).
			Float64("moves_stddev", stat.StdDev(moves, nil)).
			Msg("completed matchup")
	}

	writer, err := metrics.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(append([]metrics.AgentConfig{baseline}, candidates...)); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	if err := writer.WriteGameRecords(gameRecords); err != nil {
		return fmt.Errorf("failed to store game records: %w", err)
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return fmt.Errorf("failed to store move records: %w", err)
	}
	if err := writer.WriteMoveParquet(moveRecords); err != nil {
		return fmt.Errorf("failed to store move records parquet: %w", err)
	}

	log.Info().Str("dir", writer.BaseDir()).Msg("completed strength experiment")
	return nil
}

// RunSpeedupExperiment measures search wall time across worker counts at
// a fixed iteration budget, repeating each configuration to average out
// scheduler noise.
func RunSpeedupExperiment(domain, out string) error {
	const repeats = 5
	const episodes = 2000

	state, err := startingState(domain)
	if err != nil {
		return err
	}

	configs := []metrics.AgentConfig{
		{ID: 1, Goroutines: 1, Episodes: episodes, Policy: "uct", C: searcher.DefaultC},
		{ID: 2, Goroutines: 2, Episodes: episodes, Policy: "uct", C: searcher.DefaultC},
		{ID: 3, Goroutines: 4, Episodes: episodes, Policy: "uct", C: searcher.DefaultC},
		{ID: 4, Goroutines: 8, Episodes: episodes, Policy: "uct", C: searcher.DefaultC},
	}

	log.Info().Str("domain", domain).Msg("starting speedup experiment")

	sequential := 0.0
	var moveRecords []metrics.MoveRecord
	for _, config := range configs {
		seconds := make([]float64, 0, repeats)
		for i := 0; i < repeats; i++ {
			m := createMCTS(config, searcher.WithSeed(int64(i)))
			_, metric := m.Simulate(state, nil)

			seconds = append(seconds, metric.Duration.Seconds())
			moveRecords = append(moveRecords, metrics.MoveRecord{
				Game: config.ID,
				MoveMetric: metrics.MoveMetric{
					Step:         i + 1,
					Player:       state.Player(),
					SearchMetric: metric,
				},
			})
		}

		mean := stat.Mean(seconds, nil)
		if config.Goroutines == 1 {
			sequential = mean
		}
		log.Info().
			Int("goroutines", config.Goroutines).
			Float64("mean_seconds", mean).
			Float64("stddev_seconds", stat.StdDev(seconds, nil)).
			Float64("speedup", sequential/mean).
			Msg("completed configuration")
	}

	writer, err := metrics.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return fmt.Errorf("failed to store agent configs: %w", err)
	}
	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return fmt.Errorf("failed to store move records: %w", err)
	}
	if err := writer.WriteMoveParquet(moveRecords); err != nil {
		return fmt.Errorf("failed to store move records parquet: %w", err)
	}

	log.Info().Str("dir", writer.BaseDir()).Msg("completed speedup experiment")
	return nil
}

// runGame plays one connect four game between two configurations.
func runGame(red, yellow metrics.AgentConfig) (string, metrics.GameMetric, []metrics.MoveMetric) {
	agents := map[string]engine.Agent{
		connect4.Red:    createMCTS(red, searcher.WithEvaluationFn(connect4.Evaluate)),
		connect4.Yellow: createMCTS(yellow, searcher.WithEvaluationFn(connect4.Evaluate)),
	}
	eng := engine.NewLocalEngine(connect4.New(), agents)
	return eng.Run()
}

func createMCTS(config metrics.AgentConfig, extra ...searcher.Option) *searcher.MCTS {
	options := []searcher.Option{}

	if config.Episodes > 0 {
		options = append(options, searcher.WithEpisodes(config.Episodes))
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.Cutoff > 0 {
		options = append(options, searcher.WithCutoff(config.Cutoff))
	}
	switch config.Policy {
	case "", "uct":
		c := config.C
		if c == 0 && config.Policy == "" {
			c = searcher.DefaultC
		}
		options = append(options, searcher.WithSelectionPolicy(searcher.NewUCT(c)))
	case "puct":
		options = append(options, searcher.WithSelectionPolicy(searcher.NewPUCT(config.C, searcher.UniformPriors)))
	default:
		panic(fmt.Sprintf("unknown selection policy %q", config.Policy))
	}

	options = append(options, searcher.WithMetrics())
	options = append(options, extra...)
	return searcher.NewMCTS(config.Goroutines, options...)
}

// startingState builds the search position for a domain by name.
func startingState(domain string) (game.State, error) {
	switch domain {
	case "2048":
		return game2048.New(1), nil
	case "connect4":
		return connect4.New(), nil
	case "gridworld":
		return gridworld.New(gridworld.DefaultLayout(), 1), nil
	default:
		return nil, fmt.Errorf("unknown domain %q", domain)
	}
}
