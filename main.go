package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mcts/engine"
	"mcts/experiments"
	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/game/connect4"
	"mcts/game/game2048"
	"mcts/game/gridworld"
	"mcts/searcher"
)

// config collects every command line flag.
type config struct {
	domain     string
	policy     string
	c          float64
	cSet       bool
	prior      string
	rollout    string
	epsilon    float64
	cutoff     int
	episodes   int
	movetime   time.Duration
	goroutines int
	seed       int64
	selfplay   bool
	watch      bool
	experiment string
	out        string
	level      string
}

func main() {
	cfg := parseFlags()
	setupLogging(cfg.level)

	if cfg.experiment != "" {
		runExperiment(cfg)
		return
	}

	validate(cfg)
	r := newRenderer()
	if cfg.selfplay {
		selfplay(cfg, r)
		return
	}
	searchOnce(cfg, r)
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.domain, "domain", "", "domain to play: 2048, connect4 or gridworld")
	flag.StringVar(&cfg.policy, "policy", "uct", "selection policy: uct or puct")
	flag.Float64Var(&cfg.c, "c", 0, "exploration constant, defaults per policy")
	flag.StringVar(&cfg.prior, "prior", "uniform", "puct prior policy: uniform or heuristic")
	flag.StringVar(&cfg.rollout, "rollout", "random", "rollout policy: random, greedy or epsilon")
	flag.Float64Var(&cfg.epsilon, "epsilon", 0.1, "random move rate for the epsilon rollout")
	flag.IntVar(&cfg.cutoff, "cutoff", 0, "rollout depth cutoff, 0 plays out to the end")
	flag.IntVar(&cfg.episodes, "episodes", 0, "search episodes per move")
	flag.DurationVar(&cfg.movetime, "movetime", 0, "search duration per move")
	flag.IntVar(&cfg.goroutines, "goroutines", 1, "parallel search workers")
	flag.Int64Var(&cfg.seed, "seed", 0, "reproducible search seed, 0 seeds from the clock")
	flag.BoolVar(&cfg.selfplay, "selfplay", false, "play out a full game instead of one search")
	flag.BoolVar(&cfg.watch, "watch", false, "stream search statistics while thinking")
	flag.StringVar(&cfg.experiment, "experiment", "", "run an experiment: budget, strength or speedup")
	flag.StringVar(&cfg.out, "out", "results", "experiment output directory")
	flag.StringVar(&cfg.level, "level", "info", "log level: trace, debug, info, warn or error")
	flag.Parse()

	// An explicit -c 0 means pure exploitation, not the default.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "c" {
			cfg.cSet = true
		}
	})
	return cfg
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown log level %q\n", level)
		os.Exit(2)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

func validate(cfg config) {
	switch cfg.domain {
	case "2048", "connect4", "gridworld":
	case "":
		log.Fatal().Msg("-domain is required")
	default:
		log.Fatal().Msgf("unknown domain %q", cfg.domain)
	}
	switch cfg.policy {
	case "uct", "puct":
	default:
		log.Fatal().Msgf("unknown policy %q", cfg.policy)
	}
	switch cfg.prior {
	case "uniform", "heuristic":
	default:
		log.Fatal().Msgf("unknown prior %q", cfg.prior)
	}
	switch cfg.rollout {
	case "random", "greedy", "epsilon":
	default:
		log.Fatal().Msgf("unknown rollout %q", cfg.rollout)
	}
	if cfg.cSet && (cfg.c < 0 || math.IsNaN(cfg.c)) {
		log.Fatal().Msgf("invalid exploration constant %v", cfg.c)
	}
	if cfg.epsilon < 0 || cfg.epsilon > 1 {
		log.Fatal().Msgf("epsilon %v outside [0, 1]", cfg.epsilon)
	}
	if cfg.cutoff < 0 {
		log.Fatal().Msgf("negative cutoff %d", cfg.cutoff)
	}
	if cfg.goroutines < 1 {
		log.Fatal().Msgf("need at least one goroutine, got %d", cfg.goroutines)
	}
	if cfg.episodes < 0 {
		log.Fatal().Msgf("negative episode budget %d", cfg.episodes)
	}
	if cfg.movetime < 0 {
		log.Fatal().Msgf("negative move time %v", cfg.movetime)
	}
	if cfg.episodes == 0 && cfg.movetime == 0 {
		log.Fatal().Msg("specify a budget: -episodes or -movetime")
	}
	if cfg.episodes > 0 && cfg.movetime > 0 {
		log.Fatal().Msg("specify one budget, not both")
	}
}

func runExperiment(cfg config) {
	var err error
	switch cfg.experiment {
	case "budget":
		err = experiments.RunBudgetExperiment(cfg.domain, cfg.out)
	case "strength":
		err = experiments.RunStrengthExperiment(cfg.out)
	case "speedup":
		err = experiments.RunSpeedupExperiment(cfg.domain, cfg.out)
	default:
		log.Fatal().Msgf("unknown experiment %q", cfg.experiment)
	}
	if err != nil {
		log.Fatal().Err(err).Msgf("%s experiment failed", cfg.experiment)
	}
}

// searchOnce runs a single search from the domain's starting state and
// reports the decision.
func searchOnce(cfg config, r *renderer) {
	state := startState(cfg)
	w := newWatcher(cfg.watch, r)
	mcts := newSearcher(cfg, w.sink())

	fmt.Println(r.board(state))
	move, metric := mcts.FindMove(state, nil)
	w.stop()

	log.Info().
		Int("episodes", metric.Episodes).
		Int("nodes", metric.NodesExpanded).
		Int("depth", metric.MaxDepth).
		Int("playouts", metric.FullPlayouts).
		Dur("took", metric.Duration).
		Msg("search complete")
	fmt.Println(r.decision(state.Player(), move))
}

func selfplay(cfg config, r *renderer) {
	if cfg.domain == "connect4" {
		selfplayVersus(cfg, r)
		return
	}
	selfplaySolo(cfg, r)
}

// selfplaySolo drives a single agent through a full episode, feeding each
// played move back as lineage so the search keeps its subtree.
func selfplaySolo(cfg config, r *renderer) {
	state := startState(cfg)
	w := newWatcher(cfg.watch, r)
	mcts := newSearcher(cfg, w.sink())

	fmt.Println(r.board(state))
	var lineage []searcher.Segment
	step := 0
	for !state.IsTerminal() && step < engine.MaxMoves {
		move, metric := mcts.FindMove(state, lineage)
		state = state.Play(move)
		lineage = []searcher.Segment{{Move: move, StateHash: state.Hash()}}
		step++
		log.Info().
			Int("step", step).
			Stringer("move", move).
			Int("episodes", metric.Episodes).
			Bool("reused", metric.IsTreeReused).
			Msg("played move")
		fmt.Println(r.board(state))
	}
	w.stop()

	if !state.IsTerminal() {
		log.Warn().Int("steps", step).Msg("game stopped before a terminal state")
		return
	}
	log.Info().Int("steps", step).Float64("reward", state.Reward()).Msg("game over")
}

// selfplayVersus plays red against yellow through the engine, each side
// with its own search tree.
func selfplayVersus(cfg config, r *renderer) {
	w := newWatcher(cfg.watch, r)
	eng := engine.NewLocalEngine(connect4.New(), map[string]engine.Agent{
		connect4.Red:    newSearcher(cfg, w.sink()),
		connect4.Yellow: newSearcher(cfg, w.sink()),
	})
	eng.Observer = func(move game.Move, state game.State) {
		fmt.Println(r.board(state))
	}

	fmt.Println(r.board(connect4.New()))
	winner, metric, _ := eng.Run()
	w.stop()

	event := log.Info().Int("moves", metric.TotalMoves).Dur("took", metric.Duration)
	if winner == "" {
		event.Msg("draw")
		return
	}
	event.Str("winner", winner).Msg("game over")
}

func startState(cfg config) game.State {
	seed := uint64(cfg.seed)
	if cfg.seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	switch cfg.domain {
	case "2048":
		return game2048.New(seed)
	case "connect4":
		return connect4.New()
	default:
		return gridworld.New(gridworld.DefaultLayout(), seed)
	}
}

func evaluateFor(domain string) game.Evaluate {
	switch domain {
	case "2048":
		return game2048.Evaluate
	case "connect4":
		return connect4.Evaluate
	default:
		return gridworld.Evaluate
	}
}

func newSearcher(cfg config, sink chan<- metrics.Event) *searcher.MCTS {
	evaluate := evaluateFor(cfg.domain)

	cutoff := searcher.NoCutoff
	if cfg.cutoff > 0 {
		cutoff = cfg.cutoff
	}
	var rollout searcher.Rollout
	switch cfg.rollout {
	case "random":
		rollout = searcher.NewRandomRollout(cutoff, evaluate)
	case "greedy":
		rollout = searcher.NewGreedyRollout(cutoff, evaluate)
	default:
		rollout = searcher.NewEpsilonGreedyRollout(cfg.epsilon, cutoff, evaluate)
	}

	var selection searcher.SelectionPolicy
	switch cfg.policy {
	case "uct":
		c := searcher.DefaultC
		if cfg.cSet {
			c = cfg.c
		}
		selection = searcher.NewUCT(c)
	default:
		c := searcher.DefaultPUCTC
		if cfg.cSet {
			c = cfg.c
		}
		var prior searcher.PriorPolicy = searcher.UniformPriors
		if cfg.prior == "heuristic" {
			prior = searcher.HeuristicPriors(evaluate, 1)
		}
		selection = searcher.NewPUCT(c, prior)
	}

	options := []searcher.Option{
		searcher.WithSelectionPolicy(selection),
		searcher.WithRollout(rollout),
		searcher.WithMetrics(),
	}
	if cfg.episodes > 0 {
		options = append(options, searcher.WithEpisodes(cfg.episodes))
	}
	if cfg.movetime > 0 {
		options = append(options, searcher.WithDuration(cfg.movetime))
	}
	if cfg.seed != 0 {
		options = append(options, searcher.WithSeed(cfg.seed))
	}
	if sink != nil {
		options = append(options, searcher.WithEventSink(sink))
	}
	return searcher.NewMCTS(cfg.goroutines, options...)
}
