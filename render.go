package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/game/connect4"
	"mcts/game/game2048"
	"mcts/game/gridworld"
)

// renderer styles boards and search statistics with the terminal's color
// profile. On a dumb terminal everything degrades to plain text.
type renderer struct {
	out *termenv.Output
}

func newRenderer() *renderer {
	return &renderer{out: termenv.NewOutput(os.Stdout)}
}

func (r *renderer) style(s string) termenv.Style {
	return r.out.String(s)
}

func (r *renderer) board(state game.State) string {
	switch s := state.(type) {
	case connect4.State:
		return r.connect4Board(s)
	case game2048.State:
		return r.board2048(s)
	case gridworld.State:
		return r.gridBoard(s)
	default:
		return fmt.Sprint(state)
	}
}

func (r *renderer) connect4Board(s connect4.State) string {
	var b strings.Builder
	for row := connect4.Rows - 1; row >= 0; row-- {
		for col := 0; col < connect4.Cols; col++ {
			switch s.At(row, col) {
			case connect4.Red:
				b.WriteString(r.style("● ").Foreground(termenv.ANSIRed).String())
			case connect4.Yellow:
				b.WriteString(r.style("● ").Foreground(termenv.ANSIYellow).String())
			default:
				b.WriteString(r.style("· ").Faint().String())
			}
		}
		b.WriteByte('\n')
	}
	for col := 0; col < connect4.Cols; col++ {
		b.WriteString(r.style(fmt.Sprintf("%d ", col)).Faint().String())
	}
	return b.String()
}

func (r *renderer) board2048(s game2048.State) string {
	var b strings.Builder
	for row := 0; row < game2048.Size; row++ {
		for col := 0; col < game2048.Size; col++ {
			b.WriteString(r.tile(s.Tile(row, col)))
		}
		b.WriteByte('\n')
	}
	b.WriteString(r.style(fmt.Sprintf("score %d", s.Score())).Faint().String())
	return b.String()
}

func (r *renderer) tile(v int) string {
	if v == 0 {
		return r.style(fmt.Sprintf("%6s", "·")).Faint().String()
	}
	st := r.style(fmt.Sprintf("%6d", v))
	switch {
	case v >= 2048:
		st = st.Foreground(termenv.ANSIRed).Bold()
	case v >= 512:
		st = st.Foreground(termenv.ANSIMagenta)
	case v >= 128:
		st = st.Foreground(termenv.ANSIYellow)
	case v >= 32:
		st = st.Foreground(termenv.ANSIGreen)
	case v >= 8:
		st = st.Foreground(termenv.ANSICyan)
	}
	return st.String()
}

func (r *renderer) gridBoard(s gridworld.State) string {
	layout := s.Grid()
	walls := make(map[gridworld.Point]bool, len(layout.Walls))
	for _, p := range layout.Walls {
		walls[p] = true
	}
	pits := make(map[gridworld.Point]bool, len(layout.Pits))
	for _, p := range layout.Pits {
		pits[p] = true
	}

	var b strings.Builder
	for y := layout.Height - 1; y >= 0; y-- {
		for x := 0; x < layout.Width; x++ {
			p := gridworld.Point{X: x, Y: y}
			switch {
			case p == s.Pos():
				b.WriteString(r.style("@ ").Foreground(termenv.ANSICyan).Bold().String())
			case p == layout.Goal:
				b.WriteString(r.style("G ").Foreground(termenv.ANSIGreen).String())
			case pits[p]:
				b.WriteString(r.style("x ").Foreground(termenv.ANSIRed).String())
			case walls[p]:
				b.WriteString("# ")
			default:
				b.WriteString(r.style("· ").Faint().String())
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString(r.style(fmt.Sprintf("step %d/%d", s.Steps(), layout.MaxSteps)).Faint().String())
	return b.String()
}

func (r *renderer) decision(player string, move game.Move) string {
	return fmt.Sprintf("%s plays %s", r.player(player), r.style(move.String()).Bold().String())
}

func (r *renderer) player(name string) string {
	switch name {
	case connect4.Red:
		return r.style(name).Foreground(termenv.ANSIRed).String()
	case connect4.Yellow:
		return r.style(name).Foreground(termenv.ANSIYellow).String()
	default:
		return r.style(name).Foreground(termenv.ANSICyan).String()
	}
}

func (r *renderer) event(ev metrics.Event) string {
	return fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		r.label("episode"), r.value("%d", ev.Episode),
		r.label("nodes"), r.value("%d", ev.NodesExpanded),
		r.label("depth"), r.value("%d", ev.TreeDepth),
		r.label("regret"), r.value("%.3f", ev.Regret),
		r.label("t"), r.value("%s", ev.Elapsed.Round(time.Millisecond)))
}

func (r *renderer) label(s string) string {
	return r.style(s).Faint().String()
}

func (r *renderer) value(format string, v any) string {
	return r.style(fmt.Sprintf(format, v)).Bold().String()
}

// watchInterval samples the event stream down to one line every this many
// episodes. Depth growth prints immediately.
const watchInterval = 100

// watcher drains a search's event sink and prints sampled statistics
// lines. A watcher made with watch off does nothing.
type watcher struct {
	events chan metrics.Event
	done   chan struct{}
	r      *renderer
}

func newWatcher(watch bool, r *renderer) *watcher {
	if !watch {
		return &watcher{}
	}
	w := &watcher{
		events: make(chan metrics.Event, 1024),
		done:   make(chan struct{}),
		r:      r,
	}
	go w.loop()
	return w
}

// sink returns the channel to hand to WithEventSink, nil when watch is
// off.
func (w *watcher) sink() chan<- metrics.Event {
	if w.events == nil {
		return nil
	}
	return w.events
}

func (w *watcher) loop() {
	defer close(w.done)
	maxDepth := 0
	for ev := range w.events {
		deeper := ev.TreeDepth > maxDepth
		if deeper {
			maxDepth = ev.TreeDepth
		}
		if deeper || ev.Episode == 1 || ev.Episode%watchInterval == 0 {
			fmt.Println(w.r.event(ev))
		}
	}
}

// stop closes the sink and waits for the last lines to print. Only call
// after every search using the sink has returned.
func (w *watcher) stop() {
	if w.events == nil {
		return
	}
	close(w.events)
	<-w.done
}
