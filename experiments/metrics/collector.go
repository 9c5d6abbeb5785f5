package metrics

import (
	"sync/atomic"
	"time"
)

// Event is one iteration's worth of search progress, streamed while the
// search runs. Elapsed is measured from the start of the search.
type Event struct {
	Episode       int
	NodesExpanded int
	TreeDepth     int
	Elapsed       time.Duration
	Regret        float64
}

// SearchMetric summarizes one completed search.
type SearchMetric struct {
	Goroutines    int
	Duration      time.Duration
	Episodes      int
	NodesExpanded int
	MaxDepth      int
	FullPlayouts  int
	DroppedEvents int
	IsTreeReused  bool
}

type MoveMetric struct {
	Step   int
	Player string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer string
	Winner         string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

// Collector accumulates statistics across the concurrent workers of one
// search. Implementations must be safe for concurrent use. Start resets
// the counters so a collector can serve consecutive searches.
type Collector interface {
	Start(goroutines int)
	SetTreeReused(value bool)
	AddExpansion()
	AddFullPlayout()
	EndEpisode(depth int, regret float64)
	// Streaming reports whether EndEpisode emits events, so callers can
	// skip computing per-iteration statistics nobody consumes.
	Streaming() bool
	Complete() SearchMetric
}

type collector struct {
	goroutines    int
	startTime     time.Time
	episodes      atomic.Int32
	nodesExpanded atomic.Int32
	maxDepth      atomic.Int32
	fullPlayouts  atomic.Int32
	dropped       atomic.Int32
	isTreeReused  atomic.Bool
	sink          chan<- Event
}

func NewCollector() Collector {
	return &collector{}
}

// NewStreamingCollector emits an Event per iteration into sink on top of
// the aggregate counters. Sends never block: when sink's buffer is full
// the event is dropped and counted.
func NewStreamingCollector(sink chan<- Event) Collector {
	if sink == nil {
		panic("streaming collector needs a sink channel")
	}
	return &collector{sink: sink}
}

func (m *collector) Start(goroutines int) {
	m.startTime = time.Now()
	m.goroutines = goroutines
	m.episodes.Store(0)
	m.nodesExpanded.Store(0)
	m.maxDepth.Store(0)
	m.fullPlayouts.Store(0)
	m.dropped.Store(0)
}

func (m *collector) SetTreeReused(value bool) {
	m.isTreeReused.Store(value)
}

func (m *collector) AddExpansion() {
	m.nodesExpanded.Add(1)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) EndEpisode(depth int, regret float64) {
	episode := m.episodes.Add(1)
	for {
		deepest := m.maxDepth.Load()
		if int32(depth) <= deepest || m.maxDepth.CompareAndSwap(deepest, int32(depth)) {
			break
		}
	}
	if m.sink == nil {
		return
	}
	event := Event{
		Episode:       int(episode),
		NodesExpanded: int(m.nodesExpanded.Load()),
		TreeDepth:     depth,
		Elapsed:       time.Since(m.startTime),
		Regret:        regret,
	}
	select {
	case m.sink <- event:
	default:
		m.dropped.Add(1)
	}
}

func (m *collector) Streaming() bool {
	return m.sink != nil
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Goroutines:    m.goroutines,
		Duration:      time.Since(m.startTime),
		Episodes:      int(m.episodes.Load()),
		NodesExpanded: int(m.nodesExpanded.Load()),
		MaxDepth:      int(m.maxDepth.Load()),
		FullPlayouts:  int(m.fullPlayouts.Load()),
		DroppedEvents: int(m.dropped.Load()),
		IsTreeReused:  m.isTreeReused.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines int)                 {}
func (m *dummyCollector) SetTreeReused(value bool)             {}
func (m *dummyCollector) AddExpansion()                        {}
func (m *dummyCollector) AddFullPlayout()                      {}
func (m *dummyCollector) EndEpisode(depth int, regret float64) {}
func (m *dummyCollector) Streaming() bool                      { return false }
func (m *dummyCollector) Complete() SearchMetric               { return SearchMetric{} }
