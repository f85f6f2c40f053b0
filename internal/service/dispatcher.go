package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"formsearch/internal/domain"
)

// Options configures a Dispatcher.
type Options struct {
	Strategies []domain.Strategy
	Primary    domain.Strategy
	TopN       int
}

// Call is one pending request for one strategy. Run performs it.
type Call struct {
	Strategy   domain.Strategy
	Generation uint64
	Request    domain.SearchRequest

	run func() Result
}

// Run issues the request and blocks until it resolves or is cancelled.
func (c Call) Run() Result { return c.run() }

// Result is the outcome of a Call, to be handed back to Resolve.
type Result struct {
	Strategy   domain.Strategy
	Generation uint64
	Response   *domain.SearchResponse
	Err        error
}

type slot struct {
	state  State
	cancel context.CancelFunc
}

// Dispatcher fans a committed query out to one request per strategy and
// tracks each strategy's state independently. Every request carries a
// per-strategy generation; only the latest generation may update state.
// Issuing a newer request cancels the superseded one.
type Dispatcher struct {
	searcher      domain.Searcher
	strategies    []domain.Strategy
	primary       domain.Strategy
	topN          int
	questionsOnly bool

	mu    sync.Mutex
	slots map[domain.Strategy]*slot
}

// NewDispatcher creates a Dispatcher over searcher.
func NewDispatcher(searcher domain.Searcher, opts Options) *Dispatcher {
	if len(opts.Strategies) == 0 {
		opts.Strategies = []domain.Strategy{domain.StrategyMemory, domain.StrategyPostgres}
	}
	if opts.Primary == "" {
		opts.Primary = opts.Strategies[0]
	}
	if opts.TopN <= 0 {
		opts.TopN = domain.DefaultTopN
	}
	d := &Dispatcher{
		searcher:   searcher,
		strategies: append([]domain.Strategy(nil), opts.Strategies...),
		primary:    opts.Primary,
		topN:       opts.TopN,
		slots:      make(map[domain.Strategy]*slot, len(opts.Strategies)),
	}
	for _, s := range d.strategies {
		d.slots[s] = &slot{}
	}
	return d
}

// Strategies returns the configured strategies in display order.
func (d *Dispatcher) Strategies() []domain.Strategy {
	return append([]domain.Strategy(nil), d.strategies...)
}

// Primary is the strategy queried in UserView.
func (d *Dispatcher) Primary() domain.Strategy { return d.primary }

// SetQuestionsOnly toggles the questions_only flag on subsequent requests.
func (d *Dispatcher) SetQuestionsOnly(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.questionsOnly = v
}

// QuestionsOnly reports the current questions_only flag.
func (d *Dispatcher) QuestionsOnly() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.questionsOnly
}

// State returns the current state of strategy s.
func (d *Dispatcher) State(s domain.Strategy) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sl, ok := d.slots[s]; ok {
		return sl.state
	}
	return State{}
}

// Dispatch issues the requests query needs under mode and returns them
// unstarted. A blank query clears every strategy and returns nothing.
// UserView queries only the primary strategy and clears the rest; DevView
// queries all of them.
func (d *Dispatcher) Dispatch(query string, mode domain.ViewMode) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		for _, s := range d.strategies {
			d.resetLocked(s)
		}
		return nil
	}

	var calls []Call
	for _, s := range d.strategies {
		if mode == domain.UserView && s != d.primary {
			d.resetLocked(s)
			continue
		}
		calls = append(calls, d.issueLocked(s, query))
	}
	return calls
}

// SetMode applies a view mode transition for the current committed query.
// Entering DevView dispatches every strategy; entering UserView clears the
// non-primary ones without touching the primary.
func (d *Dispatcher) SetMode(mode domain.ViewMode, committed string) []Call {
	if mode == domain.DevView {
		return d.Dispatch(committed, domain.DevView)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.strategies {
		if s != d.primary {
			d.resetLocked(s)
		}
	}
	return nil
}

// Resolve applies r if it belongs to the latest request for its strategy and
// reports whether it did. Failures are logged and contained to r.Strategy.
func (d *Dispatcher) Resolve(r Result) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	sl, ok := d.slots[r.Strategy]
	if !ok || r.Generation != sl.state.Generation || sl.state.Phase != PhaseLoading {
		log.Debug().
			Str("strategy", string(r.Strategy)).
			Uint64("generation", r.Generation).
			Msg("discarding stale search result")
		return false
	}
	sl.cancel = nil

	if r.Err != nil {
		log.Error().Err(r.Err).
			Str("strategy", string(r.Strategy)).
			Uint64("generation", r.Generation).
			Msg("search failed")
		sl.state = State{Phase: PhaseFailed, Err: r.Err, Generation: r.Generation}
		return true
	}
	sl.state = State{Phase: PhaseLoaded, Response: r.Response, Generation: r.Generation}
	return true
}

// RunAll runs calls concurrently, resolves each one as it finishes and
// returns the results in call order. A failing call never stops its siblings.
func (d *Dispatcher) RunAll(calls []Call) []Result {
	results := make([]Result, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = call.Run()
			d.Resolve(results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Close cancels every in-flight request and clears all state.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.strategies {
		d.resetLocked(s)
	}
}

func (d *Dispatcher) issueLocked(s domain.Strategy, query string) Call {
	sl := d.slots[s]
	if sl.cancel != nil {
		sl.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	sl.cancel = cancel
	gen := sl.state.Generation + 1
	sl.state = State{Phase: PhaseLoading, Generation: gen}

	req := domain.SearchRequest{
		Query:         query,
		Strategy:      s,
		TopN:          d.topN,
		QuestionsOnly: d.questionsOnly,
	}
	log.Debug().
		Str("strategy", string(s)).
		Uint64("generation", gen).
		Str("query", query).
		Msg("dispatching search")

	searcher := d.searcher
	return Call{
		Strategy:   s,
		Generation: gen,
		Request:    req,
		run: func() Result {
			defer cancel()
			resp, err := searcher.Search(ctx, req)
			if err == nil && resp == nil {
				err = errors.New("empty response")
			}
			return Result{Strategy: s, Generation: gen, Response: resp, Err: err}
		},
	}
}

func (d *Dispatcher) resetLocked(s domain.Strategy) {
	sl := d.slots[s]
	if sl.cancel != nil {
		sl.cancel()
		sl.cancel = nil
	}
	sl.state = State{Phase: PhaseIdle, Generation: sl.state.Generation + 1}
}
