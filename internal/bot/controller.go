// Package bot is the tick controller: it owns the run/stop state and
// drives one sequential planner pass over the instrument universe per
// tick. A pass never overlaps the previous one.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/trace"
	"ai-crypto-trader/internal/types"
)

// ErrAlreadyRunning reports a Start call on a running controller.
var ErrAlreadyRunning = errors.New("bot: already running")

// ErrPassInProgress reports a RunOnce call while a pass is in flight.
var ErrPassInProgress = errors.New("bot: a pass is already in progress")

// Status is the control-plane view. Per-instrument outcomes are only
// observable through the persisted decision and transaction logs.
type Status struct {
	Running    bool      `json:"running"`
	LastTickAt time.Time `json:"last_tick_at"`
}

// Controller holds all mutable scheduling state. No package globals:
// multiple isolated controllers can coexist, which also keeps tests
// deterministic.
type Controller struct {
	planner     interfaces.Planner
	instruments interfaces.InstrumentStore
	fallback    []types.Instrument
	stepTimeout time.Duration

	mu       sync.Mutex
	running  bool
	inFlight bool
	lastTick time.Time
	stop     chan struct{}
	done     chan struct{}
}

// New builds a controller. instruments may be nil, in which case the
// config fallback universe is used. stepTimeout bounds each
// per-instrument pass so a hung provider cannot stall the others.
func New(planner interfaces.Planner, instruments interfaces.InstrumentStore, fallback []types.Instrument, stepTimeout time.Duration) *Controller {
	return &Controller{
		planner:     planner,
		instruments: instruments,
		fallback:    fallback,
		stepTimeout: stepTimeout,
	}
}

// Start launches the periodic scheduler. Calling Start on a running
// controller is a reported conflict, not a restart.
func (c *Controller) Start(interval time.Duration) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go c.loop(interval, stop, done)
	logger.Info(context.Background(), "Tick controller started", "interval", interval.String())
	return nil
}

func (c *Controller) loop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			if err := c.RunOnce(context.Background()); err != nil {
				if errors.Is(err, ErrPassInProgress) {
					logger.Warn(context.Background(), "Previous pass still running, tick skipped")
				} else {
					logger.ErrorWithErr(context.Background(), "Tick pass failed", err)
				}
			}
		case <-stop:
			return
		}
	}
}

// Stop halts the scheduler and prevents the current pass from starting
// any further instrument. It does not interrupt a call already in
// flight; it returns once the scheduler goroutine has exited.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	done := c.done
	c.mu.Unlock()

	<-done

	// Clear the channels so a later manual RunOnce does not read the
	// closed stop channel as a stop request.
	c.mu.Lock()
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	logger.Info(context.Background(), "Tick controller stopped")
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Running: c.running, LastTickAt: c.lastTick}
}

// stopped reports whether Stop was called; observed between
// instruments during a pass.
func (c *Controller) stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil && !c.running
}

// RunOnce executes one synchronous pass over the enabled instruments.
// The in-flight flag is the overlap guard: a second caller gets
// ErrPassInProgress instead of a concurrent pass.
func (c *Controller) RunOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrPassInProgress
	}
	c.inFlight = true
	c.lastTick = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	ctx, span := trace.StartSpan(ctx, "bot.RunOnce")
	defer span.End()

	universe, err := c.universe(ctx)
	if err != nil {
		return err
	}

	for _, inst := range universe {
		if c.stopped() {
			logger.Info(ctx, "Stop requested, pass aborted", "symbol", inst.Symbol)
			return nil
		}
		c.processOne(ctx, inst)
	}
	return nil
}

// processOne isolates a single instrument: its failure is logged and
// never stops the rest of the pass.
func (c *Controller) processOne(ctx context.Context, inst types.Instrument) {
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}
	if _, err := c.planner.Step(ctx, inst); err != nil {
		logger.ErrorWithErr(ctx, "Instrument pass failed", err, "symbol", inst.Symbol)
	}
}

// ProcessInstrument runs a single instrument by id, for manual and
// diagnostic invocation. It shares the overlap guard with RunOnce.
func (c *Controller) ProcessInstrument(ctx context.Context, id int64) (*types.StepResult, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrPassInProgress
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	inst, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}
	return c.planner.Step(ctx, inst)
}

func (c *Controller) lookup(ctx context.Context, id int64) (types.Instrument, error) {
	if c.instruments != nil {
		return c.instruments.ByID(ctx, id)
	}
	for _, inst := range c.fallback {
		if inst.ID == id {
			return inst, nil
		}
	}
	return types.Instrument{}, errors.New("bot: unknown instrument id")
}

// universe resolves the enabled instruments, preferring the store and
// falling back to config when the store is absent or empty.
func (c *Controller) universe(ctx context.Context) ([]types.Instrument, error) {
	if c.instruments != nil {
		active, err := c.instruments.Active(ctx)
		if err == nil && len(active) > 0 {
			return active, nil
		}
		if err != nil {
			logger.Warn(ctx, "Instrument store unavailable, using config universe", "error", err.Error())
		}
	}
	out := make([]types.Instrument, 0, len(c.fallback))
	for _, inst := range c.fallback {
		if inst.Active {
			out = append(out, inst)
		}
	}
	return out, nil
}
