package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-crypto-trader/internal/types"
)

type scriptedPlanner struct {
	mu      sync.Mutex
	symbols []string
	errFor  map[string]error

	started chan string   // receives the symbol as each step begins
	proceed chan struct{} // each step waits for one token when set
}

func (s *scriptedPlanner) Step(ctx context.Context, inst types.Instrument) (*types.StepResult, error) {
	if s.started != nil {
		s.started <- inst.Symbol
	}
	if s.proceed != nil {
		<-s.proceed
	}
	s.mu.Lock()
	s.symbols = append(s.symbols, inst.Symbol)
	s.mu.Unlock()
	if err := s.errFor[inst.Symbol]; err != nil {
		return nil, err
	}
	return &types.StepResult{Symbol: inst.Symbol, Outcome: types.OutcomeSkipped, Reason: "test"}, nil
}

func (s *scriptedPlanner) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.symbols...)
}

func universe() []types.Instrument {
	return []types.Instrument{
		{ID: 1, Symbol: "BTCUSDT", Active: true},
		{ID: 2, Symbol: "ETHUSDT", Active: true},
		{ID: 3, Symbol: "DOGEUSDT", Active: false},
	}
}

func TestStartConflictAndRestart(t *testing.T) {
	c := New(&scriptedPlanner{}, nil, universe(), 0)

	require.NoError(t, c.Start(time.Hour))
	assert.True(t, c.IsRunning())
	assert.ErrorIs(t, c.Start(time.Hour), ErrAlreadyRunning)

	c.Stop()
	assert.False(t, c.IsRunning())

	// Stopping twice is harmless and a stopped controller can restart.
	c.Stop()
	require.NoError(t, c.Start(time.Hour))
	c.Stop()
}

func TestRunOnceAfterStopStillProcesses(t *testing.T) {
	p := &scriptedPlanner{}
	c := New(p, nil, universe(), 0)

	require.NoError(t, c.Start(time.Hour))
	c.Stop()

	require.NoError(t, c.RunOnce(context.Background()))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, p.seen(),
		"a stopped controller still serves manual diagnostic passes")
}

func TestRunOnceProcessesOnlyActiveInstruments(t *testing.T) {
	p := &scriptedPlanner{}
	c := New(p, nil, universe(), 0)

	require.NoError(t, c.RunOnce(context.Background()))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, p.seen())
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	p := &scriptedPlanner{
		started: make(chan string),
		proceed: make(chan struct{}),
	}
	c := New(p, nil, universe(), 0)

	errCh := make(chan error, 1)
	go func() { errCh <- c.RunOnce(context.Background()) }()
	<-p.started // first pass is now mid-instrument

	assert.ErrorIs(t, c.RunOnce(context.Background()), ErrPassInProgress)

	// release both instruments of the first pass
	p.proceed <- struct{}{}
	<-p.started
	p.proceed <- struct{}{}
	require.NoError(t, <-errCh)

	// with the pass finished the guard is released again
	p.started = nil
	p.proceed = nil
	require.NoError(t, c.RunOnce(context.Background()))
}

func TestRunOnceIsolatesInstrumentFailures(t *testing.T) {
	p := &scriptedPlanner{errFor: map[string]error{"BTCUSDT": errors.New("exchange down")}}
	c := New(p, nil, universe(), 0)

	require.NoError(t, c.RunOnce(context.Background()))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, p.seen(),
		"a failing instrument must not stop the rest of the pass")
}

func TestStopIsObservedBetweenInstruments(t *testing.T) {
	p := &scriptedPlanner{
		started: make(chan string, 2),
		proceed: make(chan struct{}, 2),
	}
	c := New(p, nil, universe(), 0)

	require.NoError(t, c.Start(10*time.Millisecond))
	sym := <-p.started // first instrument of the first pass is in flight

	stopDone := make(chan struct{})
	go func() {
		c.Stop()
		close(stopDone)
	}()

	p.proceed <- struct{}{} // let the in-flight call finish
	<-stopDone

	assert.Equal(t, "BTCUSDT", sym)
	assert.Equal(t, []string{"BTCUSDT"}, p.seen(),
		"stop prevents the next instrument from starting but does not interrupt the in-flight call")
}

func TestStatusTracksLastTick(t *testing.T) {
	c := New(&scriptedPlanner{}, nil, universe(), 0)

	st := c.Status()
	assert.False(t, st.Running)
	assert.True(t, st.LastTickAt.IsZero())

	require.NoError(t, c.RunOnce(context.Background()))
	st = c.Status()
	assert.False(t, st.Running)
	assert.False(t, st.LastTickAt.IsZero())
}

func TestProcessInstrumentByID(t *testing.T) {
	p := &scriptedPlanner{}
	c := New(p, nil, universe(), 0)

	res, err := c.ProcessInstrument(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", res.Symbol)

	_, err = c.ProcessInstrument(context.Background(), 99)
	require.Error(t, err)
}
