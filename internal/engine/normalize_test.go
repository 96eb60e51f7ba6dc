package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorToStep(t *testing.T) {
	assert.Equal(t, 0.0023, FloorToStep(0.00237, 0.0001))
	assert.Equal(t, 0.0023, FloorToStep(0.0023, 0.0001))
	assert.Equal(t, 0.0, FloorToStep(0.00009, 0.0001))
	// step of zero passes the value through
	assert.Equal(t, 1.2345, FloorToStep(1.2345, 0))
}

func TestFloorToStepAvoidsFloatDrift(t *testing.T) {
	// 0.29 / 0.01 is 28.999... in float64; decimal math must not lose
	// the last step.
	got := FloorToStep(0.29, 0.01)
	assert.Equal(t, 0.29, got)
	assert.True(t, AlignedToStep(got, 0.01))
}

func TestRoundToTick(t *testing.T) {
	assert.Equal(t, 42000.12, RoundToTick(42000.1234, 0.01))
	assert.Equal(t, 42000.13, RoundToTick(42000.1251, 0.01))
	assert.Equal(t, 42000.1234, RoundToTick(42000.1234, 0))
}

func TestAlignedToStep(t *testing.T) {
	assert.True(t, AlignedToStep(0.0023, 0.0001))
	assert.False(t, AlignedToStep(0.00235, 0.0001))
	assert.True(t, AlignedToStep(5, 0))
}
