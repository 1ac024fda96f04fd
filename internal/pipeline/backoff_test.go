package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{200 * time.Millisecond, 400 * time.Millisecond},
		{400 * time.Millisecond, 800 * time.Millisecond},
		{3 * time.Second, 5 * time.Second},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextBackoff(tt.current, 5*time.Second))
	}
}

func TestSleepWithContext(t *testing.T) {
	assert.True(t, sleepWithContext(context.Background(), 0))
	assert.True(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Minute))
}

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		decimals int
		want     float64
	}{
		{"half away from zero", 0.00005, 4, 0.0001},
		{"negative half", -2.5, 0, -3},
		{"negative zero", -0.00001, 4, 0},
		{"already rounded", 123.4567, 4, 123.4567},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := round(tt.x, tt.decimals)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.False(t, math.Signbit(got) && got == 0)
		})
	}
}
