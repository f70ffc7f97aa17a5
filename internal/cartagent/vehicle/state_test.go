package vehicle

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	st := New(250)
	s := st.Snapshot()

	assert.False(t, s.EngineOn)
	assert.Equal(t, 0, s.Speed)
	assert.Equal(t, 100, s.FuelLevel)
	assert.Equal(t, UnknownVoltage, s.Voltage)
	assert.False(t, s.VoltageKnown())
}

func TestMutateClamps(t *testing.T) {
	st := New(50)

	s := st.Mutate(func(s *Status) { s.Speed = 500 })
	assert.Equal(t, 120, s.Speed)

	s = st.Mutate(func(s *Status) { s.Speed = -3; s.FuelLevel = 101 })
	assert.Equal(t, 0, s.Speed)
	assert.Equal(t, 100, s.FuelLevel)
	assert.Equal(t, s, st.Snapshot())
}

func TestSpeedAlwaysInRange(t *testing.T) {
	st := New(50)
	r := rand.New(rand.NewPCG(1, 2))

	for range 1000 {
		delta := 10
		if r.IntN(2) == 0 {
			delta = -10
		}
		s := st.Mutate(func(s *Status) { s.Speed += delta * (1 + r.IntN(20)) })
		assert.GreaterOrEqual(t, s.Speed, 0)
		assert.LessOrEqual(t, s.Speed, 120)
	}
}

func TestVoltageSentinel(t *testing.T) {
	st := New(50)
	now := time.Now()

	s := st.SetVoltage(12.3, now)
	assert.Equal(t, 12.3, s.Voltage)
	assert.True(t, s.VoltageKnown())
	assert.Equal(t, now, s.VoltageUpdatedAt)

	for _, bad := range []float64{-5, math.NaN(), math.Inf(1)} {
		s = st.SetVoltage(bad, now)
		assert.Equal(t, UnknownVoltage, s.Voltage)
		assert.True(t, s.VoltageUpdatedAt.IsZero())
	}
}

func TestStale(t *testing.T) {
	now := time.Now()

	assert.True(t, Status{Voltage: UnknownVoltage}.Stale(now, time.Second))
	assert.False(t, Status{Voltage: 12, VoltageUpdatedAt: now.Add(-500 * time.Millisecond)}.Stale(now, time.Second))
	assert.True(t, Status{Voltage: 12, VoltageUpdatedAt: now.Add(-2 * time.Second)}.Stale(now, time.Second))
}

func TestReset(t *testing.T) {
	st := New(70)
	st.Mutate(func(s *Status) { s.EngineOn = true; s.Speed = 60; s.Emergency = true })

	s := st.Reset()
	assert.Equal(t, Status{FuelLevel: 70, Voltage: UnknownVoltage}, s)
}

func TestResetKeepsVoltage(t *testing.T) {
	st := New(70)
	now := time.Now()
	st.SetVoltage(12.6, now)
	st.Mutate(func(s *Status) { s.Speed = 40; s.DoorOpen = true })

	s := st.Reset()
	assert.Equal(t, Status{FuelLevel: 70, Voltage: 12.6, VoltageUpdatedAt: now}, s)
	assert.Equal(t, s, st.Snapshot())
}

// Writers of different fields never lose each other's updates.
func TestConcurrentFieldWriters(t *testing.T) {
	st := New(50)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 200 {
			st.SetVoltage(float64(i), time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			st.Mutate(func(s *Status) { s.EngineOn = true })
		}
	}()
	for range 100 {
		s := st.Snapshot()
		assert.GreaterOrEqual(t, s.FuelLevel, 0)
	}
	wg.Wait()

	s := st.Snapshot()
	assert.True(t, s.EngineOn)
	assert.Equal(t, 199.0, s.Voltage)
}
