package controller

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/pattern"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()
	assert.Equal(t, pattern.Static, snap.Mode)
	assert.Equal(t, dmx.Universe{}, snap.Universe)
	assert.False(t, snap.Stopping)
}

func TestApplyIntents(t *testing.T) {
	tests := []struct {
		name     string
		intents  []Intent
		wantMode pattern.Mode
		wantAll  uint8
	}{
		{"set all", []Intent{SetAllChannels(255)}, pattern.Static, 255},
		{"set all leaves fade", []Intent{SetMode(pattern.Fade), SetAllChannels(10)}, pattern.Static, 10},
		{"blackout", []Intent{SetAllChannels(200), Blackout()}, pattern.Static, 0},
		{"mode keeps levels", []Intent{SetAllChannels(77), SetMode(pattern.Rainbow)}, pattern.Rainbow, 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			for _, in := range tt.intents {
				require.NoError(t, s.Apply(in))
			}
			snap := s.Snapshot()
			assert.Equal(t, tt.wantMode, snap.Mode)
			for i, v := range snap.Universe {
				require.Equalf(t, tt.wantAll, v, "channel %d", i)
			}
		})
	}
}

func TestSetAllThenStaticTick(t *testing.T) {
	for v := 0; v <= 255; v++ {
		s := NewState()
		require.NoError(t, s.SetAllChannels(uint8(v)))
		u, ok := s.advance(pattern.NewEngine().Next)
		require.True(t, ok)
		var want dmx.Universe
		want.Fill(uint8(v))
		require.Equal(t, want, u, "level %d", v)
	}
}

func TestSetModeRejectsUnknown(t *testing.T) {
	s := NewState()
	err := s.Apply(SetMode(pattern.Mode(42)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dmx.ErrIntent))
	assert.Equal(t, pattern.Static, s.Snapshot().Mode)

	err = s.Apply(Intent{Op: Op(99)})
	assert.True(t, errors.Is(err, dmx.ErrIntent))
}

func TestStopIsOneWay(t *testing.T) {
	s := NewState()
	require.NoError(t, s.SetAllChannels(50))

	assert.True(t, s.RequestStop())
	assert.False(t, s.RequestStop())
	require.NoError(t, s.Apply(Stop()))

	select {
	case <-s.Done():
	default:
		t.Fatal("Done() not closed after stop")
	}

	assert.ErrorIs(t, s.SetAllChannels(255), ErrStopped)
	assert.ErrorIs(t, s.Blackout(), ErrStopped)
	assert.ErrorIs(t, s.SetMode(pattern.Fade), ErrStopped)

	snap := s.Snapshot()
	assert.True(t, snap.Stopping)
	assert.Equal(t, uint8(50), snap.Universe[0])

	_, ok := s.advance(pattern.NewEngine().Next)
	assert.False(t, ok, "advance must not run after stop")
}

// A reader must never see a buffer mixing two writes.
func TestConcurrentWritesAreAtomic(t *testing.T) {
	s := NewState()
	engine := pattern.NewEngine()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = s.SetAllChannels(uint8(w*60 + i%50))
				if i%100 == 0 {
					_ = s.SetMode(pattern.Fade)
				}
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			u, _ := s.advance(engine.Next)
			for c := 1; c < dmx.Channels; c++ {
				if u[c] != u[0] {
					t.Errorf("torn buffer: channel 0 = %d, channel %d = %d", u[0], c, u[c])
					return
				}
			}
		}
	}()

	wg.Wait()
	<-done
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "mode rainbow", SetMode(pattern.Rainbow).String())
	assert.Equal(t, "all channels 12", SetAllChannels(12).String())
	assert.Equal(t, "blackout", Blackout().String())
	assert.Equal(t, "stop", Stop().String())
}
