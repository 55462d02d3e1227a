package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdown_FireOnce(t *testing.T) {
	s := NewShutdown()
	assert.False(t, s.Fired())

	first := s.Trigger("http")
	second := first // triggers are plain values

	assert.True(t, first.Fire())
	assert.False(t, second.Fire())
	assert.False(t, s.Trigger("signal").Fire())
	assert.True(t, s.Fired())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after Fire")
	}
}

func TestShutdown_ConcurrentFire(t *testing.T) {
	s := NewShutdown()
	var delivered atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Trigger("test").Fire() {
				delivered.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), delivered.Load())
}

func TestTrigger_ZeroValue(t *testing.T) {
	var trigger Trigger
	assert.NotPanics(t, func() {
		assert.False(t, trigger.Fire())
	})
	assert.Equal(t, "mqtt", NewShutdown().Trigger("mqtt").Source())
}
