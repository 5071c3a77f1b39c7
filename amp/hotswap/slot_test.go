package hotswap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlot_PublishOnEmptySlotReturnsNil(t *testing.T) {
	var s Slot[int]
	v := 1
	old := s.Publish(&v)
	assert.Nil(t, old)
	assert.Equal(t, &v, s.Current())
}

func TestSlot_AcquireReleaseRoundTrip(t *testing.T) {
	var s Slot[int]
	v := 42
	s.Publish(&v)

	got := s.Acquire()
	assert.NotNil(t, got)
	assert.Equal(t, 42, *got)
	s.Release()
}

func TestSlot_PublishBlocksUntilReleaseThenReturnsOld(t *testing.T) {
	var s Slot[int]
	first := 1
	s.Publish(&first)

	got := s.Acquire()
	assert.Equal(t, &first, got)

	var wg sync.WaitGroup
	wg.Add(1)
	released := false
	go func() {
		defer wg.Done()
		time.Sleep(5 * SpinInterval)
		released = true
		s.Release()
	}()

	second := 2
	old := s.Publish(&second)
	assert.True(t, released)
	assert.Equal(t, &first, old)
	wg.Wait()
}

func TestSlot_AcquireOnEmptySlotReturnsNil(t *testing.T) {
	var s Slot[int]
	assert.Nil(t, s.Acquire())
}

func TestSlot_ConcurrentAcquireReleaseDoesNotRace(t *testing.T) {
	var s Slot[int]
	v := 7
	s.Publish(&v)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				if r := s.Acquire(); r != nil {
					s.Release()
				}
			}
		}
	}()

	for i := 0; i < 20; i++ {
		nv := i
		old := s.Publish(&nv)
		assert.NotNil(t, old)
	}
	close(stop)
	wg.Wait()
}
