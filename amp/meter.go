package amp

import (
	"math"
	"sync/atomic"
)

// Meters tracks running peak levels since the last reset and throttles
// publication to roughly 60 Hz, per the spec's meter surface. Fields
// touched from both the audio thread (writer) and control thread (reader)
// are plain atomics; there is no contention on the write side since only
// the audio thread ever writes them.
type Meters struct {
	in, out       atomic.Uint32 // float32 bits of the published peak
	frameCount    int
	maxFrameCount int
	pendingReset  atomic.Bool

	runningIn, runningOut float32
}

func newMeters(sampleRate int) *Meters {
	m := &Meters{}
	m.setSampleRate(sampleRate)
	return m
}

func (m *Meters) setSampleRate(sampleRate int) {
	m.maxFrameCount = sampleRate / 60
	if m.maxFrameCount < 1 {
		m.maxFrameCount = 1
	}
}

func (m *Meters) requestReset() {
	m.pendingReset.Store(true)
}

// update folds one buffer's peaks into the running accumulators and
// publishes at most once per maxFrameCount samples.
func (m *Meters) update(peakIn, peakOut float32, n int) {
	if m.pendingReset.Swap(false) {
		m.runningIn = 0
		m.runningOut = 0
		m.frameCount = 0
	}
	if peakIn > m.runningIn {
		m.runningIn = peakIn
	}
	if peakOut > m.runningOut {
		m.runningOut = peakOut
	}
	m.frameCount += n
	if m.frameCount >= m.maxFrameCount {
		m.publish()
		m.frameCount -= m.maxFrameCount
	}
}

func (m *Meters) publish() {
	m.in.Store(math.Float32bits(m.runningIn))
	m.out.Store(math.Float32bits(m.runningOut))
}

// MeterIn returns the most recently published input peak.
func (m *Meters) MeterIn() float32 { return math.Float32frombits(m.in.Load()) }

// MeterOut returns the most recently published output peak.
func (m *Meters) MeterOut() float32 { return math.Float32frombits(m.out.Load()) }
