// Package cabinet implements the two-stage threaded partitioned-convolution
// cabinet IR engine: a low-latency head stage run on the audio thread and a
// larger-block tail stage run on a background worker goroutine, coordinated
// by a single circulating work token.
package cabinet

import (
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

const (
	HeadBlockSize = 128
	TailBlockSize = 1024

	// teardownTimeout bounds the worker join, matching the 5-second
	// constant original_source/TwoStageThreadedConvolver.hpp joins with.
	teardownTimeout = 5 * time.Second
)

// Convolver wraps the head/tail partitioned convolution described in the
// spec's two-stage convolver component. Instances are built with
// NewConvolver, which installs an identity IR; SetIR replaces it.
//
// Every slice below is sized once, on the control thread, inside SetIR (or
// at construction): maxBlock bounds the per-call sample count (the engine's
// buffer_size), and the IR-derived capacities bound the longest overlap
// carry the head/tail stages can produce. Process only ever reslices or
// copies within these fixed capacities, so it never allocates.
type Convolver struct {
	sampleRate int
	irLen      int
	maxBlock   int

	headOLA *dspconv.OverlapAdd
	tailOLA *dspconv.OverlapAdd

	in64   []float64 // cap maxBlock: float32->float64 staging for Process's input
	outF32 []float32 // cap maxBlock: Process's returned output view

	headCarry    []float64 // cap irLen-1: head-stage overlap carried between calls
	headCarryLen int

	tailCarry    []float64 // cap tailSegLen-1: tail-stage overlap carried between dispatches
	tailCarryLen int

	// Tail-stage worker protocol: two binary-semaphore-equivalent channels
	// of capacity 1, plus an atomic exit flag.
	startCh    chan struct{}
	finishedCh chan struct{}
	shouldExit atomic.Bool
	workerDone chan struct{}
	running    bool

	accum      []float64 // cap TailBlockSize
	accumLen   int
	dispatched bool
	tailOut    []float64 // cap TailBlockSize: most recently finished tail block

	outQueue     []float64 // cap TailBlockSize+maxBlock, compacted in place
	outQueueHead int
	outQueueLen  int

	// headShort/tailShort back the defensive zero-padded output foldOverlap
	// returns if the library ever hands back a conv result shorter than the
	// requested block (should not happen in steady state, but avoids an
	// out-of-range read without allocating).
	headShort []float64 // cap maxBlock
	tailShort []float64 // cap TailBlockSize
}

// NewConvolver builds an identity (unit-impulse) convolver sized to accept
// at most maxBlock samples per Process call; call SetIR to load a real
// impulse response.
func NewConvolver(sampleRate, maxBlock int) *Convolver {
	if maxBlock < 1 {
		maxBlock = 1
	}
	c := &Convolver{sampleRate: sampleRate, maxBlock: maxBlock}
	c.allocateBlockScratch()
	c.SetIR([]float32{1.0})
	return c
}

func (c *Convolver) allocateBlockScratch() {
	c.in64 = make([]float64, c.maxBlock)
	c.outF32 = make([]float32, c.maxBlock)
	c.accum = make([]float64, TailBlockSize)
	c.tailOut = make([]float64, TailBlockSize)
	c.outQueue = make([]float64, TailBlockSize+c.maxBlock)
	c.headShort = make([]float64, c.maxBlock)
	c.tailShort = make([]float64, TailBlockSize)
}

// SetIR installs a new impulse response, partitioning it into a head segment
// (processed synchronously) and, when long enough, a tail segment handled
// by a background worker. Per the short-IR fallback, an IR of length
// ≤ 2·TailBlockSize skips the worker entirely.
func (c *Convolver) SetIR(ir []float32) error {
	c.stopWorker()

	if len(ir) == 0 {
		ir = []float32{1.0}
	}
	c.irLen = len(ir)

	ir64 := make([]float64, len(ir))
	for i, v := range ir {
		ir64[i] = float64(v)
	}

	if len(ir) <= 2*TailBlockSize {
		headOLA, err := dspconv.NewOverlapAdd(ir64, HeadBlockSize)
		if err != nil {
			return err
		}
		c.headOLA = headOLA
		c.tailOLA = nil
		c.allocateCarryBuffers(0)
		c.Reset()
		return nil
	}

	headSeg := ir64[:TailBlockSize]
	tailSeg := ir64[TailBlockSize:]

	headOLA, err := dspconv.NewOverlapAdd(headSeg, HeadBlockSize)
	if err != nil {
		return err
	}
	tailOLA, err := dspconv.NewOverlapAdd(tailSeg, TailBlockSize)
	if err != nil {
		return err
	}
	c.headOLA = headOLA
	c.tailOLA = tailOLA
	c.allocateCarryBuffers(len(tailSeg))
	c.Reset()
	c.startWorker()
	return nil
}

// allocateCarryBuffers sizes the head/tail overlap-carry scratch: headCarry
// always bounds to irLen-1 (its largest possible span, whichever mode is
// active), tailCarry to tailSegLen-1 (zero when there is no tail stage).
func (c *Convolver) allocateCarryBuffers(tailSegLen int) {
	headCap := c.irLen - 1
	if headCap < 0 {
		headCap = 0
	}
	c.headCarry = make([]float64, headCap)
	c.headCarryLen = 0

	tailCap := tailSegLen - 1
	if tailCap < 0 {
		tailCap = 0
	}
	c.tailCarry = make([]float64, tailCap)
	c.tailCarryLen = 0
}

// Reset clears convolution history without reconfiguring the IR.
func (c *Convolver) Reset() {
	if c.headOLA != nil {
		c.headOLA.Reset()
	}
	if c.tailOLA != nil {
		c.tailOLA.Reset()
	}
	c.headCarryLen = 0
	c.tailCarryLen = 0
	c.accumLen = 0
	c.outQueueHead = 0
	c.outQueueLen = 0
	c.dispatched = false
}

// Running reports whether a background worker is active for this instance.
func (c *Convolver) Running() bool { return c.running }

func (c *Convolver) startWorker() {
	c.startCh = make(chan struct{}, 1)
	c.finishedCh = make(chan struct{}, 1)
	c.workerDone = make(chan struct{})
	c.shouldExit.Store(false)
	c.running = true
	go c.run()
}

func (c *Convolver) stopWorker() {
	if !c.running {
		return
	}
	c.shouldExit.Store(true)
	select {
	case c.startCh <- struct{}{}:
	default:
	}
	select {
	case <-c.workerDone:
	case <-time.After(teardownTimeout):
		// Teardown timeout: leak the goroutine, log, continue shutdown.
		log.Error("convolver worker did not exit within teardown timeout", "timeout", teardownTimeout)
	}
	c.running = false
}

// Close implements hotswap.Destroyable.
func (c *Convolver) Close() error {
	c.stopWorker()
	return nil
}

func (c *Convolver) run() {
	defer close(c.workerDone)
	for {
		<-c.startCh
		if c.shouldExit.Load() {
			return
		}
		c.doBackgroundProcessing()
		c.finishedCh <- struct{}{}
	}
}

// doBackgroundProcessing runs the tail-segment FFT convolution on the most
// recently accumulated tail-block-sized chunk of input.
func (c *Convolver) doBackgroundProcessing() {
	full, err := c.tailOLA.Process(c.accum[:TailBlockSize])
	if err != nil {
		return
	}
	out, newCarryLen := foldOverlap(full, c.tailCarry, c.tailCarryLen, TailBlockSize, c.tailShort)
	c.tailCarryLen = newCarryLen
	copy(c.tailOut, out)
}

// Process runs head convolution synchronously and, when two-stage mode is
// active, accumulates input for the tail worker and drains its queued
// output, never blocking longer than one tail period. It never allocates:
// every scratch slice it touches was sized once in SetIR/NewConvolver.
func (c *Convolver) Process(in []float32) []float32 {
	n := len(in)
	// The engine guarantees every call respects buffer_size, the bound
	// scratch was sized to in NewConvolver/SetIR; a call longer than that
	// is an invariant breach (spec §7), not a case to grow scratch for.
	out := c.outF32[:n]
	if n == 0 || c.headOLA == nil {
		for i := range out {
			out[i] = 0
		}
		return out
	}

	in64 := c.in64[:n]
	for i := 0; i < n; i++ {
		in64[i] = float64(in[i])
	}

	headFull, err := c.headOLA.Process(in64)
	var head []float64
	if err == nil {
		head, c.headCarryLen = foldOverlap(headFull, c.headCarry, c.headCarryLen, n, c.headShort)
	} else {
		head = in64
	}

	if c.tailOLA != nil {
		c.startBackgroundProcessing(in64)
		c.waitForBackgroundProcessing()
	}

	for i := 0; i < n; i++ {
		v := head[i]
		if c.outQueueLen > 0 {
			v += c.outQueue[c.outQueueHead]
			c.outQueueHead++
			c.outQueueLen--
		}
		out[i] = float32(v)
	}
	return out
}

func (c *Convolver) startBackgroundProcessing(in64 []float64) {
	room := TailBlockSize - c.accumLen
	toCopy := len(in64)
	if toCopy > room {
		toCopy = room
	}
	copy(c.accum[c.accumLen:c.accumLen+toCopy], in64[:toCopy])
	c.accumLen += toCopy
	c.dispatched = false
	if c.accumLen < TailBlockSize {
		return
	}
	c.dispatched = true
	select {
	case c.startCh <- struct{}{}:
	default:
	}
}

func (c *Convolver) waitForBackgroundProcessing() {
	if !c.running || c.shouldExit.Load() || !c.dispatched {
		return
	}
	<-c.finishedCh
	c.enqueueTailOut()
	c.accumLen = 0
}

// enqueueTailOut appends the latest finished tail block to outQueue,
// compacting the queue back to index 0 first if the tail wouldn't fit.
func (c *Convolver) enqueueTailOut() {
	if c.outQueueHead+c.outQueueLen+TailBlockSize > len(c.outQueue) {
		copy(c.outQueue[:c.outQueueLen], c.outQueue[c.outQueueHead:c.outQueueHead+c.outQueueLen])
		c.outQueueHead = 0
	}
	copy(c.outQueue[c.outQueueHead+c.outQueueLen:], c.tailOut)
	c.outQueueLen += TailBlockSize
}

// foldOverlap adds a carried overlap tail onto the front of convOut in
// place, then splits it into this block's blockLen-sample output (a view
// into convOut, valid until the next Process call) and the new carry
// (copied into carry, which must have capacity for convOut's full overhang).
// Unlike a classic save-then-add overlap-add pass, this folds the addition
// and the split into one pass over convOut so no intermediate buffer is
// needed beyond the carry slice itself.
func foldOverlap(convOut []float64, carry []float64, carryLen int, blockLen int, short []float64) (out []float64, newCarryLen int) {
	if len(convOut) < blockLen {
		s := short[:blockLen]
		for i := range s {
			s[i] = 0
		}
		copy(s, convOut)
		return s, 0
	}
	n := carryLen
	if n > len(convOut) {
		n = len(convOut)
	}
	for i := 0; i < n; i++ {
		convOut[i] += carry[i]
	}
	newCarryLen = len(convOut) - blockLen
	copy(carry[:newCarryLen], convOut[blockLen:])
	return convOut[:blockLen], newCarryLen
}
