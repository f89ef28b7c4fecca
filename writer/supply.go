package writer

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/record"
)

// SlotState is one ring slot's position in the Empty -> Filling -> Full ->
// Compressing -> Compressed -> Writing -> Released -> Empty cycle.
type SlotState int32

const (
	Empty SlotState = iota
	Filling
	Full
	Compressing
	Compressed
	Writing
	Released
)

// RecordRingItem is one slot of a RecordSupply's ring: an owned RecordOutput
// plus the bookkeeping a producer, compressor, and the writer pass it
// through.
type RecordRingItem struct {
	ro    *record.RecordOutput
	state atomic.Int32

	seq     int64
	built   []byte
	entries int
}

// RecordOutput returns the slot's owned RecordOutput, for the producer to
// fill between Get and Publish.
func (item *RecordRingItem) RecordOutput() *record.RecordOutput { return item.ro }

func (item *RecordRingItem) reset() {
	item.ro.Reset()
	item.built = nil
	item.entries = 0
	item.state.Store(int32(Empty))
}

// WaitStrategy controls how a consumer goroutine idles while waiting for a
// sequence to become available.
type WaitStrategy int

const (
	// WaitSpin busy-loops. Lowest latency, highest CPU use.
	WaitSpin WaitStrategy = iota
	// WaitYield calls runtime.Gosched between checks.
	WaitYield
	// WaitBlock parks on a condition variable, woken on every publish or
	// release.
	WaitBlock
)

// RecordSupply is a fixed-size ring of RecordRingItem slots shared between
// one producer, a fixed number of compressor threads, and one writer. Ring
// size must be a power of two and at least the compressor-thread count.
//
// The ring is lock-free except for a small critical section guarding the
// condition variable used by WaitBlock; publication and release are
// tracked with monotonic atomic sequence counters, matching the source's
// disruptor-style design without depending on a third-party library.
type RecordSupply struct {
	slots []*RecordRingItem
	mask  int64
	size  int64

	compressorThreads int
	compressionType   format.CompressionType
	wait              WaitStrategy

	cursor       atomic.Int64 // highest published sequence
	released     atomic.Int64 // highest sequence released back to the producer
	compressorAt []atomic.Int64

	// gen is a wake generation counter, guarded by mu. Block-waiters
	// sample it before re-checking their wait condition and only park
	// while it is unchanged, so a wake landing between the check and the
	// park is never lost.
	mu   sync.Mutex
	cond *sync.Cond
	gen  uint64

	alerted  atomic.Bool
	diskFull atomic.Bool
	errOnce  sync.Once
	firstErr error
	closed   atomic.Bool
}

// NewRecordSupply creates a ring of ringSize slots, each wrapping a fresh
// RecordOutput, for use with compressorThreads compressor goroutines.
// ringSize must be a power of two and >= compressorThreads.
func NewRecordSupply(ringSize, compressorThreads int, compressionType format.CompressionType, wait WaitStrategy) (*RecordSupply, error) {
	if ringSize <= 0 || ringSize&(ringSize-1) != 0 {
		return nil, fmt.Errorf("%w: ring size %d is not a power of two", errs.BadHeader, ringSize)
	}
	if compressorThreads <= 0 || compressorThreads > ringSize {
		return nil, fmt.Errorf("%w: %d compressor threads exceeds ring size %d", errs.BadHeader, compressorThreads, ringSize)
	}

	s := &RecordSupply{
		slots:             make([]*RecordRingItem, ringSize),
		mask:              int64(ringSize - 1),
		size:              int64(ringSize),
		compressorThreads: compressorThreads,
		compressionType:   compressionType,
		wait:              wait,
		compressorAt:      make([]atomic.Int64, compressorThreads),
	}
	s.cond = sync.NewCond(&s.mu)
	s.cursor.Store(-1)
	s.released.Store(-1)

	// Compressor k's first assigned sequence is k, so it has implicitly
	// released everything through k-1. Seeding the gates this way keeps
	// the write barrier from waiting on a compressor that has simply not
	// been handed work yet.
	for i := range s.compressorAt {
		s.compressorAt[i].Store(int64(i) - 1)
	}

	for i := range s.slots {
		ro, err := record.NewRecordOutput()
		if err != nil {
			return nil, err
		}
		s.slots[i] = &RecordRingItem{ro: ro}
	}

	return s, nil
}

// SetEndian changes the byte order every slot's RecordOutput builds in. It
// must be called before the first Publish, while no slot holds events.
func (s *RecordSupply) SetEndian(engine endian.EndianEngine) {
	for _, item := range s.slots {
		item.ro.SetEndian(engine)
	}
}

// generation samples the current wake generation. Callers sample it before
// re-checking a wait condition and pass it to idle, which only parks while
// the generation is unchanged.
func (s *RecordSupply) generation() uint64 {
	if s.wait != WaitBlock {
		return 0
	}

	s.mu.Lock()
	g := s.gen
	s.mu.Unlock()

	return g
}

// idle yields the calling goroutine according to the configured
// WaitStrategy. g must be a generation sampled before the caller last
// checked its wait condition.
func (s *RecordSupply) idle(g uint64) {
	switch s.wait {
	case WaitYield:
		runtime.Gosched()
	case WaitBlock:
		s.mu.Lock()
		for s.gen == g {
			s.cond.Wait()
		}
		s.mu.Unlock()
	default: // WaitSpin
	}
}

// wake advances the generation and notifies every WaitBlock waiter.
func (s *RecordSupply) wake() {
	if s.wait == WaitBlock {
		s.mu.Lock()
		s.gen++
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Get blocks until a free slot is available (its previous occupant has been
// released) and returns it along with the sequence the producer must
// Publish it under. The returned slot has already been reset to Empty.
func (s *RecordSupply) Get() (*RecordRingItem, int64, error) {
	seq := s.cursor.Load() + 1

	for {
		g := s.generation()
		if seq-s.size <= s.released.Load() {
			break
		}
		if err := s.checkAlerted(); err != nil {
			return nil, 0, err
		}
		s.idle(g)
	}

	item := s.slots[seq&s.mask]
	item.reset()
	item.seq = seq
	item.state.Store(int32(Filling))

	return item, seq, nil
}

// Publish marks seq's slot Full and makes it visible to compressor
// goroutines waiting on the compress barrier.
func (s *RecordSupply) Publish(seq int64) {
	item := s.slots[seq&s.mask]
	item.state.Store(int32(Full))
	s.cursor.Store(seq)
	s.wake()
}

// RunCompressor runs compressor thread index k (in [0, compressorThreads))
// until Close or ErrorAlert. It claims sequences k, k+N, k+2N, ...,
// compresses each via RecordOutput.Build, and releases it to the write
// barrier. On release it advances its own gate to seq+N-1 (the skip-release
// rule) so the write barrier's minimum-over-compressors never waits on a
// slot this thread was never assigned.
//
// On exit — drain or error — the gate is parked at the maximum sequence so
// the barrier can never wait on a compressor that is gone; the writer
// distinguishes real completions from that by each slot's Compressed state.
func (s *RecordSupply) RunCompressor(k int) error {
	defer func() {
		s.compressorAt[k].Store(math.MaxInt64)
		s.wake()
	}()

	n := int64(s.compressorThreads)
	seq := int64(k)

	for {
		for {
			g := s.generation()
			if s.cursor.Load() >= seq {
				break
			}
			if s.closed.Load() && s.cursor.Load() < seq {
				return nil
			}
			if err := s.checkAlerted(); err != nil {
				return err
			}
			s.idle(g)
		}

		item := s.slots[seq&s.mask]
		item.state.Store(int32(Compressing))

		item.ro.SetRecordNumber(uint32(seq + 1))
		item.ro.SetCompressionType(s.compressionType)

		built, err := item.ro.Build()
		if err != nil {
			s.alertError(err)
			return err
		}
		item.built = built
		item.entries = item.ro.EventCount()

		item.state.Store(int32(Compressed))
		s.compressorAt[k].Store(seq + n - 1)
		s.wake()

		seq += n
	}
}

// writeBarrier returns the highest sequence that every compressor has
// released past, the sequence the writer may safely consume up through.
func (s *RecordSupply) writeBarrier() int64 {
	min := s.compressorAt[0].Load()
	for i := 1; i < len(s.compressorAt); i++ {
		if v := s.compressorAt[i].Load(); v < min {
			min = v
		}
	}

	return min
}

// GetToWrite blocks until sequence seq has been published, compressed, and
// cleared the write barrier, and returns its slot. It fails with
// errs.ClosedSupply once the supply is closed and no record will ever be
// published under seq, and with errs.Alerted after an ErrorAlert.
func (s *RecordSupply) GetToWrite(seq int64) (*RecordRingItem, error) {
	item := s.slots[seq&s.mask]

	for {
		g := s.generation()
		if err := s.checkAlerted(); err != nil {
			return nil, err
		}
		if s.cursor.Load() >= seq && s.writeBarrier() >= seq && SlotState(item.state.Load()) == Compressed {
			break
		}
		if s.closed.Load() && s.cursor.Load() < seq {
			return nil, errs.ClosedSupply
		}
		s.idle(g)
	}

	item.state.Store(int32(Writing))

	return item, nil
}

// ReleaseWriter marks seq Released and frees its slot for reuse by the
// producer. Because this supply drives exactly one writer goroutine
// processing strictly in sequence order, the contiguous-prefix tracking the
// source needs for out-of-order releases collapses to a plain counter.
func (s *RecordSupply) ReleaseWriter(seq int64) {
	item := s.slots[seq&s.mask]
	item.state.Store(int32(Released))
	s.released.Store(seq)
	s.wake()
}

// ErrorAlert records err as the supply's first error (if none is already
// recorded) and wakes every waiter with errs.Alerted.
func (s *RecordSupply) ErrorAlert(err error) {
	s.alertError(err)
}

func (s *RecordSupply) alertError(err error) {
	s.errOnce.Do(func() { s.firstErr = err })
	s.alerted.Store(true)
	s.wake()
}

func (s *RecordSupply) checkAlerted() error {
	if s.alerted.Load() {
		return fmt.Errorf("%w: %v", errs.Alerted, s.firstErr)
	}

	return nil
}

// SetDiskFull sets or clears the disk-full condition. It carries no
// enforcement of its own: the writer goroutine polls it and pauses before
// each disk write while it is set, without failing the pipeline, and resumes
// as soon as it is cleared.
func (s *RecordSupply) SetDiskFull(full bool) {
	s.diskFull.Store(full)
	s.wake()
}

// DiskFull reports whether the disk-full condition is set.
func (s *RecordSupply) DiskFull() bool { return s.diskFull.Load() }

// waitNotDiskFull blocks while the disk-full condition is set, returning
// early with an error only on ErrorAlert.
func (s *RecordSupply) waitNotDiskFull() error {
	for {
		g := s.generation()
		if !s.diskFull.Load() {
			return nil
		}
		if err := s.checkAlerted(); err != nil {
			return err
		}
		s.idle(g)
	}
}

// Err returns the first error recorded by ErrorAlert, or nil.
func (s *RecordSupply) Err() error { return s.firstErr }

// Close signals every waiting goroutine to drain: compressor loops exit
// once they run out of published sequences to claim, and GetToWrite fails
// with errs.ClosedSupply once every published record has been written.
func (s *RecordSupply) Close() {
	s.closed.Store(true)
	s.wake()
}

// LastPublished returns the highest sequence the producer has published.
func (s *RecordSupply) LastPublished() int64 { return s.cursor.Load() }
