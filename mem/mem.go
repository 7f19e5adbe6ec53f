// Package mem provides a double buffer that can be read from concurrently while a single
// writer prepares the next value.
package mem

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Slot identifies one of the two halves of a [DoubleBuffer].
type Slot uint32

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) Other() Slot { return s ^ 1 }

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return fmt.Sprintf("Slot(%d)", uint32(s))
	}
}

type readerCount struct {
	n atomic.Int64

	// waiting is set while the writer is parked in Drain, receiving from wake.
	waiting atomic.Bool
	wake    chan struct{}
	_       cpu.CacheLinePad
}

// DoubleBuffer holds two values of type T. At any time one of them is the front, which readers
// may look at, and the other is the back, which the writer may modify. Flip publishes the back
// as the new front.
//
// Only one goroutine may use Back, Drain and Flip at a time. Front, FrontSlot, Pin and Unpin
// may be used concurrently with everything, and never block.
//
// The zero value is not usable; use [NewDoubleBuffer].
type DoubleBuffer[T any] struct {
	slots   [2]T
	front   atomic.Uint32
	_       cpu.CacheLinePad
	readers [2]readerCount
}

// NewDoubleBuffer returns a double buffer with a as the front and b as the back.
func NewDoubleBuffer[T any](a, b T) *DoubleBuffer[T] {
	db := &DoubleBuffer[T]{slots: [2]T{a, b}}
	for i := range db.readers {
		db.readers[i].wake = make(chan struct{}, 1)
	}
	db.front.Store(uint32(SlotA))
	return db
}

func (db *DoubleBuffer[T]) FrontSlot() Slot { return Slot(db.front.Load()) }

// Front returns the current front. The returned pointer is only safe to read from while pinned;
// see [DoubleBuffer.Pin].
func (db *DoubleBuffer[T]) Front() *T {
	return &db.slots[db.FrontSlot()]
}

// Back returns the current back.
func (db *DoubleBuffer[T]) Back() *T {
	return &db.slots[db.FrontSlot().Other()]
}

// Slot returns the value in slot s, regardless of its role.
func (db *DoubleBuffer[T]) Slot(s Slot) *T {
	return &db.slots[s]
}

// Flip makes the back the front and vice versa, and returns the new front slot. All writes to
// the back that happened before the call to Flip are visible to readers that observe the new
// front.
func (db *DoubleBuffer[T]) Flip() Slot {
	for {
		cur := db.front.Load()
		next := uint32(Slot(cur).Other())
		if db.front.CompareAndSwap(cur, next) {
			return Slot(next)
		}
	}
}

// Pin marks the caller as a reader of the current front and returns it. The slot stays safe to
// read from until the matching call to Unpin, even if the buffer is flipped in the meantime: the
// writer calls Drain before touching the back.
func (db *DoubleBuffer[T]) Pin() (Slot, *T) {
	if db.readers[db.FrontSlot().Other()].waiting.Load() {
		// The writer is parked on a reader that is still on the back. Make room for it to run.
		runtime.Gosched()
	}
	for {
		s := db.FrontSlot()
		db.readers[s].n.Add(1)
		// If s is still the front after registering, the writer either hasn't started writing
		// to it or has already published it again, and will see our count in Drain.
		if db.FrontSlot() == s {
			return s, &db.slots[s]
		}
		db.release(s)
	}
}

// Unpin releases a slot returned by Pin. It never blocks.
func (db *DoubleBuffer[T]) Unpin(s Slot) {
	rc := &db.readers[s]
	for {
		n := rc.n.Load()
		if n <= 0 {
			panic(fmt.Sprintf("mem: Unpin(%s) without matching Pin", s))
		}
		if rc.n.CompareAndSwap(n, n-1) {
			if n == 1 {
				db.wakeWriter(s)
			}
			return
		}
	}
}

func (db *DoubleBuffer[T]) release(s Slot) {
	if db.readers[s].n.Add(-1) == 0 {
		db.wakeWriter(s)
	}
}

// wakeWriter is called by the reader that dropped the count of s to zero.
func (db *DoubleBuffer[T]) wakeWriter(s Slot) {
	rc := &db.readers[s]
	if !rc.waiting.Load() {
		return
	}
	select {
	case rc.wake <- struct{}{}:
	default:
	}
	// Let the writer run now instead of when this goroutine's time slice ends.
	runtime.Gosched()
}

// Readers returns the number of readers pinned to slot s.
func (db *DoubleBuffer[T]) Readers(s Slot) int {
	return int(db.readers[s].n.Load())
}

// Drain waits until no reader is pinned to the back. Readers that pin after the call to Drain
// get the front, so only readers that pinned before the last Flip are waited for. The writer
// parks while waiting and is woken by the last of those readers to unpin.
func (db *DoubleBuffer[T]) Drain() {
	back := db.FrontSlot().Other()
	rc := &db.readers[back]
	for range 64 {
		if rc.n.Load() == 0 {
			return
		}
	}

	rc.waiting.Store(true)
	// A reader that reaches zero before seeing waiting set is caught by the check on n; one that
	// reaches zero after sends a token. Tokens from earlier transitions only cause a recheck.
	for rc.n.Load() != 0 {
		<-rc.wake
	}
	rc.waiting.Store(false)
	select {
	case <-rc.wake:
	default:
	}
}
