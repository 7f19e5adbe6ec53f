// Package gridbuf shares a double-buffered [grid.Grid] between one writer and any number of
// readers.
//
// Readers call [Handle.Render] to look at the most recently published frame. They never take a
// lock and never see a frame that is still being written. The writer calls [Handle.Update] to
// modify the unpublished frame, which is published when the visitor returns.
//
// Handle serializes concurrent calls to Update, but the design assumes a single writer, such as
// one simulation goroutine. Concurrent writers don't corrupt the grid, but each one works on
// whatever the previous one published.
package gridbuf

import (
	"fmt"
	"sync"
	"sync/atomic"

	"honnef.co/go/gridbuf/grid"
	"honnef.co/go/gridbuf/mem"
)

type buffer[T grid.Cell] struct {
	db *mem.DoubleBuffer[grid.Grid[T]]

	// mu serializes writers. Readers never acquire it.
	mu         sync.Mutex
	generation atomic.Uint64
}

// Handle is a reference to a shared double-buffered grid. Copies of a Handle, including those
// made by [Handle.Clone], refer to the same grid, which stays alive for as long as any of them
// is reachable.
//
// The zero value is not usable.
type Handle[T grid.Cell] struct {
	b *buffer[T]
}

// New returns a handle to a width×height grid whose cells are all zero.
func New[T grid.Cell](width, height int) Handle[T] {
	return NewFilled[T](width, height, 0)
}

// NewFilled returns a handle to a width×height grid whose cells are all fill, in both the front
// and the back.
func NewFilled[T grid.Cell](width, height int, fill T) Handle[T] {
	return newHandle(*grid.New(width, height, fill), *grid.New(width, height, fill))
}

// NewFixed returns a handle to a zeroed grid with the dimensions of S.
func NewFixed[T grid.Cell, S grid.Shape]() Handle[T] {
	return newHandle(*grid.NewFixed[T, S](0), *grid.NewFixed[T, S](0))
}

func newHandle[T grid.Cell](a, b grid.Grid[T]) Handle[T] {
	return Handle[T]{&buffer[T]{db: mem.NewDoubleBuffer(a, b)}}
}

// Clone returns another handle to the same grid.
func (h Handle[T]) Clone() Handle[T] { return h }

// Same reports whether h and o refer to the same grid.
func (h Handle[T]) Same(o Handle[T]) bool { return h.b == o.b }

func (h Handle[T]) Width() int  { return h.b.db.Slot(mem.SlotA).Width() }
func (h Handle[T]) Height() int { return h.b.db.Slot(mem.SlotA).Height() }

// Generation returns the number of frames published so far.
func (h Handle[T]) Generation() uint64 { return h.b.generation.Load() }

// Render calls fn with a view of the most recently published frame. The view must not be used
// after fn returns. Render never blocks, and any number of Render calls may run concurrently
// with each other and with Update.
func (h Handle[T]) Render(fn func(v grid.View[T])) {
	db := h.b.db
	s, g := db.Pin()
	defer db.Unpin(s)
	fn(g.View())
}

// Update calls fn with the unpublished frame and publishes it once fn returns. fn must modify
// the grid through its methods; assigning a differently sized grid to *g panics. The unpublished
// frame contains whatever was published two updates ago; use [Handle.UpdateFrom] to compute a
// frame from the current one.
func (h Handle[T]) Update(fn func(g *grid.Grid[T])) {
	h.UpdateFrom(func(_ grid.View[T], next *grid.Grid[T]) { fn(next) })
}

// UpdateFrom is like Update but also passes fn a view of the currently published frame.
func (h Handle[T]) UpdateFrom(fn func(prev grid.View[T], next *grid.Grid[T])) {
	h.update(func(prev grid.View[T], next *grid.Grid[T]) error {
		fn(prev, next)
		return nil
	})
}

// TryUpdate is like Update, but only publishes the frame if fn returns nil. Any error is
// returned as is. The unpublished frame keeps fn's partial modifications either way.
func (h Handle[T]) TryUpdate(fn func(g *grid.Grid[T]) error) error {
	return h.update(func(_ grid.View[T], next *grid.Grid[T]) error { return fn(next) })
}

func (h Handle[T]) update(fn func(prev grid.View[T], next *grid.Grid[T]) error) error {
	b := h.b
	b.mu.Lock()
	defer b.mu.Unlock()

	// Readers that pinned the back before the last flip may still be looking at it.
	b.db.Drain()
	front, back := b.db.Front(), b.db.Back()
	err := fn(front.View(), back)
	if back.Width() != front.Width() || back.Height() != front.Height() {
		panic(fmt.Sprintf("gridbuf: update replaced the %dx%d grid with a %dx%d one",
			front.Width(), front.Height(), back.Width(), back.Height()))
	}
	if err != nil {
		return err
	}
	b.db.Flip()
	b.generation.Add(1)
	return nil
}
