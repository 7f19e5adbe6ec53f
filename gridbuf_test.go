package gridbuf

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"honnef.co/go/gridbuf/grid"
	"honnef.co/go/gridbuf/mem"
)

func mustGet[T grid.Cell](t testing.TB, v grid.Reader[T], x, y int) T {
	t.Helper()
	c, err := v.Get(x, y)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestUpdateThenRender(t *testing.T) {
	h := New[uint8](3, 3)
	h.Render(func(v grid.View[uint8]) {
		if c := mustGet[uint8](t, v, 1, 1); c != 0 {
			t.Fatalf("fresh grid has %d at (1, 1)", c)
		}
	})
	h.Update(func(g *grid.Grid[uint8]) {
		if err := g.Set(1, 1, 42); err != nil {
			t.Fatal(err)
		}
	})
	h.Render(func(v grid.View[uint8]) {
		if c := mustGet[uint8](t, v, 1, 1); c != 42 {
			t.Fatalf("got %d, want 42", c)
		}
	})
	if g := h.Generation(); g != 1 {
		t.Fatalf("generation %d, want 1", g)
	}
}

func TestUpdateAlternatesSlots(t *testing.T) {
	h := New[int](2, 1)
	for i := 1; i <= 4; i++ {
		h.Update(func(g *grid.Grid[int]) { g.Set(0, 0, i) })
	}
	// The back now holds the frame from two updates ago.
	h.Update(func(g *grid.Grid[int]) {
		if c := mustGet[int](t, g, 0, 0); c != 3 {
			t.Errorf("back holds %d, want 3", c)
		}
	})
}

func TestUpdateFrom(t *testing.T) {
	h := New[uint16](4, 1)
	step := func(prev grid.View[uint16], next *grid.Grid[uint16]) {
		for i, c := range prev.All() {
			x, y := prev.Coords(i)
			next.Set(x, y, c+uint16(x)+1)
		}
	}
	h.UpdateFrom(step)
	h.UpdateFrom(step)
	h.UpdateFrom(step)

	got := make([]uint16, 4)
	h.Render(func(v grid.View[uint16]) { v.CopyTo(got) })
	if diff := cmp.Diff([]uint16{3, 6, 9, 12}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestTryUpdate(t *testing.T) {
	h := New[uint8](2, 2)
	errNope := errors.New("nope")
	err := h.TryUpdate(func(g *grid.Grid[uint8]) error {
		g.Set(0, 0, 1)
		return errNope
	})
	if err != errNope {
		t.Fatalf("got %v, want %v", err, errNope)
	}
	if h.Generation() != 0 {
		t.Fatal("failed update was published")
	}
	h.Render(func(v grid.View[uint8]) {
		if c := mustGet[uint8](t, v, 0, 0); c != 0 {
			t.Fatalf("front has %d", c)
		}
	})

	err = h.TryUpdate(func(g *grid.Grid[uint8]) error {
		return grid.SetAt(g, 1.0, 1.0, 7)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = h.TryUpdate(func(g *grid.Grid[uint8]) error {
		return g.Set(2, 0, 1)
	})
	if !errors.Is(err, grid.ErrOutOfBounds) {
		t.Fatalf("got %v, want ErrOutOfBounds", err)
	}
	if h.Generation() != 1 {
		t.Fatalf("generation %d, want 1", h.Generation())
	}
}

func TestClone(t *testing.T) {
	h := New[uint32](2, 2)
	c := h.Clone()
	if !c.Same(h) {
		t.Fatal("clone refers to a different grid")
	}
	if New[uint32](2, 2).Same(h) {
		t.Fatal("distinct handles compare as same")
	}
	c.Update(func(g *grid.Grid[uint32]) { g.Set(1, 0, 0xdeadbeef) })
	h.Render(func(v grid.View[uint32]) {
		if got := mustGet[uint32](t, v, 1, 0); got != 0xdeadbeef {
			t.Fatalf("got %#x through original handle", got)
		}
	})
	if h.Generation() != c.Generation() {
		t.Fatal("clones disagree on generation")
	}
}

type fiveByFive struct{}

func (fiveByFive) Dims() (int, int) { return 5, 5 }

func TestFixed(t *testing.T) {
	h := NewFixed[uint8, fiveByFive]()
	if h.Width() != 5 || h.Height() != 5 {
		t.Fatalf("got %dx%d", h.Width(), h.Height())
	}
	h.Render(func(v grid.View[uint8]) {
		if _, err := grid.GetAt[uint8](v, 5, 5); !errors.Is(err, grid.ErrOutOfBounds) {
			t.Errorf("GetAt(5, 5) = %v", err)
		}
		if _, err := grid.GetAt[uint8](v, -1, 0); !errors.Is(err, grid.ErrBadIndex) {
			t.Errorf("GetAt(-1, 0) = %v", err)
		}
	})
}

func TestNewFilled(t *testing.T) {
	h := NewFilled[float64](3, 2, 1.5)
	// Both slots start out filled.
	for range 2 {
		h.Render(func(v grid.View[float64]) {
			for i, c := range v.All() {
				if c != 1.5 {
					t.Fatalf("cell %d = %v", i, c)
				}
			}
		})
		h.Update(func(*grid.Grid[float64]) {})
	}
}

func TestSharedScenario(t *testing.T) {
	const (
		updates = 1000
		readers = 5
		renders = 1000
	)
	h := New[uint8](10, 10)
	value := func(i int) uint8 { return uint8(i%255 + 1) }

	// Publish the first frame before any reader starts so that no reader can see the
	// initial zero value.
	h.Update(func(g *grid.Grid[uint8]) { g.Set(0, 0, value(0)) })

	var eg errgroup.Group
	eg.Go(func() error {
		for i := 1; i < updates; i++ {
			h.Update(func(g *grid.Grid[uint8]) { g.Set(0, 0, value(i)) })
			if i%64 == 0 {
				runtime.Gosched()
			}
		}
		return nil
	})
	for range readers {
		r := h.Clone()
		eg.Go(func() error {
			for range renders {
				var c uint8
				r.Render(func(v grid.View[uint8]) { c, _ = v.Get(0, 0) })
				if c == 0 {
					return fmt.Errorf("reader observed unwritten value %d", c)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	if g := h.Generation(); g != updates {
		t.Fatalf("generation %d, want %d", g, updates)
	}
}

func TestReadersSeeMonotonicFrames(t *testing.T) {
	const updates = 2000
	h := New[uint32](10, 10)

	var eg errgroup.Group
	eg.Go(func() error {
		for i := uint32(1); i <= updates; i++ {
			h.Update(func(g *grid.Grid[uint32]) { g.Set(0, 0, i) })
		}
		return nil
	})
	for range 4 {
		eg.Go(func() error {
			var last uint32
			for last < updates {
				var c uint32
				h.Render(func(v grid.View[uint32]) { c = v.At(0, 0) })
				if c < last {
					return fmt.Errorf("frame went backwards: %d after %d", c, last)
				}
				last = c
				runtime.Gosched()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestReaderIsolation(t *testing.T) {
	// Every update writes the same value to all cells, so a reader that sees two different
	// values within one Render observed a torn frame.
	const updates = 500
	h := New[uint16](32, 32)

	var eg errgroup.Group
	eg.Go(func() error {
		for i := uint16(1); i <= updates; i++ {
			h.Update(func(g *grid.Grid[uint16]) { g.Fill(i) })
		}
		return nil
	})
	for range 4 {
		eg.Go(func() error {
			for h.Generation() < updates {
				var err error
				h.Render(func(v grid.View[uint16]) {
					first := v.At(0, 0)
					for i, c := range v.All() {
						if c != first {
							err = fmt.Errorf("torn frame: cell %d = %d, cell 0 = %d", i, c, first)
							return
						}
					}
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentWriters(t *testing.T) {
	const (
		writers = 4
		updates = 500
	)
	h := New[uint32](4, 4)

	var eg errgroup.Group
	for range writers {
		w := h.Clone()
		eg.Go(func() error {
			for range updates {
				w.UpdateFrom(func(prev grid.View[uint32], next *grid.Grid[uint32]) {
					next.CopyFrom(prev)
					next.Set(0, 0, prev.At(0, 0)+1)
				})
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if g := h.Generation(); g != writers*updates {
		t.Fatalf("generation %d, want %d", g, writers*updates)
	}
	// An even number of flips leaves the initial slot in front.
	if s := h.b.db.FrontSlot(); s != mem.SlotA {
		t.Fatalf("front is slot %s after %d flips", s, writers*updates)
	}
	// Each update builds on the previous one, so an interleaved or lost update shows up as a
	// short count.
	h.Render(func(v grid.View[uint32]) {
		if c := v.At(0, 0); c != writers*updates {
			t.Fatalf("counter is %d, want %d", c, writers*updates)
		}
	})
}

func TestUpdateLatencyWithBusyReaders(t *testing.T) {
	// More readers than Ps, each rendering in a tight loop, so readers that are pinned to the
	// back regularly get descheduled.
	const updates = 1000
	h := New[uint8](10, 10)

	var (
		stop    atomic.Bool
		renders atomic.Int64
		eg      errgroup.Group
	)
	for range runtime.GOMAXPROCS(0) + 1 {
		eg.Go(func() error {
			for !stop.Load() {
				h.Render(func(v grid.View[uint8]) { v.Get(0, 0) })
				renders.Add(1)
			}
			return nil
		})
	}
	for renders.Load() < 1000 {
		runtime.Gosched()
	}

	start := time.Now()
	for i := range updates {
		h.Update(func(g *grid.Grid[uint8]) { g.Set(0, 0, uint8(i)) })
	}
	elapsed := time.Since(start)
	stop.Store(true)
	eg.Wait()

	t.Logf("%d updates in %s with busy readers", updates, elapsed)
	if elapsed > time.Second {
		t.Fatalf("%d updates took %s (%s per update)", updates, elapsed, elapsed/updates)
	}
}

func TestUpdateRejectsResize(t *testing.T) {
	h := New[uint8](3, 3)
	defer func() {
		if recover() == nil {
			t.Fatal("resizing the grid in Update didn't panic")
		}
		if h.Generation() != 0 {
			t.Error("resized grid was published")
		}
		if h.Width() != 3 || h.Height() != 3 {
			t.Errorf("front is %dx%d", h.Width(), h.Height())
		}
		if !h.b.mu.TryLock() {
			t.Fatal("writer lock held after the panic")
		}
		h.b.mu.Unlock()
	}()
	h.Update(func(g *grid.Grid[uint8]) { *g = *grid.New[uint8](4, 4, 0) })
}

func BenchmarkRender(b *testing.B) {
	for _, size := range []int{16, 64, 256} {
		b.Run(fmt.Sprintf("size=%dx%d", size, size), func(b *testing.B) {
			h := New[uint32](size, size)
			b.RunParallel(func(pb *testing.PB) {
				dst := make([]uint32, size*size)
				for pb.Next() {
					h.Render(func(v grid.View[uint32]) { v.CopyTo(dst) })
				}
			})
		})
	}
}

func BenchmarkUpdate(b *testing.B) {
	h := New[uint8](64, 64)
	for i := 0; i < b.N; i++ {
		h.Update(func(g *grid.Grid[uint8]) { g.Set(i%64, 0, uint8(i)) })
	}
}
