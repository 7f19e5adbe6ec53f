// Package life computes generations of Conway's Game of Life on byte grids. It serves as the
// writer side of a gridbuf.Handle.
package life

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"

	"honnef.co/go/gridbuf/grid"
)

const (
	Dead  uint8 = 0x00
	Alive uint8 = 0xFF
)

// strips splits height rows into at most n contiguous ranges of near-equal size and returns
// their start rows, followed by height.
func strips(height, n int) []int {
	n = max(1, min(n, height))
	starts := make([]int, 0, n+1)
	y := 0
	for i := range n {
		starts = append(starts, y)
		y += height / n
		if i < height%n {
			y++
		}
	}
	return append(starts, height)
}

func nextCell(cell uint8, neighbours int) uint8 {
	switch {
	case neighbours < 2 || neighbours > 3:
		return Dead
	case neighbours == 3:
		return Alive
	default:
		return cell
	}
}

func stepRows(prev grid.View[uint8], next *grid.Grid[uint8], y0, y1 int) {
	w, h := prev.Width(), prev.Height()
	for y := y0; y < y1; y++ {
		row := next.Row(y)
		up, down := (y+h-1)%h, (y+1)%h
		for x := range w {
			left, right := (x+w-1)%w, (x+1)%w
			n := 0
			for _, c := range [...]uint8{
				prev.At(left, up), prev.At(x, up), prev.At(right, up),
				prev.At(left, y), prev.At(right, y),
				prev.At(left, down), prev.At(x, down), prev.At(right, down),
			} {
				// Alive is 0xFF, so the top bit is the cell's state.
				n += int(c >> 7)
			}
			row[x] = nextCell(prev.At(x, y), n)
		}
	}
}

// Step writes the generation following prev into next. The world wraps around at its edges.
// Rows are computed in parallel by up to GOMAXPROCS goroutines. Its signature matches
// gridbuf.Handle.UpdateFrom.
func Step(prev grid.View[uint8], next *grid.Grid[uint8]) {
	if prev.Width() != next.Width() || prev.Height() != next.Height() {
		panic(fmt.Sprintf("life: stepping %dx%d world into %dx%d grid",
			prev.Width(), prev.Height(), next.Width(), next.Height()))
	}
	starts := strips(prev.Height(), runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	wg.Add(len(starts) - 1)
	for i := range len(starts) - 1 {
		go func() {
			defer wg.Done()
			stepRows(prev, next, starts[i], starts[i+1])
		}()
	}
	wg.Wait()
}

// AliveCount returns the number of alive cells.
func AliveCount(v grid.View[uint8]) int {
	n := 0
	for _, c := range v.All() {
		if c == Alive {
			n++
		}
	}
	return n
}

// Seed sets each cell of g to alive with probability density, and to dead otherwise.
func Seed(g *grid.Grid[uint8], r *rand.Rand, density float64) {
	for y := range g.Height() {
		row := g.Row(y)
		for x := range row {
			if r.Float64() < density {
				row[x] = Alive
			} else {
				row[x] = Dead
			}
		}
	}
}

// Cells returns the coordinates of all alive cells in row-major order.
func Cells(v grid.View[uint8]) [][2]int {
	var out [][2]int
	for i, c := range v.All() {
		if c == Alive {
			x, y := v.Coords(i)
			out = append(out, [2]int{x, y})
		}
	}
	return out
}
