// Package grid implements fixed-size, bounds-checked 2D grids of numeric cells, stored flat
// in row-major order.
package grid

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

type Cell interface {
	constraints.Integer | constraints.Float
}

// Reader is implemented by [*Grid] and [View].
type Reader[T Cell] interface {
	Width() int
	Height() int
	Get(x, y int) (T, error)
}

var _ Reader[uint8] = (*Grid[uint8])(nil)
var _ Reader[uint8] = View[uint8]{}

// Grid is a width×height array of cells. Its dimensions never change after construction.
// A Grid is not safe for concurrent use; see package gridbuf for sharing one.
//
// Code that is handed a *Grid it doesn't own, such as an update visitor, must not assign a new
// Grid to it.
type Grid[T Cell] struct {
	width, height int
	cells         []T
}

// New returns a width×height grid with every cell set to fill.
func New[T Cell](width, height int, fill T) *Grid[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("grid: negative dimensions %dx%d", width, height))
	}
	g := &Grid[T]{
		width:  width,
		height: height,
		cells:  make([]T, width*height),
	}
	if fill != 0 {
		g.Fill(fill)
	}
	return g
}

func (g *Grid[T]) Width() int  { return g.width }
func (g *Grid[T]) Height() int { return g.height }
func (g *Grid[T]) Len() int    { return len(g.cells) }

// index maps (x, y) to a position in cells, enforcing 0 <= x < width and 0 <= y < height.
func (g *Grid[T]) index(x, y int) (int, error) {
	if x < 0 || y < 0 {
		return 0, &IndexError{Kind: BadIndex, X: x, Y: y}
	}
	if x >= g.width || y >= g.height {
		return 0, &IndexError{Kind: OutOfBounds, X: x, Y: y}
	}
	i := y*g.width + x
	if i >= len(g.cells) {
		// Unreachable as long as the length invariant holds.
		return 0, &IndexError{Kind: OutOfBounds, X: x, Y: y}
	}
	return i, nil
}

// Get returns the cell at (x, y).
func (g *Grid[T]) Get(x, y int) (T, error) {
	i, err := g.index(x, y)
	if err != nil {
		var zero T
		return zero, err
	}
	return g.cells[i], nil
}

// Set overwrites the cell at (x, y).
func (g *Grid[T]) Set(x, y int, v T) error {
	i, err := g.index(x, y)
	if err != nil {
		return err
	}
	g.cells[i] = v
	return nil
}

func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// CopyFrom copies all cells of src into g. It panics if the dimensions differ.
func (g *Grid[T]) CopyFrom(src Reader[T]) {
	if src.Width() != g.width || src.Height() != g.height {
		panic(fmt.Sprintf("grid: copying %dx%d grid into %dx%d grid",
			src.Width(), src.Height(), g.width, g.height))
	}
	switch src := src.(type) {
	case View[T]:
		copy(g.cells, src.g.cells)
	case *Grid[T]:
		copy(g.cells, src.cells)
	default:
		for y := range g.height {
			for x := range g.width {
				v, _ := src.Get(x, y)
				g.cells[y*g.width+x] = v
			}
		}
	}
}

// View returns a read-only view of g.
func (g *Grid[T]) View() View[T] { return View[T]{g} }

// Row returns the cells of row y for in-place modification. It returns nil if y is out of range.
func (g *Grid[T]) Row(y int) []T {
	if y < 0 || y >= g.height {
		return nil
	}
	return g.cells[y*g.width : (y+1)*g.width : (y+1)*g.width]
}

func (g *Grid[T]) String() string {
	return fmt.Sprintf("Grid[%T](%dx%d)", *new(T), g.width, g.height)
}
