package grid

import "iter"

// View is a read-only view of a [Grid]. It does not copy the cells: a View is only valid for as
// long as the underlying grid isn't being written to, which for shared grids means the duration
// of a render visitor. Don't retain it.
type View[T Cell] struct {
	g *Grid[T]
}

func (v View[T]) Width() int  { return v.g.width }
func (v View[T]) Height() int { return v.g.height }
func (v View[T]) Len() int    { return len(v.g.cells) }

func (v View[T]) Get(x, y int) (T, error) { return v.g.Get(x, y) }

// At returns the cell at (x, y), which must be in bounds.
func (v View[T]) At(x, y int) T {
	return v.g.cells[y*v.g.width+x]
}

// CopyTo copies the cells in row-major order into dst and returns the number of cells copied,
// which is the minimum of len(dst) and v.Len().
func (v View[T]) CopyTo(dst []T) int {
	return copy(dst, v.g.cells)
}

// All yields every cell in row-major order as its index and value.
func (v View[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, c := range v.g.cells {
			if !yield(i, c) {
				return
			}
		}
	}
}

// Coords converts a row-major index as yielded by [View.All] back into coordinates.
func (v View[T]) Coords(i int) (x, y int) {
	return i % v.g.width, i / v.g.width
}
