package grid

// Shape supplies the dimensions of fixed-size grids. Implementations are zero-size types whose
// Dims method returns constants, so that the dimensions are part of the grid's type at the call
// site:
//
//	type Board struct{}
//
//	func (Board) Dims() (int, int) { return 50, 50 }
//
//	g := grid.NewFixed[uint32, Board](0)
type Shape interface {
	Dims() (width, height int)
}

// NewFixed returns a grid whose dimensions are those of S.
func NewFixed[T Cell, S Shape](fill T) *Grid[T] {
	var s S
	w, h := s.Dims()
	return New(w, h, fill)
}

// Dims returns the dimensions of S.
func Dims[S Shape]() (width, height int) {
	var s S
	return s.Dims()
}
