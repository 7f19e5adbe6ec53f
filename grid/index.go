package grid

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

var (
	ErrBadIndex    = errors.New("bad index")
	ErrOutOfBounds = errors.New("index out of bounds")
)

type ErrorKind uint8

const (
	BadIndex ErrorKind = iota + 1
	OutOfBounds
)

func (k ErrorKind) String() string {
	switch k {
	case BadIndex:
		return "BadIndex"
	case OutOfBounds:
		return "OutOfBounds"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// IndexError is returned by all indexed accesses. X and Y hold the coordinates as they were
// passed in, before conversion.
type IndexError struct {
	Kind ErrorKind
	X, Y any
}

func (err *IndexError) Error() string {
	return fmt.Sprintf("grid: (%v, %v): %s", err.X, err.Y, err.Unwrap())
}

func (err *IndexError) Unwrap() error {
	switch err.Kind {
	case BadIndex:
		return ErrBadIndex
	case OutOfBounds:
		return ErrOutOfBounds
	default:
		return nil
	}
}

// Coord is the set of types accepted as coordinates by [GetAt] and [SetAt].
type Coord interface {
	constraints.Integer | constraints.Float
}

// ToIndex converts v to a non-negative int. It reports false for negative, fractional,
// non-finite and too large values.
func ToIndex[C Coord](v C) (int, bool) {
	// Integer division truncates, float division doesn't.
	var half C = 1
	half /= 2
	if half != 0 {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
			return 0, false
		}
		// float64(math.MaxInt) rounds up to 2^63, so >= is the correct check.
		if f >= float64(math.MaxInt) {
			return 0, false
		}
		return int(f), true
	}
	if v < 0 {
		return 0, false
	}
	if uint64(v) > math.MaxInt {
		return 0, false
	}
	return int(v), true
}

// GetAt is like [Grid.Get] but accepts any numeric coordinate type.
func GetAt[T Cell, C Coord](g Reader[T], x, y C) (T, error) {
	ix, okx := ToIndex(x)
	iy, oky := ToIndex(y)
	if !okx || !oky {
		var zero T
		return zero, &IndexError{Kind: BadIndex, X: x, Y: y}
	}
	v, err := g.Get(ix, iy)
	if err != nil {
		// Report the caller's coordinates, not the converted ones.
		var ierr *IndexError
		if errors.As(err, &ierr) {
			return v, &IndexError{Kind: ierr.Kind, X: x, Y: y}
		}
	}
	return v, err
}

// SetAt is like [Grid.Set] but accepts any numeric coordinate type.
func SetAt[T Cell, C Coord](g *Grid[T], x, y C, v T) error {
	ix, okx := ToIndex(x)
	iy, oky := ToIndex(y)
	if !okx || !oky {
		return &IndexError{Kind: BadIndex, X: x, Y: y}
	}
	if err := g.Set(ix, iy, v); err != nil {
		var ierr *IndexError
		if errors.As(err, &ierr) {
			return &IndexError{Kind: ierr.Kind, X: x, Y: y}
		}
		return err
	}
	return nil
}
