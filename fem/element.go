package fem

import "fmt"

type Family string

// Lagrange is the continuous Galerkin family, "CG" in the configuration
// vocabulary.
const Lagrange Family = "CG"

// Element is a Lagrange reference element on the unit triangle with
// vertices (0,0), (1,0), (0,1). Local nodes 0..2 sit on the vertices;
// for degree 2, node 3+e sits on the midpoint of local edge e, where
// edge e is opposite vertex e.
type Element struct {
	Family   Family
	Degree   int
	NumNodes int
	RefNodes [][2]float64
}

func NewElement(family Family, degree int) (*Element, error) {
	if family != Lagrange {
		return nil, fmt.Errorf("unknown element family %q", family)
	}
	switch degree {
	case 1:
		return &Element{
			Family:   family,
			Degree:   1,
			NumNodes: 3,
			RefNodes: [][2]float64{{0, 0}, {1, 0}, {0, 1}},
		}, nil
	case 2:
		return &Element{
			Family:   family,
			Degree:   2,
			NumNodes: 6,
			RefNodes: [][2]float64{
				{0, 0}, {1, 0}, {0, 1},
				{0.5, 0.5}, {0, 0.5}, {0.5, 0},
			},
		}, nil
	default:
		return nil, fmt.Errorf("Lagrange elements of degree %d are not implemented", degree)
	}
}

// Shape evaluates all shape functions at reference coordinates (r,s).
func (e *Element) Shape(r, s float64) (N []float64) {
	var (
		l1 = 1 - r - s
		l2 = r
		l3 = s
	)
	switch e.Degree {
	case 1:
		N = []float64{l1, l2, l3}
	case 2:
		N = []float64{
			l1 * (2*l1 - 1),
			l2 * (2*l2 - 1),
			l3 * (2*l3 - 1),
			4 * l2 * l3,
			4 * l3 * l1,
			4 * l1 * l2,
		}
	}
	return
}

// GradShape evaluates the reference-coordinate gradients of all shape
// functions at (r,s).
func (e *Element) GradShape(r, s float64) (dN [][2]float64) {
	var (
		l1 = 1 - r - s
		l2 = r
		l3 = s
	)
	switch e.Degree {
	case 1:
		dN = [][2]float64{{-1, -1}, {1, 0}, {0, 1}}
	case 2:
		dN = [][2]float64{
			{-(4*l1 - 1), -(4*l1 - 1)},
			{4*l2 - 1, 0},
			{0, 4*l3 - 1},
			{4 * l3, 4 * l2},
			{-4 * l3, 4 * (l1 - l3)},
			{4 * (l1 - l2), -4 * l2},
		}
	}
	return
}
