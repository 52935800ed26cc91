package fem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementShape(t *testing.T) {
	pts := [][2]float64{{0.3, 0.2}, {0, 0}, {0.5, 0.5}, {0.1, 0.7}}
	for _, degree := range []int{1, 2} {
		e, err := NewElement(Lagrange, degree)
		assert.Nil(t, err)
		// Partition of unity and zero gradient sum at arbitrary points.
		for _, p := range pts {
			var sum float64
			for _, n := range e.Shape(p[0], p[1]) {
				sum += n
			}
			assert.InDelta(t, 1.0, sum, 1.e-14)
			var gr, gs float64
			for _, d := range e.GradShape(p[0], p[1]) {
				gr += d[0]
				gs += d[1]
			}
			assert.InDelta(t, 0.0, gr, 1.e-14)
			assert.InDelta(t, 0.0, gs, 1.e-14)
		}
		// Nodal property: shape i is one at node i, zero at the others.
		for j, node := range e.RefNodes {
			N := e.Shape(node[0], node[1])
			for i := range N {
				if i == j {
					assert.InDelta(t, 1.0, N[i], 1.e-14)
				} else {
					assert.InDelta(t, 0.0, N[i], 1.e-14)
				}
			}
		}
	}
}

func TestUnknownElement(t *testing.T) {
	_, err := NewElement("DG", 1)
	assert.NotNil(t, err)
	_, err = NewElement(Lagrange, 3)
	assert.NotNil(t, err)
}

func TestTriQuadrature(t *testing.T) {
	for _, degree := range []int{1, 2, 3, 4, 5, 6} {
		rule := TriQuadrature(degree)
		var sum float64
		for _, w := range rule.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1.e-13)
	}
	// The degree-4 rule integrates r^2 s^2 exactly on the reference
	// triangle of area 1/2: the exact value is 1/180.
	rule := TriQuadrature(4)
	var integral float64
	for q, p := range rule.Points {
		integral += 0.5 * rule.Weights[q] * p[0] * p[0] * p[1] * p[1]
	}
	assert.InDelta(t, 1./180., integral, 1.e-14)
}

func TestEdgeQuadrature(t *testing.T) {
	rule := EdgeQuadrature()
	var sum, fifth float64
	for q, x := range rule.Points {
		sum += rule.Weights[q]
		fifth += rule.Weights[q] * x * x * x * x * x
	}
	assert.InDelta(t, 1.0, sum, 1.e-14)
	// 3-point Gauss is exact through degree 5.
	assert.InDelta(t, 1./6., fifth, 1.e-14)
}
