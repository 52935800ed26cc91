package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitSquareMesh(t *testing.T) {
	m := UnitSquareMesh(2, 2)
	assert.Equal(t, 9, m.NumVertices())
	assert.Equal(t, 8, m.NumCells())
	assert.Equal(t, 16, m.NumEdges())

	// Every cell is positively oriented.
	for k := 0; k < m.NumCells(); k++ {
		assert.True(t, m.CellArea(k) > 0)
	}

	// 2 boundary edges per side.
	counts := make(map[int]int)
	for _, be := range m.BoundaryEdges() {
		counts[be.Tag]++
	}
	assert.Equal(t, 2, counts[TagLeft])
	assert.Equal(t, 2, counts[TagRight])
	assert.Equal(t, 2, counts[TagBottom])
	assert.Equal(t, 2, counts[TagTop])

	// Total area is 1.
	var area float64
	for k := 0; k < m.NumCells(); k++ {
		area += m.CellArea(k)
	}
	assert.InDelta(t, 1.0, area, 1.e-14)
}

func TestRefine(t *testing.T) {
	m := UnitSquareMesh(2, 2)
	fine, rm := Refine(m)

	assert.Equal(t, m.NumVertices()+m.NumEdges(), fine.NumVertices())
	assert.Equal(t, 4*m.NumCells(), fine.NumCells())
	assert.Equal(t, m.NumVertices(), rm.NumCoarseVertices)
	assert.Equal(t, m.NumEdges(), rm.NumCoarseEdges)

	// Coarse vertices keep their index and position.
	for v := 0; v < m.NumVertices(); v++ {
		assert.Equal(t, m.Vertices[v], fine.Vertices[v])
	}
	// Midpoint vertices follow in coarse edge order.
	for e, ed := range m.Edges {
		p0, p1 := m.Vertices[ed.V0], m.Vertices[ed.V1]
		mid := fine.Vertices[m.NumVertices()+e]
		assert.InDelta(t, 0.5*(p0.X+p1.X), mid.X, 1.e-14)
		assert.InDelta(t, 0.5*(p0.Y+p1.Y), mid.Y, 1.e-14)
	}

	// Refinement preserves total area and orientation.
	var area float64
	for k := 0; k < fine.NumCells(); k++ {
		a := fine.CellArea(k)
		assert.True(t, a > 0)
		area += a
	}
	assert.InDelta(t, 1.0, area, 1.e-14)

	// Boundary tags are inherited: same number of tagged edges per side,
	// doubled by the split.
	counts := make(map[int]int)
	for _, be := range fine.BoundaryEdges() {
		counts[be.Tag]++
	}
	assert.Equal(t, 4, counts[TagLeft])
	assert.Equal(t, 4, counts[TagRight])
	assert.Equal(t, 4, counts[TagBottom])
	assert.Equal(t, 4, counts[TagTop])
}

func TestChildReferenceMaps(t *testing.T) {
	// Every child cell's reference triangle maps into the parent's, and
	// the four images tile it: the centroids land in distinct quadrants.
	for c := 0; c < 4; c++ {
		r, s := ToCoarseRef(c, 1./3., 1./3.)
		assert.True(t, r >= 0 && s >= 0 && r+s <= 1)
	}
	// Child 0 keeps the origin fixed.
	r, s := ToCoarseRef(0, 0, 0)
	assert.Equal(t, 0., r)
	assert.Equal(t, 0., s)
	// Child 1 maps the origin to vertex (1,0), child 2 to (0,1).
	r, s = ToCoarseRef(1, 0, 0)
	assert.Equal(t, 1., r)
	assert.Equal(t, 0., s)
	r, s = ToCoarseRef(2, 0, 0)
	assert.Equal(t, 0., r)
	assert.Equal(t, 1., s)
}

func TestHierarchy(t *testing.T) {
	m := UnitSquareMesh(2, 2)
	h, err := NewHierarchy(m, 2)
	assert.Nil(t, err)
	assert.Equal(t, 3, h.Levels())
	assert.Equal(t, 3, h.ChainLen())
	assert.Equal(t, m, h.Mesh(0))
	assert.Equal(t, h.Finest(), h.Mesh(-1))
	assert.Equal(t, h.Mesh(1), h.Mesh(-2))

	// Each mesh knows its place in the hierarchy.
	hm, ci := h.Mesh(1).Hierarchy()
	assert.Equal(t, h, hm)
	assert.Equal(t, 1, ci)

	// 2x2 -> 4x4 -> 8x8 in cell counts.
	assert.Equal(t, 32, h.Mesh(1).NumCells())
	assert.Equal(t, 128, h.Mesh(2).NumCells())
}

func TestHierarchyRefined(t *testing.T) {
	m := UnitSquareMesh(2, 2)
	h, err := NewHierarchyRefined(m, 2, 2)
	assert.Nil(t, err)
	assert.Equal(t, 3, h.Levels())
	assert.Equal(t, 5, h.ChainLen())
	assert.Equal(t, 2, h.RefinementsPerLevel())
	// Hierarchy levels skip the intermediate meshes.
	assert.Equal(t, h.ChainMesh(2), h.Mesh(1))
	assert.Equal(t, h.ChainMesh(4), h.Mesh(2))
}

func TestInvalidHierarchy(t *testing.T) {
	m := UnitSquareMesh(2, 2)
	_, err := NewHierarchy(m, -1)
	assert.NotNil(t, err)
	ire, ok := err.(*InvalidRefinementError)
	assert.True(t, ok)
	assert.Equal(t, -1, ire.NumLevels)

	_, err = NewHierarchyRefined(m, 1, 0)
	assert.NotNil(t, err)
}

func TestCoordinateEpoch(t *testing.T) {
	m := UnitSquareMesh(2, 2)
	e0 := m.CoordinateEpoch()
	coords := append([]Vertex{}, m.Vertices...)
	coords[0].X += 0.01
	m.SetCoordinates(coords)
	assert.Equal(t, e0+1, m.CoordinateEpoch())
}
