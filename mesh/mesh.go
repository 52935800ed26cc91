package mesh

import (
	"fmt"
	"math"
)

// Boundary tags for the unit square, matching the numbering used by the
// solver's boundary conditions: 1: x=0, 2: x=1, 3: y=0, 4: y=1.
const (
	TagLeft = iota + 1
	TagRight
	TagBottom
	TagTop
)

type Vertex struct {
	X, Y float64
}

type Edge struct {
	V0, V1 int    // V0 < V1
	Cells  [2]int // Adjacent cells, second entry -1 on the boundary
	BTag   int    // 0 for interior edges
}

type BoundaryEdge struct {
	Cell, LocalEdge, Tag int
}

type Mesh struct {
	Vertices []Vertex
	EToV     [][3]int
	Edges    []Edge
	CEdges   [][3]int // Edge index per cell local edge; local edge e is opposite local vertex e
	edgeIndex map[[2]int]int
	coordEpoch int
	hier     *Hierarchy
	chainIdx int
}

func (m *Mesh) NumVertices() int { return len(m.Vertices) }
func (m *Mesh) NumCells() int    { return len(m.EToV) }
func (m *Mesh) NumEdges() int    { return len(m.Edges) }

// CoordinateEpoch counts coordinate-field mutations. Cached transfer
// operators record the epoch they were built against and rebuild when it
// moves.
func (m *Mesh) CoordinateEpoch() int { return m.coordEpoch }

// SetCoordinates replaces the coordinate field (mesh warping). The
// topology is untouched.
func (m *Mesh) SetCoordinates(vs []Vertex) error {
	if len(vs) != len(m.Vertices) {
		return fmt.Errorf("coordinate field has %d vertices, mesh has %d", len(vs), len(m.Vertices))
	}
	copy(m.Vertices, vs)
	m.coordEpoch++
	return nil
}

// Hierarchy returns the owning hierarchy and this mesh's position in its
// refinement chain, or nil if the mesh is standalone.
func (m *Mesh) Hierarchy() (*Hierarchy, int) { return m.hier, m.chainIdx }

func (m *Mesh) EdgeID(a, b int) int {
	if a > b {
		a, b = b, a
	}
	id, ok := m.edgeIndex[[2]int{a, b}]
	if !ok {
		return -1
	}
	return id
}

func (m *Mesh) BoundaryEdges() (bes []BoundaryEdge) {
	for k := 0; k < m.NumCells(); k++ {
		for e := 0; e < 3; e++ {
			eid := m.CEdges[k][e]
			if m.Edges[eid].BTag != 0 && m.Edges[eid].Cells[0] == k {
				bes = append(bes, BoundaryEdge{Cell: k, LocalEdge: e, Tag: m.Edges[eid].BTag})
			}
		}
	}
	return
}

// CellVertices returns the coordinates of cell k's three vertices.
func (m *Mesh) CellVertices(k int) (v [3]Vertex) {
	for i := 0; i < 3; i++ {
		v[i] = m.Vertices[m.EToV[k][i]]
	}
	return
}

// CellArea is the signed area of cell k; positive for counterclockwise
// vertex ordering, which construction and refinement both preserve.
func (m *Mesh) CellArea(k int) float64 {
	v := m.CellVertices(k)
	return 0.5 * ((v[1].X-v[0].X)*(v[2].Y-v[0].Y) - (v[2].X-v[0].X)*(v[1].Y-v[0].Y))
}

// newMesh wires up the edge tables for a vertex/cell soup. Boundary tags
// are left zero for the caller to assign.
func newMesh(vertices []Vertex, etov [][3]int) (m *Mesh) {
	m = &Mesh{
		Vertices:  vertices,
		EToV:      etov,
		CEdges:    make([][3]int, len(etov)),
		edgeIndex: make(map[[2]int]int),
		chainIdx:  -1,
	}
	for k, cell := range etov {
		for e := 0; e < 3; e++ {
			// Local edge e is opposite local vertex e
			a, b := cell[(e+1)%3], cell[(e+2)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			id, ok := m.edgeIndex[key]
			if !ok {
				id = len(m.Edges)
				m.Edges = append(m.Edges, Edge{V0: a, V1: b, Cells: [2]int{k, -1}})
				m.edgeIndex[key] = id
			} else {
				m.Edges[id].Cells[1] = k
			}
			m.CEdges[k][e] = id
		}
	}
	return
}

// UnitSquareMesh builds a structured triangulation of [0,1]x[0,1] with
// nx by ny squares, each split along its lower-left to upper-right
// diagonal.
func UnitSquareMesh(nx, ny int) *Mesh {
	if nx < 1 || ny < 1 {
		panic(fmt.Errorf("UnitSquareMesh requires nx, ny >= 1, got %d, %d", nx, ny))
	}
	var (
		vertices = make([]Vertex, (nx+1)*(ny+1))
		etov     [][3]int
		vid      = func(i, j int) int { return j*(nx+1) + i }
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			vertices[vid(i, j)] = Vertex{X: float64(i) / float64(nx), Y: float64(j) / float64(ny)}
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10 := vid(i, j), vid(i+1, j)
			v01, v11 := vid(i, j+1), vid(i+1, j+1)
			etov = append(etov, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
		}
	}
	m := newMesh(vertices, etov)
	m.tagBoundaryByPosition()
	return m
}

func (m *Mesh) tagBoundaryByPosition() {
	const tol = 1.e-12
	for i := range m.Edges {
		ed := &m.Edges[i]
		if ed.Cells[1] != -1 {
			continue
		}
		p0, p1 := m.Vertices[ed.V0], m.Vertices[ed.V1]
		switch {
		case math.Abs(p0.X) < tol && math.Abs(p1.X) < tol:
			ed.BTag = TagLeft
		case math.Abs(p0.X-1) < tol && math.Abs(p1.X-1) < tol:
			ed.BTag = TagRight
		case math.Abs(p0.Y) < tol && math.Abs(p1.Y) < tol:
			ed.BTag = TagBottom
		case math.Abs(p0.Y-1) < tol && math.Abs(p1.Y-1) < tol:
			ed.BTag = TagTop
		default:
			panic(fmt.Errorf("boundary edge %d-%d not on a side of the unit square", ed.V0, ed.V1))
		}
	}
}
