package mesh

import "fmt"

// RefineMap records the structure-preserving relationship between a mesh
// and its uniform refinement:
//   - coarse vertex i keeps index i on the fine mesh,
//   - the midpoint of coarse edge e becomes fine vertex NumCoarseVertices+e,
//   - coarse cell k becomes fine cells 4k..4k+3, children ordered as the
//     three corner triangles (one per coarse vertex) then the central one.
type RefineMap struct {
	NumCoarseVertices int
	NumCoarseEdges    int
}

// ChildRef holds the reference coordinates of child c's vertices inside
// the coarse reference triangle. Row c lists P0, P1, P2 of the affine map
// q = P0 + r*(P1-P0) + s*(P2-P0) from child reference coordinates (r,s)
// to coarse reference coordinates q.
var ChildRef = [4][3][2]float64{
	{{0, 0}, {0.5, 0}, {0, 0.5}},       // corner at vertex 0
	{{1, 0}, {0.5, 0.5}, {0.5, 0}},     // corner at vertex 1
	{{0, 1}, {0, 0.5}, {0.5, 0.5}},     // corner at vertex 2
	{{0.5, 0.5}, {0, 0.5}, {0.5, 0}},   // central triangle
}

// ToCoarseRef maps reference coordinates on child c to reference
// coordinates on the parent cell.
func ToCoarseRef(c int, r, s float64) (q0, q1 float64) {
	p := ChildRef[c]
	q0 = p[0][0] + r*(p[1][0]-p[0][0]) + s*(p[2][0]-p[0][0])
	q1 = p[0][1] + r*(p[1][1]-p[0][1]) + s*(p[2][1]-p[0][1])
	return
}

// Refine subdivides every triangle into four via edge midpoints. The
// operation is pure: the input mesh is read, never written.
func Refine(m *Mesh) (fine *Mesh, rm *RefineMap) {
	var (
		nv = m.NumVertices()
		ne = m.NumEdges()
	)
	vertices := make([]Vertex, nv+ne)
	copy(vertices, m.Vertices)
	for e, ed := range m.Edges {
		p0, p1 := m.Vertices[ed.V0], m.Vertices[ed.V1]
		vertices[nv+e] = Vertex{X: 0.5 * (p0.X + p1.X), Y: 0.5 * (p0.Y + p1.Y)}
	}

	etov := make([][3]int, 0, 4*m.NumCells())
	for k := 0; k < m.NumCells(); k++ {
		var (
			a, b, c = m.EToV[k][0], m.EToV[k][1], m.EToV[k][2]
			mA      = nv + m.CEdges[k][0] // midpoint opposite vertex 0
			mB      = nv + m.CEdges[k][1]
			mC      = nv + m.CEdges[k][2]
		)
		etov = append(etov,
			[3]int{a, mC, mB},
			[3]int{b, mA, mC},
			[3]int{c, mB, mA},
			[3]int{mA, mB, mC})
	}

	fine = newMesh(vertices, etov)
	rm = &RefineMap{NumCoarseVertices: nv, NumCoarseEdges: ne}

	// A fine boundary edge always joins a coarse vertex to the midpoint of
	// its parent coarse edge; the tag is inherited from that parent.
	for i := range fine.Edges {
		ed := &fine.Edges[i]
		if ed.Cells[1] != -1 {
			continue
		}
		var parent int
		switch {
		case ed.V1 >= nv:
			parent = ed.V1 - nv
		case ed.V0 >= nv:
			parent = ed.V0 - nv
		default:
			panic(fmt.Errorf("boundary edge %d-%d of refined mesh has no midpoint vertex", ed.V0, ed.V1))
		}
		ed.BTag = m.Edges[parent].BTag
	}
	return
}
