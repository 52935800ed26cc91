package fem

import (
	"fmt"
	"sync"

	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/utils"
)

// FunctionSpace numbers the degrees of freedom of a Lagrange element
// over a mesh: vertex DOFs first, in vertex order, then (degree 2) one
// DOF per edge in edge order. This layout makes the vertex DOFs of a
// refined mesh a superset of all DOFs of its parent, which the pointwise
// injection operator relies on.
type FunctionSpace struct {
	Mesh *mesh.Mesh
	Elem *Element
	NDOF int
}

func NewFunctionSpace(m *mesh.Mesh, family Family, degree int) (V *FunctionSpace, err error) {
	elem, err := NewElement(family, degree)
	if err != nil {
		return nil, err
	}
	V = &FunctionSpace{
		Mesh: m,
		Elem: elem,
		NDOF: m.NumVertices(),
	}
	if degree == 2 {
		V.NDOF += m.NumEdges()
	}
	return
}

func (V *FunctionSpace) Family() Family { return V.Elem.Family }
func (V *FunctionSpace) Degree() int    { return V.Elem.Degree }

// Compatible reports whether fields can be transferred between the two
// spaces: same family and degree.
func (V *FunctionSpace) Compatible(W *FunctionSpace) bool {
	return V.Elem.Family == W.Elem.Family && V.Elem.Degree == W.Elem.Degree
}

// CellDOFs returns the global DOF numbers of cell k in local node order.
func (V *FunctionSpace) CellDOFs(k int) (dofs []int) {
	var (
		m  = V.Mesh
		nv = m.NumVertices()
	)
	dofs = make([]int, 0, V.Elem.NumNodes)
	dofs = append(dofs, m.EToV[k][0], m.EToV[k][1], m.EToV[k][2])
	if V.Elem.Degree == 2 {
		dofs = append(dofs, nv+m.CEdges[k][0], nv+m.CEdges[k][1], nv+m.CEdges[k][2])
	}
	return
}

// NodeCoords returns the physical location of every DOF, in DOF order.
func (V *FunctionSpace) NodeCoords() (coords []mesh.Vertex) {
	var (
		m = V.Mesh
	)
	coords = make([]mesh.Vertex, 0, V.NDOF)
	coords = append(coords, m.Vertices...)
	if V.Elem.Degree == 2 {
		for _, ed := range m.Edges {
			p0, p1 := m.Vertices[ed.V0], m.Vertices[ed.V1]
			coords = append(coords, mesh.Vertex{X: 0.5 * (p0.X + p1.X), Y: 0.5 * (p0.Y + p1.Y)})
		}
	}
	return
}

// BoundaryDOFs collects the DOFs sitting on boundary edges with any of
// the given tags, in increasing order without duplicates.
func (V *FunctionSpace) BoundaryDOFs(tags ...int) (dofs utils.Index) {
	var (
		m    = V.Mesh
		nv   = m.NumVertices()
		mark = make([]bool, V.NDOF)
	)
	inTags := func(t int) bool {
		for _, tag := range tags {
			if t == tag {
				return true
			}
		}
		return false
	}
	for e, ed := range m.Edges {
		if ed.BTag == 0 || !inTags(ed.BTag) {
			continue
		}
		mark[ed.V0] = true
		mark[ed.V1] = true
		if V.Elem.Degree == 2 {
			mark[nv+e] = true
		}
	}
	for i, b := range mark {
		if b {
			dofs = append(dofs, i)
		}
	}
	return
}

type spaceKey struct {
	chainIdx int
	family   Family
	degree   int
}

// SpaceHierarchy memoizes one FunctionSpace per (level, family, degree)
// for the lifetime of the mesh hierarchy.
type SpaceHierarchy struct {
	H      *mesh.Hierarchy
	mu     sync.Mutex
	spaces map[spaceKey]*FunctionSpace
}

func NewSpaceHierarchy(h *mesh.Hierarchy) *SpaceHierarchy {
	return &SpaceHierarchy{
		H:      h,
		spaces: make(map[spaceKey]*FunctionSpace),
	}
}

// Register memoizes an existing space at its level, so subsequent
// lookups return that space rather than a structurally identical
// duplicate. Solvers register the problem's own space: code that
// compares level spaces against it by pointer then sees the same
// space. Registering conflicts with an already memoized different
// space is an error.
func (sh *SpaceHierarchy) Register(V *FunctionSpace) error {
	h, chainIdx := V.Mesh.Hierarchy()
	if h != sh.H {
		return fmt.Errorf("space's mesh does not belong to this hierarchy")
	}
	key := spaceKey{chainIdx: chainIdx, family: V.Elem.Family, degree: V.Elem.Degree}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur := sh.spaces[key]; cur != nil && cur != V {
		return fmt.Errorf("a different %s%d space is already registered at chain index %d",
			V.Elem.Family, V.Elem.Degree, chainIdx)
	}
	sh.spaces[key] = V
	return nil
}

// SpaceAt returns the memoized function space at a hierarchy level.
// Negative levels count from the fine end, so SpaceAt(-1, ...) is the
// finest space.
func (sh *SpaceHierarchy) SpaceAt(level int, family Family, degree int) (*FunctionSpace, error) {
	return sh.SpaceAtChain(sh.H.ChainIndex(level), family, degree)
}

// SpaceAtChain is SpaceAt addressed by refinement-chain index; transfer
// operators use it to reach the intermediate meshes between two levels.
func (sh *SpaceHierarchy) SpaceAtChain(chainIdx int, family Family, degree int) (V *FunctionSpace, err error) {
	if chainIdx < 0 || chainIdx >= sh.H.ChainLen() {
		return nil, fmt.Errorf("chain index %d outside hierarchy of length %d", chainIdx, sh.H.ChainLen())
	}
	key := spaceKey{chainIdx: chainIdx, family: family, degree: degree}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if V = sh.spaces[key]; V != nil {
		return
	}
	if V, err = NewFunctionSpace(sh.H.ChainMesh(chainIdx), family, degree); err != nil {
		return
	}
	sh.spaces[key] = V
	return
}
