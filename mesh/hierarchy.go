package mesh

import "fmt"

type InvalidRefinementError struct {
	NumLevels           int
	RefinementsPerLevel int
}

func (e *InvalidRefinementError) Error() string {
	return fmt.Sprintf("invalid mesh hierarchy request: numLevels=%d, refinementsPerLevel=%d",
		e.NumLevels, e.RefinementsPerLevel)
}

// Hierarchy is an ordered sequence of nested meshes, coarsest first. Each
// hierarchy level is refinementsPerLevel uniform refinements finer than
// the previous one; the intermediate meshes are kept in the chain so
// transfer operators can be composed one refinement at a time.
type Hierarchy struct {
	chain     []*Mesh
	maps      []*RefineMap // maps[i] relates chain[i] to chain[i+1]
	numLevels int
	stride    int
}

func NewHierarchy(base *Mesh, numLevels int) (*Hierarchy, error) {
	return NewHierarchyRefined(base, numLevels, 1)
}

func NewHierarchyRefined(base *Mesh, numLevels, refinementsPerLevel int) (h *Hierarchy, err error) {
	if numLevels < 0 || refinementsPerLevel < 1 {
		return nil, &InvalidRefinementError{NumLevels: numLevels, RefinementsPerLevel: refinementsPerLevel}
	}
	h = &Hierarchy{
		chain:     []*Mesh{base},
		numLevels: numLevels,
		stride:    refinementsPerLevel,
	}
	for i := 0; i < numLevels*refinementsPerLevel; i++ {
		fine, rm := Refine(h.chain[i])
		h.chain = append(h.chain, fine)
		h.maps = append(h.maps, rm)
	}
	for i, m := range h.chain {
		m.hier = h
		m.chainIdx = i
	}
	return
}

// Levels is the number of hierarchy levels, numLevels+1.
func (h *Hierarchy) Levels() int { return h.numLevels + 1 }

func (h *Hierarchy) RefinementsPerLevel() int { return h.stride }

// Mesh returns the mesh at hierarchy level l, coarsest first. Negative
// levels index from the fine end, so Mesh(-1) is the finest mesh.
func (h *Hierarchy) Mesh(l int) *Mesh {
	if l < 0 {
		l += h.Levels()
	}
	return h.chain[l*h.stride]
}

func (h *Hierarchy) Finest() *Mesh { return h.chain[len(h.chain)-1] }

// ChainIndex converts a hierarchy level into an index into the full
// refinement chain.
func (h *Hierarchy) ChainIndex(l int) int {
	if l < 0 {
		l += h.Levels()
	}
	return l * h.stride
}

func (h *Hierarchy) ChainLen() int           { return len(h.chain) }
func (h *Hierarchy) ChainMesh(i int) *Mesh   { return h.chain[i] }
func (h *Hierarchy) Map(i int) *RefineMap    { return h.maps[i] }
