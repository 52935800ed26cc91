package fem

import "github.com/stephankramer/firedrake/utils"

// DirichletBC fixes the DOFs on the boundary edges carrying the given
// tags to a constant value. Homogenize temporarily sets the value to
// zero, the pattern used when pre-assembling right-hand sides that are
// later combined; Restore undoes it.
type DirichletBC struct {
	V           *FunctionSpace
	Tags        []int
	value       float64
	homogenized bool
	dofs        utils.Index
	isBC        []bool
}

func NewDirichletBC(V *FunctionSpace, value float64, tags ...int) (bc *DirichletBC) {
	bc = &DirichletBC{
		V:     V,
		Tags:  tags,
		value: value,
		dofs:  V.BoundaryDOFs(tags...),
		isBC:  make([]bool, V.NDOF),
	}
	for _, d := range bc.dofs {
		bc.isBC[d] = true
	}
	return
}

func (bc *DirichletBC) DOFs() utils.Index { return bc.dofs }

func (bc *DirichletBC) Contains(dof int) bool { return bc.isBC[dof] }

// Value is the currently applied boundary value, zero while homogenized.
func (bc *DirichletBC) Value() float64 {
	if bc.homogenized {
		return 0
	}
	return bc.value
}

func (bc *DirichletBC) Homogenize() { bc.homogenized = true }
func (bc *DirichletBC) Restore()    { bc.homogenized = false }

// OnSpace rediscretizes the condition on another space, used when the
// multigrid cycle needs the same boundary condition on a coarser level.
// Coarse-level conditions are always homogeneous: boundary values live
// on the finest level and corrections vanish on the boundary.
func (bc *DirichletBC) OnSpace(W *FunctionSpace) *DirichletBC {
	coarse := NewDirichletBC(W, 0.0, bc.Tags...)
	coarse.homogenized = true
	return coarse
}

// ApplyToVector overwrites the boundary rows of b with the boundary
// value. Together with identity boundary rows in the assembled operator
// this enforces u = value on the tagged boundary.
func (bc *DirichletBC) ApplyToVector(b []float64) {
	val := bc.Value()
	for _, d := range bc.dofs {
		b[d] = val
	}
}

// ZeroVector clears the boundary rows of a residual: the boundary DOFs
// are prescribed, so they carry no residual.
func (bc *DirichletBC) ZeroVector(r []float64) {
	for _, d := range bc.dofs {
		r[d] = 0
	}
}
