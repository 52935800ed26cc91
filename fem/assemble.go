package fem

import (
	"math"
	"runtime"

	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/utils"
)

// cellJacobian caches the affine map data of one triangle: the inverse
// transpose Jacobian entries for pushing reference gradients forward.
type cellJacobian struct {
	a, b, c, d float64 // J = [[a,b],[c,d]], columns dx/dr, dx/ds
	det        float64
}

func cellJacobianOf(v [3]mesh.Vertex) cellJacobian {
	j := cellJacobian{
		a: v[1].X - v[0].X, b: v[2].X - v[0].X,
		c: v[1].Y - v[0].Y, d: v[2].Y - v[0].Y,
	}
	j.det = j.a*j.d - j.b*j.c
	return j
}

func (j cellJacobian) physGrad(dRef [2]float64) (gx, gy float64) {
	gx = (j.d*dRef[0] - j.c*dRef[1]) / j.det
	gy = (-j.b*dRef[0] + j.a*dRef[1]) / j.det
	return
}

func bcMask(V *FunctionSpace, bcs []*DirichletBC) (mask []bool) {
	mask = make([]bool, V.NDOF)
	for _, bc := range bcs {
		for _, d := range bc.DOFs() {
			mask[d] = true
		}
	}
	return
}

// localBilinear evaluates the element matrix of the form on cell k.
func localBilinear(a BilinearForm, V *FunctionSpace, k int) (Ke utils.Matrix) {
	var (
		m    = V.Mesh
		n    = V.Elem.NumNodes
		v    = m.CellVertices(k)
		area = m.CellArea(k)
		jac  = cellJacobianOf(v)
		rule = TriQuadrature(2*V.Degree() + 2)
	)
	Ke = utils.NewMatrix(n, n)
	for q, p := range rule.Points {
		var (
			N  = V.Elem.Shape(p[0], p[1])
			dN = V.Elem.GradShape(p[0], p[1])
			x  = v[0].X + p[0]*(v[1].X-v[0].X) + p[1]*(v[2].X-v[0].X)
			y  = v[0].Y + p[0]*(v[1].Y-v[0].Y) + p[1]*(v[2].Y-v[0].Y)
			w  = area * rule.Weights[q]
		)
		var cm, cs float64
		if a.Mass != nil {
			cm = a.Mass.Eval(x, y)
		}
		if a.Stiffness != nil {
			cs = a.Stiffness.Eval(x, y)
		}
		gx := make([]float64, n)
		gy := make([]float64, n)
		for i := 0; i < n; i++ {
			gx[i], gy[i] = jac.physGrad(dN[i])
		}
		for i := 0; i < n; i++ {
			for jj := 0; jj < n; jj++ {
				val := Ke.At(i, jj)
				if a.Mass != nil {
					val += w * cm * N[i] * N[jj]
				}
				if a.Stiffness != nil {
					val += w * cs * (gx[i]*gx[jj] + gy[i]*gy[jj])
				}
				Ke.Set(i, jj, val)
			}
		}
	}
	return
}

// AssembleMatrix assembles the bilinear form on V into a CSR operator.
// Rows of constrained DOFs are replaced by identity rows; the matching
// right-hand-side rows carry the boundary value.
func AssembleMatrix(a BilinearForm, V *FunctionSpace, bcs []*DirichletBC) utils.CSR {
	var (
		m    = V.Mesh
		mask = bcMask(V, bcs)
		sb   = utils.NewSparseBuilder(V.NDOF, V.NDOF)
	)
	for k := 0; k < m.NumCells(); k++ {
		var (
			dofs = V.CellDOFs(k)
			Ke   = localBilinear(a, V, k)
		)
		for i, gi := range dofs {
			if mask[gi] {
				continue
			}
			for j, gj := range dofs {
				sb.Add(gi, gj, Ke.At(i, j))
			}
		}
	}
	for d, isBC := range mask {
		if isBC {
			sb.Set(d, d, 1)
		}
	}
	return sb.Build()
}

func assembleVolumeSource(V *FunctionSpace, b []float64, f func(x, y float64) float64, fh *Function) error {
	var (
		m    = V.Mesh
		rule = TriQuadrature(2*V.Degree() + 4)
	)
	for k := 0; k < m.NumCells(); k++ {
		var (
			v    = m.CellVertices(k)
			area = m.CellArea(k)
			dofs = V.CellDOFs(k)
		)
		for q, p := range rule.Points {
			var (
				N = V.Elem.Shape(p[0], p[1])
				x = v[0].X + p[0]*(v[1].X-v[0].X) + p[1]*(v[2].X-v[0].X)
				y = v[0].Y + p[0]*(v[1].Y-v[0].Y) + p[1]*(v[2].Y-v[0].Y)
				w = area * rule.Weights[q]
			)
			var fval float64
			if f != nil {
				fval = f(x, y)
			} else {
				for a, d := range dofs {
					fval += N[a] * fh.DOF[d]
				}
			}
			for a, d := range dofs {
				b[d] += w * fval * N[a]
			}
		}
	}
	return nil
}

func (s BoundarySource) AssembleInto(V *FunctionSpace, b []float64) error {
	var (
		m    = V.Mesh
		rule = EdgeQuadrature()
		refV = [3][2]float64{{0, 0}, {1, 0}, {0, 1}}
	)
	for _, be := range m.BoundaryEdges() {
		if be.Tag != s.Tag {
			continue
		}
		var (
			k      = be.Cell
			la     = (be.LocalEdge + 1) % 3
			lb     = (be.LocalEdge + 2) % 3
			cv     = m.CellVertices(k)
			dofs   = V.CellDOFs(k)
			length float64
		)
		dx := cv[lb].X - cv[la].X
		dy := cv[lb].Y - cv[la].Y
		length = math.Sqrt(dx*dx + dy*dy)
		for q, t := range rule.Points {
			var (
				r = refV[la][0] + t*(refV[lb][0]-refV[la][0])
				z = refV[la][1] + t*(refV[lb][1]-refV[la][1])
				N = V.Elem.Shape(r, z)
				x = cv[la].X + t*dx
				y = cv[la].Y + t*dy
				w = length * rule.Weights[q]
			)
			g := s.G.Eval(x, y)
			for a, d := range dofs {
				b[d] += w * g * N[a]
			}
		}
	}
	return nil
}

// AssembleVector assembles a linear form and applies boundary values.
func AssembleVector(L LinearForm, V *FunctionSpace, bcs []*DirichletBC) ([]float64, error) {
	b := make([]float64, V.NDOF)
	if err := L.AssembleInto(V, b); err != nil {
		return nil, err
	}
	for _, bc := range bcs {
		bc.ApplyToVector(b)
	}
	return b, nil
}

// Operator is what the multigrid cycle smooths with: either an assembled
// sparse matrix or the matrix-free action of the form.
type Operator interface {
	Apply(x, y []float64)
	Diagonal() []float64
	Rows() int
}

type assembledOperator struct {
	A  utils.CSR
	NP int
}

// NewAssembledOperator wraps an assembled matrix; the product is
// partitioned over the available cores.
func NewAssembledOperator(A utils.CSR) Operator {
	return &assembledOperator{A: A, NP: runtime.GOMAXPROCS(0)}
}

func (op *assembledOperator) Apply(x, y []float64) { op.A.MulVecPar(op.NP, x, y) }
func (op *assembledOperator) Diagonal() []float64  { return op.A.Diagonal() }
func (op *assembledOperator) Rows() int            { r, _ := op.A.Dims(); return r }

// MatFreeOperator applies the bilinear form by an element loop without
// ever assembling a matrix. Constrained rows act as identity, matching
// the assembled operator.
type MatFreeOperator struct {
	Form BilinearForm
	V    *FunctionSpace
	mask []bool
}

func NewMatFreeOperator(a BilinearForm, V *FunctionSpace, bcs []*DirichletBC) *MatFreeOperator {
	return &MatFreeOperator{Form: a, V: V, mask: bcMask(V, bcs)}
}

func (op *MatFreeOperator) Rows() int { return op.V.NDOF }

func (op *MatFreeOperator) Apply(x, y []float64) {
	var (
		V = op.V
		m = V.Mesh
	)
	for i := range y {
		y[i] = 0
	}
	for k := 0; k < m.NumCells(); k++ {
		var (
			dofs = V.CellDOFs(k)
			Ke   = localBilinear(op.Form, V, k)
		)
		for i, gi := range dofs {
			if op.mask[gi] {
				continue
			}
			var sum float64
			for j, gj := range dofs {
				sum += Ke.At(i, j) * x[gj]
			}
			y[gi] += sum
		}
	}
	for d, isBC := range op.mask {
		if isBC {
			y[d] = x[d]
		}
	}
}

func (op *MatFreeOperator) Diagonal() (diag []float64) {
	var (
		V = op.V
		m = V.Mesh
	)
	diag = make([]float64, V.NDOF)
	for k := 0; k < m.NumCells(); k++ {
		var (
			dofs = V.CellDOFs(k)
			Ke   = localBilinear(op.Form, V, k)
		)
		for i, gi := range dofs {
			if op.mask[gi] {
				continue
			}
			diag[gi] += Ke.At(i, i)
		}
	}
	for d, isBC := range op.mask {
		if isBC {
			diag[d] = 1
		}
	}
	return
}

// LocalMassCond is the largest 2-norm condition number of the local mass
// matrix over all cells, the uniform-stability diagnostic for the chosen
// basis: under uniform refinement the local mass matrix only scales, so
// the value must stay essentially constant across hierarchy levels.
func LocalMassCond(V *FunctionSpace) (cond float64) {
	one := NewConstant(1)
	for k := 0; k < V.Mesh.NumCells(); k++ {
		Me := localBilinear(BilinearForm{Mass: one}, V, k)
		if c := Me.ConditionNumber(); c > cond {
			cond = c
		}
	}
	return
}
