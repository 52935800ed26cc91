package fem

import "math"

// Function is a field: a coefficient vector over the DOFs of a
// FunctionSpace. Mutable; solves and transfer operators write into it in
// place.
type Function struct {
	V   *FunctionSpace
	DOF []float64
}

func NewFunction(V *FunctionSpace) *Function {
	return &Function{V: V, DOF: make([]float64, V.NDOF)}
}

func (f *Function) Copy() (g *Function) {
	g = NewFunction(f.V)
	copy(g.DOF, f.DOF)
	return
}

// Assign sets the field to a constant. For nodal Lagrange elements the
// constant is represented exactly by constant DOFs.
func (f *Function) Assign(val float64) {
	for i := range f.DOF {
		f.DOF[i] = val
	}
}

// Interpolate sets the field to the nodal interpolant of g.
func (f *Function) Interpolate(g func(x, y float64) float64) {
	for i, p := range f.V.NodeCoords() {
		f.DOF[i] = g(p.X, p.Y)
	}
}

// Norm is the L2 norm of the field, computed by quadrature.
func (f *Function) Norm() float64 {
	return ErrorNorm(f, func(x, y float64) float64 { return 0 })
}

// ErrorNorm is the L2 norm of f - exact over the mesh.
func ErrorNorm(f *Function, exact func(x, y float64) float64) float64 {
	var (
		V     = f.V
		m     = V.Mesh
		rule  = TriQuadrature(2*V.Degree() + 4)
		total float64
	)
	for k := 0; k < m.NumCells(); k++ {
		var (
			v    = m.CellVertices(k)
			area = m.CellArea(k)
			dofs = V.CellDOFs(k)
		)
		for q, p := range rule.Points {
			N := V.Elem.Shape(p[0], p[1])
			var uh, x, y float64
			x = v[0].X + p[0]*(v[1].X-v[0].X) + p[1]*(v[2].X-v[0].X)
			y = v[0].Y + p[0]*(v[1].Y-v[0].Y) + p[1]*(v[2].Y-v[0].Y)
			for a, d := range dofs {
				uh += N[a] * f.DOF[d]
			}
			diff := uh - exact(x, y)
			total += area * rule.Weights[q] * diff * diff
		}
	}
	return math.Sqrt(total)
}

// GradErrorNorm is the L2 norm of grad(f) - exactGrad, the natural norm
// for checking the convergence order of the flux components.
func GradErrorNorm(f *Function, exactGrad func(x, y float64) (gx, gy float64)) float64 {
	var (
		V     = f.V
		m     = V.Mesh
		rule  = TriQuadrature(2*V.Degree() + 4)
		total float64
	)
	for k := 0; k < m.NumCells(); k++ {
		var (
			v    = m.CellVertices(k)
			area = m.CellArea(k)
			dofs = V.CellDOFs(k)
			jac  = cellJacobianOf(v)
		)
		for q, p := range rule.Points {
			dN := V.Elem.GradShape(p[0], p[1])
			var ghx, ghy, x, y float64
			x = v[0].X + p[0]*(v[1].X-v[0].X) + p[1]*(v[2].X-v[0].X)
			y = v[0].Y + p[0]*(v[1].Y-v[0].Y) + p[1]*(v[2].Y-v[0].Y)
			for a, d := range dofs {
				gx, gy := jac.physGrad(dN[a])
				ghx += gx * f.DOF[d]
				ghy += gy * f.DOF[d]
			}
			ex, ey := exactGrad(x, y)
			total += area * rule.Weights[q] * ((ghx-ex)*(ghx-ex) + (ghy-ey)*(ghy-ey))
		}
	}
	return math.Sqrt(total)
}

// Coefficient is a spatially varying scalar entering a weak form.
type Coefficient interface {
	Eval(x, y float64) float64
}

// CoefficientFunc adapts a plain callback to a Coefficient.
type CoefficientFunc func(x, y float64) float64

func (c CoefficientFunc) Eval(x, y float64) float64 { return c(x, y) }

// Constant is a globally constant coefficient whose value can be
// reassigned between solves. Forms hold it by pointer, so an Assign
// propagates to every level's reassembly on the next solve.
type Constant struct {
	val float64
}

func NewConstant(val float64) *Constant       { return &Constant{val: val} }
func (c *Constant) Assign(val float64)        { c.val = val }
func (c *Constant) Value() float64            { return c.val }
func (c *Constant) Eval(x, y float64) float64 { return c.val }
