package fem

import "fmt"

// BilinearForm is the fixed vocabulary of symmetric second-order forms
// this core assembles:
//
//	a(u,v) = Mass * (u, v) + Stiffness * (grad u, grad v)
//
// with spatially varying coefficients. A nil coefficient drops the term.
// The Poisson operator is {Stiffness: one}; a mass matrix is {Mass: one};
// the mass-to-Poisson continuation used in the reuse tests blends both
// through shared Constants.
type BilinearForm struct {
	Mass      Coefficient
	Stiffness Coefficient
}

// LinearForm is a right-hand-side contribution. Implementations either
// evaluate a symbolic rule by quadrature or replay pre-assembled values;
// sums of the two kinds assemble to the same vector up to roundoff.
type LinearForm interface {
	// AssembleInto accumulates the contribution on space V into b.
	AssembleInto(V *FunctionSpace, b []float64) error
}

// Source is the volume term (f, v)*dx with f given pointwise.
type Source struct {
	F func(x, y float64) float64
}

// FunctionSource is (f_h, v)*dx with f_h a finite-element field. It can
// only be assembled on f_h's own space.
type FunctionSource struct {
	F *Function
}

// BoundarySource is the boundary term (g, v)*ds(tag).
type BoundarySource struct {
	G   Coefficient
	Tag int
}

// Cofunction is a purely numerical right-hand side: the result of a
// previous assembly, possibly combined with others.
type Cofunction struct {
	V   *FunctionSpace
	DOF []float64
}

func (c *Cofunction) AssembleInto(V *FunctionSpace, b []float64) error {
	if c.V != V {
		return fmt.Errorf("cofunction space does not match assembly space")
	}
	for i, v := range c.DOF {
		b[i] += v
	}
	return nil
}

func (s Source) AssembleInto(V *FunctionSpace, b []float64) error {
	return assembleVolumeSource(V, b, func(x, y float64) float64 { return s.F(x, y) }, nil)
}

func (s FunctionSource) AssembleInto(V *FunctionSpace, b []float64) error {
	if s.F.V != V {
		return fmt.Errorf("function source lives on a different space than the assembly space")
	}
	return assembleVolumeSource(V, b, nil, s.F)
}

// FormSum is a symbolic sum of right-hand-side contributions.
type FormSum struct {
	Terms []LinearForm
}

func Sum(terms ...LinearForm) FormSum { return FormSum{Terms: terms} }

func (fs FormSum) AssembleInto(V *FunctionSpace, b []float64) error {
	for _, t := range fs.Terms {
		if err := t.AssembleInto(V, b); err != nil {
			return err
		}
	}
	return nil
}

// Assemble evaluates a linear form into a Cofunction. Boundary rows are
// overwritten with the current boundary value, so assembling under a
// homogenized condition zeroes them, which makes separately assembled
// pieces summable.
func Assemble(L LinearForm, V *FunctionSpace, bcs ...*DirichletBC) (*Cofunction, error) {
	b := make([]float64, V.NDOF)
	if err := L.AssembleInto(V, b); err != nil {
		return nil, err
	}
	for _, bc := range bcs {
		bc.ApplyToVector(b)
	}
	return &Cofunction{V: V, DOF: b}, nil
}

// ProblemForm describes a variational problem in a way that can be
// rediscretized on any compatible space, which is what the multigrid
// cycles need to rebuild the operator on coarser levels.
type ProblemForm interface {
	// Bilinear is the operator (Jacobian) part of the residual on V.
	Bilinear(V *FunctionSpace) BilinearForm
	// Rhs is the inhomogeneous part, so the residual is F(u) = A u - b.
	Rhs(V *FunctionSpace) LinearForm
}

// AffineForm is the standard case: a fixed bilinear form and right-hand
// side, with any state or parameter dependence carried by Coefficients.
type AffineForm struct {
	A BilinearForm
	L LinearForm
}

func (f AffineForm) Bilinear(V *FunctionSpace) BilinearForm { return f.A }
func (f AffineForm) Rhs(V *FunctionSpace) LinearForm        { return f.L }
