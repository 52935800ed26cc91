package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stephankramer/firedrake/InputParameters"
	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/multigrid"
)

func poissonProblem(t *testing.T, nx, nLevels, degree int) (*fem.Function, fem.AffineForm, []*fem.DirichletBC) {
	h, err := mesh.NewHierarchy(mesh.UnitSquareMesh(nx, nx), nLevels)
	assert.Nil(t, err)
	V, err := fem.NewFunctionSpace(h.Finest(), fem.Lagrange, degree)
	assert.Nil(t, err)
	u := fem.NewFunction(V)
	f := fem.NewFunction(V)
	f.Interpolate(func(x, y float64) float64 {
		return 2 * math.Pi * math.Pi * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	})
	form := fem.AffineForm{
		A: fem.BilinearForm{Stiffness: fem.NewConstant(1)},
		L: fem.FunctionSource{F: f},
	}
	bcs := []*fem.DirichletBC{fem.NewDirichletBC(V, 0.0,
		mesh.TagLeft, mesh.TagRight, mesh.TagBottom, mesh.TagTop)}
	return u, form, bcs
}

func TestSolveConvergenceOrder(t *testing.T) {
	// L2 error of the multigrid solve decays at order p+1 under
	// refinement of the coarse mesh.
	exact := func(x, y float64) float64 {
		return math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	}
	for _, tc := range []struct {
		degree   int
		minOrder float64
	}{
		{1, 1.9},
		{2, 2.9},
	} {
		var errs []float64
		for _, nx := range []int{2, 4, 8} {
			u, form, bcs := poissonProblem(t, nx, 2, tc.degree)
			sp, err := InputParameters.Defaults("mg")
			assert.Nil(t, err)
			sp.KspType = "gmres"
			sp.KspRtol = 1.e-12
			s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
			assert.Nil(t, s.Solve())
			errs = append(errs, fem.ErrorNorm(u, exact))
		}
		for i := 1; i < len(errs); i++ {
			order := math.Log2(errs[i-1] / errs[i])
			assert.True(t, order > tc.minOrder, "degree %d: observed order %.2f", tc.degree, order)
		}
	}
}

func TestNewtonSolvesLinearInOneStep(t *testing.T) {
	u, form, bcs := poissonProblem(t, 4, 2, 2)
	sp, err := InputParameters.Defaults("mg")
	assert.Nil(t, err)
	sp.SnesType = "newtonls"
	sp.SnesLinesearchType = "basic"
	sp.KspType = "gmres"
	sp.KspRtol = 1.e-12
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	assert.Nil(t, s.Solve())
	// Newton on an affine residual with an accurate linear solve
	// converges in a single step.
	assert.Equal(t, 1, s.SNESIterations)
}

func TestRhsFormulationsSolveAlike(t *testing.T) {
	// The right-hand side may be given symbolically, as a pre-assembled
	// cofunction, or as a sum of pieces; the solver cannot tell them
	// apart.
	h, err := mesh.NewHierarchyRefined(mesh.UnitSquareMesh(2, 2), 2, 2)
	assert.Nil(t, err)
	V, err := fem.NewFunctionSpace(h.Finest(), fem.Lagrange, 1)
	assert.Nil(t, err)
	bcs := []*fem.DirichletBC{fem.NewDirichletBC(V, 0.0,
		mesh.TagLeft, mesh.TagRight, mesh.TagBottom, mesh.TagTop)}
	f := fem.NewFunction(V)
	f.Interpolate(func(x, y float64) float64 {
		return (1 + 2*math.Pi*math.Pi) * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	})

	c, err := fem.Assemble(fem.FunctionSource{F: f}, V)
	assert.Nil(t, err)
	cHalf := &fem.Cofunction{V: V, DOF: make([]float64, V.NDOF)}
	for i, v := range c.DOF {
		cHalf.DOF[i] = 0.5 * v
	}
	variants := []fem.LinearForm{
		fem.FunctionSource{F: f},
		c,
		fem.Sum(cHalf, cHalf),
		fem.Sum(fem.FunctionSource{F: f}),
	}

	var solutions [][]float64
	for _, L := range variants {
		u := fem.NewFunction(V)
		form := fem.AffineForm{A: fem.BilinearForm{Stiffness: fem.NewConstant(1)}, L: L}
		sp, err := InputParameters.Defaults("mg")
		assert.Nil(t, err)
		sp.KspType = "gmres"
		sp.KspRtol = 1.e-12
		s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
		assert.Nil(t, s.Solve())
		solutions = append(solutions, append([]float64{}, u.DOF...))
	}
	for _, sol := range solutions[1:] {
		for i := range sol {
			assert.InDelta(t, solutions[0][i], sol[i], 1.e-14)
		}
	}
}

func TestFASSolve(t *testing.T) {
	// The fas mode must run against a caller-constructed space, not just
	// spaces handed out by the solver's own hierarchy.
	u, form, bcs := poissonProblem(t, 4, 2, 2)
	sp, err := InputParameters.Defaults("fas")
	assert.Nil(t, err)
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	assert.Nil(t, s.Solve())
	assert.Equal(t, 1, s.SNESIterations)
	exact := func(x, y float64) float64 {
		return math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	}
	assert.True(t, fem.ErrorNorm(u, exact) < 1.e-3)
}

func TestNewtonFASSolve(t *testing.T) {
	u, form, bcs := poissonProblem(t, 4, 2, 2)
	sp, err := InputParameters.Defaults("newtonfas")
	assert.Nil(t, err)
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	assert.Nil(t, s.Solve())
	assert.Equal(t, 1, s.SNESIterations)
	exact := func(x, y float64) float64 {
		return math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	}
	assert.True(t, fem.ErrorNorm(u, exact) < 1.e-3)
}

func TestUnsupportedLevelSolverParams(t *testing.T) {
	// Overrides asking for unimplemented level or coarse solvers fail
	// loudly instead of being silently ignored.
	u, form, bcs := poissonProblem(t, 2, 1, 1)
	sp, err := InputParameters.Defaults("mg")
	assert.Nil(t, err)
	assert.Nil(t, sp.Parse([]byte("mg_levels_ksp_type: richardson")))
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	assert.NotNil(t, s.Solve())

	sp, err = InputParameters.Defaults("fas")
	assert.Nil(t, err)
	sp.FasCoarsePcType = "ilu"
	u.Assign(0)
	s = NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	assert.NotNil(t, s.Solve())
}

func TestSolverReuse(t *testing.T) {
	// One solver, one transfer manager, two different operators: first a
	// reaction-diffusion solve, then a pure Poisson solve after
	// reassigning the shared coefficients. The transfer operators are
	// built once and never rebuilt, and repeating a solve is bitwise
	// idempotent in its iteration count.
	u, _, bcs := poissonProblem(t, 4, 2, 2)
	V := u.V
	f := fem.NewFunction(V)
	f.Interpolate(func(x, y float64) float64 {
		return math.Sin(math.Pi*x) * math.Sin(2*math.Pi*y)
	})
	var (
		alpha = fem.NewConstant(1)
		beta  = fem.NewConstant(1)
		form  = fem.AffineForm{
			A: fem.BilinearForm{Mass: alpha, Stiffness: beta},
			L: fem.FunctionSource{F: f},
		}
	)
	sp, err := InputParameters.Defaults("mg")
	assert.Nil(t, err)
	sp.KspType = "gmres"
	sp.KspRtol = 1.e-10

	tm := multigrid.NewTransferManager()
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	s.SetTransferManager(tm)
	s.ErrorOnTransferRebuild = true

	assert.Nil(t, s.Solve())
	built := tm.CachedOperators()
	assert.True(t, built > 0)

	// Continuation: drop the reaction term, solve again with the same
	// manager. No transfer operator changes.
	alpha.Assign(0)
	u.Assign(0)
	assert.Nil(t, s.Solve())
	itsFirst := s.KSPIterations
	assert.Equal(t, built, tm.CachedOperators())
	assert.Equal(t, 0, tm.RebuildCount())

	// Repeating the identical solve takes the identical iteration count.
	u.Assign(0)
	assert.Nil(t, s.Solve())
	assert.Equal(t, itsFirst, s.KSPIterations)
	assert.Equal(t, 0, tm.RebuildCount())
}

func TestErrorOnTransferRebuild(t *testing.T) {
	u, form, bcs := poissonProblem(t, 4, 2, 1)
	sp, err := InputParameters.Defaults("mg")
	assert.Nil(t, err)
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	// Without an attached manager the solver would create one silently;
	// the flag turns that into an error.
	s.ErrorOnTransferRebuild = true
	err = s.Solve()
	var ure *multigrid.UnexpectedRebuildError
	assert.ErrorAs(t, err, &ure)

	// Attaching a manager satisfies the contract.
	s.SetTransferManager(multigrid.NewTransferManager())
	assert.Nil(t, s.Solve())
}

func TestUnknownSnesType(t *testing.T) {
	u, form, bcs := poissonProblem(t, 2, 1, 1)
	sp := &InputParameters.SolverParameters{SnesType: "trustregion"}
	s := NewNonlinearVariationalSolver(NewNonlinearVariationalProblem(form, u, bcs...), sp)
	assert.NotNil(t, s.Solve())
}
