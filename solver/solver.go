package solver

import (
	"fmt"
	"math"

	"github.com/stephankramer/firedrake/InputParameters"
	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/multigrid"
)

// NonlinearVariationalProblem is a residual equation F(u) = 0 with its
// unknown and boundary conditions. Affine problems pass through the
// same interface; their residual is A u - b.
type NonlinearVariationalProblem struct {
	Form fem.ProblemForm
	U    *fem.Function
	Bcs  []*fem.DirichletBC
}

func NewNonlinearVariationalProblem(form fem.ProblemForm, u *fem.Function,
	bcs ...*fem.DirichletBC) *NonlinearVariationalProblem {
	return &NonlinearVariationalProblem{Form: form, U: u, Bcs: bcs}
}

// NonlinearVariationalSolver drives a problem to convergence according
// to its solver parameters. Operators are reassembled on every Solve so
// coefficient changes between solves are picked up, while the attached
// transfer manager keeps its operators across solves.
type NonlinearVariationalSolver struct {
	Problem *NonlinearVariationalProblem
	Params  *InputParameters.SolverParameters

	// ErrorOnTransferRebuild makes Solve fail if it would have to
	// create a transfer manager or rebuild a cached transfer operator,
	// turning silent setup cost into a hard error.
	ErrorOnTransferRebuild bool

	tm       *multigrid.TransferManager
	attached bool
	sh       *fem.SpaceHierarchy

	SNESIterations int
	KSPIterations  int
	ResidualNorm   float64
}

func NewNonlinearVariationalSolver(prob *NonlinearVariationalProblem,
	params *InputParameters.SolverParameters) *NonlinearVariationalSolver {
	return &NonlinearVariationalSolver{Problem: prob, Params: params}
}

// SetTransferManager attaches a transfer manager so its cached
// operators are shared across solves and solvers.
func (s *NonlinearVariationalSolver) SetTransferManager(tm *multigrid.TransferManager) {
	s.tm = tm
	s.attached = true
}

// TransferManager returns the attached manager, creating one on first
// use if none was attached.
func (s *NonlinearVariationalSolver) TransferManager() *multigrid.TransferManager {
	if s.tm == nil {
		s.tm = multigrid.NewTransferManager()
	}
	return s.tm
}

func (s *NonlinearVariationalSolver) ensureTM() (*multigrid.TransferManager, error) {
	if s.tm == nil {
		if s.ErrorOnTransferRebuild {
			return nil, &multigrid.UnexpectedRebuildError{
				Detail: "no transfer manager attached when one was required",
			}
		}
		s.tm = multigrid.NewTransferManager()
	}
	return s.tm, nil
}

func (s *NonlinearVariationalSolver) spaceHierarchy() (*fem.SpaceHierarchy, error) {
	h, _ := s.Problem.U.V.Mesh.Hierarchy()
	if h == nil {
		return nil, fmt.Errorf("multigrid solve requested on a mesh outside any hierarchy")
	}
	if s.sh == nil || s.sh.H != h {
		s.sh = fem.NewSpaceHierarchy(h)
	}
	// The problem's own space becomes the hierarchy's finest-level
	// space, so level iterates and the problem unknown share one space.
	if err := s.sh.Register(s.Problem.U.V); err != nil {
		return nil, err
	}
	return s.sh, nil
}

// Solve runs the configured iteration, writing the solution into the
// problem's unknown in place.
func (s *NonlinearVariationalSolver) Solve() (err error) {
	var (
		p        = s.Params
		rebuilds = -1
	)
	s.SNESIterations = 0
	s.KSPIterations = 0
	if s.tm != nil {
		rebuilds = s.tm.RebuildCount()
	}
	switch p.SnesType {
	case "ksponly", "":
		err = s.solveLinear()
	case "fas":
		err = s.solveFAS()
	case "newtonls":
		err = s.solveNewton()
	default:
		err = fmt.Errorf("unknown snes type %q", p.SnesType)
	}
	if err != nil {
		return err
	}
	if s.ErrorOnTransferRebuild && rebuilds >= 0 && s.tm.RebuildCount() > rebuilds {
		return &multigrid.UnexpectedRebuildError{
			Detail: fmt.Sprintf("%d transfer operator rebuilds during solve", s.tm.RebuildCount()-rebuilds),
		}
	}
	return nil
}

// checkMgParams rejects level and coarse solver settings other than the
// implemented Chebyshev/Jacobi smoothing with a dense coarse LU, so an
// override asking for something else fails instead of being ignored.
func checkMgParams(levelsKsp, levelsPc, coarsePc string) error {
	if levelsKsp != "" && levelsKsp != "chebyshev" {
		return fmt.Errorf("unsupported level ksp type %q, only chebyshev is implemented", levelsKsp)
	}
	if levelsPc != "" && levelsPc != "jacobi" {
		return fmt.Errorf("unsupported level pc type %q, only jacobi is implemented", levelsPc)
	}
	if coarsePc != "" && coarsePc != "lu" {
		return fmt.Errorf("unsupported coarse pc type %q, only lu is implemented", coarsePc)
	}
	return nil
}

// buildPC constructs the linear preconditioner named by pc_type.
func (s *NonlinearVariationalSolver) buildPC(matFree bool) (Preconditioner, error) {
	p := s.Params
	switch p.PcType {
	case "mg":
		if err := checkMgParams(p.MgLevelsKspType, p.MgLevelsPcType, p.MgCoarsePcType); err != nil {
			return nil, err
		}
		tm, err := s.ensureTM()
		if err != nil {
			return nil, err
		}
		sh, err := s.spaceHierarchy()
		if err != nil {
			return nil, err
		}
		cyc, err := multigrid.ParseCycleType(p.PcMgType)
		if err != nil {
			return nil, err
		}
		return multigrid.NewMG(s.Problem.Form, s.Problem.U.V, s.Problem.Bcs, sh, tm,
			multigrid.Options{Cycle: cyc, SmoothIts: p.MgLevelsKspMaxIt, MatFree: matFree})
	case "none", "":
		return NewIdentityPC(), nil
	}
	return nil, fmt.Errorf("unknown pc type %q", s.Params.PcType)
}

func (s *NonlinearVariationalSolver) operator() (fem.Operator, error) {
	var (
		prob = s.Problem
		a    = prob.Form.Bilinear(prob.U.V)
	)
	if s.Params.MatType == "matfree" {
		return fem.NewMatFreeOperator(a, prob.U.V, prob.Bcs), nil
	}
	return fem.NewAssembledOperator(fem.AssembleMatrix(a, prob.U.V, prob.Bcs)), nil
}

func residualNorm(op fem.Operator, b, x []float64) float64 {
	r := make([]float64, len(x))
	op.Apply(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	return norm2(r)
}

func (s *NonlinearVariationalSolver) solveLinear() error {
	var (
		prob = s.Problem
		p    = s.Params
	)
	op, err := s.operator()
	if err != nil {
		return err
	}
	b, err := fem.AssembleVector(prob.Form.Rhs(prob.U.V), prob.U.V, prob.Bcs)
	if err != nil {
		return err
	}
	pc, err := s.buildPC(p.MatType == "matfree")
	if err != nil {
		return err
	}
	ksp := &KSP{Op: op, PC: pc, Type: p.KspType, Rtol: p.KspRtol, Atol: p.KspAtol, MaxIt: p.KspMaxIt}
	if err := ksp.Solve(b, prob.U.DOF); err != nil {
		return err
	}
	s.SNESIterations = 1
	s.KSPIterations = ksp.Iterations
	s.ResidualNorm = residualNorm(op, b, prob.U.DOF)
	return nil
}

func (s *NonlinearVariationalSolver) snesTolerances(res0 float64) (tol float64, maxIt int, skip bool) {
	p := s.Params
	rtol := p.SnesRtol
	if rtol == 0 {
		rtol = 1.e-8
	}
	tol = math.Max(rtol*res0, p.SnesAtol)
	maxIt = p.SnesMaxIt
	if maxIt == 0 {
		maxIt = 50
	}
	skip = p.SnesConvergenceTest == "skip"
	return
}

func (s *NonlinearVariationalSolver) solveFAS() error {
	var (
		prob = s.Problem
		p    = s.Params
	)
	if err := checkMgParams("", "", p.FasCoarsePcType); err != nil {
		return err
	}
	tm, err := s.ensureTM()
	if err != nil {
		return err
	}
	sh, err := s.spaceHierarchy()
	if err != nil {
		return err
	}
	cyc, err := multigrid.ParseCycleType(p.SnesFasType)
	if err != nil {
		return err
	}
	f, err := multigrid.NewFAS(prob.Form, prob.U.V, prob.Bcs, sh, tm,
		multigrid.FASOptions{Cycle: cyc, SmoothIts: p.FasLevelsKspMaxIt})
	if err != nil {
		return err
	}
	op, err := s.operator()
	if err != nil {
		return err
	}
	b, err := fem.AssembleVector(prob.Form.Rhs(prob.U.V), prob.U.V, prob.Bcs)
	if err != nil {
		return err
	}
	tol, maxIt, skip := s.snesTolerances(residualNorm(op, b, prob.U.DOF))
	for it := 0; it < maxIt; it++ {
		if err := f.Cycle(prob.U); err != nil {
			return err
		}
		s.SNESIterations++
		s.ResidualNorm = residualNorm(op, b, prob.U.DOF)
		if !skip && s.ResidualNorm <= tol {
			return nil
		}
	}
	if skip {
		return nil
	}
	return &NonconvergenceError{Method: "fas", Iterations: s.SNESIterations, Residual: s.ResidualNorm}
}

func (s *NonlinearVariationalSolver) solveNewton() error {
	var (
		prob = s.Problem
		p    = s.Params
		n    = prob.U.V.NDOF
	)
	// Optional nonlinear preconditioner: FAS cycles applied to the
	// iterate before each Newton step.
	var npc *multigrid.FAS
	npcIts := 1
	if p.NpcSnesType == "fas" {
		if err := checkMgParams("", "", p.FasCoarsePcType); err != nil {
			return err
		}
		tm, err := s.ensureTM()
		if err != nil {
			return err
		}
		sh, err := s.spaceHierarchy()
		if err != nil {
			return err
		}
		cyc, err := multigrid.ParseCycleType(p.NpcSnesFasType)
		if err != nil {
			return err
		}
		if npc, err = multigrid.NewFAS(prob.Form, prob.U.V, prob.Bcs, sh, tm,
			multigrid.FASOptions{Cycle: cyc, SmoothIts: p.NpcFasLevelsKspMaxIt}); err != nil {
			return err
		}
		if p.NpcSnesMaxIt > 0 {
			npcIts = p.NpcSnesMaxIt
		}
	} else if p.NpcSnesType != "" {
		return fmt.Errorf("unknown npc snes type %q", p.NpcSnesType)
	}
	op, err := s.operator()
	if err != nil {
		return err
	}
	b, err := fem.AssembleVector(prob.Form.Rhs(prob.U.V), prob.U.V, prob.Bcs)
	if err != nil {
		return err
	}
	pc, err := s.buildPC(p.MatType == "matfree")
	if err != nil {
		return err
	}
	var (
		F  = make([]float64, n)
		d  = make([]float64, n)
		Ad = make([]float64, n)
	)
	tol, maxIt, skip := s.snesTolerances(residualNorm(op, b, prob.U.DOF))
	for it := 0; it < maxIt; it++ {
		if npc != nil {
			for k := 0; k < npcIts; k++ {
				if err := npc.Cycle(prob.U); err != nil {
					return err
				}
			}
		}
		op.Apply(prob.U.DOF, F)
		for i := range F {
			F[i] -= b[i]
		}
		s.ResidualNorm = norm2(F)
		if !skip && s.ResidualNorm <= tol {
			return nil
		}
		// Newton direction: solve J d = -F.
		rhs := make([]float64, n)
		for i := range rhs {
			rhs[i] = -F[i]
		}
		ksp := &KSP{Op: op, PC: pc, Type: p.KspType, Rtol: p.KspRtol, Atol: p.KspAtol, MaxIt: p.KspMaxIt}
		if err := ksp.Solve(rhs, d); err != nil {
			return err
		}
		s.KSPIterations += ksp.Iterations

		lambda := 1.0
		switch p.SnesLinesearchType {
		case "l2":
			// Minimize |F + lambda J d| along the step.
			op.Apply(d, Ad)
			if den := dot(Ad, Ad); den > 0 {
				lambda = -dot(F, Ad) / den
			}
		case "basic", "":
		default:
			return fmt.Errorf("unknown linesearch type %q", p.SnesLinesearchType)
		}
		for i := range prob.U.DOF {
			prob.U.DOF[i] += lambda * d[i]
		}
		s.SNESIterations++
	}
	s.ResidualNorm = residualNorm(op, b, prob.U.DOF)
	if skip || s.ResidualNorm <= tol {
		return nil
	}
	return &NonconvergenceError{Method: "newtonls", Iterations: s.SNESIterations, Residual: s.ResidualNorm}
}
