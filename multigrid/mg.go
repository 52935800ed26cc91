package multigrid

import (
	"fmt"

	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/utils"
)

type CycleType int

const (
	VCycle CycleType = iota
	WCycle
	FullCycle
)

func (c CycleType) String() string {
	switch c {
	case VCycle:
		return "v"
	case WCycle:
		return "w"
	case FullCycle:
		return "full"
	}
	return "unknown"
}

func ParseCycleType(s string) (CycleType, error) {
	switch s {
	case "v", "":
		return VCycle, nil
	case "w":
		return WCycle, nil
	case "full":
		return FullCycle, nil
	}
	return VCycle, fmt.Errorf("unknown multigrid cycle type %q", s)
}

// Options configures a linear multigrid preconditioner.
type Options struct {
	Cycle     CycleType
	SmoothIts int  // Chebyshev iterations per pre/post smooth, default 2
	MatFree   bool // apply fine-level operators without assembling them
}

type mgLevel struct {
	V   *fem.FunctionSpace
	bcs []*fem.DirichletBC
	op  fem.Operator
	sm  *Chebyshev

	b, x, r []float64
}

// MG is a linear geometric multigrid preconditioner over a space
// hierarchy: Chebyshev smoothing on every level, residual restriction
// by the transpose of prolongation, and a dense LU solve on the
// coarsest level. The operator is rediscretized from the problem form
// on each level rather than formed by Galerkin products.
type MG struct {
	levels []*mgLevel // coarsest first
	tm     *TransferManager
	opts   Options
	coarse utils.Matrix // dense coarsest-level operator
}

func NewMG(form fem.ProblemForm, fineV *fem.FunctionSpace, bcs []*fem.DirichletBC,
	sh *fem.SpaceHierarchy, tm *TransferManager, opts Options) (mg *MG, err error) {
	if opts.SmoothIts <= 0 {
		opts.SmoothIts = 2
	}
	nl := sh.H.Levels()
	if fineV.Mesh != sh.H.Finest() {
		return nil, &IncompatibleSpacesError{
			Coarse: nil, Fine: fineV,
			Reason: "solution space does not live on the finest hierarchy mesh",
		}
	}
	mg = &MG{
		levels: make([]*mgLevel, nl),
		tm:     tm,
		opts:   opts,
	}
	for l := 0; l < nl; l++ {
		V, err := sh.SpaceAt(l, fineV.Family(), fineV.Degree())
		if err != nil {
			return nil, err
		}
		lv := &mgLevel{
			V: V,
			b: make([]float64, V.NDOF),
			x: make([]float64, V.NDOF),
			r: make([]float64, V.NDOF),
		}
		if l == nl-1 {
			lv.bcs = bcs
		} else {
			for _, bc := range bcs {
				lv.bcs = append(lv.bcs, bc.OnSpace(V))
			}
		}
		a := form.Bilinear(V)
		switch {
		case l == 0:
			A := fem.AssembleMatrix(a, V, lv.bcs)
			mg.coarse = A.ToDense()
			lv.op = fem.NewAssembledOperator(A)
		case opts.MatFree:
			lv.op = fem.NewMatFreeOperator(a, V, lv.bcs)
		default:
			lv.op = fem.NewAssembledOperator(fem.AssembleMatrix(a, V, lv.bcs))
		}
		if l > 0 {
			lv.sm = NewChebyshev(lv.op, opts.SmoothIts)
		}
		mg.levels[l] = lv
	}
	return
}

// Levels is the number of hierarchy levels the preconditioner spans.
func (mg *MG) Levels() int { return len(mg.levels) }

// Apply runs one multigrid cycle on A x = b from the current x. With
// x = 0 this is the preconditioner action z = M^-1 b.
func (mg *MG) Apply(b, x []float64) error {
	top := len(mg.levels) - 1
	lv := mg.levels[top]
	copy(lv.b, b)
	copy(lv.x, x)
	var err error
	if mg.opts.Cycle == FullCycle {
		err = mg.fCycle()
	} else {
		err = mg.cycle(top)
	}
	if err != nil {
		return err
	}
	copy(x, lv.x)
	return nil
}

func (mg *MG) solveCoarse(lv *mgLevel) error {
	n := len(lv.b)
	rhs := utils.NewVector(n, append([]float64{}, lv.b...))
	sol, err := mg.coarse.LUSolve(rhs)
	if err != nil {
		return &CoarseSolveError{Level: 0, Err: err}
	}
	copy(lv.x, sol.Data())
	return nil
}

// cycle runs the V or W recursion on level l with the right-hand side
// and initial guess already stored in the level workspace.
func (mg *MG) cycle(l int) error {
	lv := mg.levels[l]
	if l == 0 {
		return mg.solveCoarse(lv)
	}
	lc := mg.levels[l-1]

	lv.sm.Smooth(lv.b, lv.x)
	mg.residual(lv)
	if err := mg.tm.Restrict(
		&fem.Function{V: lv.V, DOF: lv.r},
		&fem.Function{V: lc.V, DOF: lc.b},
	); err != nil {
		return err
	}
	for _, bc := range lc.bcs {
		bc.ZeroVector(lc.b)
	}
	for i := range lc.x {
		lc.x[i] = 0
	}
	n := 1
	if mg.opts.Cycle == WCycle && l > 1 {
		n = 2
	}
	for k := 0; k < n; k++ {
		if err := mg.cycle(l - 1); err != nil {
			return err
		}
	}
	if err := mg.tm.Prolong(
		&fem.Function{V: lc.V, DOF: lc.x},
		&fem.Function{V: lv.V, DOF: lv.r},
	); err != nil {
		return err
	}
	for i := range lv.x {
		lv.x[i] += lv.r[i]
	}
	lv.sm.Smooth(lv.b, lv.x)
	return nil
}

// fCycle is the full multigrid cycle: the right-hand side is restricted
// all the way down, the coarsest problem is solved exactly, and each
// finer level starts from the prolonged coarse solution before running
// a V-cycle.
func (mg *MG) fCycle() error {
	top := len(mg.levels) - 1
	for l := top; l > 0; l-- {
		lv, lc := mg.levels[l], mg.levels[l-1]
		if err := mg.tm.Restrict(
			&fem.Function{V: lv.V, DOF: lv.b},
			&fem.Function{V: lc.V, DOF: lc.b},
		); err != nil {
			return err
		}
		for _, bc := range lc.bcs {
			bc.ZeroVector(lc.b)
		}
	}
	if err := mg.solveCoarse(mg.levels[0]); err != nil {
		return err
	}
	for l := 1; l <= top; l++ {
		lv, lc := mg.levels[l], mg.levels[l-1]
		if err := mg.tm.Prolong(
			&fem.Function{V: lc.V, DOF: lc.x},
			&fem.Function{V: lv.V, DOF: lv.x},
		); err != nil {
			return err
		}
		if err := mg.cycle(l); err != nil {
			return err
		}
	}
	return nil
}

// residual computes r = b - A x on a level and clears the constrained
// rows, which carry no correction.
func (mg *MG) residual(lv *mgLevel) {
	lv.op.Apply(lv.x, lv.r)
	for i := range lv.r {
		lv.r[i] = lv.b[i] - lv.r[i]
	}
	for _, bc := range lv.bcs {
		bc.ZeroVector(lv.r)
	}
}
