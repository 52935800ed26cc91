package multigrid

import (
	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/utils"
)

// FASOptions configures a full approximation scheme cycle. Only V and
// Full cycles are supported; FAS has no W variant here.
type FASOptions struct {
	Cycle     CycleType
	SmoothIts int
}

type fasLevel struct {
	V   *fem.FunctionSpace
	bcs []*fem.DirichletBC
	op  fem.Operator
	sm  *Chebyshev

	b, x, r, uhat []float64
}

// FAS is the full approximation scheme: instead of transferring
// corrections, each coarse level solves for a full approximation of the
// solution. The coarse problem carries the restricted fine residual as
// a defect term,
//
//	A_c v = A_c u^ + R (b - A u)
//
// with u^ the injected fine solution, and the fine level is updated by
// the prolonged difference v - u^. For a linear operator this reduces
// to the usual correction scheme, but the full-approximation form is
// what an outer nonlinear iteration composes with.
type FAS struct {
	levels []*fasLevel // coarsest first
	tm     *TransferManager
	opts   FASOptions
	coarse utils.Matrix
}

func NewFAS(form fem.ProblemForm, fineV *fem.FunctionSpace, bcs []*fem.DirichletBC,
	sh *fem.SpaceHierarchy, tm *TransferManager, opts FASOptions) (f *FAS, err error) {
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
	f = &FAS{
		levels: make([]*fasLevel, nl),
		tm:     tm,
		opts:   opts,
	}
	for l := 0; l < nl; l++ {
		V, err := sh.SpaceAt(l, fineV.Family(), fineV.Degree())
		if err != nil {
			return nil, err
		}
		lv := &fasLevel{
			V:    V,
			x:    make([]float64, V.NDOF),
			r:    make([]float64, V.NDOF),
			uhat: make([]float64, V.NDOF),
		}
		if l == nl-1 {
			lv.bcs = bcs
		} else {
			for _, bc := range bcs {
				lv.bcs = append(lv.bcs, bc.OnSpace(V))
			}
		}
		A := fem.AssembleMatrix(form.Bilinear(V), V, lv.bcs)
		lv.op = fem.NewAssembledOperator(A)
		if l == 0 {
			f.coarse = A.ToDense()
		} else {
			lv.sm = NewChebyshev(lv.op, opts.SmoothIts)
		}
		// Only the finest level's right-hand side enters the cycle
		// directly; coarse levels receive defect-corrected versions.
		if l == nl-1 {
			b, err := fem.AssembleVector(form.Rhs(V), V, lv.bcs)
			if err != nil {
				return nil, err
			}
			lv.b = b
		}
		f.levels[l] = lv
	}
	return
}

// Cycle runs one FAS cycle on the finest level, updating u in place.
func (f *FAS) Cycle(u *fem.Function) error {
	top := len(f.levels) - 1
	lv := f.levels[top]
	if u.V != lv.V {
		return &IncompatibleSpacesError{
			Coarse: lv.V, Fine: u.V,
			Reason: "iterate does not live on the finest-level space",
		}
	}
	copy(lv.x, u.DOF)
	var err error
	if f.opts.Cycle == FullCycle {
		err = f.fullCycle()
	} else {
		err = f.vCycle(top, lv.b)
	}
	if err != nil {
		return err
	}
	copy(u.DOF, lv.x)
	return nil
}

func (f *FAS) solveCoarse(lv *fasLevel, rhs []float64) error {
	b := utils.NewVector(len(rhs), append([]float64{}, rhs...))
	sol, err := f.coarse.LUSolve(b)
	if err != nil {
		return &CoarseSolveError{Level: 0, Err: err}
	}
	copy(lv.x, sol.Data())
	return nil
}

// coarsen sets up the next-coarser FAS problem from the current level:
// the approximation is injected, the residual restricted, and the
// defect right-hand side A_c u^ + R r returned, with constrained rows
// pinned at the injected values. The coarse approximation starts from
// the injection.
func (f *FAS) coarsen(l int, b []float64) (rhs []float64, err error) {
	lv, lc := f.levels[l], f.levels[l-1]
	lv.op.Apply(lv.x, lv.r)
	for i := range lv.r {
		lv.r[i] = b[i] - lv.r[i]
	}
	for _, bc := range lv.bcs {
		bc.ZeroVector(lv.r)
	}
	if err = f.tm.Restrict(
		&fem.Function{V: lv.V, DOF: lv.r},
		&fem.Function{V: lc.V, DOF: lc.r},
	); err != nil {
		return nil, err
	}
	if err = f.tm.Inject(
		&fem.Function{V: lv.V, DOF: lv.x},
		&fem.Function{V: lc.V, DOF: lc.uhat},
	); err != nil {
		return nil, err
	}
	rhs = make([]float64, lc.V.NDOF)
	lc.op.Apply(lc.uhat, rhs)
	for i := range rhs {
		rhs[i] += lc.r[i]
	}
	for _, bc := range lc.bcs {
		for _, d := range bc.DOFs() {
			rhs[d] = lc.uhat[d]
		}
	}
	copy(lc.x, lc.uhat)
	return
}

// correct prolongs the change in the coarse approximation back up and
// adds it to the current level's approximation.
func (f *FAS) correct(l int) error {
	lv, lc := f.levels[l], f.levels[l-1]
	for i := range lc.x {
		lc.x[i] -= lc.uhat[i]
	}
	if err := f.tm.Prolong(
		&fem.Function{V: lc.V, DOF: lc.x},
		&fem.Function{V: lv.V, DOF: lv.r},
	); err != nil {
		return err
	}
	for i := range lv.x {
		lv.x[i] += lv.r[i]
	}
	return nil
}

// vCycle runs the FAS recursion on level l; b is the level's right-hand
// side and lv.x its current approximation.
func (f *FAS) vCycle(l int, b []float64) error {
	lv := f.levels[l]
	if l == 0 {
		return f.solveCoarse(lv, b)
	}
	lv.sm.Smooth(b, lv.x)
	rhs, err := f.coarsen(l, b)
	if err != nil {
		return err
	}
	if err := f.vCycle(l-1, rhs); err != nil {
		return err
	}
	if err := f.correct(l); err != nil {
		return err
	}
	lv.sm.Smooth(b, lv.x)
	return nil
}

// fullCycle carries the current approximation all the way down by
// injection, solves the coarsest defect problem exactly, and works back
// up with one V-cycle per level, so each finer level starts from the
// prolonged coarse result.
func (f *FAS) fullCycle() error {
	var (
		top = len(f.levels) - 1
		rhs = make([][]float64, top+1)
		err error
	)
	rhs[top] = f.levels[top].b
	for l := top; l > 0; l-- {
		if rhs[l-1], err = f.coarsen(l, rhs[l]); err != nil {
			return err
		}
	}
	if err := f.solveCoarse(f.levels[0], rhs[0]); err != nil {
		return err
	}
	for l := 1; l <= top; l++ {
		if err := f.correct(l); err != nil {
			return err
		}
		if err := f.vCycle(l, rhs[l]); err != nil {
			return err
		}
	}
	return nil
}
