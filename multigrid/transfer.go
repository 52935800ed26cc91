package multigrid

import (
	"fmt"
	"sync"

	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/utils"
)

type OpKind int

const (
	Prolongation OpKind = iota
	Restriction
	Injection
)

func (k OpKind) String() string {
	switch k {
	case Prolongation:
		return "prolongation"
	case Restriction:
		return "restriction"
	case Injection:
		return "injection"
	}
	return "unknown"
}

// Restriction is implemented as the transpose of prolongation under the
// l2 pairing of DOF vectors, so prolongation and restriction share one
// cached matrix per refinement step.
type transferKey struct {
	family       fem.Family
	degree       int
	coarse, fine int // refinement-chain indices
}

type cachedOp struct {
	P                      utils.CSR
	coarseEpoch, fineEpoch int
}

type spaceCacheKey struct {
	m      *mesh.Mesh
	family fem.Family
	degree int
}

// TransferManager owns the cache of transfer operators between the
// levels of a mesh hierarchy. One manager is meant to be attached to a
// solver and reused across every solve; each operator is constructed at
// most once per (space pair, kind) and only rebuilt when the underlying
// mesh coordinates change or the cache is explicitly invalidated. A
// rebuild is observable through RebuildCount and the OnRebuild hook.
type TransferManager struct {
	mu     sync.RWMutex
	ops    map[transferKey]*cachedOp
	built  map[transferKey]bool // survives Invalidate, distinguishes rebuild from first build
	spaces map[spaceCacheKey]*fem.FunctionSpace

	rebuilds int
	// OnRebuild fires whenever an operator that existed before is
	// constructed again.
	OnRebuild func(kind OpKind, coarseChainIdx, fineChainIdx int)
}

func NewTransferManager() *TransferManager {
	return &TransferManager{
		ops:    make(map[transferKey]*cachedOp),
		built:  make(map[transferKey]bool),
		spaces: make(map[spaceCacheKey]*fem.FunctionSpace),
	}
}

// RebuildCount is the number of times a previously constructed operator
// had to be built again. Zero for a healthy reuse pattern.
func (tm *TransferManager) RebuildCount() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.rebuilds
}

// CachedOperators is the number of distinct operators currently held.
func (tm *TransferManager) CachedOperators() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.ops)
}

// Invalidate drops every cached operator. Subsequent transfers rebuild
// lazily, and each rebuild of a previously built operator is counted and
// reported.
func (tm *TransferManager) Invalidate() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.ops = make(map[transferKey]*cachedOp)
}

// resolve validates a coarse/fine space pair and locates it in the
// refinement chain of its hierarchy.
func resolve(coarseV, fineV *fem.FunctionSpace) (h *mesh.Hierarchy, ciC, ciF int, err error) {
	if !coarseV.Compatible(fineV) {
		return nil, 0, 0, &IncompatibleSpacesError{
			Coarse: coarseV, Fine: fineV,
			Reason: fmt.Sprintf("element mismatch: %s%d vs %s%d",
				coarseV.Family(), coarseV.Degree(), fineV.Family(), fineV.Degree()),
		}
	}
	hC, ciC := coarseV.Mesh.Hierarchy()
	hF, ciF := fineV.Mesh.Hierarchy()
	if hC == nil || hF == nil || hC != hF {
		return nil, 0, 0, &IncompatibleSpacesError{
			Coarse: coarseV, Fine: fineV,
			Reason: "meshes do not belong to a common hierarchy",
		}
	}
	if ciC >= ciF {
		return nil, 0, 0, &IncompatibleSpacesError{
			Coarse: coarseV, Fine: fineV,
			Reason: fmt.Sprintf("coarse space (chain %d) is not below fine space (chain %d)", ciC, ciF),
		}
	}
	if d := ciF - ciC; d != 1 && d != hC.RefinementsPerLevel() {
		return nil, 0, 0, &IncompatibleSpacesError{
			Coarse: coarseV, Fine: fineV,
			Reason: fmt.Sprintf("spaces are %d refinements apart, not adjacent levels", d),
		}
	}
	return hC, ciC, ciF, nil
}

func (tm *TransferManager) spaceAt(h *mesh.Hierarchy, chainIdx int, family fem.Family, degree int) (*fem.FunctionSpace, error) {
	m := h.ChainMesh(chainIdx)
	key := spaceCacheKey{m: m, family: family, degree: degree}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if V := tm.spaces[key]; V != nil {
		return V, nil
	}
	V, err := fem.NewFunctionSpace(m, family, degree)
	if err != nil {
		return nil, err
	}
	tm.spaces[key] = V
	return V, nil
}

// operatorFor returns the prolongation matrix for one refinement step,
// building it on first use. First-writer-wins: under concurrent access
// exactly one construction survives, and results never depend on how
// often an operator has been requested before.
func (tm *TransferManager) operatorFor(h *mesh.Hierarchy, chainIdx int, family fem.Family, degree int) (utils.CSR, error) {
	key := transferKey{family: family, degree: degree, coarse: chainIdx, fine: chainIdx + 1}
	var (
		coarseM = h.ChainMesh(chainIdx)
		fineM   = h.ChainMesh(chainIdx + 1)
	)

	tm.mu.RLock()
	op := tm.ops[key]
	tm.mu.RUnlock()
	if op != nil && op.coarseEpoch == coarseM.CoordinateEpoch() && op.fineEpoch == fineM.CoordinateEpoch() {
		return op.P, nil
	}

	coarseV, err := tm.spaceAt(h, chainIdx, family, degree)
	if err != nil {
		return utils.CSR{}, err
	}
	fineV, err := tm.spaceAt(h, chainIdx+1, family, degree)
	if err != nil {
		return utils.CSR{}, err
	}
	P := buildProlongation(coarseV, fineV)

	tm.mu.Lock()
	if cur := tm.ops[key]; cur != nil &&
		cur.coarseEpoch == coarseM.CoordinateEpoch() && cur.fineEpoch == fineM.CoordinateEpoch() {
		// Another writer got here first; keep its operator.
		tm.mu.Unlock()
		return cur.P, nil
	}
	rebuild := tm.built[key]
	tm.ops[key] = &cachedOp{P: P, coarseEpoch: coarseM.CoordinateEpoch(), fineEpoch: fineM.CoordinateEpoch()}
	tm.built[key] = true
	if rebuild {
		tm.rebuilds++
	}
	hook := tm.OnRebuild
	tm.mu.Unlock()
	if rebuild && hook != nil {
		hook(Prolongation, chainIdx, chainIdx+1)
	}
	return P, nil
}

// Prolong interpolates a coarse field onto the fine space, writing into
// fine in place.
func (tm *TransferManager) Prolong(coarse, fine *fem.Function) error {
	h, ciC, ciF, err := resolve(coarse.V, fine.V)
	if err != nil {
		return err
	}
	var (
		family = coarse.V.Family()
		degree = coarse.V.Degree()
		x      = coarse.DOF
	)
	for ci := ciC; ci < ciF; ci++ {
		P, err := tm.operatorFor(h, ci, family, degree)
		if err != nil {
			return err
		}
		nr, _ := P.Dims()
		var y []float64
		if ci == ciF-1 {
			y = fine.DOF
		} else {
			y = make([]float64, nr)
		}
		P.MulVec(x, y)
		x = y
	}
	return nil
}

// Restrict transfers a fine-level residual down by the transpose of
// prolongation, writing into coarse in place.
func (tm *TransferManager) Restrict(fine, coarse *fem.Function) error {
	h, ciC, ciF, err := resolve(coarse.V, fine.V)
	if err != nil {
		return err
	}
	var (
		family = coarse.V.Family()
		degree = coarse.V.Degree()
		x      = fine.DOF
	)
	for ci := ciF - 1; ci >= ciC; ci-- {
		P, err := tm.operatorFor(h, ci, family, degree)
		if err != nil {
			return err
		}
		_, nc := P.Dims()
		var y []float64
		if ci == ciC {
			y = coarse.DOF
		} else {
			y = make([]float64, nc)
		}
		P.MulVecT(x, y)
		x = y
	}
	return nil
}

// Inject moves a fine-level solution down by pointwise evaluation at the
// coarse nodes. The DOF layout guarantees each coarse node coincides
// with a fine node of the same index, so injection is a prefix gather;
// see FunctionSpace.
func (tm *TransferManager) Inject(fine, coarse *fem.Function) error {
	_, _, _, err := resolve(coarse.V, fine.V)
	if err != nil {
		return err
	}
	copy(coarse.DOF, fine.DOF[:coarse.V.NDOF])
	return nil
}
