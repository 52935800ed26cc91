package Poisson2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stephankramer/firedrake/InputParameters"
)

func runPoisson(t *testing.T, solverType string) float64 {
	sp, err := InputParameters.Defaults(solverType)
	assert.Nil(t, err)
	c, err := NewPoisson(10, 2, 2, sp)
	assert.Nil(t, err)
	assert.Nil(t, c.Run(false))
	return c.ErrorNorm()
}

func TestPoissonGMG(t *testing.T) {
	for _, solverType := range []string{"mg", "mgmatfree", "fas", "newtonfas"} {
		err := runPoisson(t, solverType)
		assert.True(t, err < 4.e-6, "%s: L2 error %g", solverType, err)
	}
}

func TestPoissonMatFreeMatchesAssembled(t *testing.T) {
	errmat := runPoisson(t, "mg")
	errmatfree := runPoisson(t, "mgmatfree")
	assert.InDelta(t, errmat, errmatfree, 1.e-9)
}

func TestForcingMatchesExact(t *testing.T) {
	// The forcing is minus the Laplacian of the exact solution; check at
	// a few interior points by finite differences.
	const eps = 1.e-5
	for _, p := range [][2]float64{{0.3, 0.4}, {0.5, 0.5}, {0.7, 0.2}} {
		x, y := p[0], p[1]
		lap := (Exact(x+eps, y) + Exact(x-eps, y) + Exact(x, y+eps) + Exact(x, y-eps) - 4*Exact(x, y)) / (eps * eps)
		assert.InDelta(t, Forcing(x, y), -lap, 1.e-4*math.Max(math.Abs(lap), 1))
	}
}

func TestPoissonSolverDiagnostics(t *testing.T) {
	sp, err := InputParameters.Defaults("mg")
	assert.Nil(t, err)
	c, err := NewPoisson(10, 2, 2, sp)
	assert.Nil(t, err)
	assert.Nil(t, c.Run(false))
	assert.Equal(t, 1, c.Solver.SNESIterations)
	assert.Equal(t, 1, c.Solver.KSPIterations)
	assert.Equal(t, 0, c.Solver.TransferManager().RebuildCount())
}
