package multigrid

import (
	"math"

	"github.com/stephankramer/firedrake/fem"
)

// Chebyshev is the per-level smoother: a fixed number of Chebyshev
// iterations preconditioned by the operator diagonal (Jacobi). There is
// no convergence test; the outer cycle supplies the correction that the
// smoother cannot, so divergence within the iteration cap is tolerated.
type Chebyshev struct {
	Op         fem.Operator
	MaxIt      int
	diag       []float64
	lmin, lmax float64
}

func NewChebyshev(op fem.Operator, maxIt int) (ch *Chebyshev) {
	ch = &Chebyshev{
		Op:    op,
		MaxIt: maxIt,
		diag:  op.Diagonal(),
	}
	est := ch.estimateMaxEigenvalue()
	// Target the upper part of the spectrum; the lower part is the
	// coarse grid's job.
	ch.lmax = 1.1 * est
	ch.lmin = 0.1 * est
	return
}

// estimateMaxEigenvalue runs a fixed number of power iterations on the
// Jacobi-preconditioned operator. The starting vector is deterministic
// so repeated setups of the same level give identical smoothers.
func (ch *Chebyshev) estimateMaxEigenvalue() float64 {
	var (
		n   = ch.Op.Rows()
		x   = make([]float64, n)
		y   = make([]float64, n)
		est = 1.0
	)
	for i := range x {
		x[i] = 1 + 0.5*math.Cos(float64(i))
	}
	for iter := 0; iter < 12; iter++ {
		ch.Op.Apply(x, y)
		var norm float64
		for i := range y {
			y[i] /= ch.diag[i]
			norm += y[i] * y[i]
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			break
		}
		est = norm
		for i := range x {
			x[i] = y[i] / norm
		}
	}
	return est
}

// Smooth runs MaxIt Chebyshev iterations on A x = b, updating x in
// place from its current value.
func (ch *Chebyshev) Smooth(b, x []float64) {
	var (
		n     = ch.Op.Rows()
		theta = 0.5 * (ch.lmax + ch.lmin)
		delta = 0.5 * (ch.lmax - ch.lmin)
		sigma = theta / delta
		rho   = 1 / sigma
		r     = make([]float64, n)
		d     = make([]float64, n)
		ax    = make([]float64, n)
	)
	ch.Op.Apply(x, ax)
	for i := 0; i < n; i++ {
		r[i] = b[i] - ax[i]
		d[i] = r[i] / ch.diag[i] / theta
	}
	for it := 0; it < ch.MaxIt; it++ {
		for i := 0; i < n; i++ {
			x[i] += d[i]
		}
		if it == ch.MaxIt-1 {
			break
		}
		ch.Op.Apply(d, ax)
		for i := 0; i < n; i++ {
			r[i] -= ax[i]
		}
		rhoNew := 1 / (2*sigma - rho)
		for i := 0; i < n; i++ {
			d[i] = rhoNew*rho*d[i] + 2*rhoNew/delta*r[i]/ch.diag[i]
		}
		rho = rhoNew
	}
}
