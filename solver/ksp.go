package solver

import (
	"fmt"
	"math"

	"github.com/stephankramer/firedrake/fem"
)

// Preconditioner is the action z = M^-1 r. The multigrid cycle
// satisfies it directly.
type Preconditioner interface {
	Apply(r, z []float64) error
}

type identityPC struct{}

func (identityPC) Apply(r, z []float64) error {
	copy(z, r)
	return nil
}

// NewIdentityPC is pc_type none.
func NewIdentityPC() Preconditioner { return identityPC{} }

// KSP is the linear solver: either a single preconditioner application
// (preonly) or right-preconditioned restarted GMRES. Right
// preconditioning keeps the residual recurrence in the true residual
// norm, so the convergence test does not depend on the preconditioner.
type KSP struct {
	Op      fem.Operator
	PC      Preconditioner
	Type    string // "preonly" or "gmres"
	Rtol    float64
	Atol    float64
	MaxIt   int
	Restart int

	Iterations int
}

func (k *KSP) defaults() {
	if k.PC == nil {
		k.PC = identityPC{}
	}
	if k.Rtol == 0 {
		k.Rtol = 1.e-5
	}
	if k.MaxIt == 0 {
		k.MaxIt = 10000
	}
	if k.Restart == 0 {
		k.Restart = 30
	}
}

// Solve solves Op x = b into x. The incoming x is ignored for preonly
// and used as the initial guess for gmres.
func (k *KSP) Solve(b, x []float64) error {
	k.defaults()
	k.Iterations = 0
	switch k.Type {
	case "preonly", "":
		for i := range x {
			x[i] = 0
		}
		k.Iterations = 1
		return k.PC.Apply(b, x)
	case "gmres":
		return k.gmres(b, x)
	}
	return fmt.Errorf("unknown ksp type %q", k.Type)
}

func norm2(v []float64) (n float64) {
	for _, val := range v {
		n += val * val
	}
	return math.Sqrt(n)
}

func dot(a, b []float64) (d float64) {
	for i := range a {
		d += a[i] * b[i]
	}
	return
}

func (k *KSP) gmres(b, x []float64) error {
	var (
		n   = k.Op.Rows()
		m   = k.Restart
		r   = make([]float64, n)
		w   = make([]float64, n)
		tol float64
	)
	k.Op.Apply(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	beta0 := norm2(r)
	tol = math.Max(k.Rtol*beta0, k.Atol)
	if beta0 <= tol {
		return nil
	}

	var (
		V  = make([][]float64, m+1) // Krylov basis
		Z  = make([][]float64, m)   // preconditioned basis
		H  = make([][]float64, m+1) // Hessenberg, H[i][j]
		cs = make([]float64, m)
		sn = make([]float64, m)
		g  = make([]float64, m+1)
	)
	for i := range V {
		V[i] = make([]float64, n)
		H[i] = make([]float64, m)
	}
	for i := range Z {
		Z[i] = make([]float64, n)
	}

	for k.Iterations < k.MaxIt {
		beta := norm2(r)
		if beta <= tol {
			return nil
		}
		for i := range r {
			V[0][i] = r[i] / beta
		}
		g[0] = beta
		for i := 1; i <= m; i++ {
			g[i] = 0
		}

		var j int
		for j = 0; j < m && k.Iterations < k.MaxIt; j++ {
			k.Iterations++
			if err := k.PC.Apply(V[j], Z[j]); err != nil {
				return err
			}
			k.Op.Apply(Z[j], w)
			// Modified Gram-Schmidt.
			for i := 0; i <= j; i++ {
				H[i][j] = dot(w, V[i])
				for l := range w {
					w[l] -= H[i][j] * V[i][l]
				}
			}
			H[j+1][j] = norm2(w)
			if H[j+1][j] > 0 {
				for l := range w {
					V[j+1][l] = w[l] / H[j+1][j]
				}
			}
			// Apply stored Givens rotations, then the new one.
			for i := 0; i < j; i++ {
				h := cs[i]*H[i][j] + sn[i]*H[i+1][j]
				H[i+1][j] = -sn[i]*H[i][j] + cs[i]*H[i+1][j]
				H[i][j] = h
			}
			denom := math.Hypot(H[j][j], H[j+1][j])
			cs[j], sn[j] = H[j][j]/denom, H[j+1][j]/denom
			H[j][j] = denom
			H[j+1][j] = 0
			g[j+1] = -sn[j] * g[j]
			g[j] = cs[j] * g[j]
			if math.Abs(g[j+1]) <= tol {
				j++
				break
			}
		}
		// y from back substitution, then x += Z y.
		y := make([]float64, j)
		for i := j - 1; i >= 0; i-- {
			y[i] = g[i]
			for l := i + 1; l < j; l++ {
				y[i] -= H[i][l] * y[l]
			}
			y[i] /= H[i][i]
		}
		for i := 0; i < j; i++ {
			for l := range x {
				x[l] += y[i] * Z[i][l]
			}
		}
		k.Op.Apply(x, r)
		for i := range r {
			r[i] = b[i] - r[i]
		}
		if norm2(r) <= tol {
			return nil
		}
	}
	return &NonconvergenceError{Method: "gmres", Iterations: k.Iterations, Residual: norm2(r)}
}
