package utils

import (
	"fmt"
	"sort"
	"sync"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// SparseBuilder accumulates entries for a CSR matrix row by row. Columns
// are sorted before conversion so that repeated assemblies of the same
// operator produce bitwise identical matrices; matvec products must not
// depend on map iteration order.
type SparseBuilder struct {
	nr, nc int
	rows   []map[int]float64
}

func NewSparseBuilder(nr, nc int) (R *SparseBuilder) {
	R = &SparseBuilder{
		nr:   nr,
		nc:   nc,
		rows: make([]map[int]float64, nr),
	}
	for i := range R.rows {
		R.rows[i] = make(map[int]float64)
	}
	return
}

func (sb *SparseBuilder) Dims() (r, c int) { return sb.nr, sb.nc }

func (sb *SparseBuilder) Add(i, j int, val float64) {
	if i < 0 || i >= sb.nr || j < 0 || j >= sb.nc {
		panic(fmt.Errorf("index out of bounds in SparseBuilder.Add: i,j = %d,%d, dims = %d,%d", i, j, sb.nr, sb.nc))
	}
	sb.rows[i][j] += val
}

func (sb *SparseBuilder) Set(i, j int, val float64) {
	sb.rows[i][j] = val
}

func (sb *SparseBuilder) ZeroRow(i int) {
	sb.rows[i] = make(map[int]float64)
}

func (sb *SparseBuilder) Build() (R CSR) {
	var (
		ia   = make([]int, 1, sb.nr+1)
		ja   []int
		data []float64
	)
	for i := 0; i < sb.nr; i++ {
		cols := make([]int, 0, len(sb.rows[i]))
		for j := range sb.rows[i] {
			cols = append(cols, j)
		}
		sort.Ints(cols)
		for _, j := range cols {
			ja = append(ja, j)
			data = append(data, sb.rows[i][j])
		}
		ia = append(ia, len(ja))
	}
	R = CSR{
		M:    sparse.NewCSR(sb.nr, sb.nc, ia, ja, data),
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }

func (m *CSR) SetReadOnly(name ...string) CSR {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

// MulVec computes y = A*x.
func (m CSR) MulVec(x, y []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nc || len(y) != nr {
		panic(fmt.Errorf("dimension mismatch in MulVec: A is %dx%d, len(x)=%d, len(y)=%d", nr, nc, len(x), len(y)))
	}
	for i := 0; i < nr; i++ {
		var sum float64
		m.M.DoRowNonZero(i, func(_, j int, v float64) {
			sum += v * x[j]
		})
		y[i] = sum
	}
}

// MulVecPar is MulVec with the rows split over np workers using a
// PartitionMap. Each row is written by exactly one worker, so the result
// is identical to the serial product.
func (m CSR) MulVecPar(np int, x, y []float64) {
	var (
		nr, _ = m.Dims()
	)
	if np < 2 || nr < 64*np {
		m.MulVec(x, y)
		return
	}
	pm := NewPartitionMap(np, nr)
	var wg sync.WaitGroup
	for n := 0; n < np; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			kmin, kmax := pm.GetBucketRange(n)
			for i := kmin; i < kmax; i++ {
				var sum float64
				m.M.DoRowNonZero(i, func(_, j int, v float64) {
					sum += v * x[j]
				})
				y[i] = sum
			}
		}(n)
	}
	wg.Wait()
}

// MulVecT computes y = Transpose(A)*x, the operation used to restrict a
// fine-level residual through a prolongation operator.
func (m CSR) MulVecT(x, y []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nr || len(y) != nc {
		panic(fmt.Errorf("dimension mismatch in MulVecT: A is %dx%d, len(x)=%d, len(y)=%d", nr, nc, len(x), len(y)))
	}
	for i := range y {
		y[i] = 0
	}
	for i := 0; i < nr; i++ {
		m.M.DoRowNonZero(i, func(_, j int, v float64) {
			y[j] += v * x[i]
		})
	}
}

// Diagonal extracts the main diagonal, used by Jacobi-preconditioned
// smoothers.
func (m CSR) Diagonal() (d []float64) {
	var (
		nr, _ = m.Dims()
	)
	d = make([]float64, nr)
	for i := 0; i < nr; i++ {
		m.M.DoRowNonZero(i, func(_, j int, v float64) {
			if j == i {
				d[i] = v
			}
		})
	}
	return
}

// ToDense expands to a dense Matrix, used for the coarsest-level direct
// solve where the system is small.
func (m CSR) ToDense() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	for i := 0; i < nr; i++ {
		m.M.DoRowNonZero(i, func(_, j int, v float64) {
			R.M.Set(i, j, v)
		})
	}
	return
}
