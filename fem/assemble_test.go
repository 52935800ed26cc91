package fem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/utils"
)

func TestMassMatrixTotal(t *testing.T) {
	m := mesh.UnitSquareMesh(3, 3)
	for _, degree := range []int{1, 2} {
		V, _ := NewFunctionSpace(m, Lagrange, degree)
		M := AssembleMatrix(BilinearForm{Mass: NewConstant(1)}, V, nil)
		// Sum over all entries is the integral of 1 over the square.
		ones := make([]float64, V.NDOF)
		for i := range ones {
			ones[i] = 1
		}
		y := make([]float64, V.NDOF)
		M.MulVec(ones, y)
		var total float64
		for _, v := range y {
			total += v
		}
		assert.InDelta(t, 1.0, total, 1.e-13)
	}
}

func TestStiffnessAnnihilatesConstants(t *testing.T) {
	m := mesh.UnitSquareMesh(3, 3)
	V, _ := NewFunctionSpace(m, Lagrange, 2)
	A := AssembleMatrix(BilinearForm{Stiffness: NewConstant(1)}, V, nil)
	ones := make([]float64, V.NDOF)
	for i := range ones {
		ones[i] = 1
	}
	y := make([]float64, V.NDOF)
	A.MulVec(ones, y)
	for _, v := range y {
		assert.InDelta(t, 0.0, v, 1.e-12)
	}
}

func TestConstantPatch(t *testing.T) {
	// With u = 1 on the whole boundary and no forcing, the discrete
	// solution is exactly constant.
	m := mesh.UnitSquareMesh(3, 3)
	for _, degree := range []int{1, 2} {
		V, _ := NewFunctionSpace(m, Lagrange, degree)
		bc := NewDirichletBC(V, 1.0, mesh.TagLeft, mesh.TagRight, mesh.TagBottom, mesh.TagTop)
		bcs := []*DirichletBC{bc}
		A := AssembleMatrix(BilinearForm{Stiffness: NewConstant(1)}, V, bcs)
		b, err := AssembleVector(Source{F: func(x, y float64) float64 { return 0 }}, V, bcs)
		assert.Nil(t, err)
		x, err := A.ToDense().LUSolve(utils.NewVector(V.NDOF, b))
		assert.Nil(t, err)
		for i := 0; i < V.NDOF; i++ {
			assert.InDelta(t, 1.0, x.AtVec(i), 1.e-12)
		}
	}
}

func TestMatFreeMatchesAssembled(t *testing.T) {
	m := mesh.UnitSquareMesh(3, 3)
	V, _ := NewFunctionSpace(m, Lagrange, 2)
	bc := NewDirichletBC(V, 0.0, mesh.TagLeft, mesh.TagRight, mesh.TagBottom, mesh.TagTop)
	var (
		a   = BilinearForm{Stiffness: NewConstant(1)}
		bcs = []*DirichletBC{bc}
		mf  = NewMatFreeOperator(a, V, bcs)
		op  = NewAssembledOperator(AssembleMatrix(a, V, bcs))
		x   = make([]float64, V.NDOF)
		ya  = make([]float64, V.NDOF)
		ym  = make([]float64, V.NDOF)
	)
	for i := range x {
		x[i] = math.Sin(float64(3 * i))
	}
	op.Apply(x, ya)
	mf.Apply(x, ym)
	for i := range ya {
		assert.InDelta(t, ya[i], ym[i], 1.e-12)
	}
	da, dm := op.Diagonal(), mf.Diagonal()
	for i := range da {
		assert.InDelta(t, da[i], dm[i], 1.e-12)
	}
	// Constrained rows act as identity in both.
	d := bc.DOFs()[0]
	assert.Equal(t, x[d], ya[d])
	assert.Equal(t, x[d], ym[d])
}

func TestRhsFormulationsAgree(t *testing.T) {
	m := mesh.UnitSquareMesh(3, 3)
	V, _ := NewFunctionSpace(m, Lagrange, 2)
	bc := NewDirichletBC(V, 0.0, mesh.TagLeft, mesh.TagRight, mesh.TagBottom, mesh.TagTop)
	bcs := []*DirichletBC{bc}

	f := NewFunction(V)
	f.Interpolate(func(x, y float64) float64 { return math.Sin(math.Pi*x) * math.Cos(y) })
	fHalf := f.Copy()
	for i := range fHalf.DOF {
		fHalf.DOF[i] *= 0.5
	}

	// The symbolic form, its pre-assembled replay, and a split sum all
	// give the same vector.
	b1, err := AssembleVector(FunctionSource{F: f}, V, bcs)
	assert.Nil(t, err)
	c, err := Assemble(FunctionSource{F: f}, V)
	assert.Nil(t, err)
	b2, err := AssembleVector(c, V, bcs)
	assert.Nil(t, err)
	b3, err := AssembleVector(Sum(FunctionSource{F: fHalf}, FunctionSource{F: fHalf}), V, bcs)
	assert.Nil(t, err)
	for i := range b1 {
		assert.InDelta(t, b1[i], b2[i], 1.e-14)
		assert.InDelta(t, b1[i], b3[i], 1.e-14)
	}

	// Assembling under a homogenized condition zeroes the boundary rows.
	bc.Homogenize()
	ch, err := Assemble(FunctionSource{F: f}, V, bc)
	assert.Nil(t, err)
	for _, d := range bc.DOFs() {
		assert.Equal(t, 0.0, ch.DOF[d])
	}
	bc.Restore()

	// A function source is tied to its space.
	W, _ := NewFunctionSpace(m, Lagrange, 1)
	_, err = Assemble(FunctionSource{F: f}, W)
	assert.NotNil(t, err)
}

func TestBoundarySource(t *testing.T) {
	m := mesh.UnitSquareMesh(2, 2)
	V, _ := NewFunctionSpace(m, Lagrange, 2)
	b, err := AssembleVector(BoundarySource{G: NewConstant(1), Tag: mesh.TagBottom}, V, nil)
	assert.Nil(t, err)
	var total float64
	for _, v := range b {
		total += v
	}
	// Integral of the constant 1 over the bottom side.
	assert.InDelta(t, 1.0, total, 1.e-13)
	// Nothing away from the tagged boundary.
	coords := V.NodeCoords()
	for i, v := range b {
		if coords[i].Y > 0.5 {
			assert.Equal(t, 0.0, v)
		}
	}
}

func TestLocalMassCondUniform(t *testing.T) {
	m := mesh.UnitSquareMesh(2, 2)
	h, err := mesh.NewHierarchy(m, 2)
	assert.Nil(t, err)
	for _, degree := range []int{1, 2} {
		V0, _ := NewFunctionSpace(h.Mesh(0), Lagrange, degree)
		V2, _ := NewFunctionSpace(h.Mesh(-1), Lagrange, degree)
		c0, c2 := LocalMassCond(V0), LocalMassCond(V2)
		// Uniform refinement only rescales the cells, so the local mass
		// conditioning must not drift across levels.
		ratio := c2 / c0
		assert.True(t, ratio < 1.1 && ratio > 1/1.1)
	}
}
