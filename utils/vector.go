package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (R Vector) {
	if len(dataO) != 0 {
		R = Vector{mat.NewVecDense(n, dataO[0])}
	} else {
		R = Vector{mat.NewVecDense(n, make([]float64, n))}
	}
	return
}

func (v Vector) Len() int              { return v.V.Len() }
func (v Vector) AtVec(i int) float64   { return v.V.AtVec(i) }
func (v Vector) Data() []float64       { return v.V.RawVector().Data }
func (v Vector) SetVec(i int, val float64) Vector {
	v.V.SetVec(i, val)
	return v
}

func (v Vector) Copy() (R Vector) {
	var (
		data  = v.V.RawVector().Data
		dataR = make([]float64, len(data))
	)
	copy(dataR, data)
	R = NewVector(len(dataR), dataR)
	return
}

func (v Vector) Scale(a float64) Vector { // Changes receiver
	v.V.ScaleVec(a, v.V)
	return v
}

func (v Vector) Add(w Vector) Vector { // Changes receiver
	v.V.AddVec(v.V, w.V)
	return v
}

func (v Vector) Subtract(w Vector) Vector { // Changes receiver
	v.V.SubVec(v.V, w.V)
	return v
}

func (v Vector) Dot(w Vector) float64 {
	return mat.Dot(v.V, w.V)
}

func (v Vector) Norm2() (n float64) {
	for _, val := range v.V.RawVector().Data {
		n += val * val
	}
	return math.Sqrt(n)
}

func (v Vector) Min() (min float64) {
	min = math.Inf(1)
	for _, val := range v.V.RawVector().Data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	max = math.Inf(-1)
	for _, val := range v.V.RawVector().Data {
		if val > max {
			max = val
		}
	}
	return
}
