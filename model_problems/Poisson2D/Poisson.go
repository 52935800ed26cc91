package Poisson2D

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"

	"github.com/stephankramer/firedrake/InputParameters"
	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/multigrid"
	"github.com/stephankramer/firedrake/solver"
)

// Poisson is the model problem: -Laplace(u) = f on the unit square with
// homogeneous Dirichlet boundaries, solved by geometric multigrid on a
// uniformly refined mesh hierarchy. The forcing is chosen so that the
// exact solution sin(pi x) tan(pi x / 4) sin(pi y) is not an eigenmode
// of the operator, which stresses the preconditioner much more than a
// single Fourier mode would.
type Poisson struct {
	// Input parameters
	Nx, NLevels, Degree int
	Params              *InputParameters.SolverParameters

	H *mesh.Hierarchy
	V *fem.FunctionSpace
	U *fem.Function

	Solver *solver.NonlinearVariationalSolver

	PlotOnce sync.Once
	chart    *chart2d.Chart2D
	colorMap *utils2.ColorMap
}

func Forcing(x, y float64) float64 {
	return -0.5 * math.Pi * math.Pi *
		(4*math.Cos(math.Pi*x) - 5*math.Cos(math.Pi*x*0.5) + 2) * math.Sin(math.Pi*y)
}

func Exact(x, y float64) float64 {
	return math.Sin(math.Pi*x) * math.Tan(math.Pi*x*0.25) * math.Sin(math.Pi*y)
}

func NewPoisson(nx, nLevels, degree int, params *InputParameters.SolverParameters) (c *Poisson, err error) {
	c = &Poisson{
		Nx:      nx,
		NLevels: nLevels,
		Degree:  degree,
		Params:  params,
	}
	base := mesh.UnitSquareMesh(nx, nx)
	if c.H, err = mesh.NewHierarchy(base, nLevels); err != nil {
		return nil, err
	}
	if c.V, err = fem.NewFunctionSpace(c.H.Finest(), fem.Lagrange, degree); err != nil {
		return nil, err
	}
	c.U = fem.NewFunction(c.V)

	f := fem.NewFunction(c.V)
	f.Interpolate(Forcing)
	form := fem.AffineForm{
		A: fem.BilinearForm{Stiffness: fem.NewConstant(1)},
		L: fem.FunctionSource{F: f},
	}
	bc := fem.NewDirichletBC(c.V, 0.0, mesh.TagLeft, mesh.TagRight, mesh.TagBottom, mesh.TagTop)
	prob := solver.NewNonlinearVariationalProblem(form, c.U, bc)
	c.Solver = solver.NewNonlinearVariationalSolver(prob, params)
	c.Solver.SetTransferManager(multigrid.NewTransferManager())
	return
}

func (c *Poisson) Run(showGraph bool, graphDelay ...time.Duration) error {
	start := time.Now()
	if err := c.Solver.Solve(); err != nil {
		return err
	}
	fmt.Printf("solve time = %8.3fs, snes its = %d, ksp its = %d, residual = %8.3e\n",
		time.Since(start).Seconds(), c.Solver.SNESIterations, c.Solver.KSPIterations, c.Solver.ResidualNorm)
	fmt.Printf("L2 error vs exact solution = %8.3e\n", c.ErrorNorm())
	c.Plot(showGraph, graphDelay)
	return nil
}

// ErrorNorm is the L2 distance between the computed and exact solution.
func (c *Poisson) ErrorNorm() float64 {
	return fem.ErrorNorm(c.U, Exact)
}

// Plot draws the solution and the exact profile along the centerline
// y = 1/2 of the square.
func (c *Poisson) Plot(showGraph bool, graphDelay []time.Duration) {
	if !showGraph {
		return
	}
	type sample struct{ x, u float64 }
	var line []sample
	for i, p := range c.V.NodeCoords() {
		if math.Abs(p.Y-0.5) < 1.e-9 {
			line = append(line, sample{x: p.X, u: c.U.DOF[i]})
		}
	}
	sort.Slice(line, func(i, j int) bool { return line[i].x < line[j].x })
	var (
		xs = make([]float64, len(line))
		uh = make([]float64, len(line))
		ue = make([]float64, len(line))
	)
	for i, s := range line {
		xs[i], uh[i] = s.x, s.u
		ue[i] = Exact(s.x, 0.5)
	}
	c.PlotOnce.Do(func() {
		c.chart = chart2d.NewChart2D(1280, 1024, 0, 1, -1.1, 1.1)
		c.colorMap = utils2.NewColorMap(-1, 1, 1)
		go c.chart.Plot()
	})
	if err := c.chart.AddSeries("U", xs, uh,
		chart2d.NoGlyph, chart2d.Solid, c.colorMap.GetRGB(0)); err != nil {
		panic("unable to add graph series")
	}
	if err := c.chart.AddSeries("Exact", xs, ue,
		chart2d.CrossGlyph, chart2d.NoLine, c.colorMap.GetRGB(0.7)); err != nil {
		panic("unable to add graph series")
	}
	if len(graphDelay) != 0 {
		time.Sleep(graphDelay[0])
	}
}
