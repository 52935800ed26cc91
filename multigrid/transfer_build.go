package multigrid

import (
	"math"

	"github.com/stephankramer/firedrake/fem"
	"github.com/stephankramer/firedrake/mesh"
	"github.com/stephankramer/firedrake/utils"
)

// buildProlongation constructs the interpolation matrix from a coarse
// space to the space on its uniform refinement. Row g of the result
// holds the coarse basis functions evaluated at fine node g; a fine node
// shared by several fine cells gets its row from the first cell visited,
// which is well defined because the coarse interpolant is continuous.
func buildProlongation(coarseV, fineV *fem.FunctionSpace) utils.CSR {
	var (
		sb       = utils.NewSparseBuilder(fineV.NDOF, coarseV.NDOF)
		elem     = fineV.Elem
		rowBuilt = make([]bool, fineV.NDOF)
		nFine    = fineV.Mesh.NumCells()
	)
	for fc := 0; fc < nFine; fc++ {
		var (
			k        = fc / 4 // parent coarse cell
			child    = fc % 4
			fineDofs = fineV.CellDOFs(fc)
			crsDofs  = coarseV.CellDOFs(k)
		)
		for a, ref := range elem.RefNodes {
			g := fineDofs[a]
			if rowBuilt[g] {
				continue
			}
			rowBuilt[g] = true
			q0, q1 := mesh.ToCoarseRef(child, ref[0], ref[1])
			N := coarseV.Elem.Shape(q0, q1)
			for b, gc := range crsDofs {
				if math.Abs(N[b]) > 1.e-14 {
					sb.Set(g, gc, N[b])
				}
			}
		}
	}
	return sb.Build()
}
