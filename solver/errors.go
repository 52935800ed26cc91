package solver

import "fmt"

// NonconvergenceError reports that an iteration hit its cap before
// meeting its tolerance. The final residual is carried so callers can
// decide whether the result is still usable.
type NonconvergenceError struct {
	Method     string
	Iterations int
	Residual   float64
}

func (e *NonconvergenceError) Error() string {
	return fmt.Sprintf("%s failed to converge in %d iterations, residual %g",
		e.Method, e.Iterations, e.Residual)
}
