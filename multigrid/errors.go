package multigrid

import (
	"fmt"

	"github.com/stephankramer/firedrake/fem"
)

// IncompatibleSpacesError reports a transfer between function spaces
// that do not share an element definition or are not adjacent levels of
// one mesh hierarchy.
type IncompatibleSpacesError struct {
	Coarse, Fine *fem.FunctionSpace
	Reason       string
}

func (e *IncompatibleSpacesError) Error() string {
	return fmt.Sprintf("incompatible spaces for transfer: %s", e.Reason)
}

// CoarseSolveError is fatal to a multigrid cycle: the coarsest-level
// direct solve could not be factorized.
type CoarseSolveError struct {
	Level int
	Err   error
}

func (e *CoarseSolveError) Error() string {
	return fmt.Sprintf("coarse-level direct solve failed on level %d: %v", e.Level, e.Err)
}

func (e *CoarseSolveError) Unwrap() error { return e.Err }

// UnexpectedRebuildError reports that a transfer manager was implicitly
// constructed although the caller had contracted reuse.
type UnexpectedRebuildError struct {
	Detail string
}

func (e *UnexpectedRebuildError) Error() string {
	return fmt.Sprintf("transfer manager rebuilt unexpectedly: %s", e.Detail)
}
