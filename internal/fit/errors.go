package fit

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrProxyBuild            = errors.New("proxy build failed")
	ErrProjection            = errors.New("projection failed")
	ErrInsufficientNeighbors = errors.New("insufficient follow neighbours")
	ErrRequiresRefit         = errors.New("parameter requires a new fit")
	ErrRequiresApply         = errors.New("parameter takes effect on apply")
	ErrInvalidState          = errors.New("invalid session state")
	ErrUnknownParameter      = errors.New("unknown parameter")
	ErrOutOfRange            = errors.New("value out of range")
	ErrGarmentLocked         = errors.New("garment already has a fit in preview")
)

// ValidationError reports invalid inputs or parameters. Err may aggregate
// several problems (see multierr.Errors).
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error        { return e.Err }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ProxyBuildError reports a garment that cannot be turned into a proxy.
type ProxyBuildError struct {
	Reason string
	Err    error
}

func (e *ProxyBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("proxy build: %s: %v", e.Reason, e.Err)
	}
	return "proxy build: " + e.Reason
}

func (e *ProxyBuildError) Unwrap() error        { return e.Err }
func (e *ProxyBuildError) Is(target error) bool { return target == ErrProxyBuild }

// ProjectionError reports a body the proxy cannot be projected onto.
type ProjectionError struct {
	Reason string
	Err    error
}

func (e *ProjectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("projection: %s: %v", e.Reason, e.Err)
	}
	return "projection: " + e.Reason
}

func (e *ProjectionError) Unwrap() error        { return e.Err }
func (e *ProjectionError) Is(target error) bool { return target == ErrProjection }

// InsufficientNeighborsError is a non-fatal warning: fewer follow
// candidates exist than requested. The returned field is still valid.
type InsufficientNeighborsError struct {
	Requested int
	Available int
}

func (e *InsufficientNeighborsError) Error() string {
	return fmt.Sprintf("follow: %d neighbours requested, %d available", e.Requested, e.Available)
}

func (e *InsufficientNeighborsError) Is(target error) bool {
	return target == ErrInsufficientNeighbors
}

// RequiresRefitError reports a parameter that only takes effect on a new
// fit (cancel and start again).
type RequiresRefitError struct {
	Param string
}

func (e *RequiresRefitError) Error() string {
	return fmt.Sprintf("parameter %q requires a new fit", e.Param)
}

func (e *RequiresRefitError) Is(target error) bool { return target == ErrRequiresRefit }

// RequiresApplyError reports a parameter that only takes effect on apply.
type RequiresApplyError struct {
	Param string
}

func (e *RequiresApplyError) Error() string {
	return fmt.Sprintf("parameter %q takes effect on apply", e.Param)
}

func (e *RequiresApplyError) Is(target error) bool { return target == ErrRequiresApply }

// InvalidStateError reports an operation called in the wrong state.
type InvalidStateError struct {
	Op       string
	State    State
	Expected []State
}

func (e *InvalidStateError) Error() string {
	want := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		want[i] = s.String()
	}
	return fmt.Sprintf("%s: session is %s, want %s", e.Op, e.State, strings.Join(want, " or "))
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }
