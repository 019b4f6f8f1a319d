package model

import (
	"errors"
	"fmt"
)

var (
	ErrInfeasible   = errors.New("no course selection satisfies every constraint")
	ErrUnbounded    = errors.New("objective is unbounded, the model is defective")
	ErrNoSolution   = errors.New("solver limit reached before any feasible course selection was found")
	ErrVerification = errors.New("plan violates the selection rules")
)

// ValidationError reports malformed input detected before the model is built
type ValidationError struct {
	Code   string // Course code the error refers to, if any
	Field  string
	Reason string
}

func (err *ValidationError) Error() string {
	if err.Code == "" {
		return fmt.Sprintf("invalid %v: %v", err.Field, err.Reason)
	}
	return fmt.Sprintf("invalid course %q: %v %v", err.Code, err.Field, err.Reason)
}

// SolverError reports a failure of the solver itself, as opposed to an infeasible or unbounded model
type SolverError struct {
	Solver string
	Err    error
}

func (err *SolverError) Error() string {
	return fmt.Sprintf("solver %v failed: %v", err.Solver, err.Err)
}

func (err *SolverError) Unwrap() error {
	return err.Err
}
