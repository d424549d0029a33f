package model

import "errors"

var (
	// ErrShape is returned when the pieces of a model do not line up.
	ErrShape = errors.New("model: shape mismatch")
	// ErrRange is returned for a parameter outside its allowed range.
	ErrRange = errors.New("model: value out of range")
	// ErrMissingPolicy is returned when no target policy is given.
	ErrMissingPolicy = errors.New("model: target policy is required")
	// ErrMissingTheta0 is returned when no initial parameter vector is given.
	ErrMissingTheta0 = errors.New("model: theta0 is required")
	// ErrMissingValues is returned by the MSVE diagnostics when the model was
	// built without the true state values.
	ErrMissingValues = errors.New("model: v_pi must be defined to compute the msve")
	// ErrSingular is returned when the Bellman equation has no unique solution.
	ErrSingular = errors.New("model: singular bellman equation")
)
