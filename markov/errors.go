package markov

import "errors"

var (
	// ErrEmpty is returned for a transition matrix without states.
	ErrEmpty = errors.New("markov: empty transition matrix")
	// ErrNotSquare is returned when the transition matrix is not n×n.
	ErrNotSquare = errors.New("markov: transition matrix is not square")
	// ErrNotStochastic is returned when a row has a negative or non finite
	// entry, or does not sum to 1.
	ErrNotStochastic = errors.New("markov: transition matrix is not row stochastic")
	// ErrNoStationary is returned when no eigenvalue of the chain is 1 within
	// tolerance, or the matching eigenvector is not a distribution.
	ErrNoStationary = errors.New("markov: no stationary distribution")
	// ErrStationaryNotUnique is returned for reducible chains with several
	// unit eigenvalues.
	ErrStationaryNotUnique = errors.New("markov: stationary distribution is not unique")
	// ErrState is returned for a state index outside 0..n-1.
	ErrState = errors.New("markov: state out of range")
)
