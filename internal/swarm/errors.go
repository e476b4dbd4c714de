package swarm

import "errors"

var (
	// ErrMissingArgument indicates a required input (task, agent, outcome) is empty.
	ErrMissingArgument = errors.New("missing required argument")

	// ErrInvalidOutcome indicates an outcome outside success, failure, partial.
	ErrInvalidOutcome = errors.New("outcome must be one of: success, failure, partial")

	// ErrInvalidComplexity indicates a complexity outside low, medium, high.
	ErrInvalidComplexity = errors.New("complexity must be one of: low, medium, high")

	// ErrPersistence wraps failures to save patterns or tasks.
	ErrPersistence = errors.New("failed to save pattern or task")

	// ErrMalformedState marks persisted state that could not be decoded.
	// Repositories log it and continue with an empty collection.
	ErrMalformedState = errors.New("malformed persisted state")

	// ErrInvalidRoster indicates a roster file that fails validation.
	ErrInvalidRoster = errors.New("invalid roster")
)
