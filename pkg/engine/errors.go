package engine

import "errors"

// Runtime invariant violations. Each one ends the session in PhaseDeadEnd
// after the last good state has been persisted.
var (
	ErrDeadEnd         = errors.New("dead end: node has no way forward")
	ErrNoBranchMatched = errors.New("no branch condition matched and no default branch")
	ErrUnknownNode     = errors.New("unknown node")
	ErrRoutingLoop     = errors.New("too many consecutive silent transitions")
)

// Caller errors. These never change interpreter state.
var (
	ErrInvalidChoice = errors.New("invalid choice")
	ErrNotWaiting    = errors.New("not waiting")
	ErrStillWaiting  = errors.New("wait deadline has not passed")
	ErrNoSession     = errors.New("no active session")
)
