package attack

import (
	"errors"
)

// Attack failures. Both are final for a run and are never retried.
var (
	// ErrOracleContradiction means three oracle answers cannot all be
	// true of a single secret: the oracle is not a match-count oracle
	// under one fixed key.
	ErrOracleContradiction = errors.New("oracle answers are mutually inconsistent")

	// ErrExhausted means every candidate was tried without a match.
	ErrExhausted = errors.New("candidates exhausted without a match")

	// ErrAlphabetTooSmall means the alphabet cannot supply the third
	// character needed to break a tie.
	ErrAlphabetTooSmall = errors.New("alphabet must contain at least 3 characters")

	// ErrGuessTooLong means a query ran past the secret's length.
	ErrGuessTooLong = errors.New("guess longer than secret")
)

// Process exit codes for attack runs.
const (
	ExitSuccess       = 0
	ExitExhausted     = 1
	ExitContradiction = 2
	ExitError         = 3
)

// ExitCode maps an attack error onto its process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrExhausted):
		return ExitExhausted
	case errors.Is(err, ErrOracleContradiction):
		return ExitContradiction
	default:
		return ExitError
	}
}
