package attack

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultAlphabet is the printable ASCII set, letters first.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"1234567890" +
	" -_!@#$%^&*()=+[]{};:\"',<.>/?\\|~`"

// GuessOptions tunes a guessing run.
type GuessOptions struct {
	// Verify, if set, confirms the recovered secret once every
	// position is filled.
	Verify func(guess string) bool

	Logger logrus.FieldLogger
}

// GuessResult is the recovered secret and what it cost.
type GuessResult struct {
	Secret  string
	Rounds  int
	Queries int
}

// Guess recovers a secret of the given length one character per round.
//
// With the prefix known correct, the two candidates prefix+a[0] and
// prefix+a[1] give equal answers only when both are wrong, in which case
// the first later character whose answer differs is the right one. When
// they differ exactly one is right, and a third character, necessarily
// wrong, shares its answer with the wrong one. A third answer matching
// neither is impossible for an honest oracle and ends the run with
// ErrOracleContradiction.
func Guess(ctx context.Context, oracle Oracle, length int, alphabet string, opts GuessOptions) (*GuessResult, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(alphabet) < 3 {
		return nil, ErrAlphabetTooSmall
	}

	result := &GuessResult{}
	query := func(guess string) ([]byte, error) {
		result.Queries++
		return oracle.Query(guess)
	}

	prefix := ""
	for len(prefix) < length {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Rounds++

		next, err := guessNext(query, prefix, alphabet)
		if err != nil {
			result.Secret = prefix
			return result, fmt.Errorf("round %d: %w", result.Rounds, err)
		}
		prefix += string(next)
		log.WithFields(logrus.Fields{"round": result.Rounds, "prefix": prefix}).Debug("character recovered")
	}

	result.Secret = prefix
	if opts.Verify != nil && !opts.Verify(prefix) {
		return result, fmt.Errorf("recovered %q was rejected: %w", prefix, ErrExhausted)
	}
	log.WithFields(logrus.Fields{"rounds": result.Rounds, "queries": result.Queries}).Info("secret recovered")
	return result, nil
}

func guessNext(query func(string) ([]byte, error), prefix, alphabet string) (byte, error) {
	first, err := query(prefix + alphabet[0:1])
	if err != nil {
		return 0, err
	}
	second, err := query(prefix + alphabet[1:2])
	if err != nil {
		return 0, err
	}

	if bytes.Equal(first, second) {
		// Both wrong: scan for the one answer that differs.
		for i := 2; i < len(alphabet); i++ {
			answer, err := query(prefix + alphabet[i:i+1])
			if err != nil {
				return 0, err
			}
			if !bytes.Equal(answer, first) {
				return alphabet[i], nil
			}
		}
		return 0, ErrExhausted
	}

	third, err := query(prefix + alphabet[2:3])
	if err != nil {
		return 0, err
	}
	switch {
	case bytes.Equal(third, first):
		return alphabet[1], nil
	case bytes.Equal(third, second):
		return alphabet[0], nil
	default:
		return 0, ErrOracleContradiction
	}
}
