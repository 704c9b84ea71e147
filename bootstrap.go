package strongbox

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	nameAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxNameLength = 10
)

// NewRand returns the bootstrap RNG for seed; zero picks a time-based seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Filler returns the deterministic ASCII contents of the ordinal-th file.
// Every ordinal yields different bytes and the same bytes on every run.
func Filler(ordinal, size int) []byte {
	unit := fmt.Sprintf("file-%06d|", ordinal)
	return bytes.Repeat([]byte(unit), size/len(unit)+1)[:size]
}

func randomName(rng *rand.Rand) string {
	b := make([]byte, 1+rng.IntN(maxNameLength))
	for i := range b {
		b[i] = nameAlphabet[rng.IntN(len(nameAlphabet))]
	}
	return string(b)
}

// Bootstrap fills an empty fs with Config.Files randomly placed entries and
// returns the goal files among them. The last Config.GoalFiles iterations
// are forced to files while goals are still owed, so the goal count is
// always met. The result is committed before returning.
func Bootstrap(fs *FS, rng *rand.Rand) ([]*GoalFile, error) {
	cfg := fs.Config()
	run := uuid.New()
	cwd := "/"
	owed := cfg.GoalFiles
	ordinal := 0
	var goals []*GoalFile

	for i := 0; i < cfg.Files; i++ {
		isDir := rng.IntN(2) == 0

		// Drift back toward the root a random number of levels.
		for cwd != "/" && rng.IntN(2) == 0 {
			cwd = path.Dir(cwd)
		}

		entries, err := fs.List(cwd)
		if err != nil {
			return nil, err
		}
		name := randomName(rng)
		for slices.Contains(entries, name) {
			name = randomName(rng)
		}
		target := path.Join(cwd, name)

		forced := i >= cfg.Files-cfg.GoalFiles && owed > 0
		if !forced && isDir {
			if err := fs.MakeDir(target); err != nil {
				return nil, err
			}
			cwd = target
			continue
		}

		contents := Filler(ordinal, cfg.FileSize)
		ordinal++
		if err := fs.MakeFile(target, contents); err != nil {
			return nil, err
		}
		if forced || (owed > 0 && rng.IntN(2) == 0) {
			owed--
			goals = append(goals, &GoalFile{
				ID:       run,
				Name:     name,
				Path:     target,
				Size:     cfg.FileSize,
				Contents: contents,
			})
		}
	}

	if err := fs.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bootstrap: %w", err)
	}
	return goals, nil
}
