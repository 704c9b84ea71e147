package attack

import (
	"fmt"
	"sync"

	"github.com/absfs/strongbox"
)

// countWidth is the zero-padded width of an encoded match count: one AES
// block.
const countWidth = 16

// Oracle answers a guess with an encrypted value the caller cannot decrypt.
type Oracle interface {
	Query(guess string) ([]byte, error)
}

// MatchFunc counts how many positions of guess agree with secret.
type MatchFunc func(secret, guess string) int

// PositionalMatches counts i where guess[i] == secret[i].
func PositionalMatches(secret, guess string) int {
	matches := 0
	for i := 0; i < len(guess) && i < len(secret); i++ {
		if guess[i] == secret[i] {
			matches++
		}
	}
	return matches
}

// XTSOracle encrypts the match count of each guess against a hidden secret
// with the arena cipher. Equal counts give byte-identical answers.
type XTSOracle struct {
	secret string
	cipher *strongbox.ArenaCipher
	match  MatchFunc

	mu      sync.Mutex
	queries int
	longest int
}

// NewXTSOracle creates an oracle over secret. A nil match uses
// PositionalMatches.
func NewXTSOracle(secret string, cipher *strongbox.ArenaCipher, match MatchFunc) (*XTSOracle, error) {
	if cipher == nil {
		return nil, strongbox.ErrNilCipher
	}
	if match == nil {
		match = PositionalMatches
	}
	return &XTSOracle{secret: secret, cipher: cipher, match: match}, nil
}

// Query returns Encrypt(%016d of the match count).
func (o *XTSOracle) Query(guess string) ([]byte, error) {
	if len(guess) > len(o.secret) {
		return nil, fmt.Errorf("%w: %d > %d", ErrGuessTooLong, len(guess), len(o.secret))
	}

	o.mu.Lock()
	o.queries++
	o.longest = max(o.longest, len(guess))
	o.mu.Unlock()

	encoded := fmt.Sprintf("%0*d", countWidth, o.match(o.secret, guess))
	return o.cipher.Encrypt([]byte(encoded))
}

// Verify reports whether guess is the secret exactly.
func (o *XTSOracle) Verify(guess string) bool {
	return guess == o.secret
}

// Len returns the secret's length, which the attacker is assumed to know.
func (o *XTSOracle) Len() int {
	return len(o.secret)
}

// Stats returns how many queries were made and the longest guess seen.
func (o *XTSOracle) Stats() (queries, longest int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.queries, o.longest
}
