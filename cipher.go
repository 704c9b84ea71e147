package strongbox

import (
	"crypto/aes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/xts"
)

// KeySize is the XTS key length: two AES-256 keys.
const KeySize = 64

// CipherKey is the key and tweak used for every snapshot a process writes.
// It is built once and shared by reference; nothing mutates it.
type CipherKey struct {
	Key   []byte
	Tweak uint64
}

// NewCipherKey draws a random key and tweak.
func NewCipherKey() (*CipherKey, error) {
	buf := make([]byte, KeySize+8)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &CipherKey{
		Key:   buf[:KeySize],
		Tweak: binary.LittleEndian.Uint64(buf[KeySize:]),
	}, nil
}

// ParseCipherKey decodes a hex key for reproducible runs.
func ParseCipherKey(keyHex string, tweak uint64) (*CipherKey, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, NewValidationError("key", len(keyHex), "key must be hex encoded")
	}
	if len(key) != KeySize {
		return nil, NewValidationError("key", len(key),
			fmt.Sprintf("XTS requires a %d-byte key, got %d bytes", KeySize, len(key)))
	}
	return &CipherKey{Key: key, Tweak: tweak}, nil
}

// KeyEnvVar names the environment variable consulted for a hex key when
// the config does not carry one.
const KeyEnvVar = "STRONGBOX_KEY"

// CipherKeyFromConfig parses cfg.Key, falling back to $STRONGBOX_KEY, and
// generates a fresh key when neither is set.
func CipherKeyFromConfig(cfg *Config) (*CipherKey, error) {
	keyHex := cfg.Key
	if keyHex == "" {
		keyHex = os.Getenv(KeyEnvVar)
	}
	if keyHex == "" {
		return NewCipherKey()
	}
	return ParseCipherKey(keyHex, cfg.Tweak)
}

// ArenaCipher encrypts a whole arena as one XTS sector. Equal plaintext
// at equal offsets always produces equal ciphertext.
type ArenaCipher struct {
	xts   *xts.Cipher
	tweak uint64
}

// NewArenaCipher creates an AES-256-XTS cipher for key.
func NewArenaCipher(key *CipherKey) (*ArenaCipher, error) {
	if key == nil {
		return nil, ErrNilCipher
	}
	if len(key.Key) != KeySize {
		return nil, NewValidationError("key", len(key.Key),
			fmt.Sprintf("XTS requires a %d-byte key, got %d bytes", KeySize, len(key.Key)))
	}

	c, err := xts.NewCipher(aes.NewCipher, key.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XTS cipher: %w", err)
	}
	return &ArenaCipher{xts: c, tweak: key.Tweak}, nil
}

func checkBlocks(n int) error {
	if n%aes.BlockSize != 0 {
		return NewValidationError("length", n,
			fmt.Sprintf("must be a multiple of %d bytes", aes.BlockSize))
	}
	return nil
}

// Encrypt returns the ciphertext of plaintext. The output has the same length.
func (c *ArenaCipher) Encrypt(plaintext []byte) ([]byte, error) {
	if err := checkBlocks(len(plaintext)); err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	if len(plaintext) > 0 {
		c.xts.Encrypt(out, plaintext, c.tweak)
	}
	return out, nil
}

// Decrypt reverses Encrypt.
func (c *ArenaCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := checkBlocks(len(ciphertext)); err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	if len(ciphertext) > 0 {
		c.xts.Decrypt(out, ciphertext, c.tweak)
	}
	return out, nil
}
