package strongbox

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// SnapshotFiles is raw access to the durable plaintext and cipher
// snapshots. It holds no key: this is everything an observer of the
// storage medium can see and change.
type SnapshotFiles struct {
	store      Store
	plainPath  string
	cipherPath string
}

// NewSnapshotFiles returns the snapshot pair named by cfg on store.
func NewSnapshotFiles(store Store, cfg *Config) (*SnapshotFiles, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return &SnapshotFiles{
		store:      store,
		plainPath:  storePath(cfg.PlaintextSnapshot),
		cipherPath: storePath(cfg.CipherSnapshot),
	}, nil
}

// Plaintext reads the durable plaintext snapshot.
func (s *SnapshotFiles) Plaintext() ([]byte, error) {
	b, err := readFile(s.store, s.plainPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read plaintext snapshot: %w", err)
	}
	return b, nil
}

// Cipher reads the durable cipher snapshot.
func (s *SnapshotFiles) Cipher() ([]byte, error) {
	b, err := readFile(s.store, s.cipherPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cipher snapshot: %w", err)
	}
	return b, nil
}

// WritePlaintext replaces the durable plaintext snapshot.
func (s *SnapshotFiles) WritePlaintext(b []byte) error {
	if err := writeFile(s.store, s.plainPath, b); err != nil {
		return fmt.Errorf("failed to write plaintext snapshot: %w", err)
	}
	return nil
}

// WriteCipher replaces the durable cipher snapshot.
func (s *SnapshotFiles) WriteCipher(b []byte) error {
	if err := writeFile(s.store, s.cipherPath, b); err != nil {
		return fmt.Errorf("failed to write cipher snapshot: %w", err)
	}
	return nil
}

// Digest is a short BLAKE3 fingerprint of a snapshot, for logs.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Mirror keeps the durable snapshots in step with the arena. The cipher
// snapshot is always Encrypt(plaintext snapshot) after Commit or Restore.
type Mirror struct {
	*SnapshotFiles
	cipher *ArenaCipher
	log    logrus.FieldLogger

	registry metrics.Registry
	commits  metrics.Counter
	restores metrics.Counter
	persist  metrics.Timer
}

// NewMirror pairs snapshot files with the process cipher.
func NewMirror(files *SnapshotFiles, cipher *ArenaCipher, log logrus.FieldLogger) (*Mirror, error) {
	if files == nil {
		return nil, ErrNilStore
	}
	if cipher == nil {
		return nil, ErrNilCipher
	}
	if log == nil {
		log = discardLogger()
	}
	r := metrics.NewRegistry()
	return &Mirror{
		SnapshotFiles: files,
		cipher:        cipher,
		log:           log,
		registry:      r,
		commits:       metrics.GetOrRegisterCounter("snapshot.commits", r),
		restores:      metrics.GetOrRegisterCounter("snapshot.restores", r),
		persist:       metrics.GetOrRegisterTimer("snapshot.persist", r),
	}, nil
}

// Metrics returns the registry holding the mirror's counters and timers.
func (m *Mirror) Metrics() metrics.Registry {
	return m.registry
}

// Counts returns how many commits and restores have completed.
func (m *Mirror) Counts() (commits, restores int64) {
	return m.commits.Count(), m.restores.Count()
}

// Commit persists plaintext and its ciphertext.
func (m *Mirror) Commit(plaintext []byte) error {
	if err := m.WritePlaintext(plaintext); err != nil {
		return err
	}
	if err := m.persistCipher(plaintext, "commit"); err != nil {
		return err
	}
	m.commits.Inc(1)
	return nil
}

// Restore reloads the durable plaintext snapshot into be and re-persists
// the matching ciphertext. Any uncommitted arena edits are lost.
func (m *Mirror) Restore(be *backend) error {
	plaintext, err := m.Plaintext()
	if err != nil {
		return err
	}
	if err := be.load(plaintext); err != nil {
		return fmt.Errorf("failed to restore %s: %w", m.plainPath, err)
	}
	if err := m.persistCipher(plaintext, "restore"); err != nil {
		return err
	}
	m.restores.Inc(1)
	return nil
}

func (m *Mirror) persistCipher(plaintext []byte, op string) error {
	defer m.persist.UpdateSince(time.Now())

	ciphertext, err := m.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	if err := m.WriteCipher(ciphertext); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"op":     op,
		"bytes":  len(plaintext),
		"plain":  Digest(plaintext),
		"cipher": Digest(ciphertext),
	}).Debug("snapshot persisted")
	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
