package strongbox

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults for a freshly bootstrapped filesystem.
const (
	DefaultFileSize          = 512
	DefaultFiles             = 10
	DefaultGoalFiles         = 1
	DefaultGoalDir           = "goals"
	DefaultPlaintextSnapshot = "backend.data"
	DefaultCipherSnapshot    = "backend_xts.data"

	// MinFileSize is the AES block size; XTS cannot encrypt less.
	MinFileSize = 16
)

// Config contains configuration for the filesystem and its snapshots
type Config struct {
	// FileSize is the fixed size of every file window in bytes
	FileSize int `yaml:"file_size"`

	// Files is the number of bootstrap steps (files plus directories)
	Files int `yaml:"files"`

	// GoalFiles is how many of the created files are exported as goals
	GoalFiles int `yaml:"goal_files"`

	// GoalDir is the directory on the store that receives *.goal records
	GoalDir string `yaml:"goal_dir"`

	// PlaintextSnapshot and CipherSnapshot name the durable artifacts
	PlaintextSnapshot string `yaml:"plaintext_snapshot"`
	CipherSnapshot    string `yaml:"cipher_snapshot"`

	// Seed drives the bootstrap RNG. Zero picks a time-based seed.
	Seed uint64 `yaml:"seed"`

	// Key is an optional hex-encoded 64-byte AES-256-XTS key. Empty
	// generates a random key for the lifetime of the process.
	Key string `yaml:"key"`

	// Tweak is the XTS sector number used for the whole arena. Only
	// consulted when Key is set.
	Tweak uint64 `yaml:"tweak"`

	// Debug enables debug logging and FUSE request tracing
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		FileSize:          DefaultFileSize,
		Files:             DefaultFiles,
		GoalFiles:         DefaultGoalFiles,
		GoalDir:           DefaultGoalDir,
		PlaintextSnapshot: DefaultPlaintextSnapshot,
		CipherSnapshot:    DefaultCipherSnapshot,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig. Fields
// missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.FileSize < MinFileSize {
		return NewValidationError("file_size", c.FileSize,
			fmt.Sprintf("must be at least %d bytes", MinFileSize))
	}
	if c.FileSize%MinFileSize != 0 {
		return NewValidationError("file_size", c.FileSize,
			fmt.Sprintf("must be a multiple of %d bytes", MinFileSize))
	}
	if c.GoalFiles < 1 {
		return NewValidationError("goal_files", c.GoalFiles, "at least one goal file is required")
	}
	if c.Files < 1 {
		return NewValidationError("files", c.Files, "at least one file is required")
	}
	if c.Files < c.GoalFiles {
		return NewValidationError("files", c.Files, "cannot be smaller than goal_files")
	}
	if c.GoalDir == "" {
		return NewValidationError("goal_dir", c.GoalDir, "cannot be empty")
	}
	if c.PlaintextSnapshot == "" || c.CipherSnapshot == "" {
		return NewValidationError("snapshot", nil, "snapshot names cannot be empty")
	}
	if c.PlaintextSnapshot == c.CipherSnapshot {
		return NewValidationError("snapshot", c.CipherSnapshot, "plaintext and cipher snapshots must differ")
	}
	return nil
}

// Attributes describes a node the way stat(2) would.
type Attributes struct {
	Mode  os.FileMode
	Nlink int
	Size  int64
}

// IsDir reports whether the attributes describe a directory.
func (a Attributes) IsDir() bool {
	return a.Mode.IsDir()
}
