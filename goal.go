package strongbox

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// GoalFileExt is the extension of exported goal records.
const GoalFileExt = ".goal"

// fingerprintLen is how many hex characters of the content hash are kept.
const fingerprintLen = 5

// GoalFile is a file chosen at bootstrap as an attack target. Its record,
// content included, is exported so a harness can check the attack result.
type GoalFile struct {
	ID       uuid.UUID
	Name     string
	Path     string
	Size     int
	Contents []byte
}

// Fingerprint returns a truncated SHA-256 of the contents.
func (g *GoalFile) Fingerprint() string {
	sum := sha256.Sum256(g.Contents)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// WriteTo serializes the record: header lines followed by raw contents.
func (g *GoalFile) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id:%s\n", g.ID)
	fmt.Fprintf(&buf, "file:%s\n", g.Name)
	fmt.Fprintf(&buf, "path:%s\n", g.Path)
	fmt.Fprintf(&buf, "hash:%s\n", g.Fingerprint())
	fmt.Fprintf(&buf, "size:%d\n", g.Size)
	buf.Write(g.Contents)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ParseGoalFile reads a record written by WriteTo. The fingerprint header is
// checked against the contents.
func ParseGoalFile(r io.Reader) (*GoalFile, error) {
	br := bufio.NewReader(r)
	g := &GoalFile{}
	var hash string

	for _, key := range []string{"id", "file", "path", "hash", "size"} {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, NewCorruptionError("", fmt.Sprintf("goal record truncated before %q", key))
		}
		k, v, ok := strings.Cut(strings.TrimSuffix(line, "\n"), ":")
		if !ok || k != key {
			return nil, NewCorruptionError("", fmt.Sprintf("goal record: expected %q header, got %q", key, line))
		}
		switch key {
		case "id":
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, NewCorruptionError("", fmt.Sprintf("goal record: bad id: %v", err))
			}
			g.ID = id
		case "file":
			g.Name = v
		case "path":
			g.Path = v
		case "hash":
			hash = v
		case "size":
			size, err := strconv.Atoi(v)
			if err != nil || size < 0 {
				return nil, NewCorruptionError("", fmt.Sprintf("goal record: bad size %q", v))
			}
			g.Size = size
		}
	}

	contents, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read goal contents: %w", err)
	}
	if len(contents) != g.Size {
		return nil, NewCorruptionError(g.Path, fmt.Sprintf("goal holds %d bytes, header says %d", len(contents), g.Size))
	}
	g.Contents = contents
	if g.Fingerprint() != hash {
		return nil, NewCorruptionError(g.Path, "goal fingerprint mismatch")
	}
	return g, nil
}

// ExportGoals removes stale *.goal records from dir on store and writes one
// record per goal.
func ExportGoals(store Store, dir string, goals []*GoalFile) error {
	if store == nil {
		return ErrNilStore
	}
	dir = storePath(dir)
	if err := store.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create goal dir: %w", err)
	}

	names, err := listDir(store, dir)
	if err != nil {
		return fmt.Errorf("failed to list goal dir: %w", err)
	}
	for _, name := range names {
		if strings.HasSuffix(name, GoalFileExt) {
			if err := store.Remove(storePath(dir, name)); err != nil {
				return fmt.Errorf("failed to remove stale goal %s: %w", name, err)
			}
		}
	}

	for _, g := range goals {
		var buf bytes.Buffer
		if _, err := g.WriteTo(&buf); err != nil {
			return err
		}
		if err := writeFile(store, storePath(dir, g.Name+GoalFileExt), buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write goal %s: %w", g.Name, err)
		}
	}
	return nil
}

// LoadGoals reads every *.goal record in dir, sorted by name.
func LoadGoals(store Store, dir string) ([]*GoalFile, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	dir = storePath(dir)
	names, err := listDir(store, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list goal dir: %w", err)
	}
	sort.Strings(names)

	var goals []*GoalFile
	for _, name := range names {
		if !strings.HasSuffix(name, GoalFileExt) {
			continue
		}
		data, err := readFile(store, storePath(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read goal %s: %w", name, err)
		}
		g, err := ParseGoalFile(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("goal %s: %w", name, err)
		}
		goals = append(goals, g)
	}
	return goals, nil
}
