package strongbox

import (
	"strings"
)

type nodeID int

const rootID nodeID = 0

// node is a directory or file entry in the tree table. Directories own
// their children by index; parent is a non-owning back-reference.
type node struct {
	name     string
	parent   nodeID
	dir      bool
	children map[string]nodeID
	order    []string
	window   Window
}

// tree is the namespace: an index-addressed table of nodes rooted at 0.
type tree struct {
	nodes []node
}

func newTree() *tree {
	return &tree{
		nodes: []node{{
			name:     "/",
			parent:   rootID,
			dir:      true,
			children: make(map[string]nodeID),
		}},
	}
}

func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

func (t *tree) get(id nodeID) *node {
	return &t.nodes[id]
}

// lookup resolves a single name inside a directory.
func (t *tree) lookup(dir nodeID, name string) (nodeID, error) {
	n := t.get(dir)
	if !n.dir {
		return 0, ErrNotFound
	}
	switch name {
	case ".":
		return dir, nil
	case "..":
		return n.parent, nil
	}
	child, ok := n.children[name]
	if !ok {
		return 0, ErrNotFound
	}
	return child, nil
}

// resolve walks an absolute path from the root.
func (t *tree) resolve(path string) (nodeID, error) {
	id := rootID
	for _, segment := range splitPath(path) {
		next, err := t.lookup(id, segment)
		if err != nil {
			return 0, err
		}
		id = next
	}
	return id, nil
}

// insert adds n under parent. An existing entry with the same name is
// replaced in place; the old node stays in the table, unreachable.
func (t *tree) insert(parent nodeID, n node) (nodeID, error) {
	p := t.get(parent)
	if !p.dir {
		return 0, ErrNotDirectory
	}
	if !validName(n.name) {
		return 0, ErrInvalid
	}

	n.parent = parent
	if n.dir && n.children == nil {
		n.children = make(map[string]nodeID)
	}
	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)

	// p may have moved with the append
	p = t.get(parent)
	if _, exists := p.children[n.name]; !exists {
		p.order = append(p.order, n.name)
	}
	p.children[n.name] = id
	return id, nil
}

// entries lists a directory: ".", "..", then children in insertion order.
func (t *tree) entries(dir nodeID) []string {
	n := t.get(dir)
	names := make([]string, 0, len(n.order)+2)
	names = append(names, ".", "..")
	names = append(names, n.order...)
	return names
}

func (t *tree) pathOf(id nodeID) string {
	if id == rootID {
		return "/"
	}
	var parts []string
	for id != rootID {
		n := t.get(id)
		parts = append(parts, n.name)
		id = n.parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// walk visits every reachable node depth-first in listing order.
func (t *tree) walk(id nodeID, fn func(id nodeID) error) error {
	if err := fn(id); err != nil {
		return err
	}
	n := t.get(id)
	if !n.dir {
		return nil
	}
	for _, name := range n.order {
		if err := t.walk(n.children[name], fn); err != nil {
			return err
		}
	}
	return nil
}
