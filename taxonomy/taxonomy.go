// Package taxonomy loads and validates the fixed category tree that products
// are classified into. The tree is built once from a tabular definition and
// is immutable afterwards.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Row is one line of the tabular taxonomy definition.
type Row struct {
	ID       int
	Name     string
	ParentID int // 0 means root
}

// Node is a single category in the taxonomy tree.
type Node struct {
	ID       int
	Name     string
	ParentID int   // 0 for roots
	Path     []int // ancestor ids, root first, self last
}

// PathString returns the dot-joined id chain, e.g. "1.2.3".
func (n *Node) PathString() string {
	parts := make([]string, len(n.Path))
	for i, id := range n.Path {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ".")
}

// Tree holds the loaded taxonomy as an arena of nodes addressed by id.
// Parent/child relationships are kept as id mappings rather than mutual
// pointers so the structure has no ownership cycles.
type Tree struct {
	nodes    map[int]*Node
	children map[int][]int
	ids      []int // all ids in ascending order
}

// Load builds a Tree from definition rows and validates its structure.
// It returns a *MalformedTaxonomyError when the definition has duplicate
// ids, dangling parent references, or cycles.
func Load(rows []Row) (*Tree, error) {
	t := &Tree{
		nodes:    make(map[int]*Node, len(rows)),
		children: make(map[int][]int),
	}

	for _, r := range rows {
		if r.ID <= 0 {
			return nil, &MalformedTaxonomyError{ID: r.ID, Reason: "id must be a positive integer"}
		}
		if strings.TrimSpace(r.Name) == "" {
			return nil, &MalformedTaxonomyError{ID: r.ID, Reason: "empty name"}
		}
		if _, exists := t.nodes[r.ID]; exists {
			return nil, &MalformedTaxonomyError{ID: r.ID, Reason: "duplicate id"}
		}
		t.nodes[r.ID] = &Node{ID: r.ID, Name: r.Name, ParentID: r.ParentID}
		t.ids = append(t.ids, r.ID)
	}
	sort.Ints(t.ids)

	// Resolve parents and build the adjacency mapping.
	for _, id := range t.ids {
		n := t.nodes[id]
		if n.ParentID == 0 {
			continue
		}
		if n.ParentID == n.ID {
			return nil, &MalformedTaxonomyError{ID: n.ID, Reason: "node is its own parent"}
		}
		if _, ok := t.nodes[n.ParentID]; !ok {
			return nil, &MalformedTaxonomyError{ID: n.ID, Reason: fmt.Sprintf("parent_id %d does not exist", n.ParentID)}
		}
		t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
	}

	// Materialize every node's ancestor chain. The walk doubles as cycle
	// detection: a chain longer than the node count means we looped.
	for _, id := range t.ids {
		path, err := t.resolvePath(id)
		if err != nil {
			return nil, err
		}
		t.nodes[id].Path = path
	}

	return t, nil
}

// resolvePath walks parent links from id up to a root and returns the chain
// in root-first order.
func (t *Tree) resolvePath(id int) ([]int, error) {
	var reversed []int
	cur := id
	for cur != 0 {
		reversed = append(reversed, cur)
		if len(reversed) > len(t.nodes) {
			return nil, &MalformedTaxonomyError{ID: id, Reason: "cycle in parent chain"}
		}
		cur = t.nodes[cur].ParentID
	}
	path := make([]int, len(reversed))
	for i, v := range reversed {
		path[len(reversed)-1-i] = v
	}
	return path, nil
}

// Node returns the node with the given id, or nil if it does not exist.
func (t *Tree) Node(id int) *Node {
	return t.nodes[id]
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// IDs returns all node ids in ascending order.
func (t *Tree) IDs() []int {
	out := make([]int, len(t.ids))
	copy(out, t.ids)
	return out
}

// Children returns the ids of the direct children of id, ascending.
func (t *Tree) Children(id int) []int {
	kids := t.children[id]
	out := make([]int, len(kids))
	copy(out, kids)
	sort.Ints(out)
	return out
}

// Leaves returns all nodes without children in ascending id order. Products
// are only ever classified into leaves; inner nodes exist to give the
// leaves context.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	for _, id := range t.ids {
		if len(t.children[id]) == 0 {
			out = append(out, t.nodes[id])
		}
	}
	return out
}

// DisplayPath returns the human-readable path for id, with ancestor names
// joined by " > " (e.g. "Construction > Grouting > Cementitious Grouts").
func (t *Tree) DisplayPath(id int) (string, error) {
	n := t.nodes[id]
	if n == nil {
		return "", fmt.Errorf("taxonomy: unknown node id %d", id)
	}
	names := make([]string, len(n.Path))
	for i, pid := range n.Path {
		names[i] = t.nodes[pid].Name
	}
	return strings.Join(names, " > "), nil
}

// Fingerprint returns a content hash over the whole taxonomy definition plus
// the embedding model identifier. Any change to either yields a different
// fingerprint, which is what invalidates cached index artifacts.
func (t *Tree) Fingerprint(modelID string) string {
	h := sha256.New()
	for _, id := range t.ids {
		n := t.nodes[id]
		fmt.Fprintf(h, "%d|%s|%d\n", n.ID, n.Name, n.ParentID)
	}
	fmt.Fprintf(h, "model=%s\n", modelID)
	return hex.EncodeToString(h.Sum(nil))
}
