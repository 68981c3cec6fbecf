// Package typetree resolves the forest of vocabulary types: ancestors,
// descendants, hierarchy categories and usage counts.
package typetree

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

type Node struct {
	ID          uint
	Class       domain.SystemClass
	Name        string
	Description string
	ParentID    uint
	// Root lists ancestor ids, nearest parent first.
	Root      []uint
	Subs      []uint
	Category  string
	Multiple  bool
	Count     int
	CountSubs int
	First     string
	Last      string
}

// Hierarchy returns the id of the top-level node this node belongs to.
func (n Node) Hierarchy() uint {
	if len(n.Root) == 0 {
		return n.ID
	}
	return n.Root[len(n.Root)-1]
}

type Tree struct {
	nodes map[uint]*Node
}

// Build assembles the forest. Edges are applied in link id order and a child
// keeps only its first parent. Edges pointing at unknown nodes are ignored.
func Build(records []domain.TypeRecord, edges []domain.ParentEdge, hierarchies []domain.Hierarchy, counts map[uint]int) *Tree {
	t := &Tree{nodes: make(map[uint]*Node, len(records))}
	for _, rec := range records {
		t.nodes[rec.ID] = &Node{
			ID:          rec.ID,
			Class:       rec.Class,
			Name:        rec.Name,
			Description: rec.Description,
			Count:       counts[rec.ID],
			First:       rec.BeginFrom,
			Last:        rec.EndTo,
		}
	}

	sorted := slices.Clone(edges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LinkID < sorted[j].LinkID })
	for _, e := range sorted {
		child, ok := t.nodes[e.ChildID]
		if !ok || child.ParentID != 0 || e.ChildID == e.ParentID {
			continue
		}
		parent, ok := t.nodes[e.ParentID]
		if !ok {
			continue
		}
		child.ParentID = parent.ID
		parent.Subs = append(parent.Subs, child.ID)
	}

	for _, n := range t.nodes {
		sort.Slice(n.Subs, func(i, j int) bool {
			a, b := t.nodes[n.Subs[i]], t.nodes[n.Subs[j]]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		})
	}

	byType := make(map[uint]domain.Hierarchy, len(hierarchies))
	for _, h := range hierarchies {
		byType[h.TypeID] = h
	}
	for _, n := range t.nodes {
		n.Root = t.walkUp(n.ID)
		h, ok := byType[n.Hierarchy()]
		if ok {
			n.Category = h.Category
			n.Multiple = h.Multiple
		} else {
			n.Category = domain.CategoryCustom
		}
	}
	for _, n := range t.nodes {
		n.CountSubs = n.Count
		for _, id := range t.SubIDs(n.ID) {
			n.CountSubs += t.nodes[id].Count
		}
	}
	return t
}

func (t *Tree) Get(id uint) (Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	out := *n
	out.Root = slices.Clone(n.Root)
	out.Subs = slices.Clone(n.Subs)
	return out, true
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// SubIDs returns every id reachable through subs, breadth first, never
// including id itself. Cyclic data is walked once.
func (t *Tree) SubIDs(id uint) []uint {
	start, ok := t.nodes[id]
	if !ok {
		return nil
	}
	seen := map[uint]struct{}{id: {}}
	out := make([]uint, 0)
	queue := slices.Clone(start.Subs)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, dup := seen[cur]; dup {
			continue
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
		if n, ok := t.nodes[cur]; ok {
			queue = append(queue, n.Subs...)
		}
	}
	return out
}

// RootOf returns the ancestors of id, nearest first.
func (t *Tree) RootOf(id uint) []uint {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.Root)
}

func (t *Tree) walkUp(id uint) []uint {
	seen := map[uint]struct{}{id: {}}
	out := make([]uint, 0)
	cur := t.nodes[id]
	for cur != nil && cur.ParentID != 0 {
		if _, dup := seen[cur.ParentID]; dup {
			break
		}
		seen[cur.ParentID] = struct{}{}
		out = append(out, cur.ParentID)
		cur = t.nodes[cur.ParentID]
	}
	return out
}

// ValidateParent checks that moving id below parentID keeps the forest
// acyclic and inside one hierarchy.
func (t *Tree) ValidateParent(id, parentID uint) error {
	if id == parentID {
		return domain.ErrTypeSelfParent
	}
	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("type %d: %w", id, domain.ErrNotFound)
	}
	parent, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("type %d: %w", parentID, domain.ErrNotFound)
	}
	if slices.Contains(parent.Root, id) {
		return domain.ErrTypeCycle
	}
	if node.Hierarchy() != parent.Hierarchy() {
		return fmt.Errorf("type %d is outside hierarchy %d: %w", parentID, node.Hierarchy(), domain.ErrInvalidArgument)
	}
	return nil
}

// Editable is false for system types and for the top node of a standard
// hierarchy.
func (t *Tree) Editable(id uint) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	if n.Category == domain.CategorySystem {
		return false
	}
	if n.Category == domain.CategoryStandard && len(n.Root) == 0 {
		return false
	}
	return true
}

func (t *Tree) Roots() []Node {
	out := make([]Node, 0)
	for _, n := range t.nodes {
		if n.ParentID == 0 {
			out = append(out, *n)
		}
	}
	sortNodes(out)
	return out
}

func (t *Tree) Nodes() []Node {
	out := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		node, _ := t.Get(n.ID)
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Path returns the names from the hierarchy top down to id, joined by " > ".
func (t *Tree) Path(id uint) string {
	n, ok := t.nodes[id]
	if !ok {
		return ""
	}
	names := make([]string, 0, len(n.Root)+1)
	for i := len(n.Root) - 1; i >= 0; i-- {
		names = append(names, t.nodes[n.Root[i]].Name)
	}
	names = append(names, n.Name)
	return strings.Join(names, " > ")
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
}
