package presentation

import (
	"strconv"

	"github.com/atvirokodosprendimai/culturalatlas/internal/typetree"
)

type TypeNodeJSON struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// OriginID stays null until imported types carry their source id.
	OriginID    *uint  `json:"origin_id"`
	First       string `json:"first,omitempty"`
	Last        string `json:"last,omitempty"`
	Root        []uint `json:"root"`
	Subs        []uint `json:"subs"`
	Count       int    `json:"count"`
	CountSubs   int    `json:"count_subs"`
	Category    string `json:"category"`
	Multiple    bool   `json:"multiple"`
}

func TypeNode(n typetree.Node) TypeNodeJSON {
	root := n.Root
	if root == nil {
		root = []uint{}
	}
	subs := n.Subs
	if subs == nil {
		subs = []uint{}
	}
	return TypeNodeJSON{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		First:       n.First,
		Last:        n.Last,
		Root:        root,
		Subs:        subs,
		Count:       n.Count,
		CountSubs:   n.CountSubs,
		Category:    n.Category,
		Multiple:    n.Multiple,
	}
}

// TypeTree keys every node by its id.
func TypeTree(tree *typetree.Tree) map[string]TypeNodeJSON {
	nodes := tree.Nodes()
	out := make(map[string]TypeNodeJSON, len(nodes))
	for _, n := range nodes {
		out[strconv.FormatUint(uint64(n.ID), 10)] = TypeNode(n)
	}
	return out
}
