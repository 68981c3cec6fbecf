package application

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/search"
	"github.com/atvirokodosprendimai/culturalatlas/internal/typetree"
)

// Scope carries per-request state. It loads the type tree at most once and
// is thrown away when the request ends.
type Scope struct {
	svc  *GraphService
	tree *typetree.Tree
}

func (s *GraphService) NewScope() *Scope {
	return &Scope{svc: s}
}

func (sc *Scope) Tree(ctx context.Context) (*typetree.Tree, error) {
	if sc.tree != nil {
		return sc.tree, nil
	}
	tree, err := sc.svc.loadTree(ctx, sc.svc.repo)
	if err != nil {
		return nil, err
	}
	sc.tree = tree
	return tree, nil
}

// Search filters entities with the given groups. Sub type expansion uses the
// scope's tree so it happens once per call.
func (sc *Scope) Search(ctx context.Context, entities []domain.Entity, groups []search.Group) ([]domain.Entity, error) {
	tree, err := sc.Tree(ctx)
	if err != nil {
		return nil, err
	}
	out, err := search.Search(entities, groups, tree)
	if err != nil {
		sc.svc.metrics.SearchEvaluated("error")
		return nil, err
	}
	sc.svc.metrics.SearchEvaluated("ok")
	return out, nil
}

func (sc *Scope) SubIDsOf(ctx context.Context, typeID uint) ([]uint, error) {
	tree, err := sc.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(typeID); !ok {
		return nil, fmt.Errorf("type %d: %w", typeID, domain.ErrNotFound)
	}
	return tree.SubIDs(typeID), nil
}

func (sc *Scope) RootOf(ctx context.Context, typeID uint) ([]uint, error) {
	tree, err := sc.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(typeID); !ok {
		return nil, fmt.Errorf("type %d: %w", typeID, domain.ErrNotFound)
	}
	return tree.RootOf(typeID), nil
}

// Invalidate drops the cached tree after a write made through this scope.
func (sc *Scope) Invalidate() {
	sc.tree = nil
}

func (s *GraphService) loadTree(ctx context.Context, repo domain.GraphRepository) (*typetree.Tree, error) {
	records, err := repo.ListTypeRecords(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := repo.ListTypeEdges(ctx)
	if err != nil {
		return nil, err
	}
	hierarchies, err := repo.ListHierarchies(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := repo.CountTypeUsage(ctx)
	if err != nil {
		return nil, err
	}
	return typetree.Build(records, edges, hierarchies, counts), nil
}
