package application

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/search"
)

// Augment selects the relations loaded next to an entity's own row. Large
// listings should only ask for what their output needs.
type Augment struct {
	Types   bool
	Aliases bool
}

var Full = Augment{Types: true, Aliases: true}

func (s *GraphService) BuildEntity(ctx context.Context, id uint, aug Augment) (domain.Entity, error) {
	items, err := s.BuildEntities(ctx, []uint{id}, aug)
	if err != nil {
		return domain.Entity{}, err
	}
	if len(items) == 0 {
		return domain.Entity{}, fmt.Errorf("entity %d: %w", id, domain.ErrNotFound)
	}
	return items[0], nil
}

// BuildEntities loads the rows in one query and each augmentation in one
// more, whatever the number of ids. The result follows the order of ids;
// unknown and repeated ids are skipped.
func (s *GraphService) BuildEntities(ctx context.Context, ids []uint, aug Augment) ([]domain.Entity, error) {
	unique := dedupeIDs(ids)
	rows, err := s.repo.GetEntities(ctx, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]domain.Entity, len(rows))
	for _, e := range rows {
		byID[e.ID] = e
	}
	ordered := make([]domain.Entity, 0, len(rows))
	for _, id := range unique {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
		}
	}
	return s.augment(ctx, ordered, aug)
}

func (s *GraphService) EntitiesByClass(ctx context.Context, classes []domain.SystemClass, aug Augment, limit int) ([]domain.Entity, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("at least one system class is required: %w", domain.ErrInvalidArgument)
	}
	for _, c := range classes {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown system class %q: %w", c, domain.ErrInvalidArgument)
		}
	}
	rows, err := s.repo.ListEntitiesByClass(ctx, classes, limit)
	if err != nil {
		return nil, err
	}
	return s.augment(ctx, rows, aug)
}

func (s *GraphService) EntitiesByView(ctx context.Context, view string, aug Augment, limit int) ([]domain.Entity, error) {
	classes := domain.ClassesOfView(view)
	if len(classes) == 0 {
		return nil, fmt.Errorf("unknown view %q: %w", view, domain.ErrInvalidArgument)
	}
	return s.EntitiesByClass(ctx, classes, aug, limit)
}

func (s *GraphService) augment(ctx context.Context, entities []domain.Entity, aug Augment) ([]domain.Entity, error) {
	if len(entities) == 0 || (!aug.Types && !aug.Aliases) {
		return entities, nil
	}
	ids := make([]uint, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	if aug.Types {
		types, err := s.repo.TypesFor(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range entities {
			entities[i].Types = types[entities[i].ID]
		}
	}
	if aug.Aliases {
		aliases, err := s.repo.AliasesFor(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range entities {
			entities[i].Aliases = aliases[entities[i].ID]
		}
	}
	return entities, nil
}

// Query selects entities by ids, by system classes or by view, filters them
// with search groups and truncates to a page.
type Query struct {
	IDs     []uint
	Classes []domain.SystemClass
	View    string
	Groups  []search.Group
	Limit   int
}

func (s *GraphService) QueryEntities(ctx context.Context, scope *Scope, q Query) ([]domain.Entity, error) {
	var (
		items []domain.Entity
		err   error
	)
	switch {
	case len(q.IDs) > 0:
		items, err = s.BuildEntities(ctx, q.IDs, Full)
	case len(q.Classes) > 0:
		items, err = s.EntitiesByClass(ctx, q.Classes, Full, 0)
	case q.View != "":
		items, err = s.EntitiesByView(ctx, q.View, Full, 0)
	default:
		return nil, fmt.Errorf("ids, system class or view is required: %w", domain.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}
	if len(q.Groups) > 0 {
		items, err = scope.Search(ctx, items, q.Groups)
		if err != nil {
			return nil, err
		}
	}
	if limit := s.clampLimit(q.Limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Bundle is an entity with everything its exports need: both link
// directions and the geometries of its location.
type Bundle struct {
	Entity       domain.Entity
	Links        []domain.Link
	InverseLinks []domain.Link
	Geometries   []domain.Geometry
}

// Bundles loads links and geometries for many entities with one query per
// kind.
func (s *GraphService) Bundles(ctx context.Context, entities []domain.Entity) ([]Bundle, error) {
	ids := make([]uint, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	forward, err := s.repo.GetLinks(ctx, ids, nil, false)
	if err != nil {
		return nil, err
	}
	inverse, err := s.repo.GetLinks(ctx, ids, nil, true)
	if err != nil {
		return nil, err
	}
	geoms, err := s.LocationGeometries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Bundle, 0, len(entities))
	index := make(map[uint]int, len(entities))
	for _, e := range entities {
		index[e.ID] = len(out)
		out = append(out, Bundle{Entity: e, Geometries: geoms[e.ID]})
	}
	for _, l := range forward {
		if i, ok := index[l.Domain.ID]; ok {
			out[i].Links = append(out[i].Links, l)
		}
	}
	for _, l := range inverse {
		if i, ok := index[l.Range.ID]; ok {
			out[i].InverseLinks = append(out[i].InverseLinks, l)
		}
	}
	return out, nil
}
