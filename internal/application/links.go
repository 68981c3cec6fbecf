package application

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

// GetLinks returns the links whose domain (or range, when inverse) is one of
// ids, ordered by link id.
func (s *GraphService) GetLinks(ctx context.Context, ids []uint, codes []string, inverse bool) ([]domain.Link, error) {
	codes, err := normalizeCodes(codes)
	if err != nil {
		return nil, err
	}
	return s.repo.GetLinks(ctx, dedupeIDs(ids), codes, inverse)
}

// GetLinkedEntity follows the first matching link by ascending link id. It
// returns nil without error when there is none.
func (s *GraphService) GetLinkedEntity(ctx context.Context, id uint, code string, inverse bool) (*domain.Entity, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	return linkedEntity(ctx, s.repo, id, code, inverse)
}

func (s *GraphService) GetLinkedEntitySafe(ctx context.Context, id uint, code string, inverse bool) (domain.Entity, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return domain.Entity{}, err
	}
	return linkedEntitySafe(ctx, s.repo, id, code, inverse)
}

func normalizeCode(code string) (string, error) {
	codes, err := normalizeCodes([]string{code})
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", fmt.Errorf("property code is required: %w", domain.ErrInvalidArgument)
	}
	return codes[0], nil
}

func (s *GraphService) GetLinkedEntities(ctx context.Context, id uint, codes []string, inverse bool) ([]domain.Entity, error) {
	links, err := s.GetLinks(ctx, []uint{id}, codes, inverse)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(links))
	for _, l := range links {
		ids = append(ids, otherEnd(l, inverse).ID)
	}
	return s.BuildEntities(ctx, ids, Augment{Types: true})
}

func (s *GraphService) UpdateLink(ctx context.Context, value domain.Link) error {
	if value.ID == 0 {
		return fmt.Errorf("link id is required: %w", domain.ErrInvalidArgument)
	}
	return s.runTx(ctx, "link.update", func(repo domain.GraphRepository) error {
		current, err := repo.GetLink(ctx, value.ID)
		if err != nil {
			return err
		}
		current.TypeID = value.TypeID
		current.Description = value.Description
		current.Timespan = value.Timespan
		return repo.UpdateLink(ctx, current)
	})
}

func (s *GraphService) DeleteLink(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("link id is required: %w", domain.ErrInvalidArgument)
	}
	return s.runTx(ctx, "link.delete", func(repo domain.GraphRepository) error {
		return repo.DeleteLink(ctx, id)
	})
}

// LocationGeometries maps each entity id to the geometries of its P53
// object location.
func (s *GraphService) LocationGeometries(ctx context.Context, ids []uint) (map[uint][]domain.Geometry, error) {
	links, err := s.repo.GetLinks(ctx, dedupeIDs(ids), []string{"P53"}, false)
	if err != nil {
		return nil, err
	}
	locationOf := make(map[uint]uint, len(links))
	locations := make([]uint, 0, len(links))
	for _, l := range links {
		if _, ok := locationOf[l.Domain.ID]; ok {
			continue
		}
		locationOf[l.Domain.ID] = l.Range.ID
		locations = append(locations, l.Range.ID)
	}
	byLocation, err := s.repo.GeometriesFor(ctx, locations)
	if err != nil {
		return nil, err
	}
	out := make(map[uint][]domain.Geometry, len(locationOf))
	for entityID, locationID := range locationOf {
		if geoms := byLocation[locationID]; len(geoms) > 0 {
			out[entityID] = geoms
		}
	}
	return out, nil
}

func linkedEntity(ctx context.Context, repo domain.GraphRepository, id uint, code string, inverse bool) (*domain.Entity, error) {
	links, err := repo.GetLinks(ctx, []uint{id}, []string{code}, inverse)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	e, err := repo.GetEntity(ctx, otherEnd(links[0], inverse).ID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func linkedEntitySafe(ctx context.Context, repo domain.GraphRepository, id uint, code string, inverse bool) (domain.Entity, error) {
	e, err := linkedEntity(ctx, repo, id, code, inverse)
	if err != nil {
		return domain.Entity{}, err
	}
	if e == nil {
		return domain.Entity{}, fmt.Errorf("entity %d has no %s link: %w", id, code, domain.ErrNotFound)
	}
	return *e, nil
}

func otherEnd(l domain.Link, inverse bool) domain.EntityRef {
	if inverse {
		return l.Domain
	}
	return l.Range
}
