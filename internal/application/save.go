package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/typetree"
)

type TypeInput struct {
	ID    uint   `json:"id"`
	Value string `json:"value,omitempty"`
}

// LinkInput is a relation requested by a save. Inverse makes the saved entity
// the range. ViaLocation points the link at the target's object location
// instead of the target itself.
type LinkInput struct {
	Property     string `json:"property"`
	TargetID     uint   `json:"target_id"`
	Inverse      bool   `json:"inverse,omitempty"`
	ViaLocation  bool   `json:"via_location,omitempty"`
	TypeID       *uint  `json:"type_id,omitempty"`
	Description  string `json:"description,omitempty"`
	BeginFrom    string `json:"begin_from,omitempty"`
	BeginTo      string `json:"begin_to,omitempty"`
	BeginComment string `json:"begin_comment,omitempty"`
	EndFrom      string `json:"end_from,omitempty"`
	EndTo        string `json:"end_to,omitempty"`
	EndComment   string `json:"end_comment,omitempty"`
}

// SaveInput inserts an entity when ID is zero and updates it otherwise. A nil
// Geometries leaves stored geometries untouched; an empty one clears them.
// ParentID places a type below its super; zero keeps the current one.
type SaveInput struct {
	ID           uint               `json:"id,omitempty"`
	Class        domain.SystemClass `json:"system_class"`
	ParentID     uint               `json:"parent_id,omitempty"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	BeginFrom    string             `json:"begin_from"`
	BeginTo      string             `json:"begin_to"`
	BeginComment string             `json:"begin_comment"`
	EndFrom      string             `json:"end_from"`
	EndTo        string             `json:"end_to"`
	EndComment   string             `json:"end_comment"`
	Aliases      []string           `json:"aliases"`
	Types        []TypeInput        `json:"types"`
	Links        []LinkInput        `json:"links"`
	Geometries   []GeometryInput    `json:"geometries"`
}

// fieldLinks are written from their own SaveInput fields and never from
// Links: P1 aliases, P2 types, P53 the object location, P127 the super type.
var fieldLinks = map[string]struct{}{"P1": {}, "P2": {}, "P53": {}, "P127": {}}

func (in SaveInput) timespan() domain.Timespan {
	return domain.Timespan{
		BeginFrom:    strings.TrimSpace(in.BeginFrom),
		BeginTo:      strings.TrimSpace(in.BeginTo),
		BeginComment: in.BeginComment,
		EndFrom:      strings.TrimSpace(in.EndFrom),
		EndTo:        strings.TrimSpace(in.EndTo),
		EndComment:   in.EndComment,
	}
}

func (l LinkInput) timespan() domain.Timespan {
	return domain.Timespan{
		BeginFrom:    l.BeginFrom,
		BeginTo:      l.BeginTo,
		BeginComment: l.BeginComment,
		EndFrom:      l.EndFrom,
		EndTo:        l.EndTo,
		EndComment:   l.EndComment,
	}
}

// SaveEntity writes the entity, its aliases, types, class managed links,
// requested links and location geometries in one transaction.
func (s *GraphService) SaveEntity(ctx context.Context, scope *Scope, in SaveInput) (domain.Entity, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Entity{}, fmt.Errorf("name is required: %w", domain.ErrInvalidArgument)
	}

	tree, err := scope.Tree(ctx)
	if err != nil {
		return domain.Entity{}, err
	}
	if err := validateTypes(tree, in.Types); err != nil {
		return domain.Entity{}, err
	}
	for i := range in.Links {
		codes, err := normalizeCodes([]string{in.Links[i].Property})
		if err != nil {
			return domain.Entity{}, err
		}
		if len(codes) == 0 || in.Links[i].TargetID == 0 {
			return domain.Entity{}, fmt.Errorf("link %d needs property and target_id: %w", i, domain.ErrInvalidArgument)
		}
		if _, ok := fieldLinks[codes[0]]; ok {
			return domain.Entity{}, fmt.Errorf("link %d: %s cannot be requested directly: %w", i, codes[0], domain.ErrInvalidArgument)
		}
		in.Links[i].Property = codes[0]
	}
	writeSuper, err := validateSuper(tree, in)
	if err != nil {
		return domain.Entity{}, err
	}

	op := "entity.update"
	if in.ID == 0 {
		op = "entity.insert"
		if !in.Class.Valid() || in.Class == domain.ClassObjectLocation || in.Class == domain.ClassAppellation {
			return domain.Entity{}, fmt.Errorf("system class %q cannot be saved directly: %w", in.Class, domain.ErrInvalidArgument)
		}
	}

	var saved domain.Entity
	err = s.runTx(ctx, op, func(repo domain.GraphRepository) error {
		var err error
		if in.ID == 0 {
			saved, err = insertEntity(ctx, repo, in)
		} else {
			saved, err = updateEntity(ctx, repo, in)
		}
		if err != nil {
			return err
		}
		info := saved.Class.Info()

		if err := replaceAliases(ctx, repo, saved.ID, in.Aliases, in.ID == 0); err != nil {
			return err
		}
		if err := repo.DeleteLinksByCodes(ctx, saved.ID, []string{"P2"}, false); err != nil {
			return err
		}
		for _, t := range in.Types {
			link := domain.Link{
				Property:    "P2",
				Domain:      domain.EntityRef{ID: saved.ID},
				Range:       domain.EntityRef{ID: t.ID},
				Description: strings.TrimSpace(t.Value),
			}
			if _, err := repo.InsertLink(ctx, link); err != nil {
				return err
			}
		}

		if writeSuper {
			if err := repo.DeleteLinksByCodes(ctx, saved.ID, []string{"P127"}, false); err != nil {
				return err
			}
			if _, err := repo.InsertLink(ctx, domain.Link{
				Property: "P127",
				Domain:   domain.EntityRef{ID: saved.ID},
				Range:    domain.EntityRef{ID: in.ParentID},
			}); err != nil {
				return err
			}
		}

		if err := repo.DeleteLinksByCodes(ctx, saved.ID, info.ManagedLinks, false); err != nil {
			return err
		}
		if err := repo.DeleteLinksByCodes(ctx, saved.ID, info.ManagedInverseLinks, true); err != nil {
			return err
		}
		for _, l := range in.Links {
			if err := insertRequestedLink(ctx, repo, saved.ID, l); err != nil {
				return err
			}
		}

		if in.Geometries != nil {
			if !info.HasLocation {
				return fmt.Errorf("%s has no location: %w", saved.Class, domain.ErrInvalidArgument)
			}
			location, err := linkedEntitySafe(ctx, repo, saved.ID, "P53", false)
			if err != nil {
				return err
			}
			geoms := make([]domain.Geometry, 0, len(in.Geometries))
			for _, g := range in.Geometries {
				parsed, err := parseGeometry(g)
				if err != nil {
					return err
				}
				geoms = append(geoms, parsed)
			}
			if err := repo.ReplaceGeometries(ctx, location.ID, geoms); err != nil {
				return err
			}
		}

		action := "insert"
		if in.ID != 0 {
			action = "update"
		}
		return repo.InsertLog(ctx, domain.EntityLog{
			EntityID: saved.ID,
			Action:   action,
			Metadata: map[string]any{
				"name":         saved.Name,
				"system_class": string(saved.Class),
				"links":        len(in.Links),
				"types":        len(in.Types),
				"parent_id":    in.ParentID,
			},
		})
	})
	if err != nil {
		return domain.Entity{}, err
	}
	if saved.Class.IsType() {
		scope.Invalidate()
	}
	s.log.Info("entity saved", "entity_id", saved.ID, "system_class", saved.Class, "operation", op)

	return s.BuildEntity(ctx, saved.ID, Full)
}

func insertEntity(ctx context.Context, repo domain.GraphRepository, in SaveInput) (domain.Entity, error) {
	e, err := repo.InsertEntity(ctx, domain.Entity{
		Class:       in.Class,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Timespan:    in.timespan(),
	})
	if err != nil {
		return domain.Entity{}, err
	}
	if !in.Class.Info().HasLocation {
		return e, nil
	}
	location, err := repo.InsertEntity(ctx, domain.Entity{
		Class: domain.ClassObjectLocation,
		Name:  "Location of " + in.Name,
	})
	if err != nil {
		return domain.Entity{}, err
	}
	if _, err := repo.InsertLink(ctx, domain.Link{
		Property: "P53",
		Domain:   domain.EntityRef{ID: e.ID},
		Range:    domain.EntityRef{ID: location.ID},
	}); err != nil {
		return domain.Entity{}, err
	}
	return e, nil
}

func updateEntity(ctx context.Context, repo domain.GraphRepository, in SaveInput) (domain.Entity, error) {
	current, err := repo.GetEntity(ctx, in.ID)
	if err != nil {
		return domain.Entity{}, err
	}
	if in.Class != "" && in.Class != current.Class {
		return domain.Entity{}, fmt.Errorf("system class of entity %d is %s: %w", current.ID, current.Class, domain.ErrInvalidArgument)
	}
	current.Name = in.Name
	current.Description = strings.TrimSpace(in.Description)
	current.Timespan = in.timespan()
	if err := repo.UpdateEntity(ctx, current); err != nil {
		return domain.Entity{}, err
	}
	return current, nil
}

// replaceAliases drops the appellation entities behind existing P1 links and
// creates one per non-empty alias.
func replaceAliases(ctx context.Context, repo domain.GraphRepository, id uint, aliases []string, fresh bool) error {
	if !fresh {
		current, err := repo.AliasesFor(ctx, []uint{id})
		if err != nil {
			return err
		}
		for aliasID := range current[id] {
			if err := repo.DeleteEntity(ctx, aliasID); err != nil {
				return err
			}
		}
	}
	seen := make(map[string]struct{}, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if _, ok := seen[alias]; ok {
			continue
		}
		seen[alias] = struct{}{}
		a, err := repo.InsertEntity(ctx, domain.Entity{Class: domain.ClassAppellation, Name: alias})
		if err != nil {
			return err
		}
		if _, err := repo.InsertLink(ctx, domain.Link{
			Property: "P1",
			Domain:   domain.EntityRef{ID: id},
			Range:    domain.EntityRef{ID: a.ID},
		}); err != nil {
			return err
		}
	}
	return nil
}

func insertRequestedLink(ctx context.Context, repo domain.GraphRepository, id uint, l LinkInput) error {
	target := l.TargetID
	if l.ViaLocation {
		location, err := linkedEntitySafe(ctx, repo, l.TargetID, "P53", false)
		if err != nil {
			return err
		}
		target = location.ID
	}
	link := domain.Link{
		Property:    l.Property,
		Domain:      domain.EntityRef{ID: id},
		Range:       domain.EntityRef{ID: target},
		TypeID:      l.TypeID,
		Description: strings.TrimSpace(l.Description),
		Timespan:    l.timespan(),
	}
	if l.Inverse {
		link.Domain, link.Range = link.Range, link.Domain
	}

	// a link already joining the same ends takes the new description and dates
	existing, err := repo.GetLinks(ctx, []uint{link.Domain.ID}, []string{link.Property}, false)
	if err != nil {
		return err
	}
	for _, current := range existing {
		if current.Range.ID != link.Range.ID {
			continue
		}
		current.TypeID = link.TypeID
		current.Description = link.Description
		current.Timespan = link.Timespan
		return repo.UpdateLink(ctx, current)
	}
	_, err = repo.InsertLink(ctx, link)
	return err
}

// validateSuper reports whether the save has to write a P127 edge. A new type
// may go below any known type of its own class; an existing one only moves
// inside its hierarchy and never below itself or its subs.
func validateSuper(tree *typetree.Tree, in SaveInput) (bool, error) {
	if in.ParentID == 0 {
		return false, nil
	}
	if in.ID == 0 {
		if !in.Class.IsType() {
			return false, fmt.Errorf("%s has no super type: %w", in.Class, domain.ErrInvalidArgument)
		}
		parent, ok := tree.Get(in.ParentID)
		if !ok {
			return false, fmt.Errorf("type %d: %w", in.ParentID, domain.ErrNotFound)
		}
		if parent.Class != in.Class {
			return false, fmt.Errorf("type %d is a %s: %w", in.ParentID, parent.Class, domain.ErrInvalidArgument)
		}
		return true, nil
	}

	node, ok := tree.Get(in.ID)
	if !ok {
		return false, fmt.Errorf("entity %d is not a type: %w", in.ID, domain.ErrInvalidArgument)
	}
	if node.ParentID == in.ParentID {
		return false, nil
	}
	if !tree.Editable(in.ID) {
		return false, fmt.Errorf("type %d: %w", in.ID, domain.ErrReadOnlyType)
	}
	if err := tree.ValidateParent(in.ID, in.ParentID); err != nil {
		return false, err
	}
	return true, nil
}

// validateTypes checks that every attached id is a known type, that value
// types carry numbers and that single-choice hierarchies get at most one.
func validateTypes(tree *typetree.Tree, types []TypeInput) error {
	perHierarchy := make(map[uint]int, len(types))
	for _, t := range types {
		node, ok := tree.Get(t.ID)
		if !ok {
			return fmt.Errorf("type %d: %w", t.ID, domain.ErrNotFound)
		}
		if node.Category == domain.CategoryValue && strings.TrimSpace(t.Value) != "" {
			if _, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64); err != nil {
				return fmt.Errorf("value %q of type %d is not a number: %w", t.Value, t.ID, domain.ErrInvalidArgument)
			}
		}
		top := node.Hierarchy()
		perHierarchy[top]++
		if root, _ := tree.Get(top); !root.Multiple && root.Category != domain.CategoryValue && perHierarchy[top] > 1 {
			return fmt.Errorf("hierarchy %q allows one type: %w", root.Name, domain.ErrInvalidArgument)
		}
	}
	return nil
}

// ReparentType moves a type below a new super inside its hierarchy.
func (s *GraphService) ReparentType(ctx context.Context, scope *Scope, id, parentID uint) error {
	tree, err := scope.Tree(ctx)
	if err != nil {
		return err
	}
	if _, ok := tree.Get(id); !ok {
		return fmt.Errorf("type %d: %w", id, domain.ErrNotFound)
	}
	if !tree.Editable(id) {
		return fmt.Errorf("type %d: %w", id, domain.ErrReadOnlyType)
	}
	if err := tree.ValidateParent(id, parentID); err != nil {
		return err
	}

	err = s.runTx(ctx, "type.reparent", func(repo domain.GraphRepository) error {
		if err := repo.DeleteLinksByCodes(ctx, id, []string{"P127"}, false); err != nil {
			return err
		}
		if _, err := repo.InsertLink(ctx, domain.Link{
			Property: "P127",
			Domain:   domain.EntityRef{ID: id},
			Range:    domain.EntityRef{ID: parentID},
		}); err != nil {
			return err
		}
		return repo.InsertLog(ctx, domain.EntityLog{EntityID: id, Action: "reparent", Metadata: map[string]any{"parent_id": parentID}})
	})
	if err != nil {
		return err
	}
	scope.Invalidate()
	return nil
}

// DeleteEntity removes an entity with its aliases and object location. Types
// still in use are refused.
func (s *GraphService) DeleteEntity(ctx context.Context, scope *Scope, id uint) error {
	current, err := s.repo.GetEntity(ctx, id)
	if err != nil {
		return err
	}
	if current.Class == domain.ClassObjectLocation || current.Class == domain.ClassAppellation {
		return fmt.Errorf("%s is deleted with its owner: %w", current.Class, domain.ErrInvalidArgument)
	}
	if current.Class.IsType() {
		tree, err := scope.Tree(ctx)
		if err != nil {
			return err
		}
		node, _ := tree.Get(id)
		if !tree.Editable(id) {
			return fmt.Errorf("type %d: %w", id, domain.ErrReadOnlyType)
		}
		if len(node.Subs) > 0 || node.Count > 0 {
			return fmt.Errorf("type %d: %w", id, domain.ErrTypeInUse)
		}
	}

	err = s.runTx(ctx, "entity.delete", func(repo domain.GraphRepository) error {
		aliases, err := repo.AliasesFor(ctx, []uint{id})
		if err != nil {
			return err
		}
		for aliasID := range aliases[id] {
			if err := repo.DeleteEntity(ctx, aliasID); err != nil {
				return err
			}
		}
		if current.Class.Info().HasLocation {
			location, err := linkedEntity(ctx, repo, id, "P53", false)
			if err != nil {
				return err
			}
			if location != nil {
				if err := repo.DeleteEntity(ctx, location.ID); err != nil {
					return err
				}
			}
		}
		if err := repo.DeleteEntity(ctx, id); err != nil {
			return err
		}
		return repo.InsertLog(ctx, domain.EntityLog{
			EntityID: id,
			Action:   "delete",
			Metadata: map[string]any{"name": current.Name, "system_class": string(current.Class)},
		})
	})
	if err != nil {
		return err
	}
	if current.Class.IsType() {
		scope.Invalidate()
	}
	if current.Class == domain.ClassFile && s.files != nil {
		if err := s.files.Delete(ctx, fileKey(current.ID, current.Name)); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("file blob not removed", "entity_id", id, "error", err)
		}
	}
	s.log.Info("entity deleted", "entity_id", id, "system_class", current.Class)
	return nil
}
