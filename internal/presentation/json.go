// Package presentation projects entities, links and types into the API's
// wire shapes: plain JSON, Linked Places, GeoJSON and CSV.
package presentation

import (
	"time"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

type TimespanJSON struct {
	BeginFrom    string `json:"begin_from,omitempty"`
	BeginTo      string `json:"begin_to,omitempty"`
	BeginComment string `json:"begin_comment,omitempty"`
	EndFrom      string `json:"end_from,omitempty"`
	EndTo        string `json:"end_to,omitempty"`
	EndComment   string `json:"end_comment,omitempty"`
}

func timespan(t domain.Timespan) *TimespanJSON {
	if t.IsZero() {
		return nil
	}
	return &TimespanJSON{
		BeginFrom:    t.BeginFrom,
		BeginTo:      t.BeginTo,
		BeginComment: t.BeginComment,
		EndFrom:      t.EndFrom,
		EndTo:        t.EndTo,
		EndComment:   t.EndComment,
	}
}

type TypeRefJSON struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

type EntityJSON struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	SystemClass string        `json:"system_class"`
	CidocClass  string        `json:"cidoc_class"`
	View        string        `json:"view,omitempty"`
	When        *TimespanJSON `json:"when,omitempty"`
	Types       []TypeRefJSON `json:"types"`
	Aliases     []string      `json:"aliases"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func Entity(e domain.Entity) EntityJSON {
	types := make([]TypeRefJSON, 0, len(e.Types))
	for _, t := range e.Types {
		types = append(types, TypeRefJSON{ID: t.ID, Name: t.Name, Value: t.Value})
	}
	return EntityJSON{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		SystemClass: string(e.Class),
		CidocClass:  e.CidocCode(),
		View:        e.View(),
		When:        timespan(e.Timespan),
		Types:       types,
		Aliases:     e.AliasNames(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func Entities(items []domain.Entity) []EntityJSON {
	out := make([]EntityJSON, 0, len(items))
	for _, e := range items {
		out = append(out, Entity(e))
	}
	return out
}

type EntityRefJSON struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	SystemClass string `json:"system_class"`
}

type LinkJSON struct {
	ID           uint          `json:"id"`
	Property     string        `json:"property"`
	PropertyName string        `json:"property_name"`
	Domain       EntityRefJSON `json:"domain"`
	Range        EntityRefJSON `json:"range"`
	TypeID       *uint         `json:"type_id,omitempty"`
	Description  string        `json:"description,omitempty"`
	When         *TimespanJSON `json:"when,omitempty"`
}

func Links(items []domain.Link) []LinkJSON {
	out := make([]LinkJSON, 0, len(items))
	for _, l := range items {
		p, _ := domain.LookupProperty(l.Property)
		out = append(out, LinkJSON{
			ID:           l.ID,
			Property:     l.Property,
			PropertyName: p.Name,
			Domain:       EntityRefJSON{ID: l.Domain.ID, Name: l.Domain.Name, SystemClass: string(l.Domain.Class)},
			Range:        EntityRefJSON{ID: l.Range.ID, Name: l.Range.Name, SystemClass: string(l.Range.Class)},
			TypeID:       l.TypeID,
			Description:  l.Description,
			When:         timespan(l.Timespan),
		})
	}
	return out
}

type HopJSON struct {
	Depth    int    `json:"depth"`
	FromID   uint   `json:"from_id"`
	FromName string `json:"from_name"`
	LinkID   uint   `json:"link_id"`
	Property string `json:"property"`
	Inverse  bool   `json:"inverse"`
	ToID     uint   `json:"to_id"`
	ToName   string `json:"to_name"`
	Path     string `json:"path"`
}

func Hops(items []domain.TraversalHop) []HopJSON {
	out := make([]HopJSON, 0, len(items))
	for _, h := range items {
		out = append(out, HopJSON{
			Depth:    h.Depth,
			FromID:   h.FromID,
			FromName: h.FromName,
			LinkID:   h.LinkID,
			Property: h.Property,
			Inverse:  h.Inverse,
			ToID:     h.ToID,
			ToName:   h.ToName,
			Path:     h.Path,
		})
	}
	return out
}

type LogJSON struct {
	ID        uint           `json:"id"`
	EntityID  uint           `json:"entity_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func Logs(items []domain.EntityLog) []LogJSON {
	out := make([]LogJSON, 0, len(items))
	for _, l := range items {
		out = append(out, LogJSON{ID: l.ID, EntityID: l.EntityID, Action: l.Action, Metadata: l.Metadata, CreatedAt: l.CreatedAt})
	}
	return out
}

type ClassJSON struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	CidocCode   string `json:"cidoc_code"`
	CidocName   string `json:"cidoc_name"`
	View        string `json:"view,omitempty"`
	HasLocation bool   `json:"has_location"`
}

func Classes(items []domain.ClassInfo) []ClassJSON {
	out := make([]ClassJSON, 0, len(items))
	for _, c := range items {
		out = append(out, ClassJSON{
			Name:        string(c.Name),
			Label:       c.Label,
			CidocCode:   c.CidocCode,
			CidocName:   domain.CidocClassName(c.CidocCode),
			View:        c.View,
			HasLocation: c.HasLocation,
		})
	}
	return out
}

type PropertyJSON struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	InverseName string `json:"inverse_name"`
}

func Properties(items []domain.Property) []PropertyJSON {
	out := make([]PropertyJSON, 0, len(items))
	for _, p := range items {
		out = append(out, PropertyJSON{Code: p.Code, Name: p.Name, InverseName: p.InverseName})
	}
	return out
}
