package presentation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/typetree"
)

const linkedPlacesContext = "https://raw.githubusercontent.com/LinkedPasts/linked-places/master/linkedplaces-context-v1.1.jsonld"

type LPCollection struct {
	Type     string      `json:"type"`
	Context  string      `json:"@context"`
	Features []LPFeature `json:"features"`
}

type LPFeature struct {
	ID          string          `json:"@id"`
	Type        string          `json:"type"`
	CrmClass    string          `json:"crmClass"`
	SystemClass string          `json:"systemClass"`
	Properties  LPProperties    `json:"properties"`
	Description []LPDescription `json:"description,omitempty"`
	When        *LPWhen         `json:"when,omitempty"`
	Types       []LPType        `json:"types,omitempty"`
	Relations   []LPRelation    `json:"relations,omitempty"`
	Names       []LPName        `json:"names,omitempty"`
	Geometry    *LPGeometry     `json:"geometry,omitempty"`
	Depictions  []LPDepiction   `json:"depictions,omitempty"`
}

type LPProperties struct {
	Title string `json:"title"`
}

type LPDescription struct {
	Value string `json:"value"`
}

type LPWhen struct {
	Timespans []LPTimespan `json:"timespans"`
}

type LPTimespan struct {
	Start LPBound `json:"start"`
	End   LPBound `json:"end"`
}

type LPBound struct {
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

type LPType struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Hierarchy  string `json:"hierarchy"`
	Value      string `json:"value,omitempty"`
}

type LPRelation struct {
	Label               string  `json:"label"`
	RelationTo          string  `json:"relationTo"`
	RelationType        string  `json:"relationType"`
	RelationSystemClass string  `json:"relationSystemClass"`
	RelationDescription string  `json:"relationDescription,omitempty"`
	Type                *string `json:"type"`
	When                *LPWhen `json:"when,omitempty"`
}

type LPName struct {
	Alias string `json:"alias"`
}

type LPGeometry struct {
	Type       string            `json:"type"`
	Geometries []json.RawMessage `json:"geometries"`
}

type LPDepiction struct {
	ID    string `json:"@id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func entityURL(base string, id uint) string {
	return fmt.Sprintf("%s/api/entity/%d", strings.TrimRight(base, "/"), id)
}

func lpWhen(t domain.Timespan) *LPWhen {
	if t.IsZero() {
		return nil
	}
	return &LPWhen{Timespans: []LPTimespan{{
		Start: LPBound{Earliest: t.BeginFrom, Latest: t.BeginTo, Comment: t.BeginComment},
		End:   LPBound{Earliest: t.EndFrom, Latest: t.EndTo, Comment: t.EndComment},
	}}}
}

// relationType renders "crm:P74_has current or former residence", with an
// "i" suffix on the code and the inverse name for inverse links.
func relationType(code string, inverse bool) string {
	p, ok := domain.LookupProperty(code)
	if !ok {
		return "crm:" + code
	}
	if inverse {
		return fmt.Sprintf("crm:%si_%s", code, p.InverseName)
	}
	return fmt.Sprintf("crm:%s_%s", code, p.Name)
}

// typeHierarchy names the ancestors of a type, top first.
func typeHierarchy(tree *typetree.Tree, id uint) string {
	node, ok := tree.Get(id)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(node.Root))
	for i := len(node.Root) - 1; i >= 0; i-- {
		if parent, ok := tree.Get(node.Root[i]); ok {
			names = append(names, parent.Name)
		}
	}
	return strings.Join(names, " > ")
}

// LinkedPlaces renders one bundle as a Linked Places feature collection.
// Type, alias and location links are folded into their own sections; all
// other links become relations.
func LinkedPlaces(b application.Bundle, tree *typetree.Tree, baseURL string) LPCollection {
	e := b.Entity
	code := e.CidocCode()
	f := LPFeature{
		ID:          entityURL(baseURL, e.ID),
		Type:        "Feature",
		CrmClass:    strings.TrimSpace(fmt.Sprintf("crm:%s %s", code, domain.CidocClassName(code))),
		SystemClass: string(e.Class),
		Properties:  LPProperties{Title: e.Name},
		When:        lpWhen(e.Timespan),
	}
	if e.Description != "" {
		f.Description = []LPDescription{{Value: e.Description}}
	}
	for _, t := range e.Types {
		f.Types = append(f.Types, LPType{
			Identifier: entityURL(baseURL, t.ID),
			Label:      t.Name,
			Hierarchy:  typeHierarchy(tree, t.ID),
			Value:      t.Value,
		})
	}
	for _, name := range e.AliasNames() {
		f.Names = append(f.Names, LPName{Alias: name})
	}

	for _, l := range b.Links {
		if l.Property == "P1" || l.Property == "P2" || l.Property == "P53" {
			continue
		}
		f.Relations = append(f.Relations, relation(l, l.Range, false, tree, baseURL))
	}
	for _, l := range b.InverseLinks {
		if l.Property == "P67" && l.Domain.Class == domain.ClassFile {
			f.Depictions = append(f.Depictions, LPDepiction{
				ID:    entityURL(baseURL, l.Domain.ID),
				Title: l.Domain.Name,
				URL:   fmt.Sprintf("%s/api/file/%d", strings.TrimRight(baseURL, "/"), l.Domain.ID),
			})
			continue
		}
		f.Relations = append(f.Relations, relation(l, l.Domain, true, tree, baseURL))
	}

	if len(b.Geometries) > 0 {
		g := &LPGeometry{Type: "GeometryCollection", Geometries: make([]json.RawMessage, 0, len(b.Geometries))}
		for _, geom := range b.Geometries {
			g.Geometries = append(g.Geometries, json.RawMessage(geom.GeoJSON))
		}
		f.Geometry = g
	}

	return LPCollection{Type: "FeatureCollection", Context: linkedPlacesContext, Features: []LPFeature{f}}
}

func relation(l domain.Link, other domain.EntityRef, inverse bool, tree *typetree.Tree, baseURL string) LPRelation {
	r := LPRelation{
		Label:               other.Name,
		RelationTo:          entityURL(baseURL, other.ID),
		RelationType:        relationType(l.Property, inverse),
		RelationSystemClass: string(other.Class),
		RelationDescription: l.Description,
		When:                lpWhen(l.Timespan),
	}
	if l.TypeID != nil {
		if node, ok := tree.Get(*l.TypeID); ok {
			name := node.Name
			r.Type = &name
		}
	}
	return r
}
