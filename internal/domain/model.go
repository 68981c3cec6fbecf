package domain

import (
	"slices"
	"time"
)

// Timespan holds the four optional temporal bounds shared by entities and
// links. Bounds are ISO dates ("1950-01-01", "-0300-06-01"); empty means unset.
type Timespan struct {
	BeginFrom    string
	BeginTo      string
	BeginComment string
	EndFrom      string
	EndTo        string
	EndComment   string
}

func (t Timespan) IsZero() bool {
	return t == Timespan{}
}

type Entity struct {
	ID          uint
	Class       SystemClass
	Name        string
	Description string
	Timespan
	Aliases   map[uint]string
	Types     []TypeRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Entity) CidocCode() string {
	return e.Class.Info().CidocCode
}

func (e Entity) View() string {
	return e.Class.Info().View
}

// AliasNames returns alias names ordered by alias id.
func (e Entity) AliasNames() []string {
	ids := make([]uint, 0, len(e.Aliases))
	for id := range e.Aliases {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.Aliases[id])
	}
	return out
}

// TypeRef is a type attached to an entity through a P2 link. Value is the link
// description, used by value hierarchies (e.g. "Dimensions > Height: 12").
type TypeRef struct {
	ID    uint
	Name  string
	Value string
}

type EntityRef struct {
	ID    uint
	Name  string
	Class SystemClass
}

type Link struct {
	ID          uint
	Property    string
	Domain      EntityRef
	Range       EntityRef
	TypeID      *uint
	Description string
	Timespan
	CreatedAt time.Time
}

// TypeRecord is the raw row a type node is built from.
type TypeRecord struct {
	ID          uint
	Class       SystemClass
	Name        string
	Description string
	BeginFrom   string
	EndTo       string
}

// ParentEdge is a P127 link: ChildID "has broader term" ParentID.
type ParentEdge struct {
	LinkID   uint
	ChildID  uint
	ParentID uint
}

type Hierarchy struct {
	TypeID   uint
	Category string
	Multiple bool
	Classes  []SystemClass
}

const (
	CategorySystem   = "system"
	CategoryStandard = "standard"
	CategoryCustom   = "custom"
	CategoryValue    = "value"
	CategoryPlace    = "place"
)

type Geometry struct {
	ID          uint
	EntityID    uint
	Shape       string
	Name        string
	Description string
	Type        string
	GeoJSON     string
}

type EntityLog struct {
	ID        uint
	EntityID  uint
	Action    string
	Metadata  map[string]any
	CreatedAt time.Time
}

type TraversalHop struct {
	Depth    int
	FromID   uint
	FromName string
	LinkID   uint
	Property string
	Inverse  bool
	ToID     uint
	ToName   string
	Path     string
}

type TraverseQuery struct {
	StartEntityID uint
	MaxDepth      int
	Properties    []string
}
