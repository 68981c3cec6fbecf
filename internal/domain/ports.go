package domain

import (
	"context"
	"io"
)

type GraphRepository interface {
	GetEntity(ctx context.Context, id uint) (Entity, error)
	GetEntities(ctx context.Context, ids []uint) ([]Entity, error)
	ListEntitiesByClass(ctx context.Context, classes []SystemClass, limit int) ([]Entity, error)
	InsertEntity(ctx context.Context, value Entity) (Entity, error)
	UpdateEntity(ctx context.Context, value Entity) error
	DeleteEntity(ctx context.Context, id uint) error

	TypesFor(ctx context.Context, ids []uint) (map[uint][]TypeRef, error)
	AliasesFor(ctx context.Context, ids []uint) (map[uint]map[uint]string, error)

	GetLinks(ctx context.Context, ids []uint, codes []string, inverse bool) ([]Link, error)
	GetLink(ctx context.Context, id uint) (Link, error)
	InsertLink(ctx context.Context, value Link) (Link, error)
	UpdateLink(ctx context.Context, value Link) error
	DeleteLink(ctx context.Context, id uint) error
	DeleteLinksByCodes(ctx context.Context, id uint, codes []string, inverse bool) error
	Traverse(ctx context.Context, query TraverseQuery) ([]TraversalHop, error)

	ListTypeRecords(ctx context.Context) ([]TypeRecord, error)
	ListTypeEdges(ctx context.Context) ([]ParentEdge, error)
	ListHierarchies(ctx context.Context) ([]Hierarchy, error)
	UpsertHierarchy(ctx context.Context, value Hierarchy) error
	CountTypeUsage(ctx context.Context) (map[uint]int, error)

	GeometriesFor(ctx context.Context, ids []uint) (map[uint][]Geometry, error)
	ReplaceGeometries(ctx context.Context, entityID uint, values []Geometry) error

	InsertLog(ctx context.Context, value EntityLog) error
	ListLogs(ctx context.Context, entityID uint, limit int) ([]EntityLog, error)

	// WithinTx runs fn against a repository bound to one transaction. A
	// returned error rolls back every write made through that repository.
	WithinTx(ctx context.Context, fn func(repo GraphRepository) error) error
}

type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
