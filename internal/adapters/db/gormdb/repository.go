package gormdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type GraphRepository struct {
	db *gorm.DB
}

// OpenSQLite opens a pure-Go sqlite database with foreign keys enforced, so
// deleting an entity cascades to its links and geometries.
func OpenSQLite(path string) (*gorm.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}, &gorm.Config{})
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// Open picks the dialect by driver name: "sqlite" (default) or "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func NewGraphRepository(db *gorm.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

func (r *GraphRepository) WithinTx(ctx context.Context, fn func(repo domain.GraphRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GraphRepository{db: tx})
	})
}

func (r *GraphRepository) GetEntity(ctx context.Context, id uint) (domain.Entity, error) {
	var m EntityModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Entity{}, notFound(err, "entity", id)
	}
	return toEntity(m), nil
}

func (r *GraphRepository) GetEntities(ctx context.Context, ids []uint) ([]domain.Entity, error) {
	if len(ids) == 0 {
		return []domain.Entity{}, nil
	}
	rows := make([]EntityModel, 0, len(ids))
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Entity, 0, len(rows))
	for _, m := range rows {
		result = append(result, toEntity(m))
	}
	return result, nil
}

func (r *GraphRepository) ListEntitiesByClass(ctx context.Context, classes []domain.SystemClass, limit int) ([]domain.Entity, error) {
	if len(classes) == 0 {
		return []domain.Entity{}, nil
	}
	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, string(c))
	}
	q := r.db.WithContext(ctx).Model(&EntityModel{}).Where("system_class IN ?", names).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows := make([]EntityModel, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Entity, 0, len(rows))
	for _, m := range rows {
		result = append(result, toEntity(m))
	}
	return result, nil
}

func (r *GraphRepository) InsertEntity(ctx context.Context, value domain.Entity) (domain.Entity, error) {
	m := EntityModel{
		SystemClass:  string(value.Class),
		Name:         value.Name,
		Description:  value.Description,
		BeginFrom:    value.BeginFrom,
		BeginTo:      value.BeginTo,
		BeginComment: value.BeginComment,
		EndFrom:      value.EndFrom,
		EndTo:        value.EndTo,
		EndComment:   value.EndComment,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Entity{}, err
	}
	return toEntity(m), nil
}

func (r *GraphRepository) UpdateEntity(ctx context.Context, value domain.Entity) error {
	res := r.db.WithContext(ctx).Model(&EntityModel{}).Where("id = ?", value.ID).Updates(map[string]any{
		"name":          value.Name,
		"description":   value.Description,
		"begin_from":    value.BeginFrom,
		"begin_to":      value.BeginTo,
		"begin_comment": value.BeginComment,
		"end_from":      value.EndFrom,
		"end_to":        value.EndTo,
		"end_comment":   value.EndComment,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("entity %d: %w", value.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *GraphRepository) DeleteEntity(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&EntityModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("entity %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *GraphRepository) TypesFor(ctx context.Context, ids []uint) (map[uint][]domain.TypeRef, error) {
	result := make(map[uint][]domain.TypeRef, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	type row struct {
		EntityID uint
		TypeID   uint
		TypeName string
		Value    string
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).Raw(`
SELECT l.domain_id AS entity_id,
       t.id AS type_id,
       t.name AS type_name,
       l.description AS value
FROM links l
JOIN entities t ON t.id = l.range_id
WHERE l.property_code = 'P2'
  AND l.domain_id IN ?
  AND t.system_class IN ?
ORDER BY l.domain_id, t.name, t.id
`, ids, []string{string(domain.ClassType), string(domain.ClassAdministrativeUnit)}).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		result[m.EntityID] = append(result[m.EntityID], domain.TypeRef{ID: m.TypeID, Name: m.TypeName, Value: m.Value})
	}
	return result, nil
}

func (r *GraphRepository) AliasesFor(ctx context.Context, ids []uint) (map[uint]map[uint]string, error) {
	result := make(map[uint]map[uint]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	type row struct {
		EntityID uint
		AliasID  uint
		Name     string
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).Raw(`
SELECT l.domain_id AS entity_id,
       a.id AS alias_id,
       a.name
FROM links l
JOIN entities a ON a.id = l.range_id
WHERE l.property_code = 'P1'
  AND l.domain_id IN ?
  AND a.system_class = ?
`, ids, string(domain.ClassAppellation)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		if result[m.EntityID] == nil {
			result[m.EntityID] = make(map[uint]string)
		}
		result[m.EntityID][m.AliasID] = m.Name
	}
	return result, nil
}

type linkRow struct {
	ID           uint
	PropertyCode string
	DomainID     uint
	DomainName   string
	DomainClass  string
	RangeID      uint
	RangeName    string
	RangeClass   string
	TypeID       *uint
	Description  string
	BeginFrom    string
	BeginTo      string
	BeginComment string
	EndFrom      string
	EndTo        string
	EndComment   string
	CreatedAt    time.Time
}

const linkColumns = `l.id,
       l.property_code,
       l.domain_id,
       d.name AS domain_name,
       d.system_class AS domain_class,
       l.range_id,
       rg.name AS range_name,
       rg.system_class AS range_class,
       l.type_id,
       l.description,
       l.begin_from,
       l.begin_to,
       l.begin_comment,
       l.end_from,
       l.end_to,
       l.end_comment,
       l.created_at`

func (r *GraphRepository) linkQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("links AS l").
		Select(linkColumns).
		Joins("JOIN entities d ON d.id = l.domain_id").
		Joins("JOIN entities rg ON rg.id = l.range_id")
}

func (r *GraphRepository) GetLinks(ctx context.Context, ids []uint, codes []string, inverse bool) ([]domain.Link, error) {
	if len(ids) == 0 {
		return []domain.Link{}, nil
	}
	column := "l.domain_id"
	if inverse {
		column = "l.range_id"
	}
	q := r.linkQuery(ctx).Where(column+" IN ?", ids)
	if len(codes) > 0 {
		q = q.Where("l.property_code IN ?", codes)
	}
	rows := make([]linkRow, 0)
	if err := q.Order("l.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Link, 0, len(rows))
	for _, m := range rows {
		result = append(result, toLink(m))
	}
	return result, nil
}

func (r *GraphRepository) GetLink(ctx context.Context, id uint) (domain.Link, error) {
	var m linkRow
	if err := r.linkQuery(ctx).Where("l.id = ?", id).Scan(&m).Error; err != nil {
		return domain.Link{}, err
	}
	if m.ID == 0 {
		return domain.Link{}, fmt.Errorf("link %d: %w", id, domain.ErrNotFound)
	}
	return toLink(m), nil
}

func (r *GraphRepository) InsertLink(ctx context.Context, value domain.Link) (domain.Link, error) {
	for _, id := range []uint{value.Domain.ID, value.Range.ID} {
		var count int64
		if err := r.db.WithContext(ctx).Model(&EntityModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return domain.Link{}, err
		}
		if count == 0 {
			return domain.Link{}, fmt.Errorf("link %s target %d: %w", value.Property, id, domain.ErrNotFound)
		}
	}
	m := LinkModel{
		PropertyCode: value.Property,
		DomainID:     value.Domain.ID,
		RangeID:      value.Range.ID,
		TypeID:       value.TypeID,
		Description:  value.Description,
		BeginFrom:    value.BeginFrom,
		BeginTo:      value.BeginTo,
		BeginComment: value.BeginComment,
		EndFrom:      value.EndFrom,
		EndTo:        value.EndTo,
		EndComment:   value.EndComment,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Link{}, err
	}
	value.ID = m.ID
	value.CreatedAt = m.CreatedAt
	return value, nil
}

func (r *GraphRepository) UpdateLink(ctx context.Context, value domain.Link) error {
	res := r.db.WithContext(ctx).Model(&LinkModel{}).Where("id = ?", value.ID).Updates(map[string]any{
		"type_id":       value.TypeID,
		"description":   value.Description,
		"begin_from":    value.BeginFrom,
		"begin_to":      value.BeginTo,
		"begin_comment": value.BeginComment,
		"end_from":      value.EndFrom,
		"end_to":        value.EndTo,
		"end_comment":   value.EndComment,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("link %d: %w", value.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *GraphRepository) DeleteLink(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&LinkModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("link %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *GraphRepository) DeleteLinksByCodes(ctx context.Context, id uint, codes []string, inverse bool) error {
	if len(codes) == 0 {
		return nil
	}
	column := "domain_id"
	if inverse {
		column = "range_id"
	}
	return r.db.WithContext(ctx).
		Where(column+" = ? AND property_code IN ?", id, codes).
		Delete(&LinkModel{}).Error
}

type traverseRow struct {
	Depth        int
	FromID       uint
	FromName     string
	LinkID       uint
	PropertyCode string
	Inverse      int
	ToID         uint
	ToName       string
	Path         string
}

// Traverse walks links in both directions from the start entity. A path
// never revisits an entity, so cycles end the walk.
func (r *GraphRepository) Traverse(ctx context.Context, query domain.TraverseQuery) ([]domain.TraversalHop, error) {
	start := strconv.FormatUint(uint64(query.StartEntityID), 10)
	args := []any{query.StartEntityID, query.StartEntityID, start, query.MaxDepth}

	codeClause := ""
	if len(query.Properties) > 0 {
		placeholders := make([]string, 0, len(query.Properties))
		for _, code := range query.Properties {
			placeholders = append(placeholders, "?")
			args = append(args, code)
		}
		codeClause = "\n      AND l.property_code IN (" + strings.Join(placeholders, ",") + ")"
	}

	q := fmt.Sprintf(`
WITH RECURSIVE walk(depth, current_id, from_id, link_id, property_code, inverse, path) AS (
    SELECT
        0,
        CAST(? AS BIGINT),
        CAST(? AS BIGINT),
        CAST(0 AS BIGINT),
        CAST('' AS TEXT),
        0,
        ',' || CAST(? AS TEXT) || ','
    UNION ALL
    SELECT
        walk.depth + 1,
        CASE WHEN l.domain_id = walk.current_id THEN l.range_id ELSE l.domain_id END,
        walk.current_id,
        l.id,
        l.property_code,
        CASE WHEN l.domain_id = walk.current_id THEN 0 ELSE 1 END,
        walk.path || CAST(CASE WHEN l.domain_id = walk.current_id THEN l.range_id ELSE l.domain_id END AS TEXT) || ','
    FROM walk
    JOIN links l
      ON (l.domain_id = walk.current_id OR l.range_id = walk.current_id)
    WHERE walk.depth < ?%s
      AND walk.path NOT LIKE '%%,' || CAST(CASE WHEN l.domain_id = walk.current_id THEN l.range_id ELSE l.domain_id END AS TEXT) || ',%%'
)
SELECT
    walk.depth,
    walk.from_id,
    fe.name AS from_name,
    walk.link_id,
    walk.property_code,
    walk.inverse,
    walk.current_id AS to_id,
    te.name AS to_name,
    walk.path
FROM walk
LEFT JOIN entities fe ON fe.id = walk.from_id
LEFT JOIN entities te ON te.id = walk.current_id
WHERE walk.link_id <> 0
ORDER BY walk.depth ASC, walk.link_id ASC;
`, codeClause)

	rows := make([]traverseRow, 0)
	if err := r.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.TraversalHop, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.TraversalHop{
			Depth:    row.Depth,
			FromID:   row.FromID,
			FromName: row.FromName,
			LinkID:   row.LinkID,
			Property: row.PropertyCode,
			Inverse:  row.Inverse == 1,
			ToID:     row.ToID,
			ToName:   row.ToName,
			Path:     row.Path,
		})
	}
	return result, nil
}

func (r *GraphRepository) ListTypeRecords(ctx context.Context) ([]domain.TypeRecord, error) {
	rows := make([]EntityModel, 0)
	err := r.db.WithContext(ctx).
		Where("system_class IN ?", []string{string(domain.ClassType), string(domain.ClassAdministrativeUnit)}).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.TypeRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.TypeRecord{
			ID:          m.ID,
			Class:       domain.SystemClass(m.SystemClass),
			Name:        m.Name,
			Description: m.Description,
			BeginFrom:   m.BeginFrom,
			EndTo:       m.EndTo,
		})
	}
	return result, nil
}

func (r *GraphRepository) ListTypeEdges(ctx context.Context) ([]domain.ParentEdge, error) {
	rows := make([]LinkModel, 0)
	if err := r.db.WithContext(ctx).Where("property_code = ?", "P127").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ParentEdge, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ParentEdge{LinkID: m.ID, ChildID: m.DomainID, ParentID: m.RangeID})
	}
	return result, nil
}

func (r *GraphRepository) ListHierarchies(ctx context.Context) ([]domain.Hierarchy, error) {
	rows := make([]HierarchyModel, 0)
	if err := r.db.WithContext(ctx).Order("type_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Hierarchy, 0, len(rows))
	for _, m := range rows {
		h := domain.Hierarchy{TypeID: m.TypeID, Category: m.Category, Multiple: m.Multiple}
		for _, c := range strings.Split(m.Classes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				h.Classes = append(h.Classes, domain.SystemClass(c))
			}
		}
		result = append(result, h)
	}
	return result, nil
}

func (r *GraphRepository) UpsertHierarchy(ctx context.Context, value domain.Hierarchy) error {
	classes := make([]string, 0, len(value.Classes))
	for _, c := range value.Classes {
		classes = append(classes, string(c))
	}
	m := HierarchyModel{
		TypeID:   value.TypeID,
		Category: defaultString(value.Category, domain.CategoryCustom),
		Multiple: value.Multiple,
		Classes:  strings.Join(classes, ","),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "multiple", "classes"}),
	}).Create(&m).Error
}

func (r *GraphRepository) CountTypeUsage(ctx context.Context) (map[uint]int, error) {
	type row struct {
		TypeID uint
		Total  int
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).Raw(`
SELECT range_id AS type_id, COUNT(*) AS total
FROM links
WHERE property_code IN ('P2', 'P89')
GROUP BY range_id
`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[uint]int, len(rows))
	for _, m := range rows {
		result[m.TypeID] = m.Total
	}
	return result, nil
}

func (r *GraphRepository) GeometriesFor(ctx context.Context, ids []uint) (map[uint][]domain.Geometry, error) {
	result := make(map[uint][]domain.Geometry, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows := make([]GeometryModel, 0)
	if err := r.db.WithContext(ctx).Where("entity_id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		result[m.EntityID] = append(result[m.EntityID], domain.Geometry{
			ID:          m.ID,
			EntityID:    m.EntityID,
			Shape:       m.Shape,
			Name:        m.Name,
			Description: m.Description,
			Type:        m.Type,
			GeoJSON:     m.GeoJSON,
		})
	}
	return result, nil
}

func (r *GraphRepository) ReplaceGeometries(ctx context.Context, entityID uint, values []domain.Geometry) error {
	if err := r.db.WithContext(ctx).Where("entity_id = ?", entityID).Delete(&GeometryModel{}).Error; err != nil {
		return err
	}
	for _, g := range values {
		m := GeometryModel{
			EntityID:    entityID,
			Shape:       g.Shape,
			Name:        g.Name,
			Description: g.Description,
			Type:        g.Type,
			GeoJSON:     g.GeoJSON,
		}
		if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GraphRepository) InsertLog(ctx context.Context, value domain.EntityLog) error {
	meta, err := json.Marshal(value.Metadata)
	if err != nil {
		return err
	}
	m := EntityLogModel{EntityID: value.EntityID, Action: value.Action, Metadata: meta}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *GraphRepository) ListLogs(ctx context.Context, entityID uint, limit int) ([]domain.EntityLog, error) {
	q := r.db.WithContext(ctx).Where("entity_id = ?", entityID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows := make([]EntityLogModel, 0)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.EntityLog, 0, len(rows))
	for _, m := range rows {
		item := domain.EntityLog{ID: m.ID, EntityID: m.EntityID, Action: m.Action, CreatedAt: m.CreatedAt}
		if len(m.Metadata) > 0 {
			if err := json.Unmarshal(m.Metadata, &item.Metadata); err != nil {
				return nil, err
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func toEntity(m EntityModel) domain.Entity {
	return domain.Entity{
		ID:          m.ID,
		Class:       domain.SystemClass(m.SystemClass),
		Name:        m.Name,
		Description: m.Description,
		Timespan: domain.Timespan{
			BeginFrom:    m.BeginFrom,
			BeginTo:      m.BeginTo,
			BeginComment: m.BeginComment,
			EndFrom:      m.EndFrom,
			EndTo:        m.EndTo,
			EndComment:   m.EndComment,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toLink(m linkRow) domain.Link {
	return domain.Link{
		ID:          m.ID,
		Property:    m.PropertyCode,
		Domain:      domain.EntityRef{ID: m.DomainID, Name: m.DomainName, Class: domain.SystemClass(m.DomainClass)},
		Range:       domain.EntityRef{ID: m.RangeID, Name: m.RangeName, Class: domain.SystemClass(m.RangeClass)},
		TypeID:      m.TypeID,
		Description: m.Description,
		Timespan: domain.Timespan{
			BeginFrom:    m.BeginFrom,
			BeginTo:      m.BeginTo,
			BeginComment: m.BeginComment,
			EndFrom:      m.EndFrom,
			EndTo:        m.EndTo,
			EndComment:   m.EndComment,
		},
		CreatedAt: m.CreatedAt,
	}
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return err
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}

	return input
}
