package presentation

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

// GeoJSON emits one feature per stored geometry. Entities without geometry
// still appear once, with a null geometry.
func GeoJSON(bundles []application.Bundle) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, b := range bundles {
		props := featureProperties(b.Entity)
		if len(b.Geometries) == 0 {
			f := geojson.NewFeature(nil)
			f.Properties = props
			fc.Append(f)
			continue
		}
		for _, g := range b.Geometries {
			parsed, err := geojson.UnmarshalGeometry([]byte(g.GeoJSON))
			if err != nil {
				return nil, fmt.Errorf("geometry %d of entity %d: %w", g.ID, b.Entity.ID, err)
			}
			f := geojson.NewFeature(parsed.Geometry())
			f.Properties = props.Clone()
			f.Properties["shapeType"] = g.Shape
			if g.Name != "" {
				f.Properties["geometryName"] = g.Name
			}
			if g.Description != "" {
				f.Properties["geometryDescription"] = g.Description
			}
			fc.Append(f)
		}
	}
	return fc, nil
}

func featureProperties(e domain.Entity) geojson.Properties {
	types := make([]map[string]any, 0, len(e.Types))
	for _, t := range e.Types {
		types = append(types, map[string]any{"typeName": t.Name, "typeId": t.ID})
	}
	return geojson.Properties{
		"@id":            e.ID,
		"systemClass":    string(e.Class),
		"name":           e.Name,
		"description":    nullable(e.Description),
		"begin_earliest": nullable(e.BeginFrom),
		"begin_latest":   nullable(e.BeginTo),
		"begin_comment":  nullable(e.BeginComment),
		"end_earliest":   nullable(e.EndFrom),
		"end_latest":     nullable(e.EndTo),
		"end_comment":    nullable(e.EndComment),
		"types":          types,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
