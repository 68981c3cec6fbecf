package application

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type GeometryInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

// parseGeometry validates a GeoJSON geometry and returns it re-encoded with
// its shape name. Only single points, lines and polygons are stored.
func parseGeometry(in GeometryInput) (domain.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(in.GeoJSON)
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidGeometry)
	}
	geom := g.Geometry()

	var shape string
	switch v := geom.(type) {
	case orb.Point:
		shape = "point"
		err = checkPoints(v)
	case orb.LineString:
		shape = "linestring"
		if len(v) < 2 {
			err = fmt.Errorf("linestring needs at least 2 points")
		} else {
			err = checkPoints(v...)
		}
	case orb.Polygon:
		shape = "polygon"
		err = checkPolygon(v)
	default:
		return domain.Geometry{}, fmt.Errorf("unsupported geometry %T: %w", geom, domain.ErrInvalidGeometry)
	}
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("%s: %v: %w", shape, err, domain.ErrInvalidGeometry)
	}

	raw, err := geojson.NewGeometry(geom).MarshalJSON()
	if err != nil {
		return domain.Geometry{}, err
	}
	return domain.Geometry{
		Shape:       shape,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		GeoJSON:     string(raw),
	}, nil
}

func checkPolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("ring %d needs at least 4 points", i)
		}
		if !ring.Closed() {
			return fmt.Errorf("ring %d is not closed", i)
		}
		if err := checkPoints(ring...); err != nil {
			return err
		}
	}
	return nil
}

func checkPoints(points ...orb.Point) error {
	for _, p := range points {
		lon, lat := p.Lon(), p.Lat()
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return fmt.Errorf("coordinate is not a number")
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("coordinate %v out of range", p)
		}
	}
	return nil
}
