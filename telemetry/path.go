package telemetry

import "errors"

// ErrUnrecognizedPath marks a payload no known path schema fits. The
// caller logs it and renders nothing; ingest continues.
var ErrUnrecognizedPath = errors.New("unrecognized path structure")

// Robots publish their GPS path in four wire shapes, depending on
// firmware generation:
//
//	poses:  {poses:[{pose:{position:{x,y}}}]}   x is latitude, y longitude
//	fixes:  [{latitude,longitude}, ...]
//	pairs:  [[lat,lon], ...]
//	routes: {routes:[{latitude,longitude}|{x,y}, ...]}
//
// NormalizePath tries each detector in that order and returns the
// canonical point list. Placeholder payloads (a bare string such as
// "pending", or nil) mean no path yet and are not an error. Points
// that fail validation are dropped. A result of fewer than two valid
// points is returned empty: no line can be drawn through one point.
func NormalizePath(raw any) ([]GeoPoint, error) {
	if raw == nil {
		return nil, nil
	}
	if _, isString := raw.(string); isString {
		return nil, nil
	}

	if m, ok := raw.(map[string]any); ok {
		if poses, ok := m["poses"].([]any); ok {
			return clampShort(posesPath(poses)), nil
		}
	}
	if arr, ok := raw.([]any); ok {
		if pts, ok := arrayPath(arr); ok {
			return clampShort(pts), nil
		}
		return nil, ErrUnrecognizedPath
	}
	if m, ok := raw.(map[string]any); ok {
		if routes, ok := m["routes"].([]any); ok {
			return clampShort(routesPath(routes)), nil
		}
	}
	return nil, ErrUnrecognizedPath
}

// posesPath extracts pose.position from each wrapper.
func posesPath(poses []any) []GeoPoint {
	pts := make([]GeoPoint, 0, len(poses))
	for _, item := range poses {
		wrapper, ok := item.(map[string]any)
		if !ok {
			continue
		}
		pose, ok := wrapper["pose"].(map[string]any)
		if !ok {
			continue
		}
		pos, ok := pose["position"].(map[string]any)
		if !ok {
			continue
		}
		x, okX := asFloat(pos["x"])
		y, okY := asFloat(pos["y"])
		if !okX || !okY {
			continue
		}
		p := GeoPoint{Latitude: x, Longitude: y}
		if p.Valid() {
			pts = append(pts, p)
		}
	}
	return pts
}

// arrayPath disambiguates a bare array by the shape of its first
// element: objects with latitude/longitude fields, or 2-element
// numeric pairs. Anything else is not this shape.
func arrayPath(arr []any) ([]GeoPoint, bool) {
	if len(arr) == 0 {
		return nil, true
	}
	switch first := arr[0].(type) {
	case map[string]any:
		if _, hasLat := first["latitude"]; !hasLat {
			return nil, false
		}
		if _, hasLon := first["longitude"]; !hasLon {
			return nil, false
		}
		pts := make([]GeoPoint, 0, len(arr))
		for _, item := range arr {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if p, ok := latLonPoint(m); ok {
				pts = append(pts, p)
			}
		}
		return pts, true
	case []any:
		if len(first) < 2 {
			return nil, false
		}
		if _, ok := asFloat(first[0]); !ok {
			return nil, false
		}
		pts := make([]GeoPoint, 0, len(arr))
		for _, item := range arr {
			pair, ok := item.([]any)
			if !ok || len(pair) < 2 {
				continue
			}
			lat, okLat := asFloat(pair[0])
			lon, okLon := asFloat(pair[1])
			if !okLat || !okLon {
				continue
			}
			p := GeoPoint{Latitude: lat, Longitude: lon}
			if p.Valid() {
				pts = append(pts, p)
			}
		}
		return pts, true
	default:
		return nil, false
	}
}

// routesPath accepts per-point latitude/longitude or x/y spellings.
func routesPath(routes []any) []GeoPoint {
	pts := make([]GeoPoint, 0, len(routes))
	for _, item := range routes {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := latLonPoint(m); ok {
			pts = append(pts, p)
			continue
		}
		x, okX := asFloat(m["x"])
		y, okY := asFloat(m["y"])
		if okX && okY {
			p := GeoPoint{Latitude: x, Longitude: y}
			if p.Valid() {
				pts = append(pts, p)
			}
		}
	}
	return pts
}

func latLonPoint(m map[string]any) (GeoPoint, bool) {
	lat, okLat := asFloat(m["latitude"])
	lon, okLon := asFloat(m["longitude"])
	if !okLat || !okLon {
		return GeoPoint{}, false
	}
	p := GeoPoint{Latitude: lat, Longitude: lon}
	return p, p.Valid()
}

func clampShort(pts []GeoPoint) []GeoPoint {
	if len(pts) < 2 {
		return nil
	}
	return pts
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
