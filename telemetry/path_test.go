package telemetry

import (
	"math"
	"testing"
)

func TestNormalizePathPlaceholder(t *testing.T) {
	for _, raw := range []any{nil, "pending", "waiting..."} {
		pts, err := NormalizePath(raw)
		if err != nil {
			t.Errorf("placeholder %v: unexpected error %v", raw, err)
		}
		if len(pts) != 0 {
			t.Errorf("placeholder %v: got %d points, want 0", raw, len(pts))
		}
	}
}

func TestNormalizePathPoses(t *testing.T) {
	raw := map[string]any{
		"poses": []any{
			map[string]any{"pose": map[string]any{"position": map[string]any{"x": 10.0, "y": 20.0}}},
			map[string]any{"pose": map[string]any{"position": map[string]any{"x": 11.0, "y": 21.0}}},
		},
	}
	pts, err := NormalizePath(raw)
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("got %d points, want 2", len(pts))
	}
	if pts[0] != (GeoPoint{Latitude: 10, Longitude: 20}) {
		t.Errorf("pts[0] = %+v, want {10 20}", pts[0])
	}
}

func TestNormalizePathPosesSinglePointIsEmpty(t *testing.T) {
	raw := map[string]any{
		"poses": []any{
			map[string]any{"pose": map[string]any{"position": map[string]any{"x": 10.0, "y": 20.0}}},
		},
	}
	pts, err := NormalizePath(raw)
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if len(pts) != 0 {
		t.Fatalf("one valid point should report empty, got %d", len(pts))
	}
}

func TestNormalizePathFixes(t *testing.T) {
	raw := []any{
		map[string]any{"latitude": 1.0, "longitude": 2.0},
		map[string]any{"latitude": 3.0, "longitude": 4.0},
	}
	pts, err := NormalizePath(raw)
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if len(pts) != 2 || pts[1] != (GeoPoint{Latitude: 3, Longitude: 4}) {
		t.Fatalf("got %+v, want [{1 2} {3 4}]", pts)
	}
}

func TestNormalizePathPairs(t *testing.T) {
	raw := []any{
		[]any{1.0, 2.0},
		[]any{3.0, 4.0, 99.0}, // extra elements ignored
	}
	pts, err := NormalizePath(raw)
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if len(pts) != 2 || pts[1] != (GeoPoint{Latitude: 3, Longitude: 4}) {
		t.Fatalf("got %+v, want [{1 2} {3 4}]", pts)
	}
}

func TestNormalizePathRoutesMixedSpellings(t *testing.T) {
	raw := map[string]any{
		"routes": []any{
			map[string]any{"latitude": 1.0, "longitude": 2.0},
			map[string]any{"x": 3.0, "y": 4.0},
			map[string]any{"bogus": true},
		},
	}
	pts, err := NormalizePath(raw)
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if len(pts) != 2 || pts[1] != (GeoPoint{Latitude: 3, Longitude: 4}) {
		t.Fatalf("got %+v, want [{1 2} {3 4}]", pts)
	}
}

func TestNormalizePathDropsInvalidPoints(t *testing.T) {
	raw := []any{
		map[string]any{"latitude": 1.0, "longitude": 2.0},
		map[string]any{"latitude": 91.0, "longitude": 2.0},
		map[string]any{"latitude": math.NaN(), "longitude": 2.0},
		map[string]any{"latitude": 3.0, "longitude": 4.0},
	}
	pts, err := NormalizePath(raw)
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("got %d points, want 2 (invalid dropped)", len(pts))
	}
}

func TestNormalizePathUnrecognized(t *testing.T) {
	for _, raw := range []any{
		map[string]any{"frames": []any{}},
		[]any{true, false},
		42.0,
	} {
		pts, err := NormalizePath(raw)
		if err == nil {
			t.Errorf("input %v: expected unrecognized-structure error", raw)
		}
		if len(pts) != 0 {
			t.Errorf("input %v: got %d points, want 0", raw, len(pts))
		}
	}
}
