package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"parkspot-api/models"
	"parkspot-api/spatial"
	"parkspot-api/streetnames"
)

func sensorAt(lat, lng float64) models.SensorReading {
	return models.SensorReading{
		Status:   "Present",
		Location: &models.Location{Lat: lat, Lng: lng},
	}
}

func TestBuildSnapshotKeysMatchClusterNumbering(t *testing.T) {
	// Two anchors well over 100 m apart: two clusters in first-seen order.
	clusters := spatial.GroupByProximity([]models.SensorReading{
		sensorAt(-37.8140, 144.9633),
		sensorAt(-37.8300, 144.9700),
	}, 100)
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}

	names := buildSnapshot(clusters, func(lat, lng float64) string {
		if lat == -37.8140 {
			return "First Street"
		}
		return "Second Street"
	})

	// The live payload numbers clusters from 1; the snapshot must too.
	if names["1"] != "First Street" {
		t.Errorf(`names["1"] = %q, want "First Street"`, names["1"])
	}
	if names["2"] != "Second Street" {
		t.Errorf(`names["2"] = %q, want "Second Street"`, names["2"])
	}
	if _, ok := names["0"]; ok {
		t.Error("snapshot must not contain a 0 key")
	}
}

func TestBuildSnapshotRoundTripsThroughLookup(t *testing.T) {
	clusters := spatial.GroupByProximity([]models.SensorReading{
		sensorAt(-37.8140, 144.9633),
		sensorAt(-37.8300, 144.9700),
	}, 100)

	labels := map[float64]string{
		-37.8140: "First Street",
		-37.8300: "Second Street",
	}
	names := buildSnapshot(clusters, func(lat, lng float64) string {
		return labels[lat]
	})

	data, err := json.Marshal(names)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "street_names.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	lookup, err := streetnames.FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error: %v", err)
	}

	if got := lookup.Resolve(1, nil); got != "First Street" {
		t.Errorf(`cluster 1 resolved to %q, want "First Street"`, got)
	}
	if got := lookup.Resolve(2, nil); got != "Second Street" {
		t.Errorf(`cluster 2 resolved to %q, want "Second Street"`, got)
	}
	if got := lookup.Resolve(3, nil); got != streetnames.DefaultLabel {
		t.Errorf("cluster 3 resolved to %q, want fallback", got)
	}
}

func TestBuildSnapshotFallbackOnEmptyLabel(t *testing.T) {
	clusters := spatial.GroupByProximity([]models.SensorReading{
		sensorAt(-37.8140, 144.9633),
	}, 100)

	names := buildSnapshot(clusters, func(lat, lng float64) string { return "" })
	if names["1"] != fallbackLabel {
		t.Errorf(`names["1"] = %q, want %q`, names["1"], fallbackLabel)
	}
}
