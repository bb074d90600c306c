// Package streetnames resolves human-readable street labels for live parking
// clusters. The lookup is built once at bootstrap, from either the JSON
// snapshot written by cmd/streetcache (keyed by cluster index) or the
// parking_zone_segments table (keyed by zone number), and is immutable
// afterwards.
package streetnames

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gorm.io/gorm"

	"parkspot-api/models"
)

// DefaultLabel is returned when no street name is known.
const DefaultLabel = "Melbourne CBD"

type Lookup struct {
	byIndex bool
	entries map[string]string
}

// Empty returns a lookup that always falls back to DefaultLabel.
func Empty() *Lookup {
	return &Lookup{entries: map[string]string{}}
}

// FromFile loads the JSON street snapshot ({"1": "Pelham Street, Carlton"}).
func FromFile(path string) (*Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read street snapshot: %w", err)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse street snapshot: %w", err)
	}
	return &Lookup{byIndex: true, entries: entries}, nil
}

// FromDB builds the lookup from the street-segment table, keeping the first
// street seen per zone.
func FromDB(db *gorm.DB) (*Lookup, error) {
	var segments []models.ParkingZoneSegment
	if err := db.Select("ParkingZone", "OnStreet").Find(&segments).Error; err != nil {
		return nil, fmt.Errorf("query street segments: %w", err)
	}

	entries := make(map[string]string, len(segments))
	for _, seg := range segments {
		zone := strconv.Itoa(seg.ParkingZone)
		if _, exists := entries[zone]; !exists {
			entries[zone] = seg.OnStreet
		}
	}
	return &Lookup{entries: entries}, nil
}

// Resolve returns the street label for a cluster, using the cluster's 1-based
// index for snapshot lookups and the zone of its first member otherwise.
func (l *Lookup) Resolve(index int, zone *int) string {
	var key string
	if l.byIndex {
		key = strconv.Itoa(index)
	} else if zone != nil {
		key = strconv.Itoa(*zone)
	}
	if name, ok := l.entries[key]; ok && name != "" {
		return name
	}
	return DefaultLabel
}

func (l *Lookup) Len() int { return len(l.entries) }
