package models

import (
	"strings"
	"time"
)

// Location is the Socrata point shape ({"lat": ..., "lon": ...}).
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lon"`
}

// SensorReading is one row of the on-street-parking-bay-sensors dataset.
type SensorReading struct {
	KerbsideID      *int64    `json:"kerbsideid"`
	ZoneNumber      *int      `json:"zone_number"`
	Status          string    `json:"status_description"`
	StatusTimestamp string    `json:"status_timestamp"`
	Location        *Location `json:"location"`
}

// NormalizedStatus title-cases the raw status; empty input maps to "Unknown".
func (r SensorReading) NormalizedStatus() string {
	s := strings.TrimSpace(r.Status)
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func (r SensorReading) Unoccupied() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), "unoccupied")
}

// Timestamp parses the ISO status timestamp into the given zone.
// ok is false when the field is missing or malformed.
func (r SensorReading) Timestamp(loc *time.Location) (t time.Time, ok bool) {
	if r.StatusTimestamp == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, r.StatusTimestamp)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.In(loc), true
}
