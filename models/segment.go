package models

import "fmt"

// SegmentRecord is one row of the parking-zones-linked-to-street-segments
// dataset.
type SegmentRecord struct {
	ParkingZone *int   `json:"parkingzone"`
	OnStreet    string `json:"onstreet"`
	StreetFrom  string `json:"streetfrom"`
	StreetTo    string `json:"streetto"`
}

// SegmentLabel is the cached per-zone street label data.
type SegmentLabel struct {
	OnStreet   string `json:"onstreet"`
	StreetFrom string `json:"streetfrom"`
	StreetTo   string `json:"streetto"`
}

// Label renders a human-readable street label, e.g.
// "Pelham Street (Cardigan-Swanston)". Empty when no street name is known.
func (s SegmentLabel) Label() string {
	if s.OnStreet == "" {
		return ""
	}
	if s.StreetFrom != "" && s.StreetTo != "" {
		return fmt.Sprintf("%s (%s-%s)", s.OnStreet, s.StreetFrom, s.StreetTo)
	}
	return s.OnStreet
}

// ParkingZoneSegment mirrors the externally managed street-segment table used
// as an alternative source for the street-name lookup.
type ParkingZoneSegment struct {
	SegmentID   int    `gorm:"column:Segment_ID;primaryKey" json:"segment_id"`
	ParkingZone int    `gorm:"column:ParkingZone" json:"parking_zone"`
	OnStreet    string `gorm:"column:OnStreet" json:"on_street"`
	StreetFrom  string `gorm:"column:StreetFrom" json:"street_from"`
	StreetTo    string `gorm:"column:StreetTo" json:"street_to"`
}

func (ParkingZoneSegment) TableName() string { return "parking_zone_segments" }
