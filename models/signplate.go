package models

// SignPlateRecord is one row of the sign-plates-located-in-each-parking-zone
// dataset.
type SignPlateRecord struct {
	ParkingZone            *int   `json:"parkingzone"`
	RestrictionDisplay     string `json:"restriction_display"`
	RestrictionDays        string `json:"restriction_days"`
	TimeRestrictionsStart  string `json:"time_restrictions_start"`
	TimeRestrictionsFinish string `json:"time_restrictions_finish"`
}

// SignPlateRule is the cached per-zone form of a sign plate.
type SignPlateRule struct {
	Display string `json:"display"`
	Days    string `json:"days"`
	Start   string `json:"start"`
	Finish  string `json:"finish"`
}
