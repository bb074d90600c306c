package models

// Classification is one of the six occupancy-horizon buckets.
type Classification string

const (
	ClassUnoccupied    Classification = "UNOCCUPIED"
	ClassVacate15M     Classification = "VACATE_15M"
	ClassVacate30M     Classification = "VACATE_30M"
	ClassVacate60M     Classification = "VACATE_60M"
	ClassOccupiedGT60M Classification = "OCCUPIED_GT_60M"
	ClassPermitParking Classification = "PERMIT_PARKING"
)

// AllClassifications lists every bucket; the payload counts map always
// carries all six keys, zero or not.
func AllClassifications() []Classification {
	return []Classification{
		ClassUnoccupied,
		ClassVacate15M,
		ClassVacate30M,
		ClassVacate60M,
		ClassOccupiedGT60M,
		ClassPermitParking,
	}
}

type PredictionItem struct {
	KerbsideID      *int64         `json:"kerbsideid"`
	ZoneNumber      *int           `json:"zone_number"`
	Status          string         `json:"status"`
	StatusTimestamp *string        `json:"status_timestamp"`
	Classification  Classification `json:"classification"`
	MinutesElapsed  float64        `json:"minutes_elapsed"`
	AllowedMinutes  *int           `json:"allowed_minutes"`
	RestrictionCode *string        `json:"restriction_code"`
	Street          *string        `json:"street"`
}

type PredictionPayload struct {
	GeneratedAt string                 `json:"generated_at"`
	TTL         int                    `json:"ttl"`
	Counts      map[Classification]int `json:"counts"`
	Items       []PredictionItem       `json:"items"`
}
