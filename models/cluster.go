package models

// ParkingCluster is one display record of the live availability payload.
type ParkingCluster struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Available  int     `json:"available"`
	Total      int     `json:"total"`
	Distance   string  `json:"distance"`
	Prediction string  `json:"prediction"`
	WalkTime   string  `json:"walkTime"`
	Badge      string  `json:"badge"`
}
