package spatial

import "github.com/golang/geo/s2"

const (
	// EarthRadiusMeters is the mean earth radius used for great-circle
	// distances.
	EarthRadiusMeters = 6371000.0

	// anchorCellLevel 20 is roughly a 10 m cell, fine enough that distinct
	// cluster anchors never share a token at a 100 m clustering radius.
	anchorCellLevel = 20
)

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// CellToken returns a stable spatial key for a coordinate. Used to key
// cross-refresh cluster state so it survives reordering between runs.
func CellToken(lat, lng float64) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(anchorCellLevel).ToToken()
}
