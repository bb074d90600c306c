package spatial

import "parkspot-api/models"

// Cluster is an ad hoc spatial group of sensor readings. The anchor is the
// first reading assigned to the cluster and never moves; membership is
// decided against it, not against a recomputed centroid.
type Cluster struct {
	AnchorLat float64
	AnchorLng float64
	Points    []models.SensorReading
}

// Key returns the stable cache key for this cluster's anchor.
func (c *Cluster) Key() string {
	return CellToken(c.AnchorLat, c.AnchorLng)
}

// UnoccupiedCount counts members currently reporting an empty bay.
func (c *Cluster) UnoccupiedCount() int {
	n := 0
	for _, p := range c.Points {
		if p.Unoccupied() {
			n++
		}
	}
	return n
}

// GroupByProximity groups readings greedily in input order: each reading
// joins the first existing cluster whose anchor is within radiusM, otherwise
// it starts a new cluster. Readings without a coordinate are dropped.
// O(n*k) with k clusters, fine at snapshot scale.
func GroupByProximity(readings []models.SensorReading, radiusM float64) []*Cluster {
	var clusters []*Cluster
	for _, rec := range readings {
		loc := rec.Location
		if loc == nil {
			continue
		}
		assigned := false
		for _, cluster := range clusters {
			if Distance(loc.Lat, loc.Lng, cluster.AnchorLat, cluster.AnchorLng) <= radiusM {
				cluster.Points = append(cluster.Points, rec)
				assigned = true
				break
			}
		}
		if !assigned {
			clusters = append(clusters, &Cluster{
				AnchorLat: loc.Lat,
				AnchorLng: loc.Lng,
				Points:    []models.SensorReading{rec},
			})
		}
	}
	return clusters
}
