package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"parkspot-api/config"
	"parkspot-api/metrics"
	"parkspot-api/models"
	"parkspot-api/spatial"
	"parkspot-api/streetnames"
)

// SensorSource supplies the live sensor snapshot.
type SensorSource interface {
	FetchSensors(ctx context.Context) ([]models.SensorReading, error)
}

// LiveParkingService turns the raw sensor snapshot into the smoothed
// per-cluster availability payload. All availability figures are heuristic:
// uniform perturbations emulate sensor noise, and a counter-threshold damper
// reuses previous values so the display steps in bursts instead of
// jittering on every refresh.
type LiveParkingService struct {
	source  SensorSource
	cache   Store
	streets *streetnames.Lookup
	cfg     config.HeuristicsConfig
	tz      *time.Location
	rng     *rand.Rand
	now     func() time.Time
	group   singleflight.Group
	log     zerolog.Logger
}

// NewLiveParkingService wires the estimator. rng and now may be nil, in which
// case a time-seeded source and the wall clock are used; tests inject both.
func NewLiveParkingService(
	source SensorSource,
	cache Store,
	streets *streetnames.Lookup,
	cfg config.HeuristicsConfig,
	rng *rand.Rand,
	now func() time.Time,
	log zerolog.Logger,
) (*LiveParkingService, error) {
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &LiveParkingService{
		source:  source,
		cache:   cache,
		streets: streets,
		cfg:     cfg,
		tz:      tz,
		rng:     rng,
		now:     now,
		log:     log.With().Str("component", "live-parking").Logger(),
	}, nil
}

// CachedList returns the last published payload, or an empty list when the
// cache holds nothing.
func (s *LiveParkingService) CachedList(ctx context.Context) ([]models.ParkingCluster, error) {
	var list []models.ParkingCluster
	if _, err := s.cache.Get(ctx, KeyLiveParkingData, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.ParkingCluster{}
	}
	return list, nil
}

// Refresh recomputes and caches the live payload. Concurrent callers share a
// single run; a failed run leaves the previously cached payload untouched so
// stale-but-valid data keeps being served.
func (s *LiveParkingService) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *LiveParkingService) refresh(ctx context.Context) error {
	start := time.Now()
	runID := uuid.NewString()[:8]
	metrics.RefreshRuns.Inc()

	readings, err := s.source.FetchSensors(ctx)
	if err != nil {
		metrics.RefreshFailures.Inc()
		s.log.Error().Err(err).Str("run", runID).Msg("sensor snapshot fetch failed, keeping cached payload")
		return fmt.Errorf("fetch sensor snapshot: %w", err)
	}

	clusters := spatial.GroupByProximity(readings, s.cfg.ClusterRadiusM)

	// Prior state, keyed by anchor cell token. A cold cache just means every
	// cluster synthesizes fresh totals and skips damping.
	prevAvail := map[string]int{}
	prevTotals := map[string]int{}
	counters := map[string]int{}
	if _, err := s.cache.Get(ctx, KeyPrevAvailability, &prevAvail); err != nil {
		s.log.Warn().Err(err).Msg("previous availability unreadable, starting fresh")
		prevAvail = map[string]int{}
	}
	if _, err := s.cache.Get(ctx, KeyPrevTotals, &prevTotals); err != nil {
		prevTotals = map[string]int{}
	}
	if _, err := s.cache.Get(ctx, KeyRefreshCounter, &counters); err != nil {
		counters = map[string]int{}
	}

	now := s.now().In(s.tz)
	list := make([]models.ParkingCluster, 0, len(clusters))
	newAvail := make(map[string]int, len(clusters))
	newTotals := make(map[string]int, len(clusters))

	for i, cluster := range clusters {
		idx := i + 1
		key := cluster.Key()

		total := prevTotals[key]
		if total == 0 {
			total = s.estimateTotalSpaces(len(cluster.Points), cluster.AnchorLat, cluster.AnchorLng)
		}

		base := clamp(cluster.UnoccupiedCount()+s.randInt(-1, 3), total)
		base = s.adjustByTime(base, total, now)
		base = s.adjustForCBDDemand(base, total, cluster.AnchorLat, cluster.AnchorLng)
		if s.cfg.EventsEnabled {
			base = s.adjustForEventDates(base, total, cluster.AnchorLat, cluster.AnchorLng, now)
		}
		base = clamp(base+s.pickVariation(), total)

		available, counter := s.dampen(base, key, prevAvail, counters[key])
		counters[key] = counter

		trend := "stable"
		if prev, ok := prevAvail[key]; ok {
			if available > prev {
				trend = "increasing"
			} else if available < prev {
				trend = "decreasing"
			}
		}

		distM := spatial.Distance(cluster.AnchorLat, cluster.AnchorLng, s.cfg.CityCenterLat, s.cfg.CityCenterLng)

		list = append(list, models.ParkingCluster{
			Name:       fmt.Sprintf("Parking Zone %d", idx),
			Address:    s.streets.Resolve(idx, firstZone(cluster)),
			Lat:        cluster.AnchorLat,
			Lng:        cluster.AnchorLng,
			Available:  available,
			Total:      total,
			Distance:   distanceLabel(distM),
			Prediction: trend,
			WalkTime:   walkTimeLabel(distM),
			Badge:      statusBadge(available, total),
		})

		newAvail[key] = available
		newTotals[key] = total
	}

	if err := s.cache.Set(ctx, KeyLiveParkingData, list, LiveParkingTTL); err != nil {
		return fmt.Errorf("cache live payload: %w", err)
	}
	if err := s.cache.Set(ctx, KeyPrevAvailability, newAvail, PrevAvailabilityTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist availability state")
	}
	if err := s.cache.Set(ctx, KeyPrevTotals, newTotals, PrevTotalsTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist totals state")
	}
	if err := s.cache.Set(ctx, KeyRefreshCounter, counters, RefreshCounterTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist refresh counters")
	}
	if err := s.cache.Publish(ctx, ChannelLive, list); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish live update")
	}

	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	metrics.ClustersTracked.Set(float64(len(clusters)))
	s.log.Info().
		Str("run", runID).
		Int("readings", len(readings)).
		Int("clusters", len(clusters)).
		Dur("took", time.Since(start)).
		Msg("live availability refreshed")
	return nil
}

// dampen applies change suppression: while the per-cluster counter has not
// reached its (randomized) threshold and a previous value exists, the fresh
// estimate is discarded and the previous value re-emitted verbatim.
func (s *LiveParkingService) dampen(fresh int, key string, prevAvail map[string]int, counter int) (available, nextCounter int) {
	threshold := 1
	if s.rng.Float64() < 0.8 {
		threshold = 5
	}
	if prev, ok := prevAvail[key]; ok && counter < threshold {
		return prev, counter + 1
	}
	return fresh, 1
}

// estimateTotalSpaces synthesizes a plausible capacity for a cluster the
// cache has never seen. Once cached it is reused until the 24h TTL expires.
func (s *LiveParkingService) estimateTotalSpaces(realTotal int, lat, lng float64) int {
	if realTotal >= 30 {
		return s.randInt(30, 40)
	}
	if spatial.Distance(lat, lng, s.cfg.CityCenterLat, s.cfg.CityCenterLng) <= 500 {
		return s.randInt(20, 30)
	}
	return s.randInt(10, 20)
}

func (s *LiveParkingService) adjustByTime(avail, total int, now time.Time) int {
	weekday := now.Weekday() >= time.Monday && now.Weekday() <= time.Friday
	h := now.Hour()

	var factor float64
	switch {
	case weekday && h >= 6 && h <= 17:
		factor = s.uniform(0.4, 0.7)
	case weekday:
		factor = s.uniform(0.7, 1.0)
	default:
		factor = s.uniform(0.3, 0.6)
	}
	return clamp(int(float64(avail)*factor), total)
}

func (s *LiveParkingService) adjustForCBDDemand(avail, total int, lat, lng float64) int {
	if spatial.Distance(lat, lng, s.cfg.CityCenterLat, s.cfg.CityCenterLng) <= 1000 {
		return clamp(int(float64(avail)*s.uniform(0.6, 0.85)), total)
	}
	return avail
}

func (s *LiveParkingService) adjustForEventDates(avail, total int, lat, lng float64, now time.Time) int {
	for _, d := range s.cfg.EventDates {
		if now.Year() == d.Year && int(now.Month()) == d.Month && now.Day() == d.Day {
			if spatial.Distance(lat, lng, s.cfg.CityCenterLat, s.cfg.CityCenterLng) <= 10000 {
				return clamp(int(float64(avail)*s.uniform(0.3, 0.6)), total)
			}
			break
		}
	}
	return avail
}

// pickVariation adds the small natural wobble that keeps values from looking
// frozen between damping steps.
func (s *LiveParkingService) pickVariation() int {
	deltas := [...]int{-2, -1, 0, 1, 2}
	return deltas[s.rng.Intn(len(deltas))]
}

func (s *LiveParkingService) randInt(min, max int) int {
	return min + s.rng.Intn(max-min+1)
}

func (s *LiveParkingService) uniform(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

func clamp(v, total int) int {
	if v < 0 {
		return 0
	}
	if v > total {
		return total
	}
	return v
}

func firstZone(c *spatial.Cluster) *int {
	if len(c.Points) == 0 {
		return nil
	}
	return c.Points[0].ZoneNumber
}

func statusBadge(available, total int) string {
	ratio := 0.0
	if total > 0 {
		ratio = float64(available) / float64(total)
	}
	switch {
	case ratio < 0.3:
		return "red"
	case ratio < 0.7:
		return "yellow"
	default:
		return "green"
	}
}

func distanceLabel(distM float64) string {
	if distM >= 1000 {
		return fmt.Sprintf("%.1fkm", distM/1000)
	}
	return fmt.Sprintf("%dm", int(distM))
}

func walkTimeLabel(distM float64) string {
	// 12 minutes per kilometer, never less than a minute.
	minutes := int(math.Round(distM / 1000 * 12))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min", minutes)
}
