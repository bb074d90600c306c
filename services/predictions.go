package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"parkspot-api/config"
	"parkspot-api/metrics"
	"parkspot-api/models"
	"parkspot-api/restriction"
)

// MetadataSource supplies the restriction and street-segment datasets.
type MetadataSource interface {
	FetchSignPlates(ctx context.Context) ([]models.SignPlateRecord, error)
	FetchSegments(ctx context.Context) ([]models.SegmentRecord, error)
}

// DataSource is the full remote dependency of the prediction pipeline.
type DataSource interface {
	SensorSource
	MetadataSource
}

// PredictionService classifies every bay into one of six occupancy buckets
// by reconciling its sensor status against the zone's active restriction
// rule. Unlike the estimator there is no randomness here: the classifier is
// deterministic for a given snapshot and clock.
type PredictionService struct {
	source DataSource
	cache  Store
	tz     *time.Location
	now    func() time.Time
	group  singleflight.Group
	log    zerolog.Logger
}

// NewPredictionService wires the classifier pipeline. now may be nil to use
// the wall clock.
func NewPredictionService(
	source DataSource,
	cache Store,
	cfg config.HeuristicsConfig,
	now func() time.Time,
	log zerolog.Logger,
) (*PredictionService, error) {
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	if now == nil {
		now = time.Now
	}
	return &PredictionService{
		source: source,
		cache:  cache,
		tz:     tz,
		now:    now,
		log:    log.With().Str("component", "predictions").Logger(),
	}, nil
}

// PredictNow returns the current prediction payload, serving the cache when
// fresh and recomputing otherwise. Concurrent misses share one computation.
func (s *PredictionService) PredictNow(ctx context.Context) (*models.PredictionPayload, error) {
	var cached models.PredictionPayload
	if found, err := s.cache.Get(ctx, KeyPredictions, &cached); err == nil && found {
		metrics.PredictionCacheHits.Inc()
		return &cached, nil
	}

	v, err, _ := s.group.Do("predict", func() (any, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.PredictionPayload), nil
}

func (s *PredictionService) compute(ctx context.Context) (*models.PredictionPayload, error) {
	now := s.now().In(s.tz)

	// Street labels are optional enrichment: a failure here degrades to
	// unlabeled items, it never aborts the batch.
	segments, err := s.loadSegments(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("segment metadata unavailable, items will be unlabeled")
		segments = map[string]models.SegmentLabel{}
	}

	// Restriction metadata and the sensor snapshot are load-bearing; either
	// failing aborts the run and leaves the cached payload untouched.
	plates, err := s.loadSignPlates(ctx)
	if err != nil {
		metrics.PredictionFailures.Inc()
		return nil, fmt.Errorf("load sign plates: %w", err)
	}
	sensors, err := s.source.FetchSensors(ctx)
	if err != nil {
		metrics.PredictionFailures.Inc()
		return nil, fmt.Errorf("fetch sensor snapshot: %w", err)
	}

	counts := make(map[models.Classification]int, 6)
	for _, class := range models.AllClassifications() {
		counts[class] = 0
	}

	items := make([]models.PredictionItem, 0, len(sensors))
	for _, rec := range sensors {
		item := s.classifyReading(rec, plates, segments, now)
		counts[item.Classification]++
		items = append(items, item)
	}

	payload := &models.PredictionPayload{
		GeneratedAt: now.Format(time.RFC3339),
		TTL:         int(PredictionsTTL.Seconds()),
		Counts:      counts,
		Items:       items,
	}

	if err := s.cache.Set(ctx, KeyPredictions, payload, PredictionsTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache prediction payload")
	}
	metrics.PredictionsComputed.Inc()
	s.log.Info().Int("items", len(items)).Msg("prediction payload computed")
	return payload, nil
}

func (s *PredictionService) classifyReading(
	rec models.SensorReading,
	plates map[string][]models.SignPlateRule,
	segments map[string]models.SegmentLabel,
	now time.Time,
) models.PredictionItem {
	item := models.PredictionItem{
		KerbsideID: rec.KerbsideID,
		ZoneNumber: rec.ZoneNumber,
		Status:     rec.NormalizedStatus(),
	}
	if rec.StatusTimestamp != "" {
		ts := rec.StatusTimestamp
		item.StatusTimestamp = &ts
	}
	if rec.ZoneNumber != nil {
		if seg, ok := segments[strconv.Itoa(*rec.ZoneNumber)]; ok {
			if label := seg.Label(); label != "" {
				item.Street = &label
			}
		}
	}

	if rec.Unoccupied() {
		item.Classification = models.ClassUnoccupied
		return item
	}

	// Anything not reporting empty is treated as occupied, Unknown included.
	elapsed := 0.0
	if ts, ok := rec.Timestamp(s.tz); ok {
		elapsed = now.Sub(ts).Minutes()
	}

	var allowed *int
	var code *string
	if rec.ZoneNumber != nil {
		allowed, code = restriction.ActiveRule(plates[strconv.Itoa(*rec.ZoneNumber)], now)
	}

	item.Classification = classifyPresent(elapsed, allowed, code)
	item.MinutesElapsed = math.Round(elapsed*100) / 100
	item.AllowedMinutes = allowed
	item.RestrictionCode = code
	return item
}

// classifyPresent buckets an occupied bay by the time remaining under its
// governing restriction. Deterministic: same inputs, same class.
func classifyPresent(elapsedMin float64, allowedMin *int, ruleCode *string) models.Classification {
	if ruleCode != nil && *ruleCode == restriction.PermitCode {
		return models.ClassPermitParking
	}
	if allowedMin == nil {
		// No active bound known, assume the bay stays taken for over an hour.
		return models.ClassOccupiedGT60M
	}

	remaining := float64(*allowedMin) - elapsedMin
	switch {
	case remaining <= 15:
		return models.ClassVacate15M
	case remaining <= 30:
		return models.ClassVacate30M
	case remaining <= 60:
		return models.ClassVacate60M
	default:
		return models.ClassOccupiedGT60M
	}
}

// loadSignPlates returns the sign-plate rules grouped by zone, fetching from
// the remote source on a cache miss (30 min TTL).
func (s *PredictionService) loadSignPlates(ctx context.Context) (map[string][]models.SignPlateRule, error) {
	byZone := map[string][]models.SignPlateRule{}
	if found, err := s.cache.Get(ctx, KeySignPlates, &byZone); err == nil && found {
		return byZone, nil
	}

	records, err := s.source.FetchSignPlates(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ParkingZone == nil {
			continue
		}
		zone := strconv.Itoa(*rec.ParkingZone)
		byZone[zone] = append(byZone[zone], models.SignPlateRule{
			Display: rec.RestrictionDisplay,
			Days:    rec.RestrictionDays,
			Start:   rec.TimeRestrictionsStart,
			Finish:  rec.TimeRestrictionsFinish,
		})
	}

	if err := s.cache.Set(ctx, KeySignPlates, byZone, SignPlatesTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache sign plates")
	}
	return byZone, nil
}

func (s *PredictionService) loadSegments(ctx context.Context) (map[string]models.SegmentLabel, error) {
	byZone := map[string]models.SegmentLabel{}
	if found, err := s.cache.Get(ctx, KeySegments, &byZone); err == nil && found {
		return byZone, nil
	}

	records, err := s.source.FetchSegments(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ParkingZone == nil {
			continue
		}
		byZone[strconv.Itoa(*rec.ParkingZone)] = models.SegmentLabel{
			OnStreet:   rec.OnStreet,
			StreetFrom: rec.StreetFrom,
			StreetTo:   rec.StreetTo,
		}
	}

	if err := s.cache.Set(ctx, KeySegments, byZone, SegmentsTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache segments")
	}
	return byZone, nil
}
