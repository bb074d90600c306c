package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"parkspot-api/models"
	"parkspot-api/restriction"
)

func newTestPredictionService(t *testing.T, source DataSource, store Store) *PredictionService {
	t.Helper()
	svc, err := NewPredictionService(
		source, store, testHeuristics(),
		func() time.Time { return mondayMorning },
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("NewPredictionService: %v", err)
	}
	return svc
}

// occupiedReading is a bay whose sensor last changed minutesAgo before the
// fixed test clock.
func occupiedReading(id int64, zone int, minutesAgo int) models.SensorReading {
	ts := mondayMorning.Add(-time.Duration(minutesAgo) * time.Minute)
	return models.SensorReading{
		KerbsideID:      int64Ptr(id),
		ZoneNumber:      intPtr(zone),
		Status:          "Present",
		StatusTimestamp: ts.Format(time.RFC3339),
	}
}

func allDayPlate(zone int, display string) models.SignPlateRecord {
	return models.SignPlateRecord{
		ParkingZone:            intPtr(zone),
		RestrictionDisplay:     display,
		RestrictionDays:        "Mon-Sun",
		TimeRestrictionsStart:  "00:00:00",
		TimeRestrictionsFinish: "23:59:59",
	}
}

func TestPredictNowCountsSumToRows(t *testing.T) {
	source := &fakeSource{
		sensors: []models.SensorReading{
			{KerbsideID: int64Ptr(1), Status: "Unoccupied"},
			{KerbsideID: int64Ptr(2), Status: "unoccupied"},
			occupiedReading(3, 7003, 30),
			occupiedReading(4, 7004, 5),
			{KerbsideID: int64Ptr(5), Status: "Unknown"},
			{KerbsideID: int64Ptr(6)}, // blank status counts as Unknown
		},
		signPlates: []models.SignPlateRecord{
			allDayPlate(7003, "1P"),
			allDayPlate(7004, "PP"),
		},
	}

	payload, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background())
	if err != nil {
		t.Fatalf("PredictNow() error: %v", err)
	}

	if len(payload.Counts) != 6 {
		t.Errorf("counts has %d keys, want all 6", len(payload.Counts))
	}
	for _, class := range models.AllClassifications() {
		if _, ok := payload.Counts[class]; !ok {
			t.Errorf("counts missing key %s", class)
		}
	}

	sum := 0
	for _, n := range payload.Counts {
		sum += n
	}
	if sum != len(source.sensors) {
		t.Errorf("counts sum to %d, want %d", sum, len(source.sensors))
	}
	if len(payload.Items) != len(source.sensors) {
		t.Errorf("items = %d, want %d", len(payload.Items), len(source.sensors))
	}
	if payload.TTL != 60 {
		t.Errorf("TTL = %d, want 60", payload.TTL)
	}
}

func TestPredictNowClassifications(t *testing.T) {
	source := &fakeSource{
		sensors: []models.SensorReading{
			{KerbsideID: int64Ptr(1), Status: "Unoccupied"},
			occupiedReading(2, 7003, 30), // 1P, 30 elapsed -> 30 remaining
			occupiedReading(3, 7004, 10), // permit zone
			occupiedReading(4, 7005, 10), // no plates for the zone
		},
		signPlates: []models.SignPlateRecord{
			allDayPlate(7003, "1P"),
			allDayPlate(7004, "PP"),
		},
	}

	payload, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background())
	if err != nil {
		t.Fatalf("PredictNow() error: %v", err)
	}

	byID := map[int64]models.PredictionItem{}
	for _, item := range payload.Items {
		byID[*item.KerbsideID] = item
	}

	if got := byID[1].Classification; got != models.ClassUnoccupied {
		t.Errorf("bay 1 = %s, want UNOCCUPIED", got)
	}
	if got := byID[1].MinutesElapsed; got != 0 {
		t.Errorf("bay 1 elapsed = %v, want 0", got)
	}

	if got := byID[2].Classification; got != models.ClassVacate30M {
		t.Errorf("bay 2 = %s, want VACATE_30M", got)
	}
	if byID[2].AllowedMinutes == nil || *byID[2].AllowedMinutes != 60 {
		t.Errorf("bay 2 allowed = %v, want 60", byID[2].AllowedMinutes)
	}
	if byID[2].RestrictionCode == nil || *byID[2].RestrictionCode != "1P" {
		t.Errorf("bay 2 code = %v, want 1P", byID[2].RestrictionCode)
	}
	if byID[2].MinutesElapsed != 30 {
		t.Errorf("bay 2 elapsed = %v, want 30", byID[2].MinutesElapsed)
	}

	if got := byID[3].Classification; got != models.ClassPermitParking {
		t.Errorf("bay 3 = %s, want PERMIT_PARKING", got)
	}

	// No rules for the zone: occupancy is unbounded.
	if got := byID[4].Classification; got != models.ClassOccupiedGT60M {
		t.Errorf("bay 4 = %s, want OCCUPIED_GT_60M", got)
	}
	if byID[4].AllowedMinutes != nil {
		t.Errorf("bay 4 allowed = %v, want nil", *byID[4].AllowedMinutes)
	}
}

func TestPredictNowMissingTimestampTreatedAsZeroElapsed(t *testing.T) {
	source := &fakeSource{
		sensors: []models.SensorReading{
			{KerbsideID: int64Ptr(1), ZoneNumber: intPtr(7003), Status: "Present"},
		},
		signPlates: []models.SignPlateRecord{allDayPlate(7003, "2P")},
	}

	payload, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background())
	if err != nil {
		t.Fatalf("PredictNow() error: %v", err)
	}

	item := payload.Items[0]
	if item.MinutesElapsed != 0 {
		t.Errorf("elapsed = %v, want 0 for missing timestamp", item.MinutesElapsed)
	}
	// 120 allowed minus 0 elapsed leaves more than an hour.
	if item.Classification != models.ClassOccupiedGT60M {
		t.Errorf("classification = %s, want OCCUPIED_GT_60M", item.Classification)
	}
	if item.StatusTimestamp != nil {
		t.Errorf("timestamp = %v, want nil", *item.StatusTimestamp)
	}
}

func TestPredictNowStreetLabels(t *testing.T) {
	source := &fakeSource{
		sensors: []models.SensorReading{
			occupiedReading(1, 7003, 5),
			occupiedReading(2, 7004, 5),
		},
		segments: []models.SegmentRecord{
			{ParkingZone: intPtr(7003), OnStreet: "Pelham Street", StreetFrom: "Cardigan", StreetTo: "Swanston"},
			{ParkingZone: intPtr(7004), OnStreet: "Spencer Street"},
		},
	}

	payload, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background())
	if err != nil {
		t.Fatalf("PredictNow() error: %v", err)
	}

	if payload.Items[0].Street == nil || *payload.Items[0].Street != "Pelham Street (Cardigan-Swanston)" {
		t.Errorf("street = %v", payload.Items[0].Street)
	}
	if payload.Items[1].Street == nil || *payload.Items[1].Street != "Spencer Street" {
		t.Errorf("street = %v", payload.Items[1].Street)
	}
}

func TestPredictNowServesCache(t *testing.T) {
	store := newFakeStore()
	cached := models.PredictionPayload{
		GeneratedAt: "2025-04-14T09:59:00+10:00",
		TTL:         60,
		Counts:      map[models.Classification]int{models.ClassUnoccupied: 3},
	}
	if err := store.Set(context.Background(), KeyPredictions, cached, PredictionsTTL); err != nil {
		t.Fatal(err)
	}

	// Every remote call fails: a cache hit must not touch the source.
	source := &fakeSource{sensorsErr: errRemoteDown, signPlatesErr: errRemoteDown, segmentsErr: errRemoteDown}
	payload, err := newTestPredictionService(t, source, store).PredictNow(context.Background())
	if err != nil {
		t.Fatalf("PredictNow() error: %v", err)
	}
	if payload.GeneratedAt != cached.GeneratedAt {
		t.Errorf("GeneratedAt = %q, want cached payload", payload.GeneratedAt)
	}
	if source.sensorCalls != 0 {
		t.Errorf("source was called %d times on a cache hit", source.sensorCalls)
	}
}

func TestPredictNowSensorFailureAborts(t *testing.T) {
	source := &fakeSource{sensorsErr: errRemoteDown}
	if _, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background()); err == nil {
		t.Fatal("expected error when the sensor snapshot fails")
	}
}

func TestPredictNowSignPlateFailureAborts(t *testing.T) {
	source := &fakeSource{
		sensors:       []models.SensorReading{occupiedReading(1, 7003, 5)},
		signPlatesErr: errRemoteDown,
	}
	if _, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background()); err == nil {
		t.Fatal("expected error when sign-plate metadata fails")
	}
}

func TestPredictNowSegmentFailureDegrades(t *testing.T) {
	source := &fakeSource{
		sensors:     []models.SensorReading{occupiedReading(1, 7003, 5)},
		segmentsErr: errRemoteDown,
	}

	payload, err := newTestPredictionService(t, source, newFakeStore()).PredictNow(context.Background())
	if err != nil {
		t.Fatalf("segment failure should not abort the run: %v", err)
	}
	if payload.Items[0].Street != nil {
		t.Errorf("street = %v, want nil when segments are unavailable", *payload.Items[0].Street)
	}
}

func TestPredictNowCachesSignPlates(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{
		sensors:    []models.SensorReading{occupiedReading(1, 7003, 5)},
		signPlates: []models.SignPlateRecord{allDayPlate(7003, "1P")},
	}
	svc := newTestPredictionService(t, source, store)

	if _, err := svc.PredictNow(context.Background()); err != nil {
		t.Fatal(err)
	}

	var plates map[string][]models.SignPlateRule
	if !store.mustGet(KeySignPlates, &plates) {
		t.Fatal("sign plates were not cached")
	}
	if len(plates["7003"]) != 1 || plates["7003"][0].Display != "1P" {
		t.Errorf("cached plates = %v", plates)
	}
}

func TestClassifyPresent(t *testing.T) {
	pp := restriction.PermitCode
	sixty := 60

	tests := []struct {
		name    string
		elapsed float64
		allowed *int
		code    *string
		want    models.Classification
	}{
		{"permit wins", 0, &sixty, &pp, models.ClassPermitParking},
		{"no bound", 500, nil, nil, models.ClassOccupiedGT60M},
		{"vacate 15", 50, &sixty, nil, models.ClassVacate15M},
		{"vacate 15 boundary", 45, &sixty, nil, models.ClassVacate15M},
		{"vacate 30", 35, &sixty, nil, models.ClassVacate30M},
		{"vacate 60", 5, &sixty, nil, models.ClassVacate60M},
		{"overstayed", 90, &sixty, nil, models.ClassVacate15M},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPresent(tt.elapsed, tt.allowed, tt.code)
			if got != tt.want {
				t.Errorf("classifyPresent(%v) = %s, want %s", tt.elapsed, got, tt.want)
			}
		})
	}

	// Same inputs, same answer: the classifier carries no hidden randomness.
	for i := 0; i < 5; i++ {
		if got := classifyPresent(35, &sixty, nil); got != models.ClassVacate30M {
			t.Fatalf("classifyPresent not deterministic, got %s", got)
		}
	}
}
