package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"parkspot-api/models"
)

// fakeStore is an in-memory Store for tests; TTLs are accepted and ignored.
type fakeStore struct {
	data      map[string][]byte
	published [][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) Get(_ context.Context, key string, dest any) (bool, error) {
	b, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = b
	return nil
}

func (f *fakeStore) Publish(_ context.Context, _ string, message any) error {
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}
	f.published = append(f.published, b)
	return nil
}

// mustGet unmarshals a stored key into dest, failing silently on absence;
// tests assert on the zero value in that case.
func (f *fakeStore) mustGet(key string, dest any) bool {
	b, ok := f.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

var errRemoteDown = errors.New("remote source unreachable")

// fakeSource serves canned dataset responses.
type fakeSource struct {
	sensors    []models.SensorReading
	signPlates []models.SignPlateRecord
	segments   []models.SegmentRecord

	sensorsErr    error
	signPlatesErr error
	segmentsErr   error

	sensorCalls int
}

func (f *fakeSource) FetchSensors(context.Context) ([]models.SensorReading, error) {
	f.sensorCalls++
	if f.sensorsErr != nil {
		return nil, f.sensorsErr
	}
	return f.sensors, nil
}

func (f *fakeSource) FetchSignPlates(context.Context) ([]models.SignPlateRecord, error) {
	if f.signPlatesErr != nil {
		return nil, f.signPlatesErr
	}
	return f.signPlates, nil
}

func (f *fakeSource) FetchSegments(context.Context) ([]models.SegmentRecord, error) {
	if f.segmentsErr != nil {
		return nil, f.segmentsErr
	}
	return f.segments, nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func sensorAt(lat, lng float64, status string) models.SensorReading {
	return models.SensorReading{
		Status:   status,
		Location: &models.Location{Lat: lat, Lng: lng},
	}
}
