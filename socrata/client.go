// Package socrata talks to the Melbourne open-data records API (Socrata
// explore v2.1): offset-paged reads of a dataset's records endpoint.
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"parkspot-api/config"
	"parkspot-api/models"
)

// Dataset identifiers under /catalog/datasets/.
const (
	DatasetSensors    = "on-street-parking-bay-sensors"
	DatasetSignPlates = "sign-plates-located-in-each-parking-zone"
	DatasetSegments   = "parking-zones-linked-to-street-segments"
)

// Page caps per call. The sensor snapshot is bounded tighter since it is
// fetched on the hot path.
const (
	sensorMaxPages   = 10
	metadataMaxPages = 20
)

// RemoteError wraps any failure to read a dataset: network errors, non-2xx
// responses and malformed JSON.
type RemoteError struct {
	Dataset    string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("socrata %s: unexpected status %d", e.Dataset, e.StatusCode)
	}
	return fmt.Sprintf("socrata %s: %v", e.Dataset, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

type Client struct {
	baseURL   string
	appToken  string
	pageLimit int
	pageDelay time.Duration
	http      *http.Client
	log       zerolog.Logger
}

func NewClient(cfg config.DataSourceConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		appToken:  cfg.AppToken,
		pageLimit: cfg.PageLimit,
		pageDelay: time.Duration(cfg.PageDelayMs) * time.Millisecond,
		http:      &http.Client{Timeout: time.Duration(cfg.PageTimeoutSec) * time.Second},
		log:       log.With().Str("component", "socrata").Logger(),
	}
}

// FetchSensors pulls the live sensor snapshot, newest status changes first.
func (c *Client) FetchSensors(ctx context.Context) ([]models.SensorReading, error) {
	return fetchAll[models.SensorReading](ctx, c, DatasetSensors, "status_timestamp DESC", sensorMaxPages)
}

// FetchSignPlates pulls the sign-plate restriction metadata.
func (c *Client) FetchSignPlates(ctx context.Context) ([]models.SignPlateRecord, error) {
	return fetchAll[models.SignPlateRecord](ctx, c, DatasetSignPlates, "parkingzone", metadataMaxPages)
}

// FetchSegments pulls the zone-to-street-segment metadata.
func (c *Client) FetchSegments(ctx context.Context) ([]models.SegmentRecord, error) {
	return fetchAll[models.SegmentRecord](ctx, c, DatasetSegments, "parkingzone", metadataMaxPages)
}

func fetchAll[T any](ctx context.Context, c *Client, dataset, orderBy string, maxPages int) ([]T, error) {
	var results []T
	offset := 0

	for page := 0; page < maxPages; page++ {
		chunk, err := fetchPage[T](ctx, c, dataset, orderBy, offset)
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
		if len(chunk) < c.pageLimit {
			break
		}
		offset += c.pageLimit

		// Small pause between pages to respect the API's rate limits.
		select {
		case <-ctx.Done():
			return nil, &RemoteError{Dataset: dataset, Err: ctx.Err()}
		case <-time.After(c.pageDelay):
		}
	}

	c.log.Debug().Str("dataset", dataset).Int("records", len(results)).Msg("dataset fetched")
	return results, nil
}

func fetchPage[T any](ctx context.Context, c *Client, dataset, orderBy string, offset int) ([]T, error) {
	url := fmt.Sprintf("%s/catalog/datasets/%s/records", c.baseURL, dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RemoteError{Dataset: dataset, Err: err}
	}

	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(c.pageLimit))
	q.Set("offset", strconv.Itoa(offset))
	if orderBy != "" {
		q.Set("order_by", orderBy)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Dataset: dataset, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &RemoteError{Dataset: dataset, StatusCode: resp.StatusCode}
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &RemoteError{Dataset: dataset, Err: fmt.Errorf("decode response: %w", err)}
	}
	return envelope.Results, nil
}
