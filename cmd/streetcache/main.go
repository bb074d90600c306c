package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"parkspot-api/config"
	"parkspot-api/socrata"
	"parkspot-api/spatial"
)

// streetcache snapshots a human-readable street name for every parking
// cluster by reverse-geocoding each cluster anchor against Nominatim. The
// output JSON maps cluster index to label and is read back by the API via
// streets.file.

const (
	nominatimURL     = "https://nominatim.openstreetmap.org/reverse"
	geocodeUserAgent = "parkspot-streetcache/1.0"
	fallbackLabel    = "Melbourne CBD"

	// Nominatim's usage policy caps anonymous clients at one request per
	// second.
	geocodeDelay = 1100 * time.Millisecond
)

type nominatimResponse struct {
	Address struct {
		Road   string `json:"road"`
		Suburb string `json:"suburb"`
	} `json:"address"`
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML config file")
	outPath := flag.String("out", "street_names.json", "output snapshot path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.InfoLevel).With().Timestamp().Logger()

	ctx := context.Background()

	source := socrata.NewClient(cfg.DataSource, logger)
	readings, err := source.FetchSensors(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch sensor snapshot")
	}

	clusters := spatial.GroupByProximity(readings, cfg.Heuristics.ClusterRadiusM)
	logger.Info().Int("sensors", len(readings)).Int("clusters", len(clusters)).Msg("clustered sensor snapshot")

	geocoder := &http.Client{Timeout: 5 * time.Second}
	calls := 0
	names := buildSnapshot(clusters, func(lat, lng float64) string {
		if calls > 0 {
			time.Sleep(geocodeDelay)
		}
		calls++
		label := reverseGeocode(ctx, geocoder, lat, lng)
		logger.Info().Int("cluster", calls).Str("label", label).Msg("resolved")
		return label
	})

	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to encode snapshot")
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		logger.Fatal().Err(err).Msg("failed to write snapshot")
	}
	logger.Info().Str("path", *outPath).Int("streets", len(names)).Msg("snapshot written")
}

// buildSnapshot labels every cluster anchor through lookup. Keys are the
// 1-based cluster numbers the live payload uses, so the API's Resolve calls
// line up with what is written here.
func buildSnapshot(clusters []*spatial.Cluster, lookup func(lat, lng float64) string) map[string]string {
	names := make(map[string]string, len(clusters))
	for i, cluster := range clusters {
		label := lookup(cluster.AnchorLat, cluster.AnchorLng)
		if label == "" {
			label = fallbackLabel
		}
		names[strconv.Itoa(i+1)] = label
	}
	return names
}

// reverseGeocode returns "Road, Suburb" for the point, or "" when Nominatim
// is unreachable or has no road for it.
func reverseGeocode(ctx context.Context, client *http.Client, lat, lng float64) string {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("zoom", "18")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nominatimURL+"?"+params.Encode(), nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", geocodeUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var decoded nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ""
	}

	switch {
	case decoded.Address.Road != "" && decoded.Address.Suburb != "":
		return decoded.Address.Road + ", " + decoded.Address.Suburb
	case decoded.Address.Road != "":
		return decoded.Address.Road
	case decoded.Address.Suburb != "":
		return decoded.Address.Suburb
	}
	return ""
}
