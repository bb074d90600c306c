package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Redis      RedisConfig      `koanf:"redis"`
	Database   DatabaseConfig   `koanf:"database"`
	CORS       CORSConfig       `koanf:"cors"`
	DataSource DataSourceConfig `koanf:"datasource"`
	Heuristics HeuristicsConfig `koanf:"heuristics"`
	Streets    StreetsConfig    `koanf:"streets"`
	Logging    LoggingConfig    `koanf:"logging"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RefreshIntervalSec enables the background availability refresh loop
	// when > 0; 0 leaves refreshes request-driven.
	RefreshIntervalSec int `koanf:"refresh_interval_sec"`
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type DatabaseConfig struct {
	// Enabled switches the street-name lookup source from the JSON snapshot
	// to the parking_zone_segments table.
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

type CORSConfig struct {
	AllowedOrigins string `koanf:"allowed_origins"`
}

type DataSourceConfig struct {
	BaseURL string `koanf:"base_url"`
	// AppToken is sent as X-App-Token when set. Optional but recommended;
	// anonymous access is heavily throttled.
	AppToken       string `koanf:"app_token"`
	PageLimit      int    `koanf:"page_limit"`
	PageTimeoutSec int    `koanf:"page_timeout_sec"`
	PageDelayMs    int    `koanf:"page_delay_ms"`
}

type EventDate struct {
	Year  int `koanf:"year"`
	Month int `koanf:"month"`
	Day   int `koanf:"day"`
}

type HeuristicsConfig struct {
	CityCenterLat  float64     `koanf:"city_center_lat"`
	CityCenterLng  float64     `koanf:"city_center_lng"`
	ClusterRadiusM float64     `koanf:"cluster_radius_m"`
	Timezone       string      `koanf:"timezone"`
	EventDates     []EventDate `koanf:"event_dates"`
	EventsEnabled  bool        `koanf:"events_enabled"`
}

type StreetsConfig struct {
	// File is the JSON street snapshot written by cmd/streetcache.
	File string `koanf:"file"`
}

type LoggingConfig struct {
	Level   string `koanf:"level"`
	Console bool   `koanf:"console"`
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (s *ServerConfig) SetDefaults() {
	if s.Port == 0 {
		s.Port = 8080
	}
}

func (r *RedisConfig) SetDefaults() {
	if r.Host == "" {
		r.Host = "localhost"
	}
	if r.Port == 0 {
		r.Port = 6379
	}
}

func (d *DatabaseConfig) SetDefaults() {
	if d.Host == "" {
		d.Host = "localhost"
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.User == "" {
		d.User = "parkspot"
	}
	if d.Name == "" {
		d.Name = "parkspot"
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

func (c *CORSConfig) SetDefaults() {
	if c.AllowedOrigins == "" {
		c.AllowedOrigins = "*"
	}
}

func (d *DataSourceConfig) SetDefaults() {
	if d.BaseURL == "" {
		d.BaseURL = "https://data.melbourne.vic.gov.au/api/explore/v2.1"
	}
	if d.PageLimit == 0 {
		d.PageLimit = 100
	}
	if d.PageTimeoutSec == 0 {
		d.PageTimeoutSec = 15
	}
	if d.PageDelayMs == 0 {
		d.PageDelayMs = 150
	}
}

func (h *HeuristicsConfig) SetDefaults() {
	if h.CityCenterLat == 0 {
		h.CityCenterLat = -37.814
	}
	if h.CityCenterLng == 0 {
		h.CityCenterLng = 144.96332
	}
	if h.ClusterRadiusM == 0 {
		h.ClusterRadiusM = 100
	}
	if h.Timezone == "" {
		h.Timezone = "Australia/Melbourne"
	}
}

func (l *LoggingConfig) SetDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

func (l LoggingConfig) Validate() error {
	switch l.Level {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid logging level: %q", l.Level)
}

func (h HeuristicsConfig) Validate() error {
	if h.ClusterRadiusM <= 0 {
		return fmt.Errorf("cluster_radius_m must be positive, got %v", h.ClusterRadiusM)
	}
	for _, d := range h.EventDates {
		if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
			return fmt.Errorf("invalid event date %d-%d-%d", d.Year, d.Month, d.Day)
		}
	}
	return nil
}

// Load reads an optional YAML config file and applies PARKSPOT_* environment
// overrides ("__" maps to a nesting dot, e.g. PARKSPOT_REDIS__HOST).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PARKSPOT_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "parkspot_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// A plain bool cannot distinguish "unset" from "false"; the event-date
	// adjustment is on unless explicitly disabled.
	if !k.Exists("heuristics.events_enabled") {
		cfg.Heuristics.EventsEnabled = true
	}

	cfg.Server.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.Database.SetDefaults()
	cfg.CORS.SetDefaults()
	cfg.DataSource.SetDefaults()
	cfg.Heuristics.SetDefaults()
	cfg.Logging.SetDefaults()

	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Heuristics.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
