package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BoundaryNoMatch    = "no_match"
	BoundaryWraparound = "wraparound"

	MalformedIsolate = "isolate"
	MalformedAbort   = "abort"
)

type Config struct {
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	LogFormat   string            `json:"log_format" yaml:"log_format"`
	Input       InputConfig       `json:"input" yaml:"input"`
	Attribution AttributionConfig `json:"attribution" yaml:"attribution"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Publish     PublishConfig     `json:"publish" yaml:"publish"`
	API         APIConfig         `json:"api" yaml:"api"`
	Summary     SummaryConfig     `json:"summary" yaml:"summary"`
	Issues      IssuesConfig      `json:"issues" yaml:"issues"`
}

type InputConfig struct {
	TranscriptPath string `json:"transcript_path" yaml:"transcript_path"`
	PortfolioPath  string `json:"portfolio_path" yaml:"portfolio_path"`
	ProfilePath    string `json:"profile_path" yaml:"profile_path"`
	Dedupe         bool   `json:"dedupe" yaml:"dedupe"`
}

type AttributionConfig struct {
	Workers               int    `json:"workers" yaml:"workers"`
	BoundaryPolicy        string `json:"boundary_policy" yaml:"boundary_policy"`
	MalformedPolicy       string `json:"malformed_policy" yaml:"malformed_policy"`
	RequireKnownCustomers bool   `json:"require_known_customers" yaml:"require_known_customers"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type PublishConfig struct {
	Kafka KafkaConfig `json:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Brokers   []string `json:"brokers" yaml:"brokers"`
	Topic     string   `json:"topic" yaml:"topic"`
	BatchSize int      `json:"batch_size" yaml:"batch_size"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type SummaryConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type IssuesConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Input: InputConfig{
			TranscriptPath: "data/transcript.json",
			PortfolioPath:  "data/portfolio.json",
			ProfilePath:    "data/profile.json",
			Dedupe:         true,
		},
		Attribution: AttributionConfig{
			Workers:         runtime.NumCPU(),
			BoundaryPolicy:  BoundaryNoMatch,
			MalformedPolicy: MalformedIsolate,
		},
		Storage: StorageConfig{Enabled: true, Driver: "sqlite", DSN: "file:offerlens.db?_pragma=busy_timeout(5000)"},
		Publish: PublishConfig{Kafka: KafkaConfig{Enabled: false, Topic: "offerlens.attributed", BatchSize: 500}},
		API:     APIConfig{Enabled: true, Addr: ":3001"},
		Summary: SummaryConfig{StoreLimit: 20000},
		Issues:  IssuesConfig{StoreLimit: 1000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := DefaultConfig()
		applyDefaults(cfg)
		return cfg, Validate(cfg)
	}
	return Load(path)
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Attribution.Workers <= 0 {
		cfg.Attribution.Workers = runtime.NumCPU()
	}
	if cfg.Attribution.BoundaryPolicy == "" {
		cfg.Attribution.BoundaryPolicy = BoundaryNoMatch
	}
	if cfg.Attribution.MalformedPolicy == "" {
		cfg.Attribution.MalformedPolicy = MalformedIsolate
	}
	cfg.Attribution.BoundaryPolicy = strings.ToLower(strings.TrimSpace(cfg.Attribution.BoundaryPolicy))
	cfg.Attribution.MalformedPolicy = strings.ToLower(strings.TrimSpace(cfg.Attribution.MalformedPolicy))
	if cfg.Publish.Kafka.BatchSize <= 0 {
		cfg.Publish.Kafka.BatchSize = 500
	}
	if cfg.Summary.StoreLimit <= 0 {
		cfg.Summary.StoreLimit = 20000
	}
	if cfg.Issues.StoreLimit <= 0 {
		cfg.Issues.StoreLimit = 1000
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}

func Validate(cfg *Config) error {
	switch cfg.Attribution.BoundaryPolicy {
	case BoundaryNoMatch, BoundaryWraparound:
	default:
		return fmt.Errorf("attribution.boundary_policy must be %q or %q, got %q", BoundaryNoMatch, BoundaryWraparound, cfg.Attribution.BoundaryPolicy)
	}
	switch cfg.Attribution.MalformedPolicy {
	case MalformedIsolate, MalformedAbort:
	default:
		return fmt.Errorf("attribution.malformed_policy must be %q or %q, got %q", MalformedIsolate, MalformedAbort, cfg.Attribution.MalformedPolicy)
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Storage.Enabled {
		switch strings.ToLower(cfg.Storage.Driver) {
		case "sqlite", "postgres", "postgresql":
		default:
			return fmt.Errorf("storage.driver unsupported: %q", cfg.Storage.Driver)
		}
	}
	if cfg.Publish.Kafka.Enabled {
		if len(cfg.Publish.Kafka.Brokers) == 0 || cfg.Publish.Kafka.Topic == "" {
			return errors.New("publish.kafka requires brokers, topic")
		}
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	if path != "" {
		if info, err := os.Stat(path); err == nil {
			m.modTime = info.ModTime()
		}
	}
	return m, nil
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, err := LoadOrDefault(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
