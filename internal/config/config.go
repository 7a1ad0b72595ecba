package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Credentials for the transcription
// and oracle services are never part of it; they travel with each run.
type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Store         StoreConfig         `yaml:"store"`
	Cache         CacheConfig         `yaml:"cache"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Principal   string `yaml:"principal"`
	Env         string `yaml:"env"`
	HTTPPort    string `yaml:"http_port"`
	GRPCPort    string `yaml:"grpc_port"`
	MetricsPort string `yaml:"metrics_port"`
}

type OracleConfig struct {
	Provider    string        `yaml:"provider"` // openai, mock
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type TranscriptionConfig struct {
	Provider      string `yaml:"provider"` // google, mock
	LanguageCode  string `yaml:"language_code"`
	SampleRateHz  int    `yaml:"sample_rate_hz"`
	AudioEncoding string `yaml:"audio_encoding"`
	MinSpeakers   int    `yaml:"min_speakers"`
	MaxSpeakers   int    `yaml:"max_speakers"`
	Model         string `yaml:"model"`
}

// PipelineConfig bounds a single run.
type PipelineConfig struct {
	AnalysisConcurrency int           `yaml:"analysis_concurrency"`
	MaxRelationPairs    int           `yaml:"max_relation_pairs"` // 0 = unbounded
	CommitTimeout       time.Duration `yaml:"commit_timeout"`
	MaxAudioBytes       int64         `yaml:"max_audio_bytes"`
}

type StoreConfig struct {
	Path string `yaml:"path"` // empty = in-memory
}

type CacheConfig struct {
	Backend    string        `yaml:"backend"` // none, badger, redis
	BadgerPath string        `yaml:"badger_path"`
	RedisAddr  string        `yaml:"redis_addr"`
	TTL        time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	TopicCreated string   `yaml:"topic_created"`
	TopicFailed  string   `yaml:"topic_failed"`
	Principal    string   `yaml:"principal"`
}

type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json, console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "ai-debate-graph-service",
			Principal:   "svc-debate-graph",
			HTTPPort:    "8080",
			GRPCPort:    "50051",
			MetricsPort: "9090",
		},
		Oracle: OracleConfig{
			Provider:    "mock",
			Model:       "gpt-4o-2024-08-06",
			Temperature: 0.2,
			Timeout:     2 * time.Minute,
		},
		Transcription: TranscriptionConfig{
			Provider:      "mock",
			LanguageCode:  "en-US",
			SampleRateHz:  16000,
			AudioEncoding: "LINEAR16",
			MinSpeakers:   2,
			MaxSpeakers:   6,
			Model:         "latest_long",
		},
		Pipeline: PipelineConfig{
			AnalysisConcurrency: 4,
			CommitTimeout:       30 * time.Second,
			MaxAudioBytes:       100 * 1024 * 1024,
		},
		Store: StoreConfig{
			Path: "debates.db",
		},
		Cache: CacheConfig{
			Backend: "none",
			TTL:     7 * 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			TopicCreated: "debate.created",
			TopicFailed:  "debate.failed",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables. Unparseable environment
// values are ignored.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Service
	s.Name = envOrDefault("SERVICE_NAME", s.Name)
	s.Principal = envOrDefault("SERVICE_PRINCIPAL", s.Principal)
	s.Env = envOrDefault("ENV", s.Env)
	s.HTTPPort = envOrDefault("HTTP_PORT", s.HTTPPort)
	s.GRPCPort = envOrDefault("GRPC_PORT", s.GRPCPort)
	s.MetricsPort = envOrDefault("METRICS_PORT", s.MetricsPort)

	o := &c.Oracle
	o.Provider = envOrDefault("ORACLE_PROVIDER", o.Provider)
	o.Model = envOrDefault("ORACLE_MODEL", o.Model)
	o.BaseURL = envOrDefault("ORACLE_BASE_URL", o.BaseURL)
	o.Temperature = envOrDefaultFloat("ORACLE_TEMPERATURE", o.Temperature)
	o.Timeout = envOrDefaultDuration("ORACLE_TIMEOUT", o.Timeout)

	t := &c.Transcription
	t.Provider = envOrDefault("TRANSCRIPTION_PROVIDER", t.Provider)
	t.LanguageCode = envOrDefault("TRANSCRIPTION_LANGUAGE_CODE", t.LanguageCode)
	t.SampleRateHz = envOrDefaultInt("TRANSCRIPTION_SAMPLE_RATE_HZ", t.SampleRateHz)
	t.AudioEncoding = envOrDefault("TRANSCRIPTION_AUDIO_ENCODING", t.AudioEncoding)
	t.MinSpeakers = envOrDefaultInt("TRANSCRIPTION_MIN_SPEAKERS", t.MinSpeakers)
	t.MaxSpeakers = envOrDefaultInt("TRANSCRIPTION_MAX_SPEAKERS", t.MaxSpeakers)
	t.Model = envOrDefault("TRANSCRIPTION_MODEL", t.Model)

	p := &c.Pipeline
	p.AnalysisConcurrency = envOrDefaultInt("PIPELINE_ANALYSIS_CONCURRENCY", p.AnalysisConcurrency)
	p.MaxRelationPairs = envOrDefaultInt("PIPELINE_MAX_RELATION_PAIRS", p.MaxRelationPairs)
	p.CommitTimeout = envOrDefaultDuration("PIPELINE_COMMIT_TIMEOUT", p.CommitTimeout)
	p.MaxAudioBytes = int64(envOrDefaultInt("PIPELINE_MAX_AUDIO_BYTES", int(p.MaxAudioBytes)))

	c.Store.Path = envOrDefault("STORE_PATH", c.Store.Path)

	k := &c.Cache
	k.Backend = envOrDefault("CACHE_BACKEND", k.Backend)
	k.BadgerPath = envOrDefault("CACHE_BADGER_PATH", k.BadgerPath)
	k.RedisAddr = envOrDefault("CACHE_REDIS_ADDR", k.RedisAddr)
	k.TTL = envOrDefaultDuration("CACHE_TTL", k.TTL)

	kf := &c.Kafka
	kf.Enabled = envOrDefaultBool("KAFKA_ENABLED", kf.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kf.Brokers = splitList(brokers)
	}
	kf.TopicCreated = envOrDefault("KAFKA_TOPIC_CREATED", kf.TopicCreated)
	kf.TopicFailed = envOrDefault("KAFKA_TOPIC_FAILED", kf.TopicFailed)
	kf.Principal = envOrDefault("KAFKA_PRINCIPAL", kf.Principal)
	// Kafka principal defaults to the service principal
	if kf.Principal == "" {
		kf.Principal = s.Principal
	}

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
