package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appdb "github.com/yungbote/conceptdb/internal/data/db"
	"github.com/yungbote/conceptdb/internal/observability"
	"github.com/yungbote/conceptdb/internal/platform/envutil"
)

const (
	GraphBackendMemory = "memory"
	GraphBackendNeo4j  = "neo4j"
)

// Duration accepts "1500ms" style strings or a bare number of seconds in YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" {
		d.Duration = 0
		return nil
	}
	if dd, err := time.ParseDuration(s); err == nil {
		d.Duration = dd
		return nil
	}
	var secs int64
	if err := node.Decode(&secs); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or a number of seconds: %q", s)
	}
	d.Duration = time.Duration(secs) * time.Second
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	CORSOrigins    []string `yaml:"cors_origins"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type GraphConfig struct {
	Backend string `yaml:"backend"`
	// SnapshotPath is loaded on start and written on shutdown by the memory backend.
	SnapshotPath string `yaml:"snapshot_path"`
}

type Neo4jConfig struct {
	URI         string   `yaml:"uri"`
	User        string   `yaml:"user"`
	Password    string   `yaml:"password"`
	Database    string   `yaml:"database"`
	MaxPoolSize int      `yaml:"max_pool_size"`
	Timeout     Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	LockTTL  Duration `yaml:"lock_ttl"`
}

type LocksConfig struct {
	Timeout Duration `yaml:"timeout"`
}

type HistoryConfig struct {
	Driver    string   `yaml:"driver"`
	DSN       string   `yaml:"dsn"`
	Retention Duration `yaml:"retention"`
}

type AggregatesConfig struct {
	BatchSize int `yaml:"batch_size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Addr serves /metrics on a dedicated listener; empty mounts it on the API router.
	Addr           string   `yaml:"addr"`
	ScrapeInterval Duration `yaml:"scrape_interval"`
}

type OtelConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ServiceName string            `yaml:"service_name"`
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"headers"`
	Insecure    bool              `yaml:"insecure"`
	SampleRatio float64           `yaml:"sample_ratio"`
}

type Config struct {
	Env        string           `yaml:"env"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Graph      GraphConfig      `yaml:"graph"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	Redis      RedisConfig      `yaml:"redis"`
	Locks      LocksConfig      `yaml:"locks"`
	History    HistoryConfig    `yaml:"history"`
	Aggregates AggregatesConfig `yaml:"aggregates"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Otel       OtelConfig       `yaml:"otel"`
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		Log: LogConfig{Mode: "development"},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: Duration{Duration: 5 * time.Minute},
		},
		Graph: GraphConfig{Backend: GraphBackendMemory},
		Neo4j: Neo4jConfig{
			User:        "neo4j",
			MaxPoolSize: 50,
			Timeout:     Duration{Duration: 10 * time.Second},
		},
		Redis:      RedisConfig{LockTTL: Duration{Duration: 10 * time.Minute}},
		Locks:      LocksConfig{Timeout: Duration{Duration: 30 * time.Second}},
		History:    HistoryConfig{Driver: appdb.DriverSQLite, DSN: "conceptdb.sqlite"},
		Aggregates: AggregatesConfig{BatchSize: 5000},
		Metrics:    MetricsConfig{Enabled: true, ScrapeInterval: Duration{Duration: 15 * time.Second}},
		Otel:       OtelConfig{ServiceName: "conceptdb", SampleRatio: 1},
	}
}

// LoadConfig reads path (or CONCEPTDB_CONFIG) over the defaults, then applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	path = strings.TrimSpace(path)
	if path == "" {
		path = envutil.String("CONCEPTDB_CONFIG", "")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("CONCEPTDB_ENV", cfg.Env)
	cfg.Log.Mode = envutil.String("LOG_MODE", cfg.Log.Mode)

	cfg.HTTP.Addr = envutil.String("CONCEPTDB_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.CORSOrigins = envutil.List("CONCEPTDB_CORS_ORIGINS", cfg.HTTP.CORSOrigins)
	cfg.HTTP.RequestTimeout.Duration = envutil.Duration("CONCEPTDB_REQUEST_TIMEOUT", cfg.HTTP.RequestTimeout.Duration)

	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecret)

	cfg.Graph.Backend = envutil.String("CONCEPTDB_GRAPH_BACKEND", cfg.Graph.Backend)
	cfg.Graph.SnapshotPath = envutil.String("CONCEPTDB_SNAPSHOT_PATH", cfg.Graph.SnapshotPath)

	cfg.Neo4j.URI = envutil.String("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = envutil.String("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = envutil.String("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = envutil.String("NEO4J_DATABASE", cfg.Neo4j.Database)
	cfg.Neo4j.MaxPoolSize = envutil.Int("NEO4J_MAX_POOL_SIZE", cfg.Neo4j.MaxPoolSize)
	cfg.Neo4j.Timeout.Duration = envutil.Duration("NEO4J_TIMEOUT_SECONDS", cfg.Neo4j.Timeout.Duration)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.LockTTL.Duration = envutil.Duration("CONCEPTDB_LOCK_TTL", cfg.Redis.LockTTL.Duration)
	cfg.Locks.Timeout.Duration = envutil.Duration("CONCEPTDB_LOCK_TIMEOUT", cfg.Locks.Timeout.Duration)

	cfg.History.Driver = envutil.String("HISTORY_DRIVER", cfg.History.Driver)
	cfg.History.DSN = envutil.String("HISTORY_DSN", cfg.History.DSN)
	cfg.History.Retention.Duration = envutil.Duration("HISTORY_RETENTION", cfg.History.Retention.Duration)

	cfg.Aggregates.BatchSize = envutil.Int("CONCEPTDB_AGGREGATE_BATCH_SIZE", cfg.Aggregates.BatchSize)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = envutil.String("METRICS_ADDR", cfg.Metrics.Addr)
	cfg.Metrics.ScrapeInterval.Duration = envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", cfg.Metrics.ScrapeInterval.Duration)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	if raw := envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""); raw != "" {
		cfg.Otel.Headers = observability.ParseHeaders(raw)
	}
	if v := envutil.String("OTEL_SAMPLER_RATIO", ""); v != "" {
		var ratio float64
		if _, err := fmt.Sscanf(v, "%g", &ratio); err == nil {
			cfg.Otel.SampleRatio = ratio
		}
	}
}

func (c *Config) validate() error {
	c.Graph.Backend = strings.ToLower(strings.TrimSpace(c.Graph.Backend))
	switch c.Graph.Backend {
	case "":
		c.Graph.Backend = GraphBackendMemory
	case GraphBackendMemory:
	case GraphBackendNeo4j:
		if strings.TrimSpace(c.Neo4j.URI) == "" {
			return errors.New("graph.backend=neo4j requires neo4j.uri")
		}
	default:
		return fmt.Errorf("invalid graph.backend %q (memory|neo4j)", c.Graph.Backend)
	}

	c.History.Driver = strings.ToLower(strings.TrimSpace(c.History.Driver))
	switch c.History.Driver {
	case "":
		c.History.Driver = appdb.DriverNone
	case appdb.DriverNone, appdb.DriverSQLite:
	case appdb.DriverPostgres:
		if strings.TrimSpace(c.History.DSN) == "" {
			return errors.New("history.driver=postgres requires history.dsn")
		}
	default:
		return fmt.Errorf("invalid history.driver %q (sqlite|postgres|none)", c.History.Driver)
	}

	if c.Aggregates.BatchSize <= 0 {
		c.Aggregates.BatchSize = 5000
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		return fmt.Errorf("invalid otel.sample_ratio %v (0..1)", c.Otel.SampleRatio)
	}
	return nil
}

func (c *Config) otel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Env,
		Endpoint:    c.Otel.Endpoint,
		Headers:     c.Otel.Headers,
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}
