package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ayubridge/mapping-engine/pkg/apperrors"
)

// Config holds all configuration for the mapping engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API tokens) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration for the remote-search response cache (optional)
	Redis RedisConfig `yaml:"redis"`

	// WHO ICD-11 API client configuration
	WHO WHOAPIConfig `yaml:"who_api"`

	// Terminology systems and releases for this deployment
	Terminology TerminologyConfig `yaml:"terminology"`

	// Mapping algorithm tuning
	Mapping MappingConfig `yaml:"mapping"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ayubridge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"mapping_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis cache configuration. An empty host disables the
// cache; the engine then queries the WHO API directly for every search.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// SearchTTLSeconds is how long cached WHO search responses stay valid.
	SearchTTLSeconds int `yaml:"search_ttl_seconds" env:"REDIS_SEARCH_TTL_SECONDS" env-default:"86400"`
}

// WHOAPIConfig holds the remote terminology service configuration. The
// client owns authentication; the engine only consumes search and detail
// lookups and treats any failure as an empty adapter result.
type WHOAPIConfig struct {
	BaseURL    string `yaml:"base_url" env:"WHO_API_BASE_URL" env-default:"https://id.who.int/icd"`
	APIVersion string `yaml:"api_version" env:"WHO_API_VERSION" env-default:"v2"`
	// Token is the pre-negotiated bearer token. Secret - not in YAML.
	Token string `yaml:"-" env:"WHO_API_TOKEN"`
	// TimeoutSeconds applies per request. On timeout the remote adapter
	// returns empty and the term continues with the other adapters.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"WHO_API_TIMEOUT_SECONDS" env-default:"15"`
	// RatePerSecond and Burst configure the shared token-bucket limiter
	// across all remote adapter calls in a run.
	RatePerSecond float64 `yaml:"rate_per_second" env:"WHO_API_RATE_PER_SECOND" env-default:"5"`
	Burst         int     `yaml:"burst" env:"WHO_API_BURST" env-default:"5"`
	RetryCount    int     `yaml:"retry_count" env:"WHO_API_RETRY_COUNT" env-default:"3"`
}

// TerminologyConfig names the terminology systems in play and the release
// identifiers a run is pinned to. Both releases are required before any run
// starts.
type TerminologyConfig struct {
	SourceSystemURI string `yaml:"source_system_uri" env:"SOURCE_SYSTEM_URI" env-default:"http://namaste.ayush.gov.in/fhir/CodeSystem/namaste"`
	TM2SystemURI    string `yaml:"tm2_system_uri" env:"TM2_SYSTEM_URI" env-default:"http://id.who.int/icd/release/11/mms/tm2"`
	MMSSystemURI    string `yaml:"mms_system_uri" env:"MMS_SYSTEM_URI" env-default:"http://id.who.int/icd/release/11/mms"`
	BridgeSystemURI string `yaml:"bridge_system_uri" env:"BRIDGE_SYSTEM_URI" env-default:"http://namaste.ayush.gov.in/fhir/CodeSystem/semantic-bridge"`
	SourceRelease   string `yaml:"source_release" env:"SOURCE_RELEASE"`
	TargetRelease   string `yaml:"target_release" env:"TARGET_RELEASE"`
}

// MappingConfig holds the scoring weights and tier thresholds. The defaults
// come from the original calibration; they are deliberately configurable
// rather than hard-coded, but no alternative calibration has been validated.
type MappingConfig struct {
	LexicalWeight    float64 `yaml:"lexical_weight" env:"MAP_LEXICAL_WEIGHT" env-default:"0.35"`
	DefinitionWeight float64 `yaml:"definition_weight" env:"MAP_DEFINITION_WEIGHT" env-default:"0.25"`
	SynonymWeight    float64 `yaml:"synonym_weight" env:"MAP_SYNONYM_WEIGHT" env-default:"0.20"`
	CategoryWeight   float64 `yaml:"category_weight" env:"MAP_CATEGORY_WEIGHT" env-default:"0.15"`
	ValidationWeight float64 `yaml:"validation_weight" env:"MAP_VALIDATION_WEIGHT" env-default:"0.05"`

	// DirectThreshold gates the direct traditional-medicine tier.
	DirectThreshold float64 `yaml:"direct_threshold" env:"MAP_DIRECT_THRESHOLD" env-default:"0.6"`
	// BiomedicalThreshold gates the biomedical tier.
	BiomedicalThreshold float64 `yaml:"biomedical_threshold" env:"MAP_BIOMEDICAL_THRESHOLD" env-default:"0.6"`
	// SemanticThreshold gates the semantic-bridge tier.
	SemanticThreshold float64 `yaml:"semantic_threshold" env:"MAP_SEMANTIC_THRESHOLD" env-default:"0.4"`
	// UnmappableFloor: candidates below this never produce a mapping.
	UnmappableFloor float64 `yaml:"unmappable_floor" env:"MAP_UNMAPPABLE_FLOOR" env-default:"0.35"`
	// SynonymBoostTrigger and BoostedAggregate implement the rule that a
	// strong synonym match overrides a noisy definition signal.
	SynonymBoostTrigger float64 `yaml:"synonym_boost_trigger" env:"MAP_SYNONYM_BOOST_TRIGGER" env-default:"0.4"`
	BoostedAggregate    float64 `yaml:"boosted_aggregate" env:"MAP_BOOSTED_AGGREGATE" env-default:"0.6"`
	// TM2SynonymBonus is the multiplicative bonus applied to the synonym
	// signal for candidates in the traditional-medicine module.
	TM2SynonymBonus float64 `yaml:"tm2_synonym_bonus" env:"MAP_TM2_SYNONYM_BONUS" env-default:"1.15"`

	LocalTopK          int `yaml:"local_top_k" env:"MAP_LOCAL_TOP_K" env-default:"5"`
	RemoteTopK         int `yaml:"remote_top_k" env:"MAP_REMOTE_TOP_K" env-default:"10"`
	MaxCandidates      int `yaml:"max_candidates" env:"MAP_MAX_CANDIDATES" env-default:"15"`
	SearchTermsPerCode int `yaml:"search_terms_per_code" env:"MAP_SEARCH_TERMS_PER_CODE" env-default:"12"`
	// Workers bounds the per-term worker pool for a run.
	Workers int `yaml:"workers" env:"MAP_WORKERS" env-default:"8"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// Containerized deployments run without a YAML file and configure
		// everything through the environment.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}

// ValidateForRun checks the invariants a mapping run depends on. A failure
// here is fatal before the run starts; no partial run is created.
func (c *Config) ValidateForRun() error {
	if c.Terminology.SourceRelease == "" {
		return fmt.Errorf("%w: source_release", apperrors.ErrMissingRelease)
	}
	if c.Terminology.TargetRelease == "" {
		return fmt.Errorf("%w: target_release", apperrors.ErrMissingRelease)
	}
	if c.Mapping.Workers < 1 {
		return fmt.Errorf("mapping workers must be at least 1, got %d", c.Mapping.Workers)
	}
	if c.Mapping.MaxCandidates < 1 {
		return fmt.Errorf("max candidates must be at least 1, got %d", c.Mapping.MaxCandidates)
	}
	return nil
}
