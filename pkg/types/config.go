package types

// StoreBackend selects where extracted facts are persisted.
type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreSQLite   StoreBackend = "sqlite"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig holds settings for the fact store.
type StoreConfig struct {
	// Backend selects memory, sqlite, or postgres (default sqlite).
	Backend StoreBackend `json:"backend" yaml:"backend"`

	// FactsDir is the base directory for the SQLite database and exports
	// (contains index/).
	FactsDir string `json:"facts_dir" yaml:"facts_dir"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`

	// MaxResults is the default maximum number of query results (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ExtractionConfig holds settings for an extraction session.
type ExtractionConfig struct {
	// Operations restricts a run to the named operations, in order. Empty
	// runs the whole registry with deferral.
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty"`

	// MassUnit is the unit aggregated masses are reported in (default "kg").
	MassUnit string `json:"mass_unit" yaml:"mass_unit"`

	// Vocabulary names the classes, predicates and namespaces facts are
	// emitted with.
	Vocabulary VocabularyConfig `json:"vocabulary" yaml:"vocabulary"`
}

// SyncConfig holds settings for cross-snapshot identity synchronization.
type SyncConfig struct {
	// Tolerance is the absolute per-entry tolerance for transform
	// comparison. Zero requires exact equality.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// PublishConfig holds settings for uploading fact exports to object storage.
type PublishConfig struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Prefix   string `json:"prefix" yaml:"prefix"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey override the default AWS credential
	// chain when both are set.
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`

	// MaxRetries bounds retries of throttled uploads (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is a zap level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format"`

	// OutputPath is a file path or "stderr".
	OutputPath string `json:"output_path" yaml:"output_path"`

	Development bool `json:"development" yaml:"development"`
}

// Config groups all settings of the CLI.
type Config struct {
	Store      StoreConfig      `json:"store" yaml:"store"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Sync       SyncConfig       `json:"sync" yaml:"sync"`
	Publish    PublishConfig    `json:"publish" yaml:"publish"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}
