package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`

	// CORSOrigins replaces the local development origins when set.
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

type BackendConfig struct {
	// Type selects the generation backend: "mock", "gemini" or "openai".
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`

	TextModel  string `yaml:"text_model,omitempty"`
	ImageModel string `yaml:"image_model,omitempty"`
	VideoModel string `yaml:"video_model,omitempty"`

	Timeout    Duration `yaml:"timeout,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`

	// VideoPollInterval is the fixed delay between video operation status checks.
	VideoPollInterval Duration `yaml:"video_poll_interval,omitempty"`
	// VideoMaxWait bounds the whole video generation, polling included.
	VideoMaxWait Duration `yaml:"video_max_wait,omitempty"`
}

type DocumentAIConfig struct {
	ProjectID   string `yaml:"project_id,omitempty"`
	Location    string `yaml:"location,omitempty"`
	ProcessorID string `yaml:"processor_id,omitempty"`
}

func (c DocumentAIConfig) Enabled() bool {
	return c.ProjectID != "" && c.Location != "" && c.ProcessorID != ""
}

type UploadConfig struct {
	MaxBytes   int64            `yaml:"max_bytes"`
	DocumentAI DocumentAIConfig `yaml:"documentai,omitempty"`
}

type JobsConfig struct {
	// Store is "memory" or "redis".
	Store     string   `yaml:"store"`
	RedisAddr string   `yaml:"redis_addr,omitempty"`
	TTL       Duration `yaml:"ttl,omitempty"`
	Workers   int      `yaml:"workers,omitempty"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Region    string `yaml:"region,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
}

type ArtifactsConfig struct {
	// Store is "memory", "gcs" or "s3".
	Store  string   `yaml:"store"`
	Bucket string   `yaml:"bucket,omitempty"`
	Prefix string   `yaml:"prefix,omitempty"`
	S3     S3Config `yaml:"s3,omitempty"`

	// EmulatorHost points the gcs store at a fake-gcs server.
	EmulatorHost string `yaml:"emulator_host,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type Config struct {
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Upload    UploadConfig    `yaml:"upload"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}
