package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/edutools-backend/internal/platform/envutil"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// UnmarshalYAML accepts duration strings ("10s", "2m") or integer seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if value.Tag == "!!int" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("duration must be a string like \"5s\" or integer seconds: %w", err)
		}
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   10 << 20,
		},
		Backend: BackendConfig{
			Type:              "mock",
			Timeout:           Duration{Duration: 60 * time.Second},
			MaxRetries:        2,
			VideoPollInterval: Duration{Duration: 10 * time.Second},
			VideoMaxWait:      Duration{Duration: 10 * time.Minute},
		},
		Upload: UploadConfig{
			MaxBytes: 5 << 20,
		},
		Jobs: JobsConfig{
			Store:   "memory",
			TTL:     Duration{Duration: 24 * time.Hour},
			Workers: 4,
		},
		Artifacts: ArtifactsConfig{
			Store:  "memory",
			Prefix: "edutools/",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := envutil.String("EDUTOOLS_CONFIG_PATH")
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := envutil.String("LOG_MODE"); v != "" {
		cfg.Env = v
	}
	if v := envutil.String("EDUTOOLS_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := envutil.List("EDUTOOLS_CORS_ORIGINS"); len(v) > 0 {
		cfg.HTTP.CORSOrigins = v
	}
	if v := envutil.String("EDUTOOLS_BACKEND"); v != "" {
		cfg.Backend.Type = v
	}
	if v := envutil.String("EDUTOOLS_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if cfg.Backend.APIKey == "" {
		switch strings.ToLower(strings.TrimSpace(cfg.Backend.Type)) {
		case "gemini":
			cfg.Backend.APIKey = envutil.First("GEMINI_API_KEY", "API_KEY")
		case "openai", "oai_http":
			cfg.Backend.APIKey = envutil.First("OPENAI_API_KEY", "API_KEY")
		}
	}
	cfg.Backend.VideoMaxWait.Duration = envutil.Duration("EDUTOOLS_VIDEO_MAX_WAIT", cfg.Backend.VideoMaxWait.Duration)
	cfg.Jobs.Workers = envutil.Int("EDUTOOLS_VIDEO_WORKERS", cfg.Jobs.Workers)
	if v := envutil.String("REDIS_ADDR"); v != "" {
		cfg.Jobs.RedisAddr = v
		if envutil.String("EDUTOOLS_JOB_STORE") == "" {
			cfg.Jobs.Store = "redis"
		}
	}
	if v := envutil.String("EDUTOOLS_JOB_STORE"); v != "" {
		cfg.Jobs.Store = v
	}
	if v := envutil.String("GCS_BUCKET"); v != "" {
		cfg.Artifacts.Store = "gcs"
		cfg.Artifacts.Bucket = v
	}
	if v := envutil.String("STORAGE_EMULATOR_HOST"); v != "" {
		cfg.Artifacts.EmulatorHost = v
	}
	if v := envutil.String("S3_ENDPOINT"); v != "" {
		cfg.Artifacts.Store = "s3"
		cfg.Artifacts.S3.Endpoint = v
		cfg.Artifacts.S3.AccessKey = envutil.String("S3_ACCESS_KEY")
		cfg.Artifacts.S3.SecretKey = envutil.String("S3_SECRET_KEY")
		cfg.Artifacts.S3.Region = envutil.String("S3_REGION")
		cfg.Artifacts.S3.UseSSL = envutil.Bool("S3_USE_SSL", false)
		if b := envutil.String("S3_BUCKET"); b != "" {
			cfg.Artifacts.Bucket = b
		}
	}
	if v := envutil.String("DOCUMENTAI_PROJECT_ID"); v != "" {
		cfg.Upload.DocumentAI.ProjectID = v
	}
	if v := envutil.String("DOCUMENTAI_LOCATION"); v != "" {
		cfg.Upload.DocumentAI.Location = v
	}
	if v := envutil.String("DOCUMENTAI_PROCESSOR_ID"); v != "" {
		cfg.Upload.DocumentAI.ProcessorID = v
	}
	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 10 << 20
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}

	b := &cfg.Backend
	b.Type = strings.ToLower(strings.TrimSpace(b.Type))
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	switch b.Type {
	case "", "mock":
		b.Type = "mock"
	case "gemini":
		if b.BaseURL == "" {
			b.BaseURL = defaultGeminiBaseURL
		}
		if b.TextModel == "" {
			b.TextModel = "gemini-2.5-flash"
		}
		if b.ImageModel == "" {
			b.ImageModel = "imagen-4.0-generate-001"
		}
		if b.VideoModel == "" {
			b.VideoModel = "veo-2.0-generate-001"
		}
	case "openai", "oai_http", "openai_http":
		b.Type = "openai"
		if b.BaseURL == "" {
			b.BaseURL = defaultOpenAIBaseURL
		}
		if b.TextModel == "" {
			b.TextModel = "gpt-4o-mini"
		}
		if b.ImageModel == "" {
			b.ImageModel = "dall-e-3"
		}
		if b.VideoModel == "" {
			b.VideoModel = "sora-2"
		}
	default:
		return fmt.Errorf("invalid backend.type=%q", b.Type)
	}
	if b.Type != "mock" && strings.TrimSpace(b.APIKey) == "" {
		return fmt.Errorf("backend %q requires backend.api_key", b.Type)
	}
	if b.Timeout.Duration <= 0 {
		b.Timeout = Duration{Duration: 60 * time.Second}
	}
	if b.MaxRetries < 0 {
		return errors.New("invalid backend.max_retries")
	}
	if b.VideoPollInterval.Duration <= 0 {
		b.VideoPollInterval = Duration{Duration: 10 * time.Second}
	}
	if b.VideoMaxWait.Duration <= 0 {
		b.VideoMaxWait = Duration{Duration: 10 * time.Minute}
	}
	if b.VideoMaxWait.Duration < b.VideoPollInterval.Duration {
		return fmt.Errorf("backend.video_max_wait (%s) is shorter than backend.video_poll_interval (%s)",
			b.VideoMaxWait.Duration, b.VideoPollInterval.Duration)
	}

	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = 5 << 20
	}
	d := &cfg.Upload.DocumentAI
	d.ProjectID = strings.TrimSpace(d.ProjectID)
	d.Location = strings.TrimSpace(d.Location)
	d.ProcessorID = strings.TrimSpace(d.ProcessorID)
	if d.ProcessorID != "" && (d.ProjectID == "" || d.Location == "") {
		return errors.New("upload.documentai requires project_id and location when processor_id is set")
	}

	j := &cfg.Jobs
	j.Store = strings.ToLower(strings.TrimSpace(j.Store))
	switch j.Store {
	case "", "memory":
		j.Store = "memory"
	case "redis":
		if strings.TrimSpace(j.RedisAddr) == "" {
			return errors.New("jobs.store=redis requires jobs.redis_addr")
		}
	default:
		return fmt.Errorf("invalid jobs.store=%q", j.Store)
	}
	if j.TTL.Duration <= 0 {
		j.TTL = Duration{Duration: 24 * time.Hour}
	}
	if j.Workers <= 0 {
		j.Workers = 4
	}

	a := &cfg.Artifacts
	a.Store = strings.ToLower(strings.TrimSpace(a.Store))
	a.Bucket = strings.TrimSpace(a.Bucket)
	switch a.Store {
	case "", "memory":
		a.Store = "memory"
	case "gcs":
		if a.Bucket == "" {
			return errors.New("artifacts.store=gcs requires artifacts.bucket")
		}
	case "s3":
		if a.Bucket == "" || strings.TrimSpace(a.S3.Endpoint) == "" {
			return errors.New("artifacts.store=s3 requires artifacts.bucket and artifacts.s3.endpoint")
		}
	default:
		return fmt.Errorf("invalid artifacts.store=%q", a.Store)
	}

	if strings.TrimSpace(cfg.Metrics.Path) == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		cfg.Metrics.Path = "/" + cfg.Metrics.Path
	}
	return nil
}
