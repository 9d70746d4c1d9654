package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig     `yaml:"app"`
	Contracts []string      `yaml:"contracts"`
	Source    SourceConfig  `yaml:"source"`
	Storage   StorageConfig `yaml:"storage"`
	Report    ReportConfig  `yaml:"report"`
	Logging   LoggingConfig `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	BaseURL        string               `yaml:"base_url"`
	IndexURL       string               `yaml:"index_url"`
	DownloadDir    string               `yaml:"download_dir"`
	Timeout        time.Duration        `yaml:"timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type StorageConfig struct {
	DataDir string        `yaml:"data_dir"`
	Parquet ParquetConfig `yaml:"parquet"`
	S3      S3Config      `yaml:"s3"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Weeks     int    `yaml:"weeks"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

// Published location of the weekly position report files.
const (
	DefaultBaseURL  = "https://public.eex-group.com/eex/mifid2/rts-21/"
	DefaultIndexURL = DefaultBaseURL + "index.html"
)

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Source: SourceConfig{
			BaseURL:     DefaultBaseURL,
			IndexURL:    DefaultIndexURL,
			DownloadDir: ".",
			Timeout:     30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 2,
				BurstSize:         1,
			},
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Report: ReportConfig{
			OutputDir: "reports",
			Weeks:     13,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if cfg.App.Version == "" {
		return fmt.Errorf("app.version is required")
	}

	for _, code := range cfg.Contracts {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("contracts must not contain blank codes")
		}
	}

	if cfg.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if cfg.Source.IndexURL == "" {
		return fmt.Errorf("source.index_url is required")
	}
	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than 0")
	}
	if cfg.Source.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("source.rate_limit.requests_per_second must be greater than 0")
	}

	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}

	switch cfg.Storage.Parquet.Compression {
	case "", "snappy", "gzip", "lzo", "uncompressed":
	default:
		return fmt.Errorf("storage.parquet.compression '%s' is invalid", cfg.Storage.Parquet.Compression)
	}

	if cfg.Report.Weeks <= 0 {
		return fmt.Errorf("report.weeks must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
