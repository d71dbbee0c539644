// Package config loads application settings with viper and sets up the
// global zap logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Render      RenderConfig      `yaml:"render" mapstructure:"render"`
	Jina        JinaConfig        `yaml:"jina" mapstructure:"jina"`
	Firecrawl   FirecrawlConfig   `yaml:"firecrawl" mapstructure:"firecrawl"`
	PDF         PDFConfig         `yaml:"pdf" mapstructure:"pdf"`
	Diffbot     DiffbotConfig     `yaml:"diffbot" mapstructure:"diffbot"`
	Trafilatura TrafilaturaConfig `yaml:"trafilatura" mapstructure:"trafilatura"`
	Queue       QueueConfig       `yaml:"queue" mapstructure:"queue"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig selects and configures the digest store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	JSONPath    string `yaml:"json_path" mapstructure:"json_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PipelineConfig configures batch runs.
type PipelineConfig struct {
	MaxLinksPerRun   int      `yaml:"max_links_per_run" mapstructure:"max_links_per_run"`
	DisableBrowser   bool     `yaml:"disable_browser" mapstructure:"disable_browser"`
	ExpectedLanguage string   `yaml:"expected_language" mapstructure:"expected_language"`
	ScoringMode      string   `yaml:"scoring_mode" mapstructure:"scoring_mode"`
	WriteArtifacts   bool     `yaml:"write_artifacts" mapstructure:"write_artifacts"`
	OutputDir        string   `yaml:"output_dir" mapstructure:"output_dir"`
	ProvidersFile    string   `yaml:"providers_file" mapstructure:"providers_file"`
	Order            []string `yaml:"order" mapstructure:"order"`
}

// FetchConfig configures the basic HTTP and PDF fetcher.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
}

// Timeout returns TimeoutSecs as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// RenderConfig selects the rendering backend.
type RenderConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns TimeoutSecs as a duration.
func (r RenderConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSecs) * time.Second
}

// JinaConfig configures the Jina reader.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig configures Firecrawl.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PDFConfig selects the PDF text extractor.
type PDFConfig struct {
	Extractor     string `yaml:"extractor" mapstructure:"extractor"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfInfoPath   string `yaml:"pdfinfo_path" mapstructure:"pdfinfo_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// DiffbotConfig configures the Diffbot provider.
type DiffbotConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Token    string `yaml:"token" mapstructure:"token"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// TrafilaturaConfig configures the trafilatura provider.
type TrafilaturaConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// QueueConfig configures the link queue.
type QueueConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Scoring modes.
const (
	ScoringWeighted = "weighted"
	ScoringBounded  = "bounded"
)

// Load reads configuration from config.yaml (optional) and DIGEST_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.json_path", "data/digests.json")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("pipeline.max_links_per_run", 25)
	v.SetDefault("pipeline.disable_browser", false)
	v.SetDefault("pipeline.expected_language", "eng")
	v.SetDefault("pipeline.scoring_mode", ScoringWeighted)
	v.SetDefault("pipeline.write_artifacts", true)
	v.SetDefault("pipeline.output_dir", "output")
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.rate_per_host", 2.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("render.backend", "jina")
	v.SetDefault("render.timeout_secs", 30)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("pdf.extractor", "local")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("pdf.pdfinfo_path", "pdfinfo")
	v.SetDefault("pdf.mistral_model", "mistral-ocr-latest")
	v.SetDefault("diffbot.endpoint", "https://api.diffbot.com/v3/article")
	v.SetDefault("queue.path", "data/link-queue.json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can act on.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "json", "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for the postgres driver")
	}
	switch c.Pipeline.ScoringMode {
	case ScoringWeighted, ScoringBounded:
	default:
		return eris.Errorf("config: unknown pipeline.scoring_mode %q", c.Pipeline.ScoringMode)
	}
	if c.Pipeline.MaxLinksPerRun <= 0 {
		return eris.New("config: pipeline.max_links_per_run must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
