package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config/config.toml"

type ServerConfig struct {
	Port string `toml:"port" env:"PORT" env-default:"8080"`
}

type LogConfig struct {
	Level       string `toml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `toml:"development" env:"LOG_DEVELOPMENT"`
}

type LLMConfig struct {
	Provider       string `toml:"provider" env:"LLM_PROVIDER" env-default:"gemini"`
	Model          string `toml:"model" env:"LLM_MODEL" env-default:"gemini-1.5-flash"`
	APIKey         string `toml:"api_key" env:"LLM_API_KEY"`
	BaseURL        string `toml:"base_url" env:"LLM_BASE_URL"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"30"`
	MaxTokens      int    `toml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`
}

type YouTubeConfig struct {
	APIKey            string   `toml:"api_key" env:"YOUTUBE_API_KEY"`
	Languages         []string `toml:"languages" env:"YOUTUBE_LANGUAGES" env-default:"en,en-GB"`
	RequestsPerSecond float64  `toml:"requests_per_second" env:"YOUTUBE_REQUESTS_PER_SECOND" env-default:"5"`
	MaxRetries        int      `toml:"max_retries" env:"YOUTUBE_MAX_RETRIES" env-default:"3"`
	HTTPTimeoutSecs   int      `toml:"http_timeout_seconds" env:"YOUTUBE_HTTP_TIMEOUT_SECONDS" env-default:"20"`
}

type StorageConfig struct {
	Driver      string `toml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	PostgresURL string `toml:"postgres_url" env:"DATABASE_URL"`
	SQLitePath  string `toml:"sqlite_path" env:"SQLITE_PATH" env-default:"parliq.db"`
}

type RedisConfig struct {
	Addr       string `toml:"addr" env:"REDIS_ADDR"`
	Password   string `toml:"password" env:"REDIS_PASSWORD"`
	DB         int    `toml:"db" env:"REDIS_DB"`
	TTLMinutes int    `toml:"ttl_minutes" env:"REDIS_TTL_MINUTES" env-default:"1440"`
}

type GraphConfig struct {
	Enabled  bool   `toml:"enabled" env:"GRAPH_ENABLED"`
	URI      string `toml:"uri" env:"MEMGRAPH_URI" env-default:"bolt://localhost:7687"`
	User     string `toml:"user" env:"MEMGRAPH_USER"`
	Password string `toml:"password" env:"MEMGRAPH_PASSWORD"`
}

type ExtractionConfig struct {
	Strategy string `toml:"strategy" env:"EXTRACTION_STRATEGY" env-default:"llm"`
	Prompt   string `toml:"prompt"`
}

type IngestConfig struct {
	Concurrency       int     `toml:"concurrency" env:"INGEST_CONCURRENCY" env-default:"3"`
	JobTimeoutSeconds int     `toml:"job_timeout_seconds" env:"INGEST_JOB_TIMEOUT_SECONDS" env-default:"600"`
	MaxChannelVideos  int     `toml:"max_channel_videos" env:"INGEST_MAX_CHANNEL_VIDEOS" env-default:"10"`
	MergeSentences    bool    `toml:"merge_sentences" env:"INGEST_MERGE_SENTENCES"`
	MaxSentenceSpan   float64 `toml:"max_sentence_span" env:"INGEST_MAX_SENTENCE_SPAN" env-default:"30"`
}

type ChatConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds" env:"CHAT_TIMEOUT_SECONDS" env-default:"30"`
	HistoryTurns   int    `toml:"history_turns" env:"CHAT_HISTORY_TURNS" env-default:"6"`
	Prompt         string `toml:"prompt"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
	LLM        LLMConfig        `toml:"llm"`
	YouTube    YouTubeConfig    `toml:"youtube"`
	Storage    StorageConfig    `toml:"storage"`
	Redis      RedisConfig      `toml:"redis"`
	Graph      GraphConfig      `toml:"graph"`
	Extraction ExtractionConfig `toml:"extraction"`
	Ingest     IngestConfig     `toml:"ingest"`
	Chat       ChatConfig       `toml:"chat"`
}

// Load reads the TOML file at path, then overlays environment variables and
// fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresURL == "" {
		return fmt.Errorf("storage driver postgres requires postgres_url")
	}
	switch c.Extraction.Strategy {
	case "llm", "pattern":
	default:
		return fmt.Errorf("unknown extraction strategy %q", c.Extraction.Strategy)
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest concurrency must be positive, got %d", c.Ingest.Concurrency)
	}
	return nil
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c YouTubeConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (c IngestConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}

func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
