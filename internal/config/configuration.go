package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Snapshot and table locations
	RawDir       string `mapstructure:"RAW_DIR" validate:"required"`
	ProcessedDir string `mapstructure:"PROCESSED_DIR" validate:"required"`
	TableBackend string `mapstructure:"TABLE_BACKEND" validate:"oneof=dir postgres"`
	CSVExport    bool   `mapstructure:"CSV_EXPORT"`

	// Database Configuration (postgres table backend)
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required_if=TableBackend postgres"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES" validate:"gte=0"`

	// Source API
	YouTubeAPIKey        string  `mapstructure:"YOUTUBE_API_KEY"`
	ChannelID            string  `mapstructure:"CHANNEL_ID"`
	VideosCount          int     `mapstructure:"VIDEOS_COUNT" validate:"gte=1"`
	CommentsPerVideo     int     `mapstructure:"COMMENTS_PER_VIDEO" validate:"gte=0"`
	APIRequestsPerSecond float64 `mapstructure:"API_REQUESTS_PER_SECOND" validate:"gt=0"`

	// Analysis
	TopN                   int      `mapstructure:"TOP_N" validate:"gte=1"`
	AnalyzeKeywords        []string `mapstructure:"ANALYZE_KEYWORDS"`
	KeywordCaseInsensitive bool     `mapstructure:"KEYWORD_CASE_INSENSITIVE"`

	// WebServer Configuration
	WebServerPort int    `mapstructure:"WEBSERVER_PORT" validate:"gte=1,lte=65535"`
	LogLevel      string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// DefaultKeywords are the title/description keywords analyzed when
// ANALYZE_KEYWORDS is unset.
var DefaultKeywords = []string{"how to", "tutorial", "review", "guide", "tips", "introduction"}

// LogValue keeps secrets out of the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("raw_dir", c.RawDir),
		slog.String("processed_dir", c.ProcessedDir),
		slog.String("table_backend", c.TableBackend),
		slog.Bool("csv_export", c.CSVExport),
		slog.Bool("database_dsn_set", c.DatabaseDSN != ""),
		slog.Int("database_retries", c.DatabaseRetries),
		slog.Bool("youtube_api_key_set", c.YouTubeAPIKey != ""),
		slog.String("channel_id", c.ChannelID),
		slog.Int("videos_count", c.VideosCount),
		slog.Int("comments_per_video", c.CommentsPerVideo),
		slog.Float64("api_requests_per_second", c.APIRequestsPerSecond),
		slog.Int("top_n", c.TopN),
		slog.Any("analyze_keywords", c.AnalyzeKeywords),
		slog.Bool("keyword_case_insensitive", c.KeywordCaseInsensitive),
		slog.Int("webserver_port", c.WebServerPort),
		slog.String("log_level", c.LogLevel),
	)
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	typ := reflect.TypeOf(c)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			viper.BindEnv(tag)
		}
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("RAW_DIR", "data/raw")
	viper.SetDefault("PROCESSED_DIR", "data/processed")
	viper.SetDefault("TABLE_BACKEND", "dir")
	viper.SetDefault("CSV_EXPORT", true)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("CHANNEL_ID", "UC_x5XG1OV2P6uZZ5FSM9Ttw")
	viper.SetDefault("VIDEOS_COUNT", 100)
	viper.SetDefault("COMMENTS_PER_VIDEO", 100)
	viper.SetDefault("API_REQUESTS_PER_SECOND", 10)
	viper.SetDefault("TOP_N", 10)
	viper.SetDefault("ANALYZE_KEYWORDS", DefaultKeywords)
	viper.SetDefault("KEYWORD_CASE_INSENSITIVE", false)
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AnalyzeKeywords = cleanKeywords(cfg.AnalyzeKeywords)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	slog.DebugContext(ctx, "Loaded configuration", "config", cfg)
	return &cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
