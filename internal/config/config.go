package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/varoOP/electrorss/internal/domain"
)

var yearRe = regexp.MustCompile(`^\d{4}$`)

// Load loads configuration from multiple sources:
// 1. Config file (config.yaml, optional)
// 2. Environment variables (ELECTRORSS_*)
// 3. Bound CLI flags
func Load() (*domain.Config, error) {
	cfg := &domain.Config{}

	cfg.CacheDir = viper.GetString("cache_dir")
	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = "."
		}
		cfg.CacheDir = filepath.Join(base, "electrorss")
	}

	cfg.Days = viper.GetInt("days")
	if cfg.Days <= 0 {
		cfg.Days = domain.DefaultDays
	}

	timeoutSeconds := viper.GetInt("timeout_seconds")
	if timeoutSeconds <= 0 {
		timeoutSeconds = domain.DefaultTimeoutSeconds
	}
	cfg.Timeout = time.Duration(timeoutSeconds) * time.Second

	cfg.Years = viper.GetStringSlice("years")
	for _, y := range cfg.Years {
		if !yearRe.MatchString(y) {
			return nil, fmt.Errorf("invalid year %q in years (must be a 4-digit year)", y)
		}
	}

	cfg.SeriesCategory = viper.GetString("series_category")
	if cfg.SeriesCategory == "" {
		cfg.SeriesCategory = domain.DefaultSeriesCategory
	}

	cfg.MaxCacheBytes = viper.GetInt64("cache_max_bytes")
	if cfg.MaxCacheBytes == 0 {
		cfg.MaxCacheBytes = domain.DefaultMaxCacheBytes
	}
	cfg.MaxCacheFiles = viper.GetInt("cache_max_files")
	if cfg.MaxCacheFiles == 0 {
		cfg.MaxCacheFiles = domain.DefaultMaxCacheFiles
	}
	cfg.MaxCacheAgeDays = viper.GetInt("cache_max_age_days")
	if cfg.MaxCacheAgeDays == 0 {
		cfg.MaxCacheAgeDays = domain.DefaultMaxCacheAgeDays
	}

	cfg.ThumbWorkers = viper.GetInt("thumb_workers")
	if cfg.ThumbWorkers <= 0 {
		cfg.ThumbWorkers = domain.DefaultThumbWorkers
	}

	cfg.LogLevel = viper.GetString("log_level")

	sources, err := loadSources()
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	return cfg, nil
}

// loadSources resolves the source table: an explicit sources.yaml file
// wins, then an inline sources list in the config, then the built-in
// electro-torrent.pl table.
func loadSources() ([]domain.Source, error) {
	if path := viper.GetString("sources_file"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
		}
		var sources []domain.Source
		if err := yaml.Unmarshal(b, &sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources file %s: %w", path, err)
		}
		return validateSources(sources)
	}

	if viper.IsSet("sources") {
		var sources []domain.Source
		if err := viper.UnmarshalKey("sources", &sources); err != nil {
			return nil, fmt.Errorf("failed to parse sources from config: %w", err)
		}
		return validateSources(sources)
	}

	return domain.DefaultSources(), nil
}

func validateSources(sources []domain.Source) ([]domain.Source, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("source table is empty")
	}
	for i, s := range sources {
		if s.Category == "" || s.URL == "" {
			return nil, fmt.Errorf("source %d is missing a category or url", i)
		}
	}
	return sources, nil
}
