package domain

import (
	"fmt"
	"time"
)

const (
	DefaultDays            = 7
	DefaultTimeoutSeconds  = 6
	DefaultSeriesCategory  = "Seriale"
	DefaultMaxCacheBytes   = 50 * 1024 * 1024
	DefaultMaxCacheFiles   = 50
	DefaultMaxCacheAgeDays = 20
	DefaultThumbWorkers    = 6
)

type Config struct {
	CacheDir        string        `mapstructure:"cache_dir"`
	Days            int           `mapstructure:"days"`
	Timeout         time.Duration `mapstructure:"-"`
	Years           []string      `mapstructure:"years"`
	Sources         []Source      `mapstructure:"sources"`
	SeriesCategory  string        `mapstructure:"series_category"`
	MaxCacheBytes   int64         `mapstructure:"cache_max_bytes"`
	MaxCacheFiles   int           `mapstructure:"cache_max_files"`
	MaxCacheAgeDays int           `mapstructure:"cache_max_age_days"`
	ThumbWorkers    int           `mapstructure:"thumb_workers"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DefaultSources is the built-in electro-torrent.pl source table, used
// when no sources are configured.
func DefaultSources() []Source {
	return []Source{
		{Category: "x264/1080p", URL: "https://electro-torrent.pl/rss.php?cat=770"},
		{Category: "x265/2160p", URL: "https://electro-torrent.pl/rss.php?cat=1160"},
		{Category: "x265/1080p", URL: "https://electro-torrent.pl/rss.php?cat=1116"},
		{Category: "Seriale", URL: "https://electro-torrent.pl/rss.php?cat=7"},
	}
}

// AllowedYears returns the publication years accepted by the parser.
// An explicit years list in the config wins; otherwise the current and
// previous calendar year are accepted.
func (c *Config) AllowedYears(now time.Time) []string {
	if len(c.Years) > 0 {
		return c.Years
	}
	y := now.Year()
	return []string{fmt.Sprintf("%d", y), fmt.Sprintf("%d", y-1)}
}
