package feed

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/electrorss/internal/domain"
)

// Title extraction patterns. Tag values keep the matched text with any
// surrounding brackets stripped.
var (
	titleRe   = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)`)
	qualityRe = regexp.MustCompile(`(?i)\b(2160p|1080p|720p)\b`)
	lektorRe  = regexp.MustCompile(`(?i)(Lektor\s*[^\]/&\s]+(?:\s*AI|\s*\(AI\))?)`)
	napisyRe  = regexp.MustCompile(`(?i)(Napisy\s*[^\]/&\s]+(?:\s*AI|\s*\(AI\))?)`)
	dubbingRe = regexp.MustCompile(`(?i)(Dubbing\s*[^\]/&\s]+)`)

	seasonEpisodeRe = regexp.MustCompile(`(?i)\bs\s*(\d{1,2})\s*e\s*(\d{1,3})\b`)
	seasonWordRe    = regexp.MustCompile(`(?i)\bsezon\s*(\d{1,2})\b`)
	seasonShortRe   = regexp.MustCompile(`(?i)\bs\s*(\d{1,2})\b`)
	episodeRangeRe  = regexp.MustCompile(`(?i)\be\s*(\d{1,3})\s*[-–]\s*(\d{1,3})\b`)
	episodeSingleRe = regexp.MustCompile(`(?i)\be\s*(\d{1,3})\b`)
)

// tag values when a pattern does not match
const (
	tagNone         = "Nie"
	lektorPolishTag = "Film Polski"
)

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// Parser extracts release records from raw feed bodies. Entries that
// cannot be dated, predate the cutoff, or lack a "Title (YYYY)" header
// with an accepted year are dropped silently; everything else degrades
// to empty fields rather than failing.
type Parser struct {
	log            zerolog.Logger
	seriesCategory string
}

func NewParser(log zerolog.Logger, seriesCategory string) *Parser {
	return &Parser{
		log:            log.With().Str("module", "parser").Logger(),
		seriesCategory: seriesCategory,
	}
}

// Parse turns one feed body into items for category, preserving feed
// order. years is the allow-list of accepted publication years.
func (p *Parser) Parse(category string, body []byte, cutoff time.Time, years []string) ([]domain.Item, error) {
	fd, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse feed")
	}

	out := []domain.Item{}
	for _, entry := range fd.Items {
		item, ok := p.parseEntry(category, entry, cutoff, years)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (p *Parser) parseEntry(category string, entry *gofeed.Item, cutoff time.Time, years []string) (domain.Item, bool) {
	pub, ok := publishTime(entry)
	if !ok {
		p.log.Debug().Str("title", entry.Title).Msg("dropping entry without a parsable date")
		return domain.Item{}, false
	}
	if pub.Before(cutoff) {
		return domain.Item{}, false
	}

	txt := entry.Title
	m := titleRe.FindStringSubmatch(txt)
	if m == nil || !containsYear(years, m[2]) {
		p.log.Debug().Str("title", txt).Msg("dropping entry without an accepted \"Title (YYYY)\" header")
		return domain.Item{}, false
	}

	item := domain.Item{
		Category: category,
		Title:    strings.TrimSpace(m[1]),
		Year:     m[2],
		Quality:  matchGroup(qualityRe, txt),
		Lektor:   tagValue(lektorRe, txt, lektorDefault(txt)),
		Napisy:   tagValue(napisyRe, txt, tagNone),
		Dubbing:  tagValue(dubbingRe, txt, tagNone),
		Thumb:    mediaThumb(entry),
		Link:     entry.Link,
		PubDate:  pub,
	}

	if strings.EqualFold(category, p.seriesCategory) {
		item.Season, item.Episode = seasonEpisode(txt)
	}

	return item, true
}

// publishTime prefers the feed's structured timestamp and falls back to
// parsing the raw pubDate header.
func publishTime(entry *gofeed.Item) (time.Time, bool) {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed, true
	}
	raw := strings.TrimSpace(entry.Published)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func containsYear(years []string, year string) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}

func matchGroup(re *regexp.Regexp, txt string) string {
	if m := re.FindStringSubmatch(txt); m != nil {
		return m[1]
	}
	return ""
}

func tagValue(re *regexp.Regexp, txt, fallback string) string {
	if m := re.FindStringSubmatch(txt); m != nil {
		return strings.Trim(m[1], "[]")
	}
	return fallback
}

func lektorDefault(txt string) string {
	if strings.Contains(strings.ToLower(txt), "film polski") {
		return lektorPolishTag
	}
	return tagNone
}

// mediaThumb returns the URL of the first media:thumbnail (or
// media:content) element, if any.
func mediaThumb(entry *gofeed.Item) string {
	media, ok := entry.Extensions["media"]
	if !ok {
		return ""
	}
	for _, key := range []string{"thumbnail", "content"} {
		if exts := media[key]; len(exts) > 0 {
			if u := exts[0].Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}

// seasonEpisode applies the series numbering precedence: a combined
// SnEm token wins outright; otherwise season and episode are extracted
// independently, with an episode range ("E1-3") beating a single
// episode. Unmatched fields stay blank.
func seasonEpisode(txt string) (season, episode string) {
	if m := seasonEpisodeRe.FindStringSubmatch(txt); m != nil {
		return normalizeNumber(m[1]), normalizeNumber(m[2])
	}

	if m := seasonWordRe.FindStringSubmatch(txt); m != nil {
		season = normalizeNumber(m[1])
	} else if m := seasonShortRe.FindStringSubmatch(txt); m != nil {
		season = normalizeNumber(m[1])
	}

	if m := episodeRangeRe.FindStringSubmatch(txt); m != nil {
		episode = normalizeNumber(m[1]) + "-" + normalizeNumber(m[2])
	} else if m := episodeSingleRe.FindStringSubmatch(txt); m != nil {
		episode = normalizeNumber(m[1])
	}

	return season, episode
}

// normalizeNumber drops leading zeros ("05" -> "5").
func normalizeNumber(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}
