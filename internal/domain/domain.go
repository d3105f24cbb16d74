package domain

import (
	"sort"
	"time"
)

// Source is one configured feed endpoint and its category label.
type Source struct {
	Category string `yaml:"category" json:"category" mapstructure:"category"`
	URL      string `yaml:"url" json:"url" mapstructure:"url"`
}

// Item is one release record extracted from a feed entry.
// Season and Episode are populated only for the series category;
// Episode may hold a range such as "1-3".
type Item struct {
	Category string    `json:"category"`
	Title    string    `json:"title"`
	Year     string    `json:"year"`
	Quality  string    `json:"quality"`
	Lektor   string    `json:"lektor"`
	Napisy   string    `json:"napisy"`
	Dubbing  string    `json:"dubbing"`
	Thumb    string    `json:"thumb,omitempty"`
	Link     string    `json:"link"`
	PubDate  time.Time `json:"pubDate"`
	Season   string    `json:"season,omitempty"`
	Episode  string    `json:"episode,omitempty"`
}

// ConditionalMeta holds the validators a feed returned on its last fetch.
// Both fields are sticky: a fetch that fails or returns no validators
// leaves the previous values in place.
type ConditionalMeta struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"modified,omitempty"`
}

// FeedState maps a feed URL to its conditional-fetch metadata.
type FeedState map[string]ConditionalMeta

// SortItems orders a snapshot most recent first. The sort is stable so
// items with equal publish times keep their merge order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PubDate.After(items[j].PubDate)
	})
}

// FilterCategory returns the items of one category published at or after
// cutoff, preserving order. Used as the fallback contribution when a
// source cannot be re-fetched.
func FilterCategory(items []Item, category string, cutoff time.Time) []Item {
	out := []Item{}
	for _, it := range items {
		if it.Category == category && !it.PubDate.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// ThumbURLs returns the unique thumbnail URLs referenced by a snapshot,
// in snapshot order.
func ThumbURLs(items []Item) []string {
	seen := map[string]struct{}{}
	urls := []string{}
	for _, it := range items {
		if it.Thumb == "" {
			continue
		}
		if _, ok := seen[it.Thumb]; ok {
			continue
		}
		seen[it.Thumb] = struct{}{}
		urls = append(urls, it.Thumb)
	}
	return urls
}
