package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RSSItem is one entry of a generated test feed.
type RSSItem struct {
	Title   string
	Link    string
	GUID    string
	PubDate string
	Thumb   string
}

// RSSXML renders a minimal RSS 2.0 document with the media namespace.
func RSSXML(title string, items []RSSItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel>`)
	b.WriteString(fmt.Sprintf("<title>%s</title>", title))
	b.WriteString("<link>http://example.com</link>")
	b.WriteString("<description>Test feed</description>")
	for _, item := range items {
		b.WriteString("<item>")
		b.WriteString(fmt.Sprintf("<title><![CDATA[%s]]></title>", item.Title))
		b.WriteString(fmt.Sprintf("<link>%s</link>", item.Link))
		if item.GUID != "" {
			b.WriteString(fmt.Sprintf("<guid>%s</guid>", item.GUID))
		}
		if item.PubDate != "" {
			b.WriteString(fmt.Sprintf("<pubDate>%s</pubDate>", item.PubDate))
		}
		if item.Thumb != "" {
			b.WriteString(fmt.Sprintf(`<media:thumbnail url="%s"/>`, item.Thumb))
		}
		b.WriteString("</item>")
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

// FeedServer serves a mutable RSS document over HTTP with optional
// ETag/Last-Modified validators and conditional-request handling.
type FeedServer struct {
	mu           sync.Mutex
	xml          string
	etag         string
	lastModified string
	status       int
	requests     int
	lastHeader   http.Header

	ts *httptest.Server
}

func NewFeedServer(t *testing.T, xml string) *FeedServer {
	t.Helper()
	fs := &FeedServer{xml: xml}
	fs.ts = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.ts.Close)
	return fs
}

func (f *FeedServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.lastHeader = r.Header.Clone()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	if f.etag != "" {
		w.Header().Set("ETag", f.etag)
	}
	if f.lastModified != "" {
		w.Header().Set("Last-Modified", f.lastModified)
	}
	if f.etag != "" && r.Header.Get("If-None-Match") == f.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	fmt.Fprint(w, f.xml)
}

func (f *FeedServer) URL() string { return f.ts.URL }

func (f *FeedServer) SetXML(xml string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xml = xml
}

func (f *FeedServer) SetValidators(etag, lastModified string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.etag = etag
	f.lastModified = lastModified
}

// SetStatus forces every response to the given status code; 0 restores
// normal serving.
func (f *FeedServer) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *FeedServer) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// LastHeader returns the request headers of the most recent fetch.
func (f *FeedServer) LastHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHeader
}
