package feed

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/electrorss/internal/domain"
	"github.com/varoOP/electrorss/internal/testutil"
)

func testFetcher() *Fetcher {
	return NewFetcher(zerolog.Nop(), 5*time.Second)
}

func TestFetchSendsConditionalHeaders(t *testing.T) {
	srv := testutil.NewFeedServer(t, testutil.RSSXML("Feed", nil))

	meta := domain.ConditionalMeta{ETag: `"v1"`, LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"}
	_, err := testFetcher().Fetch(context.Background(), srv.URL(), meta)
	require.NoError(t, err)

	hdr := srv.LastHeader()
	require.Equal(t, `"v1"`, hdr.Get("If-None-Match"))
	require.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", hdr.Get("If-Modified-Since"))
	require.Contains(t, hdr.Get("User-Agent"), "ElectroRSS")
}

func TestFetchCapturesValidators(t *testing.T) {
	srv := testutil.NewFeedServer(t, testutil.RSSXML("Feed", nil))
	srv.SetValidators(`"v2"`, "Tue, 03 Jan 2006 15:04:05 GMT")

	res, err := testFetcher().Fetch(context.Background(), srv.URL(), domain.ConditionalMeta{})
	require.NoError(t, err)
	require.False(t, res.NotModified)
	require.NotEmpty(t, res.Body)
	require.Equal(t, `"v2"`, res.Meta.ETag)
	require.Equal(t, "Tue, 03 Jan 2006 15:04:05 GMT", res.Meta.LastModified)
}

func TestFetchNotModified(t *testing.T) {
	srv := testutil.NewFeedServer(t, testutil.RSSXML("Feed", nil))
	srv.SetValidators(`"v3"`, "")

	meta := domain.ConditionalMeta{ETag: `"v3"`}
	res, err := testFetcher().Fetch(context.Background(), srv.URL(), meta)
	require.NoError(t, err)
	require.True(t, res.NotModified)
	require.Nil(t, res.Body)
	require.Equal(t, meta, res.Meta)
}

func TestFetchStickyMetaWhenOmitted(t *testing.T) {
	srv := testutil.NewFeedServer(t, testutil.RSSXML("Feed", nil))

	meta := domain.ConditionalMeta{ETag: `"stale"`, LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"}
	res, err := testFetcher().Fetch(context.Background(), srv.URL(), meta)
	require.NoError(t, err)
	require.False(t, res.NotModified)
	require.Equal(t, meta, res.Meta)
}

func TestFetchErrorStatus(t *testing.T) {
	srv := testutil.NewFeedServer(t, testutil.RSSXML("Feed", nil))
	srv.SetStatus(http.StatusInternalServerError)

	_, err := testFetcher().Fetch(context.Background(), srv.URL(), domain.ConditionalMeta{})
	require.Error(t, err)
}

func TestFetchTransportError(t *testing.T) {
	_, err := testFetcher().Fetch(context.Background(), "http://127.0.0.1:1/feed", domain.ConditionalMeta{})
	require.Error(t, err)
}
