package newsfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/feed"
	"github.com/lysyi3m/card-comb/app/provider"
	"github.com/lysyi3m/card-comb/app/shard"
	"github.com/lysyi3m/card-comb/app/transport"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Story</title></head>
<body>
	<article>
		<p>The extracted story begins here with enough words to count as readable content for the extraction step.</p>
		<p>A second paragraph keeps the article long enough that it is considered the main content of the page.</p>
		<p>A third paragraph adds even more text so the readability scoring has plenty of material to work with.</p>
		<p>Reporters gathered outside the building for most of the afternoon, waiting for an official statement, and the crowd grew steadily as the news spread across the city.</p>
		<p>By evening the statement had been published, and readers were left to weigh the implications of the announcement for the weeks and months ahead.</p>
	</article>
</body>
</html>`

type upstream struct {
	server    *httptest.Server
	imageHits atomic.Int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("/news.xml", func(w http.ResponseWriter, r *http.Request) {
		base := u.server.URL
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>News</title>
    <item>
      <title>Older story</title>
      <link>%[1]s/older</link>
      <description>Older description.</description>
      <guid>older</guid>
      <pubDate>Mon, 03 Jul 2023 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Newer story</title>
      <link>%[1]s/story</link>
      <guid>newer</guid>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
      <enclosure url="%[1]s/image.jpg" type="image/jpeg" length="4"/>
    </item>
  </channel>
</rss>`, base)
	})
	mux.HandleFunc("/story", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, articlePage)
	})
	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, r *http.Request) {
		u.imageHits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		io.WriteString(w, "JPEG")
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestService(t *testing.T, cfg Config) (*Service, *shard.Writer) {
	t.Helper()
	writer, err := shard.Create(filepath.Join(t.TempDir(), "news.shard"))
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })

	fetcher := NewFetcher(nil, "Card Comb Test", 5*time.Second)
	return NewService(cfg, fetcher, NewParser(), NewContentExtractor(), writer), writer
}

func recentNews(t *testing.T, s *Service) transport.ListReply {
	t.Helper()
	reply, err := s.RecentNews(context.Background())
	require.NoError(t, err)
	list, ok := reply.(transport.ListReply)
	require.True(t, ok)
	return list
}

func TestRefreshBuildsItems(t *testing.T) {
	up := newUpstream(t)
	s, writer := newTestService(t, Config{
		FeedURLs:       []string{up.server.URL + "/news.xml", up.server.URL + "/broken.xml"},
		ExtractContent: true,
	})

	require.NoError(t, s.Refresh(context.Background()))
	assert.False(t, s.LastRefresh().IsZero())

	list := recentNews(t, s)
	assert.Equal(t, []string{writer.Path()}, list.Shards)
	require.Len(t, list.Items, 2)

	newer := list.Items[0]
	assert.Equal(t, "Newer story", newer.Get("title"))
	assert.Contains(t, newer.Get("synopsis"), "extracted story begins here")
	assert.Equal(t, "text/html", newer.Get("content_type"))

	hexName := shard.HexName(up.server.URL + "/image.jpg")
	assert.Equal(t, "ekn:///"+hexName, newer.Get("thumbnail_uri"))

	older := list.Items[1]
	assert.Equal(t, "Older description.", older.Get("synopsis"))
	_, hasThumbnail := older.Lookup("thumbnail_uri")
	assert.False(t, hasThumbnail)

	store, err := shard.Open(writer.Path())
	require.NoError(t, err)
	defer store.Close()

	record, err := store.Find(context.Background(), hexName)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "image/jpeg", record.ContentType)
	assert.Equal(t, []byte("JPEG"), record.Data)
}

func TestRefreshWithoutExtraction(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestService(t, Config{FeedURLs: []string{up.server.URL + "/news.xml"}})

	require.NoError(t, s.Refresh(context.Background()))

	list := recentNews(t, s)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "", list.Items[0].Get("synopsis"))
}

func TestRefreshStoresImagesOnce(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestService(t, Config{FeedURLs: []string{up.server.URL + "/news.xml"}})

	require.NoError(t, s.Refresh(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, int32(1), up.imageHits.Load())
}

func TestRefreshHonoursMaxItems(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestService(t, Config{FeedURLs: []string{up.server.URL + "/news.xml"}, MaxItems: 1})

	require.NoError(t, s.Refresh(context.Background()))

	list := recentNews(t, s)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Newer story", list.Items[0].Get("title"))
}

func TestRefreshCancelled(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestService(t, Config{FeedURLs: []string{up.server.URL + "/news.xml"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recentNews(t, s).Items)
}

// The served reply is consumed by the aggregation server's marshaller,
// including thumbnail resolution against the shard written here.
func TestRecentNewsOverTransport(t *testing.T) {
	up := newUpstream(t)
	s, _ := newTestService(t, Config{FeedURLs: []string{up.server.URL + "/news.xml"}})
	require.NoError(t, s.Refresh(context.Background()))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	transport.Register(r, s.Methods())
	providerServer := httptest.NewServer(r)
	defer providerServer.Close()

	client := transport.NewClient(providerServer.URL, nil, "Card Comb Test", 5*time.Second)
	data, err := client.Call(context.Background(), RecentNewsMethod)
	require.NoError(t, err)

	reply, err := transport.DecodeListReply(data)
	require.NoError(t, err)

	handle := provider.Handle{Kind: provider.KindNews, OwnerID: "org.example.News", Conn: client}
	marshaller := feed.NewMarshaller(feed.NewThumbnailResolver(nil), feed.NewSanitizer())
	records := marshaller.Run(context.Background(), handle, reply)
	defer cards.CloseAll(records)

	require.Len(t, records, 2)
	news, ok := records[0].Card.(*cards.NewsCard)
	require.True(t, ok)
	assert.Equal(t, "Newer story", news.Title)
	assert.Equal(t, cards.ThumbnailSizeNews, news.ThumbnailSize)
	require.NotNil(t, news.Thumbnail)

	thumb, err := io.ReadAll(news.Thumbnail)
	require.NoError(t, err)
	assert.Equal(t, []byte("JPEG"), thumb)
}
