package newsfeed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/card-comb/app/shard"
	"github.com/lysyi3m/card-comb/app/transport"
)

const (
	RecentNewsMethod  = "GetRecentNews"
	ThumbnailScheme   = "ekn:///"
	newsContentType   = "text/html"
	defaultMaxItems   = 20
	defaultFetchLimit = 4
)

type Config struct {
	FeedURLs       []string
	MaxItems       int
	ExtractContent bool
	FetchLimit     int
}

type Service struct {
	cfg       Config
	fetcher   *Fetcher
	parser    *Parser
	extractor *ContentExtractor
	writer    *shard.Writer

	mu        sync.RWMutex
	items     []*transport.RawItem
	refreshed time.Time
}

func NewService(cfg Config, fetcher *Fetcher, parser *Parser, extractor *ContentExtractor, writer *shard.Writer) *Service {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	return &Service{
		cfg:       cfg,
		fetcher:   fetcher,
		parser:    parser,
		extractor: extractor,
		writer:    writer,
	}
}

// Refresh fetches every configured feed and replaces the served items.
// A failing feed is logged and contributes nothing.
func (s *Service) Refresh(ctx context.Context) error {
	results := make([][]Item, len(s.cfg.FeedURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchLimit)

	for i, feedURL := range s.cfg.FeedURLs {
		g.Go(func() error {
			items, err := s.fetchFeed(gctx, feedURL)
			if err != nil {
				slog.Warn("Failed to refresh feed", "url", feedURL, "error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh interrupted: %w", err)
	}

	items := lo.Flatten(results)
	items = lo.UniqBy(items, func(item Item) string {
		return item.GUID
	})
	slices.SortStableFunc(items, func(a, b Item) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	if len(items) > s.cfg.MaxItems {
		items = items[:s.cfg.MaxItems]
	}

	raw := make([]*transport.RawItem, 0, len(items))
	for _, item := range items {
		raw = append(raw, s.buildItem(ctx, item))
	}

	s.mu.Lock()
	s.items = raw
	s.refreshed = time.Now()
	s.mu.Unlock()

	slog.Info("News refreshed", "feeds", len(s.cfg.FeedURLs), "items", len(raw))
	return nil
}

func (s *Service) fetchFeed(ctx context.Context, feedURL string) ([]Item, error) {
	data, _, err := s.fetcher.Run(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return s.parser.Run(data)
}

func (s *Service) buildItem(ctx context.Context, item Item) *transport.RawItem {
	raw := transport.RawItemFromPairs(
		"title", item.Title,
		"ekn_id", item.Link,
		"synopsis", s.synopsis(ctx, item),
		"content_type", newsContentType,
	)

	if thumbnailURI := s.storeImage(ctx, item); thumbnailURI != "" {
		raw.Set("thumbnail_uri", thumbnailURI)
	}

	return raw
}

func (s *Service) synopsis(ctx context.Context, item Item) string {
	if item.Description != "" || !s.cfg.ExtractContent || item.Link == "" {
		return item.Description
	}

	data, _, err := s.fetcher.Run(ctx, item.Link)
	if err != nil {
		slog.Debug("Failed to fetch article page", "url", item.Link, "error", err)
		return ""
	}

	excerpt, err := s.extractor.Run(data, item.Link)
	if err != nil {
		slog.Debug("Failed to extract article excerpt", "url", item.Link, "error", err)
		return ""
	}
	return excerpt
}

// storeImage copies the item's image into the shard and returns its thumbnail
// URI, or "" when the item has no usable image.
func (s *Service) storeImage(ctx context.Context, item Item) string {
	if item.ImageURL == "" || s.writer == nil {
		return ""
	}

	hexName := shard.HexName(item.ImageURL)

	exists, err := s.writer.Has(ctx, hexName)
	if err != nil {
		slog.Warn("Failed to check shard", "hex_name", hexName, "error", err)
		return ""
	}

	if !exists {
		data, contentType, err := s.fetcher.Run(ctx, item.ImageURL)
		if err != nil {
			slog.Debug("Failed to download image", "url", item.ImageURL, "error", err)
			return ""
		}

		contentType = cmp.Or(item.ImageType, mediaType(contentType))
		if err := s.writer.Put(ctx, hexName, contentType, data); err != nil {
			slog.Warn("Failed to store image", "url", item.ImageURL, "error", err)
			return ""
		}
	}

	return ThumbnailScheme + hexName
}

func mediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mediaType)
}

// RecentNews answers GetRecentNews with the items of the last refresh.
func (s *Service) RecentNews(ctx context.Context) (any, error) {
	s.mu.RLock()
	items := slices.Clone(s.items)
	s.mu.RUnlock()

	var shards []string
	if s.writer != nil {
		shards = []string{s.writer.Path()}
	}

	return transport.ListReply{Shards: shards, Items: items}, nil
}

func (s *Service) Methods() map[string]transport.ReplyFunc {
	return map[string]transport.ReplyFunc{
		RecentNewsMethod: s.RecentNews,
	}
}

func (s *Service) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshed
}

// Start refreshes immediately and then on every interval until ctx is done.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	if err := s.Refresh(ctx); err != nil {
		slog.Error("Initial refresh failed", "error", err)
	}

	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("News refresh loop stopped")
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				slog.Error("Refresh failed", "error", err)
			}
		}
	}
}
