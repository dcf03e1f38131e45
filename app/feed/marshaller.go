package feed

import (
	"context"
	"io"
	"log/slog"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/provider"
	"github.com/lysyi3m/card-comb/app/transport"
)

// Marshaller turns untyped provider replies into typed card records.
type Marshaller struct {
	resolver  *ThumbnailResolver
	sanitizer *Sanitizer
}

func NewMarshaller(resolver *ThumbnailResolver, sanitizer *Sanitizer) *Marshaller {
	return &Marshaller{
		resolver:  resolver,
		sanitizer: sanitizer,
	}
}

// Run marshals every item of a list reply for the handle's kind. Items that
// cannot be marshalled are logged and dropped.
func (m *Marshaller) Run(ctx context.Context, h provider.Handle, reply *transport.ListReply) []cards.Orderable {
	if reply == nil {
		return nil
	}

	records := make([]cards.Orderable, 0, len(reply.Items))
	for i, item := range reply.Items {
		card, ok := m.marshalItem(ctx, h, reply.Shards, item)
		if !ok {
			slog.Debug("Dropping provider item", "provider", h.OwnerID, "kind", h.Kind.String(), "index", i)
			continue
		}
		records = append(records, cards.NewOrderable(card, h.OwnerID))
	}

	return records
}

func (m *Marshaller) marshalItem(ctx context.Context, h provider.Handle, shards []string, item *transport.RawItem) (cards.Card, bool) {
	switch h.Kind {
	case provider.KindArticle:
		k := m.knowledge(h, item, cards.LayoutImageFirst, cards.ThumbnailSizeArticle)
		k.Synopsis = m.sanitizer.Run(item.Get("synopsis"))
		k.Thumbnail = m.thumbnail(ctx, shards, k.ThumbnailURI)
		return &cards.ArticleCard{Knowledge: k}, true

	case provider.KindNews:
		k := m.knowledge(h, item, cards.LayoutImageLast, cards.ThumbnailSizeNews)
		k.Synopsis = m.sanitizer.Run(item.Get("synopsis"))
		k.Thumbnail = m.thumbnail(ctx, shards, k.ThumbnailURI)
		return &cards.NewsCard{Knowledge: k}, true

	case provider.KindVideo:
		duration, err := FormatDuration(item.Get("duration"))
		if err != nil {
			slog.Warn("Invalid video duration", "provider", h.OwnerID, "title", item.Get("title"), "error", err)
			return nil, false
		}
		k := m.knowledge(h, item, cards.LayoutUnset, cards.ThumbnailSizeNone)
		k.Thumbnail = m.thumbnail(ctx, shards, k.ThumbnailURI)
		return &cards.VideoCard{Knowledge: k, Duration: duration}, true

	case provider.KindArtwork:
		k := m.knowledge(h, item, cards.LayoutImageFirst, cards.ThumbnailSizeArtwork)
		k.Thumbnail = m.thumbnail(ctx, shards, k.ThumbnailURI)
		return &cards.ArtworkCard{
			Knowledge: k,
			Author:    item.Get("author"),
			FirstDate: item.Get("first_date"),
		}, true

	default:
		return nil, false
	}
}

func (m *Marshaller) knowledge(h provider.Handle, item *transport.RawItem, layout cards.LayoutDirection, size cards.ThumbnailSize) cards.Knowledge {
	return cards.Knowledge{
		Title:         item.Get("title"),
		URI:           item.Get("ekn_id"),
		ThumbnailURI:  item.Get("thumbnail_uri"),
		ContentType:   item.Get("content_type"),
		OwnerID:       h.OwnerID,
		BusName:       h.BusName,
		SearchPath:    h.SearchPath,
		AppID:         h.AppID,
		Layout:        layout,
		ThumbnailSize: size,
	}
}

func (m *Marshaller) thumbnail(ctx context.Context, shards []string, ref string) io.ReadCloser {
	if ref == "" {
		return nil
	}
	return m.resolver.Run(ctx, shards, ref)
}

func (m *Marshaller) Word(item *transport.RawItem) *cards.WordCard {
	return &cards.WordCard{
		Word:         item.Get("word"),
		PartOfSpeech: item.Get("part_of_speech"),
		Definition:   item.Get("definition"),
	}
}

func (m *Marshaller) Quote(item *transport.RawItem) *cards.QuoteCard {
	return &cards.QuoteCard{
		Quote:  item.Get("title"),
		Author: item.Get("author"),
	}
}
