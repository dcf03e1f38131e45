package api

import (
	"io"
	"log/slog"

	"github.com/lysyi3m/card-comb/app/cards"
)

const maxThumbnailSize = 8 << 20

func renderCards(records []cards.Orderable) []CardResponse {
	responses := make([]CardResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, renderCard(record))
	}
	return responses
}

func renderCard(record cards.Orderable) CardResponse {
	resp := CardResponse{
		Kind:   string(record.Kind),
		Source: record.Source,
	}

	if k, ok := cards.KnowledgeOf(record.Card); ok {
		resp.Title = k.Title
		resp.URI = k.URI
		resp.Synopsis = k.Synopsis
		resp.ContentType = k.ContentType
		resp.ThumbnailURI = k.ThumbnailURI
		resp.ThumbnailSize = int(k.ThumbnailSize)
		resp.OwnerID = k.OwnerID
		resp.BusName = k.BusName
		resp.SearchPath = k.SearchPath
		resp.AppID = k.AppID
		if k.Layout != cards.LayoutUnset {
			resp.Layout = k.Layout.String()
		}
		resp.Thumbnail = readThumbnail(k)
	}

	switch c := record.Card.(type) {
	case *cards.VideoCard:
		resp.Duration = c.Duration
	case *cards.ArtworkCard:
		resp.Author = c.Author
		resp.FirstDate = c.FirstDate
	case *cards.WordQuoteCard:
		resp.Word = renderWord(&c.Word)
		resp.Quote = renderQuote(&c.Quote)
	case *cards.WordCard:
		resp.Word = renderWord(c)
	case *cards.QuoteCard:
		resp.Quote = renderQuote(c)
	case *cards.AppsCard:
		resp.Apps = c.DesktopIDs
	}

	return resp
}

func readThumbnail(k *cards.Knowledge) []byte {
	if k.Thumbnail == nil {
		return nil
	}
	defer k.CloseThumbnail()

	data, err := io.ReadAll(io.LimitReader(k.Thumbnail, maxThumbnailSize))
	if err != nil {
		slog.Warn("Failed to read thumbnail", "uri", k.ThumbnailURI, "error", err)
		return nil
	}
	return data
}

func renderWord(w *cards.WordCard) *WordResponse {
	return &WordResponse{
		Word:         w.Word,
		PartOfSpeech: w.PartOfSpeech,
		Definition:   w.Definition,
	}
}

func renderQuote(q *cards.QuoteCard) *QuoteResponse {
	return &QuoteResponse{
		Quote:  q.Quote,
		Author: q.Author,
	}
}
