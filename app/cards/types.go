package cards

import (
	"io"
)

type Kind string

const (
	KindArticle       Kind = "article"
	KindVideo         Kind = "video"
	KindArtwork       Kind = "artwork"
	KindWord          Kind = "word"
	KindQuote         Kind = "quote"
	KindWordQuote     Kind = "word-quote"
	KindAvailableApps Kind = "available-apps"
)

// WordQuoteSource labels composite word+quote records for ordering.
const WordQuoteSource = "word-quote"

type LayoutDirection int

const (
	LayoutUnset LayoutDirection = iota
	LayoutImageFirst
	LayoutImageLast
)

func (l LayoutDirection) String() string {
	switch l {
	case LayoutImageFirst:
		return "image-first"
	case LayoutImageLast:
		return "image-last"
	default:
		return "unset"
	}
}

// ThumbnailSize is the square pixel size class a card's thumbnail is shown at.
type ThumbnailSize int

const (
	ThumbnailSizeNone    ThumbnailSize = 0
	ThumbnailSizeArticle ThumbnailSize = 200
	ThumbnailSizeNews    ThumbnailSize = 300
	ThumbnailSizeArtwork ThumbnailSize = 400
)

type Card interface {
	Kind() Kind
}

// Knowledge holds the fields shared by every card derived from a
// content provider's list reply.
type Knowledge struct {
	Title         string
	URI           string
	Synopsis      string
	Thumbnail     io.ReadCloser // nil when no shard held the referenced blob
	ThumbnailURI  string
	ContentType   string
	OwnerID       string
	BusName       string
	SearchPath    string
	AppID         string
	Layout        LayoutDirection
	ThumbnailSize ThumbnailSize
}

// CloseThumbnail releases the thumbnail stream if one was opened.
func (k *Knowledge) CloseThumbnail() error {
	if k.Thumbnail == nil {
		return nil
	}
	err := k.Thumbnail.Close()
	k.Thumbnail = nil
	return err
}

type ArticleCard struct {
	Knowledge
}

func (ArticleCard) Kind() Kind { return KindArticle }

// NewsCard is an article card from a news provider; it only differs in
// layout and thumbnail size.
type NewsCard struct {
	Knowledge
}

func (NewsCard) Kind() Kind { return KindArticle }

type VideoCard struct {
	Knowledge
	Duration string
}

func (VideoCard) Kind() Kind { return KindVideo }

type ArtworkCard struct {
	Knowledge
	Author    string
	FirstDate string
}

func (ArtworkCard) Kind() Kind { return KindArtwork }

type WordCard struct {
	Word         string
	PartOfSpeech string
	Definition   string
}

func (WordCard) Kind() Kind { return KindWord }

type QuoteCard struct {
	Quote  string
	Author string
}

func (QuoteCard) Kind() Kind { return KindQuote }

type WordQuoteCard struct {
	Word  WordCard
	Quote QuoteCard
}

func (WordQuoteCard) Kind() Kind { return KindWordQuote }

// AppsCard suggests installable applications. Only the Orderer creates it.
type AppsCard struct {
	DesktopIDs []string
}

func (AppsCard) Kind() Kind { return KindAvailableApps }

// Orderable wraps a card with the labels the Orderer ranks by.
type Orderable struct {
	Card   Card
	Kind   Kind
	Source string
}

func NewOrderable(card Card, source string) Orderable {
	return Orderable{Card: card, Kind: card.Kind(), Source: source}
}

// KnowledgeOf returns the shared knowledge fields of a card, if it has any.
func KnowledgeOf(card Card) (*Knowledge, bool) {
	switch c := card.(type) {
	case *ArticleCard:
		return &c.Knowledge, true
	case *NewsCard:
		return &c.Knowledge, true
	case *VideoCard:
		return &c.Knowledge, true
	case *ArtworkCard:
		return &c.Knowledge, true
	default:
		return nil, false
	}
}

// CloseAll releases every thumbnail stream held by the records.
func CloseAll(records []Orderable) {
	for _, r := range records {
		if k, ok := KnowledgeOf(r.Card); ok {
			_ = k.CloseThumbnail()
		}
	}
}
