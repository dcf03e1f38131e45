package provider

import (
	"strings"
)

// Kind is the capability a provider advertises for one interface.
type Kind int

const (
	KindUnknown Kind = iota
	KindArticle
	KindNews
	KindVideo
	KindArtwork
	KindWord
	KindQuote
)

var kindTags = map[string]Kind{
	"content": KindArticle,
	"news":    KindNews,
	"video":   KindVideo,
	"artwork": KindArtwork,
	"word":    KindWord,
	"quote":   KindQuote,
}

// ParseKind maps an advertised interface tag to a Kind. Unrecognized tags
// yield KindUnknown.
func ParseKind(tag string) Kind {
	if kind, ok := kindTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return kind
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindArticle:
		return "content"
	case KindNews:
		return "news"
	case KindVideo:
		return "video"
	case KindArtwork:
		return "artwork"
	case KindWord:
		return "word"
	case KindQuote:
		return "quote"
	default:
		return "unknown"
	}
}

// Method is the remote method a provider of this kind answers.
func (k Kind) Method() string {
	switch k {
	case KindArticle:
		return "ArticleCardDescriptions"
	case KindNews:
		return "GetRecentNews"
	case KindVideo:
		return "GetVideos"
	case KindArtwork:
		return "ArtworkCardDescriptions"
	case KindWord:
		return "GetWordOfTheDay"
	case KindQuote:
		return "GetQuoteOfTheDay"
	default:
		return ""
	}
}

// IsList reports whether replies for this kind carry a shard list and many items.
func (k Kind) IsList() bool {
	switch k {
	case KindArticle, KindNews, KindVideo, KindArtwork:
		return true
	default:
		return false
	}
}
