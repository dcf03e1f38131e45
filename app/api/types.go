package api

import (
	"context"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/provider"
	"github.com/lysyi3m/card-comb/app/tasks"
)

type ProviderSource interface {
	Run() error
	Snapshot() []provider.Handle
	Descriptors() []provider.Descriptor
	DescriptorCount() int
}

var _ ProviderSource = (*provider.Registry)(nil)

type FeedRunner interface {
	Run(ctx context.Context, handles []provider.Handle) ([]cards.Orderable, error)
}

var _ FeedRunner = (*tasks.Pipeline)(nil)

type Handler struct {
	providers ProviderSource
	runner    FeedRunner
	orderer   cards.Orderer
	version   string
}

type CardResponse struct {
	Kind          string `json:"kind"`
	Source        string `json:"source,omitempty"`
	Title         string `json:"title,omitempty"`
	URI           string `json:"uri,omitempty"`
	Synopsis      string `json:"synopsis,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ThumbnailURI  string `json:"thumbnail_uri,omitempty"`
	Thumbnail     []byte `json:"thumbnail,omitempty"`
	ThumbnailSize int    `json:"thumbnail_size,omitempty"`
	Layout        string `json:"layout,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
	BusName       string `json:"bus_name,omitempty"`
	SearchPath    string `json:"search_path,omitempty"`
	AppID         string `json:"app_id,omitempty"`

	Duration  string `json:"duration,omitempty"`
	Author    string `json:"author,omitempty"`
	FirstDate string `json:"first_date,omitempty"`

	Word  *WordResponse  `json:"word,omitempty"`
	Quote *QuoteResponse `json:"quote,omitempty"`
	Apps  []string       `json:"apps,omitempty"`
}

type WordResponse struct {
	Word         string `json:"word"`
	PartOfSpeech string `json:"part_of_speech,omitempty"`
	Definition   string `json:"definition,omitempty"`
}

type QuoteResponse struct {
	Quote  string `json:"quote"`
	Author string `json:"author,omitempty"`
}

type FeedResponse struct {
	Cards       []CardResponse `json:"cards"`
	Total       int            `json:"total"`
	GeneratedAt string         `json:"generated_at"`
}
