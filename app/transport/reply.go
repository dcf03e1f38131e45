package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedReply = errors.New("malformed reply")
	ErrUnknownMethod  = errors.New("unknown method")
)

// ListReply is the (shards, items) tuple returned by list-producing providers.
type ListReply struct {
	Shards []string
	Items  []*RawItem
}

func (r ListReply) MarshalJSON() ([]byte, error) {
	shards := r.Shards
	if shards == nil {
		shards = []string{}
	}
	items := r.Items
	if items == nil {
		items = []*RawItem{}
	}
	return json.Marshal([]any{shards, items})
}

// ItemReply is the single-item tuple returned by word and quote providers.
type ItemReply struct {
	Item *RawItem
}

func (r ItemReply) MarshalJSON() ([]byte, error) {
	item := r.Item
	if item == nil {
		item = NewRawItem()
	}
	return json.Marshal([]any{item})
}

func DecodeListReply(data []byte) (*ListReply, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(tuple) != 2 {
		return nil, fmt.Errorf("%w: expected 2 elements, got %d", ErrMalformedReply, len(tuple))
	}

	var shards []string
	if err := json.Unmarshal(tuple[0], &shards); err != nil {
		return nil, fmt.Errorf("%w: shards: %v", ErrMalformedReply, err)
	}

	var items []*RawItem
	if err := json.Unmarshal(tuple[1], &items); err != nil {
		return nil, fmt.Errorf("%w: items: %v", ErrMalformedReply, err)
	}

	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: item %d is null", ErrMalformedReply, i)
		}
	}

	return &ListReply{Shards: shards, Items: items}, nil
}

func DecodeItemReply(data []byte) (*RawItem, error) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(tuple) != 1 {
		return nil, fmt.Errorf("%w: expected 1 element, got %d", ErrMalformedReply, len(tuple))
	}

	item := NewRawItem()
	if err := json.Unmarshal(tuple[0], item); err != nil {
		return nil, fmt.Errorf("%w: item: %v", ErrMalformedReply, err)
	}

	return item, nil
}
