package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/feed"
	"github.com/lysyi3m/card-comb/app/provider"
	"github.com/lysyi3m/card-comb/app/transport"
)

var ErrUnsupportedKind = errors.New("unsupported provider kind")

// QueryTask queries one list-producing provider and marshals its reply.
type QueryTask struct {
	Task
	handle     provider.Handle
	marshaller *feed.Marshaller
}

func NewQueryTask(h provider.Handle, marshaller *feed.Marshaller) *QueryTask {
	return &QueryTask{
		Task:       NewTask(TaskTypeQueryList, h.OwnerID),
		handle:     h,
		marshaller: marshaller,
	}
}

func (t *QueryTask) Execute(ctx context.Context) ([]cards.Orderable, error) {
	t.Start()

	if !t.handle.Kind.IsList() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, t.handle.Kind)
	}

	data, err := callProvider(ctx, t.handle)
	if err != nil {
		return nil, err
	}

	reply, err := transport.DecodeListReply(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", t.handle.Kind.Method(), err)
	}

	records := t.marshaller.Run(ctx, t.handle, reply)

	slog.Debug("Task completed",
		"type", string(t.GetType()),
		"id", t.GetID(),
		"provider", t.GetProvider(),
		"kind", t.handle.Kind.String(),
		"duration", t.GetDuration(),
		"items", len(reply.Items),
		"records", len(records))

	return records, nil
}

// ItemTask queries one word or quote provider for its single item.
type ItemTask struct {
	Task
	handle     provider.Handle
	marshaller *feed.Marshaller
}

func NewItemTask(h provider.Handle, marshaller *feed.Marshaller) *ItemTask {
	taskType := TaskTypeQueryWord
	if h.Kind == provider.KindQuote {
		taskType = TaskTypeQueryQuote
	}

	return &ItemTask{
		Task:       NewTask(taskType, h.OwnerID),
		handle:     h,
		marshaller: marshaller,
	}
}

func (t *ItemTask) Execute(ctx context.Context) (cards.Card, error) {
	t.Start()

	if t.handle.Kind != provider.KindWord && t.handle.Kind != provider.KindQuote {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, t.handle.Kind)
	}

	data, err := callProvider(ctx, t.handle)
	if err != nil {
		return nil, err
	}

	item, err := transport.DecodeItemReply(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", t.handle.Kind.Method(), err)
	}

	var card cards.Card
	if t.handle.Kind == provider.KindWord {
		card = t.marshaller.Word(item)
	} else {
		card = t.marshaller.Quote(item)
	}

	slog.Debug("Task completed",
		"type", string(t.GetType()),
		"id", t.GetID(),
		"provider", t.GetProvider(),
		"duration", t.GetDuration())

	return card, nil
}

func callProvider(ctx context.Context, h provider.Handle) ([]byte, error) {
	if h.Conn == nil {
		return nil, fmt.Errorf("provider %s has no connection", h.OwnerID)
	}

	method := h.Kind.Method()
	data, err := h.Conn.Call(ctx, method)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, h.Conn.Name(), err)
	}

	return data, nil
}
