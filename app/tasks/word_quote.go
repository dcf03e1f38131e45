package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/feed"
	"github.com/lysyi3m/card-comb/app/provider"
)

// goWordQuote registers one unit on parent that resolves with a single
// composite record once both the word and the quote provider have answered.
// The join runs in the inner aggregator's completion, so no worker waits on
// another.
func goWordQuote(ctx context.Context, pool *Pool, parent *Aggregator[[]cards.Orderable], word, quote provider.Handle, marshaller *feed.Marshaller) {
	resolve := parent.Track()

	inner := NewAggregator(ctx, pool, func(outcomes []Outcome[cards.Card]) {
		record, err := joinWordQuote(outcomes)
		if err != nil {
			resolve(nil, err)
			return
		}
		resolve([]cards.Orderable{record}, nil)
	})

	inner.Go(NewItemTask(word, marshaller).Execute)
	inner.Go(NewItemTask(quote, marshaller).Execute)
	inner.Close()
}

func joinWordQuote(outcomes []Outcome[cards.Card]) (cards.Orderable, error) {
	if len(outcomes) != 2 {
		return cards.Orderable{}, fmt.Errorf("%w: word-quote join expected 2 outcomes, got %d", ErrAggregation, len(outcomes))
	}

	var errs []error
	if err := outcomes[0].Err; err != nil {
		errs = append(errs, fmt.Errorf("word query failed: %w", err))
	}
	if err := outcomes[1].Err; err != nil {
		errs = append(errs, fmt.Errorf("quote query failed: %w", err))
	}
	if len(errs) > 0 {
		return cards.Orderable{}, errors.Join(errs...)
	}

	word, ok := outcomes[0].Value.(*cards.WordCard)
	if !ok {
		return cards.Orderable{}, fmt.Errorf("%w: expected word card, got %T", ErrAggregation, outcomes[0].Value)
	}
	quote, ok := outcomes[1].Value.(*cards.QuoteCard)
	if !ok {
		return cards.Orderable{}, fmt.Errorf("%w: expected quote card, got %T", ErrAggregation, outcomes[1].Value)
	}

	card := &cards.WordQuoteCard{Word: *word, Quote: *quote}
	return cards.NewOrderable(card, cards.WordQuoteSource), nil
}
