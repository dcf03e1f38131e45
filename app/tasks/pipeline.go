package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/feed"
	"github.com/lysyi3m/card-comb/app/provider"
)

// Pipeline queries every provider handle concurrently and collects the
// marshalled records of the ones that answered.
type Pipeline struct {
	pool       *Pool
	marshaller *feed.Marshaller
}

func NewPipeline(pool *Pool, marshaller *feed.Marshaller) *Pipeline {
	return &Pipeline{
		pool:       pool,
		marshaller: marshaller,
	}
}

// RunAsync starts a run and calls done exactly once with the flattened,
// unordered records. Failed providers are logged and contribute nothing; an
// error is reported only when the aggregation itself breaks, that is when
// the pool is stopped before or during the run. Units are submitted from a
// dispatcher goroutine, so a busy pool never blocks the caller.
func (p *Pipeline) RunAsync(ctx context.Context, handles []provider.Handle, done func([]cards.Orderable, error)) {
	runID := uuid.NewString()
	logger := slog.With("run_id", runID)

	if !p.pool.Running() {
		logger.Error("Pipeline run aborted", "error", ErrPoolStopped)
		done(nil, fmt.Errorf("%w: %w", ErrAggregation, ErrPoolStopped))
		return
	}

	byKind := lo.GroupBy(handles, func(h provider.Handle) provider.Kind {
		return h.Kind
	})
	words := byKind[provider.KindWord]
	quotes := byKind[provider.KindQuote]
	pairs := min(len(words), len(quotes))

	listHandles := lo.Filter(handles, func(h provider.Handle, _ int) bool {
		return h.Kind.IsList()
	})

	for _, h := range byKind[provider.KindUnknown] {
		logger.Debug("Skipping provider with unknown interface", "provider", h.OwnerID, "interface", h.Interface)
	}
	if surplus := len(words) + len(quotes) - 2*pairs; surplus > 0 {
		logger.Debug("Unpaired word/quote providers not queried", "count", surplus)
	}

	labels := make([]string, 0, len(listHandles)+pairs)
	for _, h := range listHandles {
		labels = append(labels, h.OwnerID)
	}
	for i := 0; i < pairs; i++ {
		labels = append(labels, words[i].OwnerID+"+"+quotes[i].OwnerID)
	}

	logger.Info("Pipeline run started", "providers", len(handles), "units", len(labels))

	top := NewAggregator(ctx, p.pool, func(outcomes []Outcome[[]cards.Orderable]) {
		interrupted := lo.ContainsBy(outcomes, func(o Outcome[[]cards.Orderable]) bool {
			return errors.Is(o.Err, ErrPoolStopped)
		})
		if interrupted {
			err := fmt.Errorf("%w: %w", ErrAggregation, ErrPoolStopped)
			logger.Error("Pipeline run failed", "error", err)
			done(nil, err)
			return
		}

		failed := 0
		for i, outcome := range outcomes {
			if outcome.Err != nil {
				failed++
				logger.Warn("Query failed", "provider", labels[i], "error", outcome.Err)
			}
		}

		succeeded := lo.Filter(outcomes, func(o Outcome[[]cards.Orderable], _ int) bool {
			return o.Err == nil
		})
		records := lo.Flatten(lo.Map(succeeded, func(o Outcome[[]cards.Orderable], _ int) []cards.Orderable {
			return o.Value
		}))

		logger.Info("Pipeline run completed", "units", len(outcomes), "failed", failed, "records", len(records))
		done(records, nil)
	})

	go func() {
		for _, h := range listHandles {
			top.Go(NewQueryTask(h, p.marshaller).Execute)
		}
		for i := 0; i < pairs; i++ {
			goWordQuote(ctx, p.pool, top, words[i], quotes[i], p.marshaller)
		}

		top.Close()
	}()
}

type runResult struct {
	records []cards.Orderable
	err     error
}

// Run is the blocking form of RunAsync.
func (p *Pipeline) Run(ctx context.Context, handles []provider.Handle) ([]cards.Orderable, error) {
	result := make(chan runResult, 1)

	p.RunAsync(ctx, handles, func(records []cards.Orderable, err error) {
		result <- runResult{records: records, err: err}
	})

	r := <-result
	return r.records, r.err
}
