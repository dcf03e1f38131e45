package cards

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

type Flags uint

const (
	FlagNone                   Flags = 0
	FlagIncludeInstallableApps Flags = 1
)

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// Orderer ranks an unordered record list for display.
type Orderer interface {
	Arrange(records []Orderable, flags Flags) []Orderable
}

var groupOrder = []Kind{
	KindWordQuote,
	KindArticle,
	KindVideo,
	KindArtwork,
	KindWord,
	KindQuote,
}

// RoundRobin interleaves one record of each kind at a time so no single
// provider family dominates the top of the feed.
type RoundRobin struct {
	SuggestedApps []string
}

var _ Orderer = (*RoundRobin)(nil)

func NewRoundRobin(suggestedApps []string) *RoundRobin {
	return &RoundRobin{SuggestedApps: suggestedApps}
}

func (o *RoundRobin) Arrange(records []Orderable, flags Flags) []Orderable {
	groups := lo.GroupBy(records, func(r Orderable) Kind {
		return r.Kind
	})

	queues := make([][]Orderable, 0, len(groupOrder))
	for _, kind := range groupOrder {
		group := slices.Clone(groups[kind])
		if len(group) == 0 {
			continue
		}
		slices.SortStableFunc(group, compareRecords)
		queues = append(queues, group)
	}

	arranged := make([]Orderable, 0, len(records)+1)
	for len(queues) > 0 {
		queues = lo.Reject(queues, func(queue []Orderable, _ int) bool {
			return len(queue) == 0
		})
		for i := range queues {
			arranged = append(arranged, queues[i][0])
			queues[i] = queues[i][1:]
		}
	}

	if flags.Has(FlagIncludeInstallableApps) && len(o.SuggestedApps) > 0 {
		apps := NewOrderable(&AppsCard{DesktopIDs: slices.Clone(o.SuggestedApps)}, "")
		at := min(1, len(arranged))
		arranged = slices.Insert(arranged, at, apps)
	}

	return arranged
}

// Arrange orders records with the default round-robin policy.
func Arrange(records []Orderable, flags Flags, suggestedApps []string) []Orderable {
	return NewRoundRobin(suggestedApps).Arrange(records, flags)
}

func compareRecords(a, b Orderable) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(titleOf(a.Card), titleOf(b.Card)),
	)
}

func titleOf(card Card) string {
	if k, ok := KnowledgeOf(card); ok {
		return k.Title
	}
	switch c := card.(type) {
	case *WordCard:
		return c.Word
	case *QuoteCard:
		return c.Quote
	case *WordQuoteCard:
		return c.Word.Word
	}
	return ""
}
