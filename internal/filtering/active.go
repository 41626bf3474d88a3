package filtering

import (
	"context"
	"strings"

	"github.com/spigell/match-ranker/internal/matching"
)

// activeStatuses are the statuses considered open. An empty status counts as
// active since not every collaborator records one.
var activeStatuses = map[string]bool{
	"":       true,
	"open":   true,
	"active": true,
}

type activeFilter struct {
	toggle
}

// NewActive creates a filter that removes closed or inactive items.
func NewActive() Filter {
	return &activeFilter{}
}

func (f *activeFilter) Name() string { return "active" }

func (f *activeFilter) Validate() error { return nil }

func (f *activeFilter) Apply(_ context.Context, _ matching.Kind, items []matching.ListingItem) ([]matching.ListingItem, Step, error) {
	kept, _ := keep(items, func(item matching.ListingItem) bool {
		return activeStatuses[strings.ToLower(strings.TrimSpace(item.Status))]
	})
	return kept, stepOf(len(items), kept), nil
}

func (f *activeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
