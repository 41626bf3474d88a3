package filtering

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/match-ranker/internal/matching"
)

type ownersFilter struct {
	toggle
	owners map[string]struct{}
	logger *zap.Logger
}

// NewOwners creates a filter that removes vacancies posted by the given
// employers. It only applies when ranking jobs.
func NewOwners(owners []string, logger *zap.Logger) Filter {
	set := make(map[string]struct{}, len(owners))
	for _, owner := range owners {
		if owner = strings.TrimSpace(owner); owner != "" {
			set[owner] = struct{}{}
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ownersFilter{owners: set, logger: logger}
}

func (f *ownersFilter) Name() string { return "owners" }

func (f *ownersFilter) Validate() error { return nil }

func (f *ownersFilter) Apply(_ context.Context, kind matching.Kind, items []matching.ListingItem) ([]matching.ListingItem, Step, error) {
	if len(f.owners) == 0 || kind != matching.KindJobs {
		return items, stepOf(len(items), items), nil
	}

	kept, dropped := keep(items, func(item matching.ListingItem) bool {
		_, excluded := f.owners[item.OwnerID]
		return !excluded
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding vacancies by employers",
			zap.Strings("excluded_vacancies", dropped),
			zap.Int("vacancies_left", len(kept)),
		)
	}

	return kept, stepOf(len(items), kept), nil
}

func (f *ownersFilter) Status() Status {
	details := map[string]string{}
	if len(f.owners) > 0 {
		owners := make([]string, 0, len(f.owners))
		for owner := range f.owners {
			owners = append(owners, owner)
		}
		sort.Strings(owners)
		details["owners"] = strings.Join(owners, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
