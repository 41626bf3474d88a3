// Package filtering narrows the listing pool before it is snapshotted for ranking.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/match-ranker/internal/matching"
)

// Filter represents a single filtering step applied to the pool.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, kind matching.Kind, items []matching.ListingItem) ([]matching.ListingItem, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Filtering runs its steps in order. Steps never reorder the items they keep.
type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func (f *Filtering) DisableByName(name, reason string) {
	for _, step := range f.steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Validate checks every enabled step.
func (f *Filtering) Validate() error {
	for _, step := range f.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// Run executes the enabled steps sequentially and returns the remaining items.
// The input slice is not modified.
func (f *Filtering) Run(ctx context.Context, kind matching.Kind, items []matching.ListingItem) ([]matching.ListingItem, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	current := append([]matching.ListingItem(nil), items...)
	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, kind, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		current = next
	}

	return current, nil
}

// Describe returns status entries for the configured steps.
func (f *Filtering) Describe() []Status {
	statuses := make([]Status, 0, len(f.steps))
	for _, step := range f.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// toggle carries the enabled state shared by the built-in steps.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// keep returns the items for which pred is true, preserving order, and the
// identifiers of the dropped ones.
func keep(items []matching.ListingItem, pred func(matching.ListingItem) bool) ([]matching.ListingItem, []string) {
	kept := make([]matching.ListingItem, 0, len(items))
	var dropped []string
	for _, item := range items {
		if pred(item) {
			kept = append(kept, item)
			continue
		}
		dropped = append(dropped, item.ID)
	}
	return kept, dropped
}

func stepOf(initial int, kept []matching.ListingItem) Step {
	return Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}
}
