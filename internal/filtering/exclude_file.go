package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/match-ranker/internal/matching"
)

// ExcludedItems is the on-disk format of the exclude file.
type ExcludedItems struct {
	Items []*ExcludedItem
}

type ExcludedItem struct {
	ID         string
	Kind       matching.Kind `json:",omitempty"`
	Title      string        `json:",omitempty"`
	ExcludedAt time.Time
}

// ReadExcludeFile loads an exclude file. A missing or empty file yields an empty list.
func ReadExcludeFile(path string) (*ExcludedItems, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ExcludedItems{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedItems{}, nil
	}

	var excluded ExcludedItems
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %q: %w", path, err)
	}
	for _, item := range excluded.Items {
		if item == nil || item.Kind == "" {
			continue
		}
		if _, err := matching.ParseKind(string(item.Kind)); err != nil {
			return nil, fmt.Errorf("exclude file %q: item %s: %w", path, item.ID, err)
		}
	}
	return &excluded, nil
}

// Append adds results to the list, skipping identifiers already present.
func (e *ExcludedItems) Append(kind matching.Kind, results []matching.MatchResult, now time.Time) int {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[string(item.Kind)+"/"+item.ID] = struct{}{}
	}

	added := 0
	for _, r := range results {
		key := string(kind) + "/" + r.SubjectID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		e.Items = append(e.Items, &ExcludedItem{
			ID:         r.SubjectID,
			Kind:       kind,
			Title:      r.Title,
			ExcludedAt: now.UTC(),
		})
		added++
	}
	return added
}

// IDs returns the identifiers excluded for kind. Entries without a kind apply to all kinds.
func (e *ExcludedItems) IDs(kind matching.Kind) []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		if item.Kind == "" || item.Kind == kind {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// ToFile rewrites path with the current list.
func (e *ExcludedItems) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

type excludeFileFilter struct {
	toggle
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes items listed in the exclude file.
func NewExcludeFile(path string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &excludeFileFilter{path: strings.TrimSpace(path), logger: logger}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate() error {
	if f.path == "" {
		return nil
	}
	if stat, err := os.Stat(f.path); err == nil && stat.IsDir() {
		return fmt.Errorf("exclude file %q is a directory", f.path)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, kind matching.Kind, items []matching.ListingItem) ([]matching.ListingItem, Step, error) {
	if f.path == "" {
		return items, stepOf(len(items), items), nil
	}

	excluded, err := ReadExcludeFile(f.path)
	if err != nil {
		return nil, Step{}, fmt.Errorf("getting excluded items from file: %w", err)
	}

	ids := make(map[string]struct{})
	for _, id := range excluded.IDs(kind) {
		ids[id] = struct{}{}
	}

	kept, dropped := keep(items, func(item matching.ListingItem) bool {
		_, skip := ids[item.ID]
		return !skip
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding items based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded", dropped),
			zap.Int("left", len(kept)),
		)
	}

	return kept, stepOf(len(items), kept), nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
