package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/match-ranker/internal/filtering"
	"github.com/spigell/match-ranker/internal/matching"
	"github.com/spigell/match-ranker/internal/ranking"
)

func TestPrintResults(t *testing.T) {
	t.Parallel()

	results := matching.Results{
		{SubjectID: "v1", Title: "Go developer", Score: 90, Reason: "strong fit", Applied: true, Saved: true},
		{SubjectID: "v2", Title: "PHP developer", Score: 10, Reason: "0 skills matched"},
	}

	var out bytes.Buffer
	if err := printResults(&out, results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], "v1 Go developer: strong fit (applied, saved)") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if strings.Contains(lines[1], "(") {
		t.Fatalf("unexpected marks in %q", lines[1])
	}
}

func TestHandleActionExit(t *testing.T) {
	t.Parallel()

	err := handleAction(&bytes.Buffer{}, PromptExit, matching.KindJobs, nil, &Config{}, zap.NewNop())
	if !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}

	if err := handleAction(&bytes.Buffer{}, "unknown", matching.KindJobs, nil, &Config{}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestAppendToExcludeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exclude.json")
	config := &Config{Filters: &FiltersConfig{ExcludeFile: path}}
	results := matching.Results{{SubjectID: "v1", Title: "Go developer"}, {SubjectID: "v2"}}

	if err := handleAction(&bytes.Buffer{}, PromptAppendToExclude, matching.KindJobs, results, config, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	excluded, err := filtering.ReadExcludeFile(path)
	if err != nil {
		t.Fatalf("reading exclude file: %v", err)
	}
	ids := excluded.IDs(matching.KindJobs)
	if len(ids) != 2 || ids[0] != "v1" || ids[1] != "v2" {
		t.Fatalf("unexpected excluded ids %v", ids)
	}
}

func TestAppendToExcludeFileNotConfigured(t *testing.T) {
	t.Parallel()

	if err := appendToExcludeFile(matching.KindJobs, nil, &Config{}, zap.NewNop()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRankWithFileStoreAndNoProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	fixture := `
seekers:
  - id: s1
    skills: [Go, SQL]
vacancies:
  - id: v1
    title: Go developer
    skills: [go, sql]
    status: open
  - id: v2
    title: Frontend
    skills: [react]
    status: open
  - id: v3
    title: Old
    skills: [go]
    status: closed
applications:
  - seeker_id: s1
    vacancy_id: v2
`
	if err := os.WriteFile(catalogPath, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	catalog, closeCatalog, err := newCatalog(ctx, &StoreConfig{Driver: "file", File: catalogPath})
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	defer closeCatalog()

	cfg := &AIConfig{Enabled: true, Timeout: time.Second}
	ranker := newRanker(ctx, cfg, true, zap.NewNop())
	service := ranking.NewService(catalog, prepareFilters(nil, zap.NewNop()), ranker, zap.NewNop())

	results, err := service.Rank(ctx, matching.KindJobs, "s1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected closed vacancy to be filtered, got %+v", results)
	}
	if results[0].SubjectID != "v1" || results[0].Score != 100 {
		t.Fatalf("unexpected top result %+v", results[0])
	}
	if results[1].SubjectID != "v2" || !results[1].Applied {
		t.Fatalf("expected v2 marked applied, got %+v", results[1])
	}
}

func TestNewCatalogUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, _, err := newCatalog(context.Background(), &StoreConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewProviderErrors(t *testing.T) {
	t.Setenv("MATCH_RANKER_TEST_EMPTY", "")

	_, err := newProvider(context.Background(), &AIConfig{Provider: "claude"}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "unsupported ai provider") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}

	_, err = newProvider(context.Background(), &AIConfig{
		Provider: "openai",
		OpenAI:   &OpenAIConfig{APIKeyEnv: "MATCH_RANKER_TEST_EMPTY"},
	}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "openai api key is not configured") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestNewProviderOpenAI(t *testing.T) {
	t.Parallel()

	provider, err := newProvider(context.Background(), &AIConfig{
		Provider: "OpenAI",
		Model:    "gpt-4o-mini",
		OpenAI:   &OpenAIConfig{APIKey: "key"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Fatalf("expected openai provider, got %s", provider.Name())
	}
	if provider.Model() != "gpt-4o-mini" {
		t.Fatalf("expected configured model, got %s", provider.Model())
	}
}

func TestPrepareFiltersHonoursDisabled(t *testing.T) {
	t.Parallel()

	filters := prepareFilters(&FiltersConfig{
		ExcludeOwners: []string{"acme"},
		Disabled:      []string{"active", " owners "},
	}, zap.NewNop())

	items := []matching.ListingItem{
		{ID: "v1", OwnerID: "acme", Status: "closed"},
		{ID: "v2", Status: "open"},
	}

	kept, err := filters.Run(context.Background(), matching.KindJobs, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected disabled steps to keep both items, got %+v", kept)
	}

	enabled := map[string]bool{}
	for _, status := range filters.Describe() {
		enabled[status.Name] = status.Enabled
	}
	if enabled["active"] || enabled["owners"] || !enabled["exclude_file"] {
		t.Fatalf("unexpected filter states: %v", enabled)
	}
}
