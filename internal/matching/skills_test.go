package matching

import "testing"

func TestOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		target      []string
		source      []string
		wantScore   int
		wantMatched int
	}{
		{
			name:      "empty target is neutral",
			target:    nil,
			source:    []string{"Go"},
			wantScore: NeutralScore,
		},
		{
			name:      "empty source is neutral",
			target:    []string{"Go"},
			source:    []string{},
			wantScore: NeutralScore,
		},
		{
			name:        "case-insensitive exact match",
			target:      []string{"React", "Node"},
			source:      []string{"react", "NODE"},
			wantScore:   100,
			wantMatched: 2,
		},
		{
			name:        "half matched",
			target:      []string{"React", "Go"},
			source:      []string{"React"},
			wantScore:   50,
			wantMatched: 1,
		},
		{
			name:        "target contained in source",
			target:      []string{"React"},
			source:      []string{"React.js"},
			wantScore:   100,
			wantMatched: 1,
		},
		{
			name:        "source contained in target",
			target:      []string{"PostgreSQL"},
			source:      []string{"postgres"},
			wantScore:   100,
			wantMatched: 1,
		},
		{
			name:        "rounds to nearest",
			target:      []string{"Go", "Rust", "Zig"},
			source:      []string{"go", "rust"},
			wantScore:   67,
			wantMatched: 2,
		},
		{
			name:        "duplicates are not collapsed",
			target:      []string{"Go", "Go", "Java"},
			source:      []string{"go"},
			wantScore:   67,
			wantMatched: 2,
		},
		{
			name:      "nothing matched",
			target:    []string{"Python"},
			source:    []string{"React", "JS", "Node"},
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			score, matched := Overlap(tt.target, tt.source)
			if score != tt.wantScore {
				t.Fatalf("expected score %d, got %d", tt.wantScore, score)
			}
			if matched != tt.wantMatched {
				t.Fatalf("expected %d matched, got %d", tt.wantMatched, matched)
			}
		})
	}
}

func TestScoreStaysInRange(t *testing.T) {
	t.Parallel()

	lists := [][]string{
		nil,
		{},
		{"Go"},
		{"go", "GO", "Go"},
		{"Kubernetes", "k8s", "Docker"},
		{"a", "b", "c", "d", "e"},
	}

	for _, target := range lists {
		for _, source := range lists {
			score := Score(target, source)
			if score < 0 || score > 100 {
				t.Fatalf("score %d out of range for %v vs %v", score, target, source)
			}
		}
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	for input, want := range map[int]int{-5: 0, 0: 0, 42: 42, 100: 100, 250: 100} {
		if got := Clamp(input); got != want {
			t.Fatalf("Clamp(%d): expected %d, got %d", input, want, got)
		}
	}
}

func TestSnapshotByOrdinal(t *testing.T) {
	t.Parallel()

	items := []ListingItem{{ID: "v-10"}, {ID: "v-3"}}
	snapshot := NewSnapshot(items)
	items[0].ID = "mutated"

	if snapshot.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", snapshot.Len())
	}

	item, ok := snapshot.ByOrdinal(1)
	if !ok || item.ID != "v-10" {
		t.Fatalf("expected ordinal 1 to resolve to v-10, got %+v (ok=%v)", item, ok)
	}

	item, ok = snapshot.ByOrdinal(2)
	if !ok || item.ID != "v-3" {
		t.Fatalf("expected ordinal 2 to resolve to v-3, got %+v (ok=%v)", item, ok)
	}

	for _, ordinal := range []int{0, -1, 3} {
		if _, ok := snapshot.ByOrdinal(ordinal); ok {
			t.Fatalf("expected ordinal %d to be rejected", ordinal)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	if k, err := ParseKind("jobs"); err != nil || k != KindJobs {
		t.Fatalf("expected jobs kind, got %q (%v)", k, err)
	}
	if _, err := ParseKind("employers"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSnapshotOwnsSkills(t *testing.T) {
	t.Parallel()

	items := []ListingItem{{ID: "v1", Skills: []string{"Go", "SQL"}}}
	snapshot := NewSnapshot(items)

	items[0].Skills[0] = "Cobol"
	items[0].Skills = append(items[0].Skills, "Fortran")

	got := snapshot.At(0).Skills
	if len(got) != 2 || got[0] != "Go" || got[1] != "SQL" {
		t.Fatalf("snapshot skills changed with caller slice: %v", got)
	}
}
