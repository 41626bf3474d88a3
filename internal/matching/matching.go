// Package matching holds the data model shared by the ranking engine and its
// collaborators, together with the deterministic skill overlap scorer.
package matching

import "fmt"

// Kind selects the ranking direction.
type Kind string

const (
	// KindJobs ranks open vacancies for a job seeker.
	KindJobs Kind = "jobs"
	// KindCandidates ranks candidates for a vacancy.
	KindCandidates Kind = "candidates"
)

func (k Kind) Valid() bool {
	return k == KindJobs || k == KindCandidates
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown ranking kind %q", s)
	}
	return k, nil
}

// Profile is the scoring subject: a seeker when ranking jobs, a vacancy when
// ranking candidates.
type Profile struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Experience string   `json:"experience,omitempty"`
	Education  string   `json:"education,omitempty"`
}

// HasSignal reports whether the profile carries anything to rank against.
func (p *Profile) HasSignal() bool {
	if p == nil {
		return false
	}
	return len(p.Skills) > 0 || p.Experience != "" || p.Education != "" || p.Bio != ""
}

// ListingItem is one element of the ranked pool.
type ListingItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	OwnerID      string   `json:"owner_id,omitempty"`
	Status       string   `json:"status,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements string   `json:"requirements,omitempty"`
	Experience   string   `json:"experience,omitempty"`
	Education    string   `json:"education,omitempty"`
}

// Snapshot is the fixed ordering of the pool for one ranking call. Position
// i holds the item exposed to the provider as ordinal i+1.
type Snapshot struct {
	items []ListingItem
}

// NewSnapshot copies items so later changes to the caller's slice do not
// alter the ordinal mapping.
func NewSnapshot(items []ListingItem) Snapshot {
	copied := make([]ListingItem, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].Skills = append([]string(nil), items[i].Skills...)
	}
	return Snapshot{items: copied}
}

func (s Snapshot) Len() int {
	return len(s.items)
}

// At returns the item at a zero-based position.
func (s Snapshot) At(idx int) ListingItem {
	return s.items[idx]
}

// ByOrdinal resolves a 1-based ordinal to its item.
func (s Snapshot) ByOrdinal(ordinal int) (ListingItem, bool) {
	if ordinal < 1 || ordinal > len(s.items) {
		return ListingItem{}, false
	}
	return s.items[ordinal-1], true
}

// MatchResult is one ranked entry.
type MatchResult struct {
	SubjectID string `json:"subject_id"`
	Title     string `json:"title,omitempty"`
	Score     int    `json:"score"`
	Reason    string `json:"reason"`
	Applied   bool   `json:"applied"`
	Saved     bool   `json:"saved"`
}
