// Package file serves ranking collaborators from a YAML fixture.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/match-ranker/internal/matching"
)

// Seeker is a job seeker record.
type Seeker struct {
	ID         string   `mapstructure:"id" validate:"required"`
	Title      string   `mapstructure:"title"`
	Bio        string   `mapstructure:"bio"`
	Skills     []string `mapstructure:"skills"`
	Experience string   `mapstructure:"experience"`
	Education  string   `mapstructure:"education"`
}

// Vacancy is an employer's job listing.
type Vacancy struct {
	ID           string   `mapstructure:"id" validate:"required"`
	EmployerID   string   `mapstructure:"employer_id"`
	Title        string   `mapstructure:"title"`
	Description  string   `mapstructure:"description"`
	Requirements string   `mapstructure:"requirements"`
	Skills       []string `mapstructure:"skills"`
	Experience   string   `mapstructure:"experience"`
	Education    string   `mapstructure:"education"`
	Status       string   `mapstructure:"status"`
}

// Link relates a seeker to a vacancy (application, save or shortlist).
type Link struct {
	SeekerID  string `mapstructure:"seeker_id" validate:"required"`
	VacancyID string `mapstructure:"vacancy_id" validate:"required"`
}

// Fixture is the decoded document.
type Fixture struct {
	Seekers      []Seeker  `mapstructure:"seekers" validate:"dive"`
	Vacancies    []Vacancy `mapstructure:"vacancies" validate:"dive"`
	Applications []Link    `mapstructure:"applications" validate:"dive"`
	Saved        []Link    `mapstructure:"saved" validate:"dive"`
	Shortlists   []Link    `mapstructure:"shortlists" validate:"dive"`
}

// Store is an in-memory catalog loaded from a fixture.
type Store struct {
	mu      sync.RWMutex
	fixture Fixture
}

// Load reads and decodes the fixture at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %q: %w", path, err)
	}

	fixture, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding fixture %q: %w", path, err)
	}

	return New(fixture), nil
}

// New wraps an already decoded fixture.
func New(fixture Fixture) *Store {
	return &Store{fixture: fixture}
}

// Decode parses YAML into a Fixture. Scalars are coerced loosely so numeric
// identifiers are accepted as strings.
func Decode(data []byte) (Fixture, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Fixture{}, err
	}

	var fixture Fixture
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &fixture,
	})
	if err != nil {
		return Fixture{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Fixture{}, err
	}

	if err := validator.New().Struct(fixture); err != nil {
		return Fixture{}, err
	}

	return fixture, nil
}

// Profile implements the ranking catalog.
func (s *Store) Profile(_ context.Context, kind matching.Kind, subjectID string) (*matching.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case matching.KindJobs:
		for _, sk := range s.fixture.Seekers {
			if sk.ID == subjectID {
				return &matching.Profile{
					ID:         sk.ID,
					Title:      sk.Title,
					Bio:        sk.Bio,
					Skills:     append([]string(nil), sk.Skills...),
					Experience: sk.Experience,
					Education:  sk.Education,
				}, nil
			}
		}
	case matching.KindCandidates:
		for _, v := range s.fixture.Vacancies {
			if v.ID == subjectID {
				return &matching.Profile{
					ID:         v.ID,
					Title:      v.Title,
					Bio:        strings.TrimSpace(v.Description + "\n" + v.Requirements),
					Skills:     append([]string(nil), v.Skills...),
					Experience: v.Experience,
					Education:  v.Education,
				}, nil
			}
		}
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}

	return nil, nil
}

// Pool returns every vacancy (KindJobs) or every seeker (KindCandidates) in
// fixture order. Status filtering is left to the pool filters.
func (s *Store) Pool(_ context.Context, kind matching.Kind) ([]matching.ListingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case matching.KindJobs:
		items := make([]matching.ListingItem, 0, len(s.fixture.Vacancies))
		for _, v := range s.fixture.Vacancies {
			items = append(items, matching.ListingItem{
				ID:           v.ID,
				Title:        v.Title,
				OwnerID:      v.EmployerID,
				Status:       v.Status,
				Skills:       append([]string(nil), v.Skills...),
				Description:  v.Description,
				Requirements: v.Requirements,
				Experience:   v.Experience,
				Education:    v.Education,
			})
		}
		return items, nil
	case matching.KindCandidates:
		items := make([]matching.ListingItem, 0, len(s.fixture.Seekers))
		for _, sk := range s.fixture.Seekers {
			items = append(items, matching.ListingItem{
				ID:          sk.ID,
				Title:       sk.Title,
				Skills:      append([]string(nil), sk.Skills...),
				Description: sk.Bio,
				Experience:  sk.Experience,
				Education:   sk.Education,
			})
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

// Applied implements the ranking catalog.
func (s *Store) Applied(_ context.Context, kind matching.Kind, subjectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return related(kind, subjectID, s.fixture.Applications)
}

// Saved returns saved vacancies for a seeker or shortlisted seekers for a
// vacancy.
func (s *Store) Saved(_ context.Context, kind matching.Kind, subjectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case matching.KindJobs:
		return related(kind, subjectID, s.fixture.Saved)
	case matching.KindCandidates:
		return related(kind, subjectID, s.fixture.Shortlists)
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

func related(kind matching.Kind, subjectID string, links []Link) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}

	var ids []string
	for _, l := range links {
		if kind == matching.KindJobs && l.SeekerID == subjectID {
			ids = append(ids, l.VacancyID)
		}
		if kind == matching.KindCandidates && l.VacancyID == subjectID {
			ids = append(ids, l.SeekerID)
		}
	}
	return ids, nil
}
