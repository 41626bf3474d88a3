// Package postgres reads ranking collaborators from PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/match-ranker/internal/matching"
)

const (
	seekerColumns = `id::text, COALESCE(title, ''), COALESCE(bio, ''), COALESCE(skills, '{}'),
		COALESCE(experience, ''), COALESCE(education, '')`

	vacancyColumns = `id::text, COALESCE(title, ''), COALESCE(description, ''), COALESCE(requirements, ''),
		COALESCE(skills, '{}'), COALESCE(experience, ''), COALESCE(education, '')`
)

// Store wraps a PostgreSQL connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Profile returns the seeker (KindJobs) or the vacancy (KindCandidates) being
// ranked against, or nil when it does not exist.
func (s *Store) Profile(ctx context.Context, kind matching.Kind, subjectID string) (*matching.Profile, error) {
	var (
		p   matching.Profile
		err error
	)

	switch kind {
	case matching.KindJobs:
		err = s.pool.QueryRow(ctx,
			`SELECT `+seekerColumns+` FROM seekers WHERE id::text = $1`,
			subjectID,
		).Scan(&p.ID, &p.Title, &p.Bio, &p.Skills, &p.Experience, &p.Education)
	case matching.KindCandidates:
		var description, requirements string
		err = s.pool.QueryRow(ctx,
			`SELECT `+vacancyColumns+` FROM vacancies WHERE id::text = $1`,
			subjectID,
		).Scan(&p.ID, &p.Title, &description, &requirements, &p.Skills, &p.Experience, &p.Education)
		p.Bio = joinText(description, requirements)
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s profile %s: %w", kind, subjectID, err)
	}

	return &p, nil
}

// Pool returns open vacancies (KindJobs) or all candidates (KindCandidates)
// in a stable order.
func (s *Store) Pool(ctx context.Context, kind matching.Kind) ([]matching.ListingItem, error) {
	switch kind {
	case matching.KindJobs:
		rows, err := s.pool.Query(ctx,
			`SELECT `+vacancyColumns+`, COALESCE(employer_id::text, ''), COALESCE(status, '')
			 FROM vacancies
			 WHERE lower(COALESCE(status, 'open')) IN ('open', 'active')
			 ORDER BY created_at, id`)
		if err != nil {
			return nil, fmt.Errorf("failed to list vacancies: %w", err)
		}
		return pgx.CollectRows(rows, func(row pgx.CollectableRow) (matching.ListingItem, error) {
			var item matching.ListingItem
			err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Requirements,
				&item.Skills, &item.Experience, &item.Education, &item.OwnerID, &item.Status)
			return item, err
		})
	case matching.KindCandidates:
		rows, err := s.pool.Query(ctx,
			`SELECT `+seekerColumns+` FROM seekers ORDER BY created_at, id`)
		if err != nil {
			return nil, fmt.Errorf("failed to list candidates: %w", err)
		}
		return pgx.CollectRows(rows, func(row pgx.CollectableRow) (matching.ListingItem, error) {
			var item matching.ListingItem
			err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Skills,
				&item.Experience, &item.Education)
			return item, err
		})
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

// Applied returns vacancies the seeker applied to (KindJobs) or candidates
// who applied to the vacancy (KindCandidates).
func (s *Store) Applied(ctx context.Context, kind matching.Kind, subjectID string) ([]string, error) {
	switch kind {
	case matching.KindJobs:
		return s.ids(ctx, `SELECT vacancy_id::text FROM applications WHERE seeker_id::text = $1`, subjectID)
	case matching.KindCandidates:
		return s.ids(ctx, `SELECT seeker_id::text FROM applications WHERE vacancy_id::text = $1`, subjectID)
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

// Saved returns vacancies the seeker saved (KindJobs) or candidates the
// employer shortlisted for the vacancy (KindCandidates).
func (s *Store) Saved(ctx context.Context, kind matching.Kind, subjectID string) ([]string, error) {
	switch kind {
	case matching.KindJobs:
		return s.ids(ctx, `SELECT vacancy_id::text FROM saved_vacancies WHERE seeker_id::text = $1`, subjectID)
	case matching.KindCandidates:
		return s.ids(ctx, `SELECT seeker_id::text FROM shortlists WHERE vacancy_id::text = $1`, subjectID)
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

func (s *Store) ids(ctx context.Context, query, subjectID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan identifiers: %w", err)
	}
	return ids, nil
}

func joinText(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}
