package ranking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/match-ranker/internal/logger"
	"github.com/spigell/match-ranker/internal/matching"
)

// Catalog is the read-only view of the collaborators a ranking request needs.
// For KindJobs the subject is a seeker and the pool holds open vacancies; for
// KindCandidates the subject is a vacancy and the pool holds candidates.
type Catalog interface {
	// Profile returns nil without an error when the subject does not exist.
	Profile(ctx context.Context, kind matching.Kind, subjectID string) (*matching.Profile, error)
	Pool(ctx context.Context, kind matching.Kind) ([]matching.ListingItem, error)
	Applied(ctx context.Context, kind matching.Kind, subjectID string) ([]string, error)
	Saved(ctx context.Context, kind matching.Kind, subjectID string) ([]string, error)
}

// PoolFilter narrows the pool before it is snapshotted.
type PoolFilter interface {
	Run(ctx context.Context, kind matching.Kind, items []matching.ListingItem) ([]matching.ListingItem, error)
}

// Service snapshots collaborators for one request and hands them to the Ranker.
type Service struct {
	catalog Catalog
	filter  PoolFilter
	ranker  *Ranker
	logger  *zap.Logger
}

// NewService wires a Service. filter may be nil.
func NewService(catalog Catalog, filter PoolFilter, ranker *Ranker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, filter: filter, ranker: ranker, logger: log}
}

// Rank ranks the pool for subjectID. limit <= 0 returns every result. Only
// *PreconditionError and *InternalError are returned.
func (s *Service) Rank(ctx context.Context, kind matching.Kind, subjectID string, limit int) ([]matching.MatchResult, error) {
	if !kind.Valid() {
		return nil, &PreconditionError{Message: fmt.Sprintf("unknown ranking kind %q", kind)}
	}

	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, &PreconditionError{Message: "subject id is required"}
	}

	log := logger.WithRequest(s.logger, uuid.NewString(), string(kind), subjectID)

	profile, err := s.catalog.Profile(ctx, kind, subjectID)
	if err != nil {
		return nil, &InternalError{Message: "fetch profile", Cause: err}
	}
	if profile == nil {
		return nil, &PreconditionError{Message: fmt.Sprintf("%s %q not found", subjectNoun(kind), subjectID)}
	}
	if !profile.HasSignal() {
		return nil, &PreconditionError{Message: fmt.Sprintf("%s %q has no skills or profile data to rank against", subjectNoun(kind), subjectID)}
	}

	var (
		pool           []matching.ListingItem
		applied, saved []string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.catalog.Pool(gCtx, kind)
		if err != nil {
			return &InternalError{Message: "fetch pool", Cause: err}
		}
		pool = items
		return nil
	})
	g.Go(func() error {
		ids, err := s.catalog.Applied(gCtx, kind, subjectID)
		if err != nil {
			return &InternalError{Message: "fetch applied identifiers", Cause: err}
		}
		applied = ids
		return nil
	})
	g.Go(func() error {
		ids, err := s.catalog.Saved(gCtx, kind, subjectID)
		if err != nil {
			return &InternalError{Message: "fetch saved identifiers", Cause: err}
		}
		saved = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fetched := len(pool)
	if s.filter != nil {
		pool, err = s.filter.Run(ctx, kind, pool)
		if err != nil {
			return nil, &InternalError{Message: "filter pool", Cause: err}
		}
	}

	log.Info("ranking pool",
		zap.Int("fetched", fetched),
		zap.Int("snapshot", len(pool)),
		zap.Int("applied", len(applied)),
		zap.Int("saved", len(saved)),
	)

	ranker := s.ranker.withLogger(log)
	results, err := ranker.Rank(ctx, Request{
		Kind:     kind,
		Profile:  profile,
		Snapshot: matching.NewSnapshot(pool),
		Applied:  NewIDSet(applied),
		Saved:    NewIDSet(saved),
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	log.Info("ranking completed", zap.Int("results", len(results)))

	return results, nil
}

func subjectNoun(kind matching.Kind) string {
	if kind == matching.KindCandidates {
		return "vacancy"
	}
	return "seeker"
}
