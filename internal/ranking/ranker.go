package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/match-ranker/internal/ai"
	"github.com/spigell/match-ranker/internal/logger"
	"github.com/spigell/match-ranker/internal/matching"
	"github.com/spigell/match-ranker/internal/utils"
)

const (
	DefaultTimeout        = 30 * time.Second
	defaultMaxLogLength   = 200
	neutralBaselineReason = "no skills to compare"
)

// IDSet is a set of listing identifiers.
type IDSet map[string]struct{}

func NewIDSet(ids []string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Request is the input of one ranking pass. Profile and Snapshot must not be
// modified while Rank runs.
type Request struct {
	Kind     matching.Kind
	Profile  *matching.Profile
	Snapshot matching.Snapshot
	Applied  IDSet
	Saved    IDSet
}

// Options configures a Ranker.
type Options struct {
	Params ai.Params
	// Timeout bounds the provider call. Zero means DefaultTimeout.
	Timeout      time.Duration
	MaxLogLength int
}

// Ranker merges baseline skill overlap scores with optional provider scores.
// It holds no per-request state and is safe for concurrent use.
type Ranker struct {
	provider  ai.Completer
	params    ai.Params
	timeout   time.Duration
	logger    *zap.Logger
	maxLogLen int
}

// NewRanker creates a Ranker. A nil provider ranks with baseline scores only.
func NewRanker(provider ai.Completer, opts Options, log *zap.Logger) *Ranker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	r := &Ranker{
		provider:  provider,
		params:    opts.Params.WithDefaults(),
		timeout:   opts.Timeout,
		maxLogLen: opts.MaxLogLength,
	}
	r.logger = r.providerLogger(log)

	return r
}

type baseline struct {
	score  int
	reason string
}

// Rank scores every snapshot item and returns them sorted by descending score,
// ties kept in snapshot order. Provider and parse failures fall back to the
// baseline for the whole snapshot and are only logged.
func (r *Ranker) Rank(ctx context.Context, req Request) ([]matching.MatchResult, error) {
	if req.Profile == nil {
		return nil, &PreconditionError{Message: "profile is required"}
	}

	if req.Snapshot.Len() == 0 {
		return []matching.MatchResult{}, nil
	}

	baselines := make([]baseline, req.Snapshot.Len())
	for i := range baselines {
		baselines[i] = baselineScore(req.Kind, req.Profile, req.Snapshot.At(i))
	}

	scores, err := r.providerScores(ctx, req)
	if err != nil {
		r.logger.Warn("falling back to baseline scores",
			zap.Int("items", req.Snapshot.Len()),
			zap.Error(err),
		)
		scores = nil
	}

	return merge(req, baselines, scores), nil
}

// providerScores asks the provider to re-score the snapshot. A nil map with a
// nil error means no provider is configured.
func (r *Ranker) providerScores(ctx context.Context, req Request) (ScoreMap, error) {
	if r.provider == nil {
		return nil, nil
	}

	prompt := BuildPrompt(req.Kind, req.Profile, req.Snapshot)

	r.logger.Debug("provider request",
		zap.Int("items", req.Snapshot.Len()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	raw, err := utils.Await(callCtx, func() (string, error) {
		return r.provider.Complete(callCtx, prompt, r.params)
	})
	if err != nil {
		return nil, &ProviderError{
			Provider: r.provider.Name(),
			Timeout:  errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
			Cause:    err,
		}
	}

	r.logger.Debug("provider response",
		zap.Duration("took", time.Since(started)),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	parsed, err := ParseResponse(raw, req.Snapshot.Len())
	if err != nil {
		return nil, err
	}

	if parsed.Dropped > 0 {
		r.logger.Debug("dropped provider entries", zap.Int("dropped", parsed.Dropped))
	}

	r.logger.Debug("provider scores parsed",
		zap.Int("scored", len(parsed.Scores)),
		zap.Int("items", req.Snapshot.Len()),
	)

	return parsed.Scores, nil
}

// baselineScore compares what the listing asks for against what the subject
// offers. For jobs the vacancy skills are the target; for candidates the
// vacancy is the profile, so its skills become the target.
func baselineScore(kind matching.Kind, profile *matching.Profile, item matching.ListingItem) baseline {
	target, source := item.Skills, profile.Skills
	if kind == matching.KindCandidates {
		target, source = profile.Skills, item.Skills
	}

	score, matched := matching.Overlap(target, source)
	if len(target) == 0 || len(source) == 0 {
		return baseline{score: score, reason: neutralBaselineReason}
	}

	return baseline{score: score, reason: fmt.Sprintf("%d skills matched", matched)}
}

// merge is the single result-shaping path for both the provider-assisted and
// the baseline-only pass.
func merge(req Request, baselines []baseline, scores ScoreMap) []matching.MatchResult {
	results := make([]matching.MatchResult, req.Snapshot.Len())
	for i := range results {
		item := req.Snapshot.At(i)
		score, reason := baselines[i].score, baselines[i].reason

		if verdict, ok := scores[i+1]; ok {
			score = verdict.Score
			if verdict.Reason != "" {
				reason = verdict.Reason
			}
		}

		results[i] = matching.MatchResult{
			SubjectID: item.ID,
			Title:     item.Title,
			Score:     matching.Clamp(score),
			Reason:    reason,
			Applied:   req.Applied.Has(item.ID),
			Saved:     req.Saved.Has(item.ID),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// withLogger returns a shallow copy logging through log.
func (r *Ranker) withLogger(log *zap.Logger) *Ranker {
	clone := *r
	clone.logger = r.providerLogger(log)
	return &clone
}

func (r *Ranker) providerLogger(log *zap.Logger) *zap.Logger {
	if r.provider == nil {
		return logger.WithFields(log)
	}
	model := r.params.Model
	if model == "" {
		model = r.provider.Model()
	}
	return logger.WithProvider(log, r.provider.Name(), model)
}
