package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

const defaultScoringTimeout = 2 * time.Second

// Service is the public recommendation surface consumed by the transport
// layer.
type Service interface {
	GetPersonRecommendations(ctx context.Context, userID string, opts Options) (*Recommendations, error)
	GetActivityRecommendations(ctx context.Context, userID string, opts Options) (*ActivityRecommendations, error)
	Explain(ctx context.Context, userID, candidateID string) (*Explanation, error)
	SubmitFeedback(ctx context.Context, userID, targetID string, action InteractionType, confidence float64) error
	RefreshRecommendations(ctx context.Context, userID string) error
}

type service struct {
	profiles     ProfileStore
	interactions InteractionStore
	pipeline     *RankingPipeline
	people       *RecommendationCache[*Recommendations]
	events       *RecommendationCache[*ActivityRecommendations]
	timeout      time.Duration
	minScore     float64
	log          logger.Logger
	now          func() time.Time
}

// NewService wires the pipeline behind the two result caches and the
// Prometheus counters.
func NewService(
	profiles ProfileStore,
	interactions InteractionStore,
	pipeline *RankingPipeline,
	people *RecommendationCache[*Recommendations],
	events *RecommendationCache[*ActivityRecommendations],
	timeout time.Duration,
	minScore float64,
	log logger.Logger,
) Service {
	if timeout <= 0 {
		timeout = defaultScoringTimeout
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	people.OnHit = func() { RecordCacheHit(KindPeople) }
	people.OnMiss = func() { RecordCacheMiss(KindPeople) }
	events.OnHit = func() { RecordCacheHit(KindActivities) }
	events.OnMiss = func() { RecordCacheMiss(KindActivities) }
	return &service{
		profiles:     profiles,
		interactions: interactions,
		pipeline:     pipeline,
		people:       people,
		events:       events,
		timeout:      timeout,
		minScore:     minScore,
		log:          log,
		now:          time.Now,
	}
}

func (s *service) GetPersonRecommendations(ctx context.Context, userID string, opts Options) (*Recommendations, error) {
	if opts.MinScore == 0 {
		opts.MinScore = s.minScore
	}
	if err := opts.Normalize(); err != nil {
		RecordRequest(KindPeople, "invalid")
		return nil, err
	}

	user, err := s.profiles.Get(ctx, userID)
	if err != nil {
		RecordRequest(KindPeople, "error")
		return nil, err
	}

	key := NewCacheKey(userID, KindPeople, opts)
	if opts.ForceRefresh {
		s.people.Remove(key)
	}

	rec, err := s.people.GetOrCompute(ctx, key, func(ctx context.Context) (*Recommendations, bool, error) {
		rec, err := s.rankPeople(ctx, user, opts)
		if err != nil {
			return nil, false, err
		}
		return rec, !rec.Partial, nil
	})
	if err != nil {
		RecordRequest(KindPeople, "error")
		return nil, err
	}
	RecordRequest(KindPeople, "ok")
	return rec, nil
}

func (s *service) GetActivityRecommendations(ctx context.Context, userID string, opts Options) (*ActivityRecommendations, error) {
	if opts.MinScore == 0 {
		opts.MinScore = s.minScore
	}
	if err := opts.Normalize(); err != nil {
		RecordRequest(KindActivities, "invalid")
		return nil, err
	}

	user, err := s.profiles.Get(ctx, userID)
	if err != nil {
		RecordRequest(KindActivities, "error")
		return nil, err
	}

	key := NewCacheKey(userID, KindActivities, opts)
	if opts.ForceRefresh {
		s.events.Remove(key)
	}

	rec, err := s.events.GetOrCompute(ctx, key, func(ctx context.Context) (*ActivityRecommendations, bool, error) {
		rec, err := s.rankActivities(ctx, user, opts)
		if err != nil {
			return nil, false, err
		}
		return rec, !rec.Partial, nil
	})
	if err != nil {
		RecordRequest(KindActivities, "error")
		return nil, err
	}
	RecordRequest(KindActivities, "ok")
	return rec, nil
}

// Explain scores one pair on demand, bypassing the caches so the answer
// reflects current data.
func (s *service) Explain(ctx context.Context, userID, candidateID string) (*Explanation, error) {
	user, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidate, err := s.profiles.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := s.pipeline.ScorePair(ctx, user, candidate)
	return &Explanation{
		UserID:      userID,
		CandidateID: candidateID,
		Score:       res.Score,
		Breakdown:   res.Breakdown,
		Reasons:     res.Reasons,
		Confidence:  res.Confidence,
	}, nil
}

// SubmitFeedback appends one interaction and drops the actor's cached
// pages so the next request reflects it. Like, pass and match also remove
// the target from future candidate pools through the exclusion set.
// A zero confidence means unstated and defaults to certain.
func (s *service) SubmitFeedback(ctx context.Context, userID, targetID string, action InteractionType, confidence float64) error {
	if !action.Valid() {
		return ErrInvalidFeedback
	}
	if userID == "" || targetID == "" || userID == targetID {
		return ErrInvalidFeedback
	}
	if confidence < 0 || confidence > 1 {
		return ErrInvalidFeedback
	}
	if confidence == 0 {
		confidence = 1
	}

	rec := &InteractionRecord{
		ID:         uuid.NewString(),
		ActorID:    userID,
		TargetID:   targetID,
		Type:       action,
		Confidence: confidence,
		CreatedAt:  s.now(),
	}
	if err := s.interactions.Append(ctx, rec); err != nil {
		return err
	}

	s.invalidate(userID)
	RecordFeedback(string(action))

	s.log.Info("feedback recorded", map[string]interface{}{
		"user_id":    userID,
		"target_id":  targetID,
		"action":     string(action),
		"confidence": confidence,
	})
	return nil
}

// RefreshRecommendations drops every cached page for the user. The next
// request recomputes from live data.
func (s *service) RefreshRecommendations(ctx context.Context, userID string) error {
	if _, err := s.profiles.Get(ctx, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *service) invalidate(userID string) {
	RecordCacheInvalidation(KindPeople, s.people.Invalidate(userID))
	RecordCacheInvalidation(KindActivities, s.events.Invalidate(userID))
}

func (s *service) rankPeople(ctx context.Context, user *Profile, opts Options) (*Recommendations, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	rec, err := s.pipeline.RankPeople(ctx, user, opts)
	if err != nil {
		return nil, err
	}
	ObserveRankingDuration(KindPeople, s.now().Sub(start))
	for _, r := range rec.Results {
		ObserveScore(r.Score)
	}
	if rec.Partial {
		RecordPartialResult(KindPeople)
		s.log.Warn("ranking pass truncated by deadline", map[string]interface{}{
			"user_id": user.ID,
			"results": len(rec.Results),
		})
	}
	return rec, nil
}

func (s *service) rankActivities(ctx context.Context, user *Profile, opts Options) (*ActivityRecommendations, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	rec, err := s.pipeline.RankActivities(ctx, user, opts)
	if err != nil {
		return nil, err
	}
	ObserveRankingDuration(KindActivities, s.now().Sub(start))
	for _, r := range rec.Results {
		ObserveScore(r.Score)
	}
	if rec.Partial {
		RecordPartialResult(KindActivities)
	}
	return rec, nil
}
