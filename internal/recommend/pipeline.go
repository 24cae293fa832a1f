package recommend

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

// RankingPipeline runs the full retrieve-extract-score-rank pass for one
// request. Candidates are scored concurrently on a bounded pool; when the
// context deadline cuts the pass short, whatever was scored is returned
// with the partial flag set.
type RankingPipeline struct {
	interactions InteractionStore
	activities   ActivityStore
	retrieval    *CandidateRetrieval
	extractor    *FeatureExtractor
	people       *ScoringModel
	events       *ScoringModel
	diversity    *DiversityFilter
	workers      int
	log          logger.Logger
	now          func() time.Time
}

func NewRankingPipeline(
	interactions InteractionStore,
	activities ActivityStore,
	retrieval *CandidateRetrieval,
	extractor *FeatureExtractor,
	people, events *ScoringModel,
	diversity *DiversityFilter,
	workers int,
	log logger.Logger,
) *RankingPipeline {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RankingPipeline{
		interactions: interactions,
		activities:   activities,
		retrieval:    retrieval,
		extractor:    extractor,
		people:       people,
		events:       events,
		diversity:    diversity,
		workers:      workers,
		log:          log,
		now:          time.Now,
	}
}

// RankPeople produces one ranked page of people for the user. A failure to
// load the exclusion set fails the whole request; previously passed or
// matched candidates must never resurface.
func (p *RankingPipeline) RankPeople(ctx context.Context, user *Profile, opts Options) (*Recommendations, error) {
	exclusions, err := p.exclusionSet(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	pool, err := p.retrieval.Fetch(ctx, user, exclusions, opts)
	if err != nil {
		return nil, err
	}

	userHistory, userActivities := p.loadHistory(ctx, user.ID)

	scored := p.scoreCandidates(ctx, user, pool, userHistory, userActivities, opts.MinScore)

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Candidate.LastActive.Equal(b.Candidate.LastActive) {
			return a.Candidate.LastActive.After(b.Candidate.LastActive)
		}
		return a.Candidate.ID < b.Candidate.ID
	})

	scored = p.diversity.Apply(scored)
	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}

	results := make([]*RankedCandidate, 0, len(scored))
	for _, s := range scored {
		results = append(results, &RankedCandidate{
			Profile:    s.Candidate,
			Score:      s.Score,
			Breakdown:  s.Breakdown,
			Reasons:    s.Reasons,
			Confidence: s.Confidence,
		})
	}

	return &Recommendations{
		Results:     results,
		Partial:     ctx.Err() != nil,
		GeneratedAt: p.now(),
	}, nil
}

// ScorePair scores a single (user, candidate) pair with full history
// loads. Backs the explanation endpoint.
func (p *RankingPipeline) ScorePair(ctx context.Context, user, candidate *Profile) *ScoreResult {
	userHistory, userActivities := p.loadHistory(ctx, user.ID)
	return p.scoreOne(ctx, user, candidate, userHistory, userActivities)
}

// RankActivities produces one ranked page of upcoming activities. No
// diversity pass; activity pools are small and naturally varied.
func (p *RankingPipeline) RankActivities(ctx context.Context, user *Profile, opts Options) (*ActivityRecommendations, error) {
	pool, err := p.activities.Query(ctx, ActivityFilters{
		Category: opts.Category,
		Center:   user.Location,
		RadiusKm: opts.MaxDistanceKm,
		After:    p.now(),
		Limit:    opts.Limit * defaultPoolMultiplier,
	})
	if err != nil {
		return nil, err
	}

	userHistory, userActivities := p.loadHistory(ctx, user.ID)
	joined := make(map[string]bool, len(userActivities))
	for _, act := range userActivities {
		joined[act.ID] = true
	}

	scored := make([]*RankedActivity, 0, len(pool))
	for _, act := range pool {
		if ctx.Err() != nil {
			break
		}
		if act == nil || joined[act.ID] || act.OrganizerID == user.ID {
			continue
		}

		features := p.extractor.ActivityFeatures(user, act, userActivities, userHistory)
		card := p.events.Score(ctx, ScoreInputs{
			Features:      features,
			CompletenessA: user.Completeness(),
			CompletenessB: activityCompleteness(act),
			LastActiveA:   user.LastActive,
			LastActiveB:   act.ScheduledAt,
		})
		if card.Score < opts.MinScore {
			continue
		}

		scored = append(scored, &RankedActivity{
			Activity:   act,
			Score:      card.Score,
			Breakdown:  features,
			Reasons:    ExplainScore(features, user, nil),
			Confidence: card.Confidence,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Activity.ScheduledAt.Equal(b.Activity.ScheduledAt) {
			return a.Activity.ScheduledAt.Before(b.Activity.ScheduledAt)
		}
		return a.Activity.ID < b.Activity.ID
	})
	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}

	return &ActivityRecommendations{
		Results:     scored,
		Partial:     ctx.Err() != nil,
		GeneratedAt: p.now(),
	}, nil
}

// scoreCandidates fans candidates out over the worker pool and collects
// everything at or above minScore.
func (p *RankingPipeline) scoreCandidates(ctx context.Context, user *Profile, pool []*Profile, userHistory BehaviorHistory, userActivities []*ActivityRecord, minScore float64) []*ScoreResult {
	jobs := make(chan *Profile)
	out := make(chan *ScoreResult, len(pool))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				res := p.scoreOne(ctx, user, cand, userHistory, userActivities)
				if res.Score >= minScore {
					out <- res
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, cand := range pool {
			select {
			case jobs <- cand:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(out)

	scored := make([]*ScoreResult, 0, len(pool))
	for res := range out {
		scored = append(scored, res)
	}
	return scored
}

func (p *RankingPipeline) scoreOne(ctx context.Context, user, candidate *Profile, userHistory BehaviorHistory, userActivities []*ActivityRecord) *ScoreResult {
	candHistory, candActivities := p.loadHistory(ctx, candidate.ID)

	features := p.extractor.PersonFeatures(user, candidate, PairInputs{
		UserHistory:         userHistory,
		CandidateHistory:    candHistory,
		UserActivities:      userActivities,
		CandidateActivities: candActivities,
	})

	card := p.people.Score(ctx, ScoreInputs{
		Features:      features,
		CompletenessA: user.Completeness(),
		CompletenessB: candidate.Completeness(),
		LastActiveA:   user.LastActive,
		LastActiveB:   candidate.LastActive,
	})

	return &ScoreResult{
		Candidate:  candidate,
		Score:      card.Score,
		Breakdown:  features,
		Reasons:    ExplainScore(features, user, candidate),
		Confidence: card.Confidence,
	}
}

// exclusionSet loads the IDs the user has already liked, passed, or
// matched with. This load failing is a hard error.
func (p *RankingPipeline) exclusionSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	recs, err := p.interactions.ListByActor(ctx, userID, ExclusionTypes)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if rec != nil {
			set[rec.TargetID] = struct{}{}
		}
	}
	return set, nil
}

// loadHistory fetches one user's behavioral inputs. Failures degrade to
// empty history, pushing the affected features to neutral.
func (p *RankingPipeline) loadHistory(ctx context.Context, userID string) (BehaviorHistory, []*ActivityRecord) {
	var history BehaviorHistory

	authored, err := p.interactions.ListByActor(ctx, userID, nil)
	if err != nil {
		p.log.WithError(err).Warn("authored history load failed, using neutral behavior", map[string]interface{}{"user_id": userID})
	} else {
		history.Authored = authored
	}

	received, err := p.interactions.ListByTarget(ctx, userID, []InteractionType{InteractionLike})
	if err != nil {
		p.log.WithError(err).Warn("received history load failed, using neutral behavior", map[string]interface{}{"user_id": userID})
	} else {
		history.Received = received
	}

	activities, err := p.activities.ListByParticipant(ctx, userID)
	if err != nil {
		p.log.WithError(err).Warn("activity history load failed, using neutral affinity", map[string]interface{}{"user_id": userID})
		activities = nil
	}

	return history, activities
}

func activityCompleteness(act *ActivityRecord) float64 {
	if act == nil {
		return 0
	}
	filled := 0
	if act.Category != "" {
		filled++
	}
	if len(act.Tags) > 0 {
		filled++
	}
	if act.Location.Valid() {
		filled++
	}
	if !act.ScheduledAt.IsZero() {
		filled++
	}
	return float64(filled) / 4.0
}
