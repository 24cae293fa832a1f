package recommend

import (
	"math"
)

// Feature dimension names. Person scoring uses the first six; activity
// scoring reuses location/interests and adds category/timing.
const (
	FeatureLocation    = "location"
	FeatureAge         = "age"
	FeatureInterests   = "interests"
	FeaturePersonality = "personality"
	FeatureActivity    = "activity"
	FeatureBehavior    = "behavior"
	FeatureCategory    = "category"
	FeatureTiming      = "timing"
)

// neutralScore is the value a feature falls back to when its required
// input is missing. Missing data biases toward neutrality, never errors.
const neutralScore = 0.5

const traitScaleMax = 1.0

// Minimum history sizes below which behavioral signals are considered noise.
const (
	minReceivedLikes    = 3
	minAuthoredForHours = 5
)

// PersonFeatureWeights returns the canonical rule weights for person
// scoring. Validated to sum to 1.0 at startup.
func PersonFeatureWeights() map[string]float64 {
	return map[string]float64{
		FeatureLocation:    0.25,
		FeatureAge:         0.15,
		FeatureInterests:   0.20,
		FeaturePersonality: 0.15,
		FeatureActivity:    0.10,
		FeatureBehavior:    0.15,
	}
}

// ActivityFeatureWeights returns the rule weights for activity scoring.
func ActivityFeatureWeights() map[string]float64 {
	return map[string]float64{
		FeatureLocation:  0.30,
		FeatureInterests: 0.30,
		FeatureCategory:  0.25,
		FeatureTiming:    0.15,
	}
}

// BehaviorHistory carries one user's recent interactions, split by
// direction. Both slices are read-only snapshots.
type BehaviorHistory struct {
	Authored []*InteractionRecord
	Received []*InteractionRecord
}

// PairInputs bundles the history inputs for scoring one (user, candidate)
// pair. Any part may be empty; the affected features default to neutral.
type PairInputs struct {
	UserHistory         BehaviorHistory
	CandidateHistory    BehaviorHistory
	UserActivities      []*ActivityRecord
	CandidateActivities []*ActivityRecord
}

// FeatureExtractor computes normalized per-pair feature vectors. Stateless
// and safe for concurrent use.
type FeatureExtractor struct{}

func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// PersonFeatures returns the six-dimension feature map for a candidate
// person, every value in [0,1].
func (e *FeatureExtractor) PersonFeatures(user, candidate *Profile, in PairInputs) map[string]float64 {
	return map[string]float64{
		FeatureLocation:    e.locationScore(user.Location, candidate.Location),
		FeatureAge:         e.ageScore(user, candidate),
		FeatureInterests:   e.interestScore(user.Interests, candidate.Interests),
		FeaturePersonality: e.personalityScore(user.Personality, candidate.Personality),
		FeatureActivity:    e.activityOverlapScore(in.UserActivities, in.CandidateActivities),
		FeatureBehavior:    e.behaviorScore(in.UserHistory, in.CandidateHistory),
	}
}

// ActivityFeatures returns the four-dimension feature map for a candidate
// activity, every value in [0,1].
func (e *FeatureExtractor) ActivityFeatures(user *Profile, activity *ActivityRecord, userActivities []*ActivityRecord, userHistory BehaviorHistory) map[string]float64 {
	return map[string]float64{
		FeatureLocation:  e.locationScore(user.Location, activity.Location),
		FeatureInterests: e.interestScore(user.Interests, activity.Tags),
		FeatureCategory:  e.categoryAffinity(userActivities, activity.Category),
		FeatureTiming:    e.timingScore(userHistory, activity),
	}
}

func (e *FeatureExtractor) locationScore(a, b *Location) float64 {
	if !a.Valid() || !b.Valid() {
		return 0.3
	}
	switch d := DistanceKm(a, b); {
	case d <= 5:
		return 1.0
	case d <= 15:
		return 0.8
	case d <= 30:
		return 0.6
	case d <= 50:
		return 0.4
	default:
		return 0.2
	}
}

func (e *FeatureExtractor) ageScore(user, candidate *Profile) float64 {
	diff := user.Age - candidate.Age
	if diff < 0 {
		diff = -diff
	}

	var score float64
	switch {
	case diff <= 2:
		score = 1.0
	case diff <= 5:
		score = 0.9
	case diff <= 10:
		score = 0.7
	default:
		score = 0.4
	}

	// Hard penalty when either party falls outside the other's declared range.
	if !user.Preferences.AcceptsAge(candidate.Age) || !candidate.Preferences.AcceptsAge(user.Age) {
		score *= 0.3
	}

	return score
}

func (e *FeatureExtractor) interestScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.4
	}

	set := make(map[string]bool, len(a))
	for _, tag := range a {
		set[tag] = true
	}
	shared := 0
	for _, tag := range b {
		if set[tag] {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	score := float64(shared) / float64(union)

	switch {
	case shared >= 5:
		score += 0.2
	case shared >= 3:
		score += 0.1
	}

	return math.Min(1.0, score)
}

func (e *FeatureExtractor) personalityScore(a, b *PersonalityTraits) float64 {
	if a == nil || b == nil {
		return neutralScore
	}

	pairs := [][2]float64{
		{a.Openness, b.Openness},
		{a.Conscientiousness, b.Conscientiousness},
		{a.Extraversion, b.Extraversion},
		{a.Agreeableness, b.Agreeableness},
		{a.Neuroticism, b.Neuroticism},
	}

	var sum float64
	for _, p := range pairs {
		sum += 1 - math.Abs(p[0]-p[1])/traitScaleMax
	}
	return clamp01(sum / float64(len(pairs)))
}

func (e *FeatureExtractor) activityOverlapScore(a, b []*ActivityRecord) float64 {
	if len(a) == 0 && len(b) == 0 {
		return neutralScore
	}
	return jaccard(activityCategories(a), activityCategories(b))
}

// behaviorScore blends like-response-rate similarity with active-hour
// histogram overlap. Either signal is used only when both sides have
// enough history; with neither, the feature stays neutral.
func (e *FeatureExtractor) behaviorScore(user, candidate BehaviorHistory) float64 {
	rateA, okA := likeResponseRate(user)
	rateB, okB := likeResponseRate(candidate)
	rateSim, haveRates := 0.0, okA && okB
	if haveRates {
		rateSim = 1 - math.Abs(rateA-rateB)
	}

	histA, okA := hourHistogram(user.Authored)
	histB, okB := hourHistogram(candidate.Authored)
	hourOverlap, haveHours := 0.0, okA && okB
	if haveHours {
		for h := 0; h < 24; h++ {
			hourOverlap += math.Min(histA[h], histB[h])
		}
	}

	switch {
	case haveRates && haveHours:
		return clamp01(0.6*rateSim + 0.4*hourOverlap)
	case haveRates:
		return clamp01(rateSim)
	case haveHours:
		return clamp01(hourOverlap)
	default:
		return neutralScore
	}
}

func (e *FeatureExtractor) categoryAffinity(history []*ActivityRecord, category string) float64 {
	if len(history) == 0 {
		return neutralScore
	}
	matched := 0
	for _, act := range history {
		if act != nil && act.Category == category {
			matched++
		}
	}
	switch share := float64(matched) / float64(len(history)); {
	case share >= 0.5:
		return 1.0
	case share >= 0.25:
		return 0.8
	case share > 0:
		return 0.6
	default:
		return 0.3
	}
}

func (e *FeatureExtractor) timingScore(user BehaviorHistory, activity *ActivityRecord) float64 {
	if activity == nil || activity.ScheduledAt.IsZero() {
		return neutralScore
	}
	hist, ok := hourHistogram(user.Authored)
	if !ok {
		return neutralScore
	}
	peak := 0.0
	for h := 0; h < 24; h++ {
		peak = math.Max(peak, hist[h])
	}
	if peak == 0 {
		return neutralScore
	}
	return clamp01(hist[activity.ScheduledAt.Hour()] / peak)
}

// likeResponseRate is the fraction of received likes the user reciprocated
// with a like or match. ok is false below the minimum sample size.
func likeResponseRate(h BehaviorHistory) (rate float64, ok bool) {
	liked := make(map[string]bool)
	for _, rec := range h.Authored {
		if rec == nil {
			continue
		}
		if rec.Type == InteractionLike || rec.Type == InteractionMatch {
			liked[rec.TargetID] = true
		}
	}

	received, reciprocated := 0, 0
	for _, rec := range h.Received {
		if rec == nil || rec.Type != InteractionLike {
			continue
		}
		received++
		if liked[rec.ActorID] {
			reciprocated++
		}
	}

	if received < minReceivedLikes {
		return 0, false
	}
	return float64(reciprocated) / float64(received), true
}

// hourHistogram builds a normalized 24-bucket histogram of interaction
// hours. ok is false below the minimum sample size.
func hourHistogram(records []*InteractionRecord) (hist [24]float64, ok bool) {
	n := 0
	for _, rec := range records {
		if rec == nil || rec.CreatedAt.IsZero() {
			continue
		}
		hist[rec.CreatedAt.Hour()]++
		n++
	}
	if n < minAuthoredForHours {
		return hist, false
	}
	for h := 0; h < 24; h++ {
		hist[h] /= float64(n)
	}
	return hist, true
}

func activityCategories(records []*ActivityRecord) map[string]bool {
	set := make(map[string]bool, len(records))
	for _, act := range records {
		if act != nil && act.Category != "" {
			set[act.Category] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	shared := 0
	for k := range a {
		if b[k] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}
