package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationScoreBands(t *testing.T) {
	e := NewFeatureExtractor()
	center := &Location{Latitude: 40.0, Longitude: -74.0}

	tests := []struct {
		name string
		loc  *Location
		want float64
	}{
		{"same point", &Location{Latitude: 40.0, Longitude: -74.0}, 1.0},
		{"about 10km", &Location{Latitude: 40.09, Longitude: -74.0}, 0.8},
		{"about 25km", &Location{Latitude: 40.225, Longitude: -74.0}, 0.6},
		{"about 45km", &Location{Latitude: 40.405, Longitude: -74.0}, 0.4},
		{"far away", &Location{Latitude: 45.0, Longitude: -74.0}, 0.2},
		{"missing", nil, 0.3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.locationScore(center, tc.loc))
		})
	}
}

func TestAgeScore(t *testing.T) {
	e := NewFeatureExtractor()

	t.Run("close in age", func(t *testing.T) {
		a := testProfile("a", 28)
		b := testProfile("b", 30)
		assert.Equal(t, 1.0, e.ageScore(a, b))
	})

	t.Run("moderate gap", func(t *testing.T) {
		a := testProfile("a", 28)
		b := testProfile("b", 35)
		assert.Equal(t, 0.7, e.ageScore(a, b))
	})

	t.Run("outside declared range takes hard penalty", func(t *testing.T) {
		a := testProfile("a", 28, withPreferences(MatchPreferences{MinAge: 25, MaxAge: 30}))
		b := testProfile("b", 45)
		assert.InDelta(t, 0.4*0.3, e.ageScore(a, b), 1e-9)
	})

	t.Run("undeclared range accepts everyone", func(t *testing.T) {
		a := testProfile("a", 28)
		b := testProfile("b", 45)
		assert.Equal(t, 0.4, e.ageScore(a, b))
	})
}

func TestInterestScore(t *testing.T) {
	e := NewFeatureExtractor()

	t.Run("either side empty is neutral-low", func(t *testing.T) {
		assert.Equal(t, 0.4, e.interestScore(nil, []string{"hiking"}))
		assert.Equal(t, 0.4, e.interestScore([]string{"hiking"}, nil))
	})

	t.Run("plain jaccard below bonus threshold", func(t *testing.T) {
		a := []string{"hiking", "coffee", "jazz"}
		b := []string{"hiking", "films"}
		assert.InDelta(t, 0.25, e.interestScore(a, b), 1e-9)
	})

	t.Run("three shared adds bonus", func(t *testing.T) {
		a := []string{"hiking", "coffee", "jazz", "films"}
		b := []string{"hiking", "coffee", "jazz"}
		// 3/4 jaccard plus 0.1 bonus
		assert.InDelta(t, 0.85, e.interestScore(a, b), 1e-9)
	})

	t.Run("identical large sets cap at one", func(t *testing.T) {
		tags := []string{"a", "b", "c", "d", "e"}
		assert.Equal(t, 1.0, e.interestScore(tags, tags))
	})
}

func TestPersonalityScore(t *testing.T) {
	e := NewFeatureExtractor()

	identical := &PersonalityTraits{Openness: 0.8, Conscientiousness: 0.6, Extraversion: 0.4, Agreeableness: 0.7, Neuroticism: 0.3}
	assert.Equal(t, 1.0, e.personalityScore(identical, identical))

	opposite := &PersonalityTraits{Openness: 1, Conscientiousness: 1, Extraversion: 1, Agreeableness: 1, Neuroticism: 1}
	zero := &PersonalityTraits{}
	assert.InDelta(t, 0.0, e.personalityScore(opposite, zero), 1e-9)

	assert.Equal(t, neutralScore, e.personalityScore(nil, identical))
}

func TestBehaviorScoreNeutralWithoutHistory(t *testing.T) {
	e := NewFeatureExtractor()
	assert.Equal(t, neutralScore, e.behaviorScore(BehaviorHistory{}, BehaviorHistory{}))
}

func TestLikeResponseRate(t *testing.T) {
	h := BehaviorHistory{
		Authored: []*InteractionRecord{
			{ActorID: "me", TargetID: "u1", Type: InteractionLike},
			{ActorID: "me", TargetID: "u2", Type: InteractionMatch},
			{ActorID: "me", TargetID: "u9", Type: InteractionPass},
		},
		Received: []*InteractionRecord{
			{ActorID: "u1", TargetID: "me", Type: InteractionLike},
			{ActorID: "u2", TargetID: "me", Type: InteractionLike},
			{ActorID: "u3", TargetID: "me", Type: InteractionLike},
			{ActorID: "u4", TargetID: "me", Type: InteractionLike},
		},
	}

	rate, ok := likeResponseRate(h)
	require.True(t, ok)
	assert.InDelta(t, 0.5, rate, 1e-9)
}

func TestLikeResponseRateNeedsSamples(t *testing.T) {
	h := BehaviorHistory{
		Received: []*InteractionRecord{
			{ActorID: "u1", TargetID: "me", Type: InteractionLike},
		},
	}
	_, ok := likeResponseRate(h)
	assert.False(t, ok)
}

func TestHourHistogramOverlap(t *testing.T) {
	e := NewFeatureExtractor()
	at := func(hour int) *InteractionRecord {
		return &InteractionRecord{Type: InteractionLike, TargetID: "x", CreatedAt: time.Date(2026, 8, 1, hour, 0, 0, 0, time.UTC)}
	}

	nightOwl := BehaviorHistory{Authored: []*InteractionRecord{at(22), at(22), at(23), at(23), at(22)}}
	sameOwl := BehaviorHistory{Authored: []*InteractionRecord{at(22), at(22), at(22), at(23), at(23)}}
	earlyBird := BehaviorHistory{Authored: []*InteractionRecord{at(6), at(6), at(7), at(7), at(8)}}

	// Identical-ish schedules score high, disjoint schedules score zero.
	assert.Greater(t, e.behaviorScore(nightOwl, sameOwl), 0.8)
	assert.Equal(t, 0.0, e.behaviorScore(nightOwl, earlyBird))
}

func TestActivityOverlapScore(t *testing.T) {
	e := NewFeatureExtractor()

	hiking := []*ActivityRecord{{ID: "a1", Category: "outdoors"}, {ID: "a2", Category: "food"}}
	similar := []*ActivityRecord{{ID: "b1", Category: "outdoors"}}

	assert.Equal(t, neutralScore, e.activityOverlapScore(nil, nil))
	assert.InDelta(t, 0.5, e.activityOverlapScore(hiking, similar), 1e-9)
}

func TestCategoryAffinity(t *testing.T) {
	e := NewFeatureExtractor()
	history := []*ActivityRecord{
		{Category: "outdoors"}, {Category: "outdoors"}, {Category: "food"}, {Category: "music"},
	}

	assert.Equal(t, neutralScore, e.categoryAffinity(nil, "outdoors"))
	assert.Equal(t, 1.0, e.categoryAffinity(history, "outdoors"))
	assert.Equal(t, 0.8, e.categoryAffinity(history, "food"))
	assert.Equal(t, 0.3, e.categoryAffinity(history, "chess"))
}

func TestPersonFeaturesAllInRange(t *testing.T) {
	e := NewFeatureExtractor()
	user := testProfile("u", 28, withLocation(40.0, -74.0, "nyc"), withPersonality(PersonalityTraits{Openness: 0.9}))
	cand := testProfile("c", 55, withInterests("chess"))

	features := e.PersonFeatures(user, cand, PairInputs{})
	require.Len(t, features, 6)
	for name, v := range features {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestActivityFeatures(t *testing.T) {
	e := NewFeatureExtractor()
	user := testProfile("u", 28, withLocation(40.0, -74.0, "nyc"), withInterests("hiking", "nature"))
	act := &ActivityRecord{
		ID:          "a1",
		Category:    "outdoors",
		Tags:        []string{"hiking", "nature"},
		Location:    &Location{Latitude: 40.0, Longitude: -74.0},
		ScheduledAt: time.Date(2026, 9, 5, 18, 0, 0, 0, time.UTC),
	}

	features := e.ActivityFeatures(user, act, nil, BehaviorHistory{})
	require.Len(t, features, 4)
	assert.Equal(t, 1.0, features[FeatureLocation])
	assert.Equal(t, 1.0, features[FeatureInterests])
	assert.Equal(t, neutralScore, features[FeatureCategory])
	assert.Equal(t, neutralScore, features[FeatureTiming])
}
