package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankPeopleFailsWithoutExclusionSet(t *testing.T) {
	user := testProfile("u", 28)
	profiles := newFakeProfileStore(user, testProfile("c1", 28))
	interactions := newFakeInteractionStore()
	interactions.listErr = errStoreDown

	p := testPipeline(profiles, interactions, newFakeActivityStore())

	_, err := p.RankPeople(context.Background(), user, Options{Limit: 10, MaxDistanceKm: 50, MinScore: 0.3})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRankPeopleNeverResurfacesSeenCandidates(t *testing.T) {
	user := testProfile("u", 28)
	profiles := newFakeProfileStore(user, testProfile("liked", 28), testProfile("passed", 28), testProfile("fresh", 28))
	interactions := newFakeInteractionStore()
	interactions.add(&InteractionRecord{ID: "1", ActorID: "u", TargetID: "liked", Type: InteractionLike, CreatedAt: time.Now()})
	interactions.add(&InteractionRecord{ID: "2", ActorID: "u", TargetID: "passed", Type: InteractionPass, CreatedAt: time.Now()})

	p := testPipeline(profiles, interactions, newFakeActivityStore())

	rec, err := p.RankPeople(context.Background(), user, Options{Limit: 10, MaxDistanceKm: 50, MinScore: 0.1})
	require.NoError(t, err)

	for _, r := range rec.Results {
		assert.NotEqual(t, "liked", r.Profile.ID)
		assert.NotEqual(t, "passed", r.Profile.ID)
	}
	require.Len(t, rec.Results, 1)
	assert.Equal(t, "fresh", rec.Results[0].Profile.ID)
}

func TestRankPeopleSortedAndTruncated(t *testing.T) {
	user := testProfile("u", 28, withLocation(40.0, -74.0, "nyc"), withInterests("hiking", "coffee", "jazz"))
	profiles := []*Profile{user}
	ids := []string{"c1", "c2", "c3", "c4", "c5"}
	for i, id := range ids {
		profiles = append(profiles, testProfile(id, 24+i*3, withLocation(40.0+float64(i)*0.05, -74.0, "nyc")))
	}
	store := newFakeProfileStore(profiles...)

	p := testPipeline(store, newFakeInteractionStore(), newFakeActivityStore())

	rec, err := p.RankPeople(context.Background(), user, Options{Limit: 3, MaxDistanceKm: 50, MinScore: 0.1})
	require.NoError(t, err)

	assert.False(t, rec.Partial)
	assert.LessOrEqual(t, len(rec.Results), 3)
	for i := 1; i < len(rec.Results); i++ {
		assert.GreaterOrEqual(t, rec.Results[i-1].Score, rec.Results[i].Score)
	}
	for _, r := range rec.Results {
		assert.GreaterOrEqual(t, r.Score, 0.1)
		assert.NotEmpty(t, r.Reasons)
		assert.Len(t, r.Breakdown, 6)
	}
}

func TestRankPeopleMinScoreFilters(t *testing.T) {
	user := testProfile("u", 28)
	profiles := newFakeProfileStore(user, testProfile("c1", 28))

	p := testPipeline(profiles, newFakeInteractionStore(), newFakeActivityStore())

	rec, err := p.RankPeople(context.Background(), user, Options{Limit: 10, MaxDistanceKm: 50, MinScore: 0.99})
	require.NoError(t, err)
	assert.Empty(t, rec.Results)
}

func TestRankPeopleDeadlineYieldsPartial(t *testing.T) {
	user := testProfile("u", 28)
	profiles := newFakeProfileStore(user, testProfile("c1", 28), testProfile("c2", 28))

	p := testPipeline(profiles, newFakeInteractionStore(), newFakeActivityStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := p.RankPeople(ctx, user, Options{Limit: 10, MaxDistanceKm: 50, MinScore: 0.1})
	require.NoError(t, err)
	assert.True(t, rec.Partial)
}

func TestRankActivitiesSkipsJoinedAndOrganized(t *testing.T) {
	user := testProfile("u", 28, withLocation(40.0, -74.0, "nyc"), withInterests("hiking"))
	activities := newFakeActivityStore()
	joined := &ActivityRecord{ID: "joined", Category: "outdoors", Tags: []string{"hiking"}, ScheduledAt: time.Now().Add(24 * time.Hour)}
	activities.activities = []*ActivityRecord{
		joined,
		{ID: "mine", Category: "outdoors", OrganizerID: "u", ScheduledAt: time.Now().Add(24 * time.Hour)},
		{ID: "open", Category: "outdoors", Tags: []string{"hiking"}, Location: &Location{Latitude: 40.0, Longitude: -74.0}, ScheduledAt: time.Now().Add(24 * time.Hour)},
	}
	activities.byParticipant["u"] = []*ActivityRecord{joined}

	p := testPipeline(newFakeProfileStore(user), newFakeInteractionStore(), activities)

	rec, err := p.RankActivities(context.Background(), user, Options{Limit: 10, MaxDistanceKm: 50, MinScore: 0.1})
	require.NoError(t, err)

	require.Len(t, rec.Results, 1)
	assert.Equal(t, "open", rec.Results[0].Activity.ID)
	assert.Len(t, rec.Results[0].Breakdown, 4)
}

func TestRankActivitiesSortedByScore(t *testing.T) {
	user := testProfile("u", 28, withLocation(40.0, -74.0, "nyc"), withInterests("hiking", "nature"))
	activities := newFakeActivityStore()
	activities.activities = []*ActivityRecord{
		{ID: "weak", Category: "food", ScheduledAt: time.Now().Add(24 * time.Hour)},
		{ID: "strong", Category: "outdoors", Tags: []string{"hiking", "nature"}, Location: &Location{Latitude: 40.0, Longitude: -74.0}, ScheduledAt: time.Now().Add(24 * time.Hour)},
	}

	p := testPipeline(newFakeProfileStore(user), newFakeInteractionStore(), activities)

	rec, err := p.RankActivities(context.Background(), user, Options{Limit: 10, MaxDistanceKm: 50, MinScore: 0.1})
	require.NoError(t, err)

	require.NotEmpty(t, rec.Results)
	assert.Equal(t, "strong", rec.Results[0].Activity.ID)
	for i := 1; i < len(rec.Results); i++ {
		assert.GreaterOrEqual(t, rec.Results[i-1].Score, rec.Results[i].Score)
	}
}

func TestScorePair(t *testing.T) {
	user := testProfile("u", 28, withLocation(40.0, -74.0, "nyc"), withInterests("hiking", "coffee", "jazz"))
	cand := testProfile("c", 29, withLocation(40.01, -74.0, "nyc"), withInterests("hiking", "coffee", "jazz"))

	p := testPipeline(newFakeProfileStore(user, cand), newFakeInteractionStore(), newFakeActivityStore())

	res := p.ScorePair(context.Background(), user, cand)
	assert.Equal(t, 1.0, res.Breakdown[FeatureLocation])
	assert.Equal(t, 1.0, res.Breakdown[FeatureAge])
	assert.Greater(t, res.Score, 0.5)
	assert.NotEmpty(t, res.Reasons)
}
