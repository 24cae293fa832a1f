package recommend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

var errStoreDown = errors.New("store down")

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	getErr   error
	queryErr error
	getCalls int32
}

func newFakeProfileStore(profiles ...*Profile) *fakeProfileStore {
	m := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	return &fakeProfileStore{profiles: m}
}

func (s *fakeProfileStore) Get(ctx context.Context, id string) (*Profile, error) {
	atomic.AddInt32(&s.getCalls, 1)
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *fakeProfileStore) Query(ctx context.Context, filters ProfileFilters) ([]*Profile, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	excluded := make(map[string]bool, len(filters.ExcludeIDs))
	for _, id := range filters.ExcludeIDs {
		excluded[id] = true
	}
	out := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if !excluded[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeInteractionStore struct {
	mu       sync.Mutex
	byActor  map[string][]*InteractionRecord
	byTarget map[string][]*InteractionRecord
	appended []*InteractionRecord
	listErr  error
}

func newFakeInteractionStore() *fakeInteractionStore {
	return &fakeInteractionStore{
		byActor:  make(map[string][]*InteractionRecord),
		byTarget: make(map[string][]*InteractionRecord),
	}
}

func (s *fakeInteractionStore) add(rec *InteractionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byActor[rec.ActorID] = append(s.byActor[rec.ActorID], rec)
	s.byTarget[rec.TargetID] = append(s.byTarget[rec.TargetID], rec)
}

func (s *fakeInteractionStore) ListByActor(ctx context.Context, userID string, types []InteractionType) ([]*InteractionRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterByType(s.byActor[userID], types), nil
}

func (s *fakeInteractionStore) ListByTarget(ctx context.Context, userID string, types []InteractionType) ([]*InteractionRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterByType(s.byTarget[userID], types), nil
}

func (s *fakeInteractionStore) Append(ctx context.Context, rec *InteractionRecord) error {
	s.mu.Lock()
	s.appended = append(s.appended, rec)
	s.mu.Unlock()
	s.add(rec)
	return nil
}

func filterByType(recs []*InteractionRecord, types []InteractionType) []*InteractionRecord {
	if len(types) == 0 {
		return append([]*InteractionRecord(nil), recs...)
	}
	wanted := make(map[InteractionType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	out := make([]*InteractionRecord, 0, len(recs))
	for _, rec := range recs {
		if wanted[rec.Type] {
			out = append(out, rec)
		}
	}
	return out
}

type fakeActivityStore struct {
	mu            sync.Mutex
	activities    []*ActivityRecord
	byParticipant map[string][]*ActivityRecord
	queryErr      error
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{byParticipant: make(map[string][]*ActivityRecord)}
}

func (s *fakeActivityStore) Query(ctx context.Context, filters ActivityFilters) ([]*ActivityRecord, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ActivityRecord, 0, len(s.activities))
	for _, act := range s.activities {
		if filters.Category != "" && act.Category != filters.Category {
			continue
		}
		out = append(out, act)
	}
	return out, nil
}

func (s *fakeActivityStore) ListByParticipant(ctx context.Context, userID string) ([]*ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byParticipant[userID], nil
}

type fakeInferencer struct {
	score float64
	err   error
	calls int32
}

func (f *fakeInferencer) Version() string { return "test-v1" }

func (f *fakeInferencer) Infer(ctx context.Context, features map[string]float64) (float64, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.score, f.err
}

func testProfile(id string, age int, opts ...func(*Profile)) *Profile {
	p := &Profile{
		ID:         id,
		Age:        age,
		Gender:     "female",
		Bio:        "hello",
		Interests:  []string{"hiking", "coffee"},
		LastActive: time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func withLocation(lat, lon float64, city string) func(*Profile) {
	return func(p *Profile) {
		p.Location = &Location{Latitude: lat, Longitude: lon, City: city}
	}
}

func withLastActive(at time.Time) func(*Profile) {
	return func(p *Profile) { p.LastActive = at }
}

func withInterests(tags ...string) func(*Profile) {
	return func(p *Profile) { p.Interests = tags }
}

func withPersonality(t PersonalityTraits) func(*Profile) {
	return func(p *Profile) { p.Personality = &t }
}

func withPreferences(prefs MatchPreferences) func(*Profile) {
	return func(p *Profile) { p.Preferences = prefs }
}

func mustModel(weights map[string]float64, blend float64, inf Inferencer) *ScoringModel {
	m, err := NewScoringModel(weights, blend, inf, logger.NewNopLogger())
	if err != nil {
		panic(err)
	}
	return m
}

func testPipeline(profiles *fakeProfileStore, interactions *fakeInteractionStore, activities *fakeActivityStore) *RankingPipeline {
	return NewRankingPipeline(
		interactions,
		activities,
		NewCandidateRetrieval(profiles, 3, logger.NewNopLogger()),
		NewFeatureExtractor(),
		mustModel(PersonFeatureWeights(), 0.6, nil),
		mustModel(ActivityFeatureWeights(), 0.6, nil),
		NewDiversityFilter(),
		4,
		logger.NewNopLogger(),
	)
}
