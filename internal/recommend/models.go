package recommend

import (
	"errors"
	"time"
)

var (
	ErrInvalidWeights      = errors.New("feature weights must sum to 1.0")
	ErrInvalidOptions      = errors.New("invalid recommendation options")
	ErrNotFound            = errors.New("profile not found")
	ErrInvalidFeedback     = errors.New("invalid feedback action")
	ErrUpstreamUnavailable = errors.New("upstream store unavailable")
)

type InteractionType string

const (
	InteractionLike   InteractionType = "like"
	InteractionPass   InteractionType = "pass"
	InteractionMatch  InteractionType = "match"
	InteractionReport InteractionType = "report"
)

// ExclusionTypes are the interaction types that remove a candidate from
// future recommendation lists for the acting user.
var ExclusionTypes = []InteractionType{InteractionLike, InteractionPass, InteractionMatch}

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLike, InteractionPass, InteractionMatch, InteractionReport:
		return true
	}
	return false
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
}

func (l *Location) Valid() bool {
	if l == nil {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// PersonalityTraits holds the five trait scores, each in [0,1].
type PersonalityTraits struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

type MatchPreferences struct {
	MinAge           int      `json:"min_age"`
	MaxAge           int      `json:"max_age"`
	GenderPreference []string `json:"gender_preference"`
	MaxDistanceKm    float64  `json:"max_distance_km"`
	MinScore         float64  `json:"min_score"`
}

// HasAgeRange reports whether the user declared a preferred age range.
func (p MatchPreferences) HasAgeRange() bool {
	return p.MinAge > 0 && p.MaxAge > 0 && p.MinAge <= p.MaxAge
}

// AcceptsAge reports whether age falls inside the declared range. An
// undeclared range accepts everyone.
func (p MatchPreferences) AcceptsAge(age int) bool {
	if !p.HasAgeRange() {
		return true
	}
	return age >= p.MinAge && age <= p.MaxAge
}

type Profile struct {
	ID            string             `json:"id"`
	Age           int                `json:"age"`
	Gender        string             `json:"gender"`
	Location      *Location          `json:"location,omitempty"`
	Bio           string             `json:"bio,omitempty"`
	Interests     []string           `json:"interests"`
	EnergyLevel   string             `json:"energy_level,omitempty"`
	SocialStyle   string             `json:"social_style,omitempty"`
	Personality   *PersonalityTraits `json:"personality,omitempty"`
	ActivityLevel float64            `json:"activity_level"`
	LastActive    time.Time          `json:"last_active"`
	Preferences   MatchPreferences   `json:"preferences"`
}

// Completeness scores how much of the profile is filled in, in [0,1].
// Used for scoring confidence, never as a hard filter.
func (p *Profile) Completeness() float64 {
	if p == nil {
		return 0
	}
	filled := 0
	if p.Bio != "" {
		filled++
	}
	if p.Location.Valid() {
		filled++
	}
	if len(p.Interests) > 0 {
		filled++
	}
	if p.Personality != nil {
		filled++
	}
	if p.Gender != "" {
		filled++
	}
	if p.EnergyLevel != "" {
		filled++
	}
	if p.SocialStyle != "" {
		filled++
	}
	return float64(filled) / 7.0
}

// InteractionRecord is a directed edge in the interaction history.
// Append-only; never mutated after creation. Confidence is the reporter's
// certainty in the action, in (0,1]; explicit actions carry 1.0.
type InteractionRecord struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	TargetID   string          `json:"target_id"`
	Type       InteractionType `json:"type"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ActivityRecord struct {
	ID             string    `json:"id"`
	Category       string    `json:"category"`
	Tags           []string  `json:"tags"`
	Location       *Location `json:"location,omitempty"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	OrganizerID    string    `json:"organizer_id"`
	ParticipantIDs []string  `json:"participant_ids"`
}

// ScoreResult is the ephemeral outcome of scoring one candidate. It lives
// for the duration of a ranking call and the cache entry derived from it.
type ScoreResult struct {
	Candidate  *Profile           `json:"candidate"`
	Score      float64            `json:"score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Reasons    []string           `json:"reasons"`
	Confidence float64            `json:"confidence"`
}

type RankedCandidate struct {
	Profile    *Profile           `json:"profile"`
	Score      float64            `json:"score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Reasons    []string           `json:"reasons"`
	Confidence float64            `json:"confidence"`
}

type RankedActivity struct {
	Activity   *ActivityRecord    `json:"activity"`
	Score      float64            `json:"score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Reasons    []string           `json:"reasons"`
	Confidence float64            `json:"confidence"`
}

// Recommendations is one ranked page of people, as stored in the cache and
// returned to the presentation layer. Partial marks a deadline-truncated
// ranking pass; partial pages are never cached.
type Recommendations struct {
	Results     []*RankedCandidate `json:"results"`
	Partial     bool               `json:"partial"`
	GeneratedAt time.Time          `json:"generated_at"`
}

type ActivityRecommendations struct {
	Results     []*RankedActivity `json:"results"`
	Partial     bool              `json:"partial"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type Explanation struct {
	UserID      string             `json:"user_id"`
	CandidateID string             `json:"candidate_id"`
	Score       float64            `json:"score"`
	Breakdown   map[string]float64 `json:"breakdown"`
	Reasons     []string           `json:"reasons"`
	Confidence  float64            `json:"confidence"`
}

type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

const (
	DefaultLimit         = 20
	MaxLimit             = 50
	DefaultMaxDistanceKm = 50.0
	DefaultMinScore      = 0.3
)

// Options is the per-request configuration accepted by the public entry
// points. Zero values are filled in by Normalize.
type Options struct {
	Limit         int       `json:"limit"`
	MaxDistanceKm float64   `json:"max_distance_km"`
	AgeRange      *AgeRange `json:"age_range,omitempty"`
	Category      string    `json:"category,omitempty"`
	ForceRefresh  bool      `json:"force_refresh"`
	MinScore      float64   `json:"min_score"`
}

// Normalize applies defaults and rejects malformed option sets. Malformed
// options are a configuration error, never silently corrected beyond
// defaulting and clamping to the documented maximum.
func (o *Options) Normalize() error {
	if o.Limit < 0 || o.MaxDistanceKm < 0 || o.MinScore < 0 || o.MinScore > 1 {
		return ErrInvalidOptions
	}
	if o.AgeRange != nil && (o.AgeRange.Min > o.AgeRange.Max || o.AgeRange.Min < 0) {
		return ErrInvalidOptions
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.MaxDistanceKm == 0 {
		o.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if o.MinScore == 0 {
		o.MinScore = DefaultMinScore
	}
	return nil
}
