package recommend

import (
	"context"
	"time"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

// poolMultiplier sizes the scoring pool relative to the requested page so
// that minScore filtering and diversity still leave a full page.
const defaultPoolMultiplier = 3

// activeWindow bounds retrieval to recently active profiles.
const activeWindow = 90 * 24 * time.Hour

// CandidateRetrieval assembles the pre-scoring candidate pool. Store-side
// filters are approximate; every hard constraint is re-checked here.
type CandidateRetrieval struct {
	profiles   ProfileStore
	multiplier int
	log        logger.Logger
	now        func() time.Time
}

func NewCandidateRetrieval(profiles ProfileStore, multiplier int, log logger.Logger) *CandidateRetrieval {
	if multiplier <= 0 {
		multiplier = defaultPoolMultiplier
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CandidateRetrieval{
		profiles:   profiles,
		multiplier: multiplier,
		log:        log,
		now:        time.Now,
	}
}

// Fetch returns up to multiplier*limit candidates satisfying the merged
// constraints of opts and the user's stored preferences. An empty pool is
// a valid outcome, not an error.
func (r *CandidateRetrieval) Fetch(ctx context.Context, user *Profile, exclusions map[string]struct{}, opts Options) ([]*Profile, error) {
	poolSize := opts.Limit * r.multiplier

	minAge, maxAge := mergedAgeRange(user.Preferences, opts.AgeRange)
	radius := mergedRadius(user.Preferences, opts.MaxDistanceKm)
	activeCutoff := r.now().Add(-activeWindow)

	filters := ProfileFilters{
		Genders:     user.Preferences.GenderPreference,
		MinAge:      minAge,
		MaxAge:      maxAge,
		Center:      user.Location,
		RadiusKm:    radius,
		ActiveSince: activeCutoff,
		ExcludeIDs:  excludeList(user.ID, exclusions),
		Limit:       poolSize * 2,
	}

	raw, err := r.profiles.Query(ctx, filters)
	if err != nil {
		return nil, err
	}

	pool := make([]*Profile, 0, poolSize)
	for _, cand := range raw {
		if cand == nil || cand.ID == user.ID {
			continue
		}
		if _, excluded := exclusions[cand.ID]; excluded {
			continue
		}
		if !acceptAge(cand.Age, minAge, maxAge) {
			continue
		}
		if !acceptGender(cand.Gender, user.Preferences.GenderPreference) {
			continue
		}
		if cand.LastActive.Before(activeCutoff) {
			continue
		}
		// Exact radius re-check; candidates without a location stay in
		// the pool and take the degraded location score instead.
		if user.Location.Valid() && cand.Location.Valid() && !WithinRadius(cand.Location, user.Location, radius) {
			continue
		}
		pool = append(pool, cand)
		if len(pool) >= poolSize {
			break
		}
	}

	r.log.Debug("candidate pool assembled", map[string]interface{}{
		"user_id":  user.ID,
		"fetched":  len(raw),
		"accepted": len(pool),
	})
	return pool, nil
}

// mergedAgeRange intersects the request's range with the stored
// preference range. Zero bounds mean unconstrained.
func mergedAgeRange(prefs MatchPreferences, requested *AgeRange) (minAge, maxAge int) {
	if prefs.HasAgeRange() {
		minAge, maxAge = prefs.MinAge, prefs.MaxAge
	}
	if requested != nil {
		if requested.Min > minAge {
			minAge = requested.Min
		}
		if maxAge == 0 || (requested.Max > 0 && requested.Max < maxAge) {
			maxAge = requested.Max
		}
	}
	return minAge, maxAge
}

// mergedRadius takes the tighter of the request radius and the stored
// preference radius.
func mergedRadius(prefs MatchPreferences, requested float64) float64 {
	radius := requested
	if prefs.MaxDistanceKm > 0 && prefs.MaxDistanceKm < radius {
		radius = prefs.MaxDistanceKm
	}
	return radius
}

func acceptAge(age, minAge, maxAge int) bool {
	if minAge > 0 && age < minAge {
		return false
	}
	if maxAge > 0 && age > maxAge {
		return false
	}
	return true
}

func acceptGender(gender string, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, g := range wanted {
		if g == gender {
			return true
		}
	}
	return false
}

func excludeList(selfID string, exclusions map[string]struct{}) []string {
	out := make([]string, 0, len(exclusions)+1)
	out = append(out, selfID)
	for id := range exclusions {
		out = append(out, id)
	}
	return out
}
