package recommend

import (
	"fmt"
	"math"
	"sort"
)

const (
	defaultNoveltyBoost = 0.07
	defaultCapPerGroup  = 3
)

// DiversityFilter re-ranks a scored list so one city, age bracket, or
// dominant interest cannot monopolize the top of the page. It adjusts
// ranks only; the stored scores and breakdowns are untouched.
type DiversityFilter struct {
	Boost       float64
	CapPerGroup int
}

func NewDiversityFilter() *DiversityFilter {
	return &DiversityFilter{
		Boost:       defaultNoveltyBoost,
		CapPerGroup: defaultCapPerGroup,
	}
}

// Apply takes results already sorted by score descending and returns the
// diversity-adjusted order. Input order breaks ties, keeping the pass
// deterministic.
func (f *DiversityFilter) Apply(results []*ScoreResult) []*ScoreResult {
	if len(results) <= 1 {
		return results
	}

	boost := f.Boost
	if boost <= 0 {
		boost = defaultNoveltyBoost
	}

	type entry struct {
		res     *ScoreResult
		rank    int
		boosted float64
		group   string
	}

	seenCity := make(map[string]bool)
	seenAge := make(map[int]bool)
	seenInterest := make(map[string]bool)

	entries := make([]*entry, 0, len(results))
	for i, res := range results {
		city, bucket, interest := diversityDimensions(res.Candidate)

		novelty := 0
		if city != "" && !seenCity[city] {
			seenCity[city] = true
			novelty++
		}
		if !seenAge[bucket] {
			seenAge[bucket] = true
			novelty++
		}
		if interest != "" && !seenInterest[interest] {
			seenInterest[interest] = true
			novelty++
		}

		entries = append(entries, &entry{
			res:     res,
			rank:    i,
			boosted: math.Min(1.0, res.Score*math.Pow(1+boost, float64(novelty))),
			group:   fmt.Sprintf("%s|%d|%s", city, bucket, interest),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].boosted != entries[j].boosted {
			return entries[i].boosted > entries[j].boosted
		}
		return entries[i].rank < entries[j].rank
	})

	// Entries past the per-group cap move behind everything else, keeping
	// their relative order.
	head := make([]*ScoreResult, 0, len(entries))
	var tail []*ScoreResult
	groupCounts := make(map[string]int)
	for _, e := range entries {
		groupCounts[e.group]++
		if f.CapPerGroup > 0 && groupCounts[e.group] > f.CapPerGroup {
			tail = append(tail, e.res)
			continue
		}
		head = append(head, e.res)
	}
	return append(head, tail...)
}

// diversityDimensions extracts the grouping key parts for one candidate:
// city, five-year age bucket, and first listed interest.
func diversityDimensions(p *Profile) (city string, ageBucket int, topInterest string) {
	if p == nil {
		return "", 0, ""
	}
	if p.Location != nil {
		city = p.Location.City
	}
	ageBucket = p.Age / 5
	if len(p.Interests) > 0 {
		topInterest = p.Interests[0]
	}
	return city, ageBucket, topInterest
}
