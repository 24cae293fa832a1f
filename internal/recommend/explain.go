package recommend

import (
	"fmt"
	"sort"
	"strings"
)

const maxReasons = 3

// fallbackReason is returned when no feature clears its threshold.
const fallbackReason = "Good overall compatibility"

// reasonThresholds maps each feature to the score it must clear before a
// human-readable reason is emitted for it.
var reasonThresholds = map[string]float64{
	FeatureLocation:    0.7,
	FeatureInterests:   0.6,
	FeaturePersonality: 0.75,
	FeatureActivity:    0.6,
	FeatureBehavior:    0.7,
	FeatureAge:         0.8,
	FeatureCategory:    0.7,
	FeatureTiming:      0.7,
}

// ExplainScore turns a feature breakdown into at most three reader-facing
// reasons, strongest feature first. It never exposes raw numbers.
func ExplainScore(breakdown map[string]float64, user, candidate *Profile) []string {
	type scored struct {
		feature string
		value   float64
	}

	qualified := make([]scored, 0, len(breakdown))
	for feature, value := range breakdown {
		threshold, known := reasonThresholds[feature]
		if known && value > threshold {
			qualified = append(qualified, scored{feature, value})
		}
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].value != qualified[j].value {
			return qualified[i].value > qualified[j].value
		}
		return qualified[i].feature < qualified[j].feature
	})

	reasons := make([]string, 0, maxReasons)
	for _, q := range qualified {
		if len(reasons) == maxReasons {
			break
		}
		if text := reasonFor(q.feature, user, candidate); text != "" {
			reasons = append(reasons, text)
		}
	}

	if len(reasons) == 0 {
		return []string{fallbackReason}
	}
	return reasons
}

func reasonFor(feature string, user, candidate *Profile) string {
	switch feature {
	case FeatureLocation:
		return "Lives nearby"
	case FeatureInterests:
		if shared := sharedInterests(user, candidate); len(shared) > 0 {
			return fmt.Sprintf("You both enjoy %s", strings.Join(shared, ", "))
		}
		return "You share several interests"
	case FeaturePersonality:
		return "Similar personality traits"
	case FeatureActivity:
		return "Enjoys the same kinds of activities"
	case FeatureBehavior:
		return "Active at the same times as you"
	case FeatureAge:
		return "Close in age"
	case FeatureCategory:
		return "Matches activities you usually join"
	case FeatureTiming:
		return "Scheduled when you're usually active"
	}
	return ""
}

func sharedInterests(user, candidate *Profile) []string {
	if user == nil || candidate == nil {
		return nil
	}
	mine := make(map[string]bool, len(user.Interests))
	for _, tag := range user.Interests {
		mine[tag] = true
	}
	shared := make([]string, 0, maxReasons)
	for _, tag := range candidate.Interests {
		if mine[tag] {
			shared = append(shared, tag)
			if len(shared) == maxReasons {
				break
			}
		}
	}
	return shared
}
