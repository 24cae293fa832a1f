package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

const weightSumTolerance = 1e-6

// freshnessWindow is the activity window over which confidence decays.
// A profile active now scores full freshness, one idle this long scores zero.
const freshnessWindow = 30 * 24 * time.Hour

// Inferencer produces a model-predicted compatibility score in [0,1] from
// a feature vector. Implementations must be safe for concurrent use.
type Inferencer interface {
	Version() string
	Infer(ctx context.Context, features map[string]float64) (float64, error)
}

// ScoreInputs carries everything the model needs to score one pair:
// the extracted features plus the profile metadata behind confidence.
type ScoreInputs struct {
	Features      map[string]float64
	CompletenessA float64
	CompletenessB float64
	LastActiveA   time.Time
	LastActiveB   time.Time
}

// Scorecard is the outcome of scoring one pair. UsedML is false when no
// inferencer is configured or inference failed and the rule score stood alone.
type Scorecard struct {
	Score      float64
	RuleScore  float64
	MLScore    float64
	UsedML     bool
	Confidence float64
	Features   map[string]float64
}

// ScoringModel blends a weighted rule score with an optional learned
// score. Weights are validated once at construction; a model that exists
// is a model that scores.
type ScoringModel struct {
	weights     map[string]float64
	blendWeight float64
	inferencer  Inferencer
	log         logger.Logger
	now         func() time.Time
}

// NewScoringModel validates the weight map and returns a ready model.
// blendWeight is the share given to the learned score; pass a nil
// inferencer for rule-only scoring.
func NewScoringModel(weights map[string]float64, blendWeight float64, inf Inferencer, log logger.Logger) (*ScoringModel, error) {
	if len(weights) == 0 {
		return nil, ErrInvalidWeights
	}
	sum := 0.0
	for name, w := range weights {
		if w < 0 || w > 1 {
			return nil, fmt.Errorf("weight %q out of range: %w", name, ErrInvalidWeights)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("weights sum to %.6f: %w", sum, ErrInvalidWeights)
	}
	if blendWeight < 0 || blendWeight > 1 {
		return nil, fmt.Errorf("blend weight %.2f out of range: %w", blendWeight, ErrInvalidWeights)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ScoringModel{
		weights:     weights,
		blendWeight: blendWeight,
		inferencer:  inf,
		log:         log,
		now:         time.Now,
	}, nil
}

// Weights returns a copy of the configured weight map.
func (m *ScoringModel) Weights() map[string]float64 {
	out := make(map[string]float64, len(m.weights))
	for k, v := range m.weights {
		out[k] = v
	}
	return out
}

// Score computes the blended score and confidence for one pair. Inference
// failures degrade to the rule score; they never fail the candidate.
func (m *ScoringModel) Score(ctx context.Context, in ScoreInputs) Scorecard {
	rule := m.ruleScore(in.Features)

	card := Scorecard{
		Score:      rule,
		RuleScore:  rule,
		Confidence: m.confidence(in),
		Features:   in.Features,
	}

	if m.inferencer == nil {
		return card
	}

	ml, err := m.inferencer.Infer(ctx, in.Features)
	if err != nil {
		m.log.WithError(err).Warn("ml inference failed, using rule score", map[string]interface{}{
			"model_version": m.inferencer.Version(),
		})
		return card
	}

	card.MLScore = clamp01(ml)
	card.UsedML = true
	card.Score = clamp01(m.blendWeight*card.MLScore + (1-m.blendWeight)*rule)
	return card
}

// ruleScore is the weighted sum of features. A feature absent from the
// vector contributes its weight at neutral.
func (m *ScoringModel) ruleScore(features map[string]float64) float64 {
	sum := 0.0
	for name, w := range m.weights {
		v, ok := features[name]
		if !ok {
			v = neutralScore
		}
		sum += w * clamp01(v)
	}
	return clamp01(sum)
}

func (m *ScoringModel) confidence(in ScoreInputs) float64 {
	completeness := (in.CompletenessA + in.CompletenessB) / 2
	freshness := (m.freshness(in.LastActiveA) + m.freshness(in.LastActiveB)) / 2
	return clamp01(completeness * (1 + 0.1*freshness))
}

func (m *ScoringModel) freshness(lastActive time.Time) float64 {
	if lastActive.IsZero() {
		return 0
	}
	idle := m.now().Sub(lastActive)
	if idle <= 0 {
		return 1
	}
	if idle >= freshnessWindow {
		return 0
	}
	return 1 - float64(idle)/float64(freshnessWindow)
}
