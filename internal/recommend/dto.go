package recommend

import "time"

// FeedbackRequest is the body of POST /feedback. Confidence is optional
// and defaults to certain when omitted.
type FeedbackRequest struct {
	TargetID   string  `json:"target_id" validate:"required"`
	Action     string  `json:"action" validate:"required,oneof=like pass match report"`
	Confidence float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type RecommendationsResponse struct {
	Recommendations []*RankedCandidate `json:"recommendations"`
	Count           int                `json:"count"`
	Partial         bool               `json:"partial"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

type ActivityRecommendationsResponse struct {
	Recommendations []*RankedActivity `json:"recommendations"`
	Count           int               `json:"count"`
	Partial         bool              `json:"partial"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
