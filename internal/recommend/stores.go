package recommend

import (
	"context"
	"time"
)

// ProfileFilters are the hard constraints pushed down to the profile store.
// Geo filtering at the store is approximate (bounding box); CandidateRetrieval
// re-checks the exact radius.
type ProfileFilters struct {
	Genders     []string
	MinAge      int
	MaxAge      int
	Center      *Location
	RadiusKm    float64
	ActiveSince time.Time
	ExcludeIDs  []string
	Limit       int
}

type ActivityFilters struct {
	Category string
	Center   *Location
	RadiusKm float64
	After    time.Time
	Limit    int
}

// ProfileStore is the read-only boundary to the profile service.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Query(ctx context.Context, filters ProfileFilters) ([]*Profile, error)
}

// InteractionStore is the boundary to the interaction history. Reads feed
// exclusion sets and behavioral features; Append is the single write path,
// reached only through SubmitFeedback. A nil types slice matches every type.
type InteractionStore interface {
	ListByActor(ctx context.Context, userID string, types []InteractionType) ([]*InteractionRecord, error)
	ListByTarget(ctx context.Context, userID string, types []InteractionType) ([]*InteractionRecord, error)
	Append(ctx context.Context, rec *InteractionRecord) error
}

// ActivityStore is the read-only boundary to activity records.
type ActivityStore interface {
	Query(ctx context.Context, filters ActivityFilters) ([]*ActivityRecord, error)
	ListByParticipant(ctx context.Context, userID string) ([]*ActivityRecord, error)
}
