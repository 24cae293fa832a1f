package recommend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

const (
	profileCacheKeyPrefix  = "profile:"
	defaultProfileCacheTTL = 5 * time.Minute
	retryBackoff           = 100 * time.Millisecond
)

// latDegreeKm approximates one degree of latitude. Longitude degrees are
// scaled by cos(lat) at query time.
const latDegreeKm = 111.0

// PostgresProfileStore reads profiles from Postgres with a short-lived
// Redis snapshot in front of single-profile lookups. The snapshot only
// shortcuts Get; Query always hits the database.
type PostgresProfileStore struct {
	db       *sqlx.DB
	cache    *redis.Client
	cacheTTL time.Duration
	log      logger.Logger
}

func NewPostgresProfileStore(db *sqlx.DB, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *PostgresProfileStore {
	if cacheTTL <= 0 {
		cacheTTL = defaultProfileCacheTTL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &PostgresProfileStore{db: db, cache: cache, cacheTTL: cacheTTL, log: log}
}

type profileRow struct {
	ID                string          `db:"id"`
	Age               int             `db:"age"`
	Gender            sql.NullString  `db:"gender"`
	Latitude          sql.NullFloat64 `db:"latitude"`
	Longitude         sql.NullFloat64 `db:"longitude"`
	City              sql.NullString  `db:"city"`
	Bio               sql.NullString  `db:"bio"`
	Interests         pq.StringArray  `db:"interests"`
	EnergyLevel       sql.NullString  `db:"energy_level"`
	SocialStyle       sql.NullString  `db:"social_style"`
	Openness          sql.NullFloat64 `db:"openness"`
	Conscientiousness sql.NullFloat64 `db:"conscientiousness"`
	Extraversion      sql.NullFloat64 `db:"extraversion"`
	Agreeableness     sql.NullFloat64 `db:"agreeableness"`
	Neuroticism       sql.NullFloat64 `db:"neuroticism"`
	ActivityLevel     float64         `db:"activity_level"`
	LastActive        time.Time       `db:"last_active"`
	PrefMinAge        sql.NullInt64   `db:"pref_min_age"`
	PrefMaxAge        sql.NullInt64   `db:"pref_max_age"`
	PrefGenders       pq.StringArray  `db:"pref_genders"`
	PrefMaxDistanceKm sql.NullFloat64 `db:"pref_max_distance_km"`
	PrefMinScore      sql.NullFloat64 `db:"pref_min_score"`
}

const profileColumns = `id, age, gender, latitude, longitude, city, bio, interests,
	energy_level, social_style, openness, conscientiousness, extraversion,
	agreeableness, neuroticism, activity_level, last_active,
	pref_min_age, pref_max_age, pref_genders, pref_max_distance_km, pref_min_score`

func (s *PostgresProfileStore) Get(ctx context.Context, id string) (*Profile, error) {
	if p := s.cachedProfile(ctx, id); p != nil {
		return p, nil
	}

	var row profileRow
	err := withRetry(ctx, func() error {
		return s.db.GetContext(ctx, &row, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p := row.toProfile()
	s.storeSnapshot(ctx, p)
	return p, nil
}

func (s *PostgresProfileStore) Query(ctx context.Context, filters ProfileFilters) ([]*Profile, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filters.Genders) > 0 {
		where = append(where, "gender = ANY("+arg(pq.Array(filters.Genders))+")")
	}
	if filters.MinAge > 0 {
		where = append(where, "age >= "+arg(filters.MinAge))
	}
	if filters.MaxAge > 0 {
		where = append(where, "age <= "+arg(filters.MaxAge))
	}
	if !filters.ActiveSince.IsZero() {
		where = append(where, "last_active >= "+arg(filters.ActiveSince))
	}
	if len(filters.ExcludeIDs) > 0 {
		where = append(where, "id != ALL("+arg(pq.Array(filters.ExcludeIDs))+")")
	}

	// Bounding-box prefilter; profiles without coordinates stay eligible
	// and take the degraded location score downstream.
	if filters.Center.Valid() && filters.RadiusKm > 0 {
		latDelta := filters.RadiusKm / latDegreeKm
		where = append(where, fmt.Sprintf(
			"(latitude IS NULL OR (latitude BETWEEN %s AND %s AND longitude BETWEEN %s AND %s))",
			arg(filters.Center.Latitude-latDelta),
			arg(filters.Center.Latitude+latDelta),
			arg(filters.Center.Longitude-lonDelta(filters.Center.Latitude, filters.RadiusKm)),
			arg(filters.Center.Longitude+lonDelta(filters.Center.Latitude, filters.RadiusKm)),
		))
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY last_active DESC`
	if filters.Limit > 0 {
		query += " LIMIT " + arg(filters.Limit)
	}

	var rows []profileRow
	err := withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*Profile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toProfile())
	}
	return out, nil
}

func (s *PostgresProfileStore) cachedProfile(ctx context.Context, id string) *Profile {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, profileCacheKeyPrefix+id).Bytes()
	if err != nil {
		return nil
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

func (s *PostgresProfileStore) storeSnapshot(ctx context.Context, p *Profile) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, profileCacheKeyPrefix+p.ID, raw, s.cacheTTL).Err(); err != nil {
		s.log.WithError(err).Debug("profile snapshot write failed", map[string]interface{}{"profile_id": p.ID})
	}
}

func (r *profileRow) toProfile() *Profile {
	p := &Profile{
		ID:            r.ID,
		Age:           r.Age,
		Gender:        r.Gender.String,
		Bio:           r.Bio.String,
		Interests:     []string(r.Interests),
		EnergyLevel:   r.EnergyLevel.String,
		SocialStyle:   r.SocialStyle.String,
		ActivityLevel: r.ActivityLevel,
		LastActive:    r.LastActive,
		Preferences: MatchPreferences{
			MinAge:           int(r.PrefMinAge.Int64),
			MaxAge:           int(r.PrefMaxAge.Int64),
			GenderPreference: []string(r.PrefGenders),
			MaxDistanceKm:    r.PrefMaxDistanceKm.Float64,
			MinScore:         r.PrefMinScore.Float64,
		},
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		p.Location = &Location{
			Latitude:  r.Latitude.Float64,
			Longitude: r.Longitude.Float64,
			City:      r.City.String,
		}
	}
	if r.Openness.Valid {
		p.Personality = &PersonalityTraits{
			Openness:          r.Openness.Float64,
			Conscientiousness: r.Conscientiousness.Float64,
			Extraversion:      r.Extraversion.Float64,
			Agreeableness:     r.Agreeableness.Float64,
			Neuroticism:       r.Neuroticism.Float64,
		}
	}
	return p
}

// PostgresInteractionStore persists the append-only interaction log.
type PostgresInteractionStore struct {
	db *sqlx.DB
}

func NewPostgresInteractionStore(db *sqlx.DB) *PostgresInteractionStore {
	return &PostgresInteractionStore{db: db}
}

type interactionRow struct {
	ID         string    `db:"id"`
	ActorID    string    `db:"actor_id"`
	TargetID   string    `db:"target_id"`
	Type       string    `db:"type"`
	Confidence float64   `db:"confidence"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *PostgresInteractionStore) ListByActor(ctx context.Context, userID string, types []InteractionType) ([]*InteractionRecord, error) {
	return s.list(ctx, "actor_id", userID, types)
}

func (s *PostgresInteractionStore) ListByTarget(ctx context.Context, userID string, types []InteractionType) ([]*InteractionRecord, error) {
	return s.list(ctx, "target_id", userID, types)
}

func (s *PostgresInteractionStore) list(ctx context.Context, column, userID string, types []InteractionType) ([]*InteractionRecord, error) {
	query := `SELECT id, actor_id, target_id, type, confidence, created_at FROM interactions WHERE ` + column + ` = $1`
	args := []interface{}{userID}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query += ` AND type = ANY($2)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY created_at DESC`

	var rows []interactionRow
	err := withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*InteractionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, &InteractionRecord{
			ID:         r.ID,
			ActorID:    r.ActorID,
			TargetID:   r.TargetID,
			Type:       InteractionType(r.Type),
			Confidence: r.Confidence,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

func (s *PostgresInteractionStore) Append(ctx context.Context, rec *InteractionRecord) error {
	return withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO interactions (id, actor_id, target_id, type, confidence, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, rec.ActorID, rec.TargetID, string(rec.Type), rec.Confidence, rec.CreatedAt,
		)
		return err
	})
}

// PostgresActivityStore reads activity records.
type PostgresActivityStore struct {
	db *sqlx.DB
}

func NewPostgresActivityStore(db *sqlx.DB) *PostgresActivityStore {
	return &PostgresActivityStore{db: db}
}

type activityRow struct {
	ID             string          `db:"id"`
	Category       string          `db:"category"`
	Tags           pq.StringArray  `db:"tags"`
	Latitude       sql.NullFloat64 `db:"latitude"`
	Longitude      sql.NullFloat64 `db:"longitude"`
	City           sql.NullString  `db:"city"`
	ScheduledAt    time.Time       `db:"scheduled_at"`
	OrganizerID    string          `db:"organizer_id"`
	ParticipantIDs pq.StringArray  `db:"participant_ids"`
}

const activityColumns = `id, category, tags, latitude, longitude, city, scheduled_at, organizer_id, participant_ids`

func (s *PostgresActivityStore) Query(ctx context.Context, filters ActivityFilters) ([]*ActivityRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Category != "" {
		where = append(where, "category = "+arg(filters.Category))
	}
	if !filters.After.IsZero() {
		where = append(where, "scheduled_at >= "+arg(filters.After))
	}
	if filters.Center.Valid() && filters.RadiusKm > 0 {
		latDelta := filters.RadiusKm / latDegreeKm
		where = append(where, fmt.Sprintf(
			"(latitude IS NULL OR (latitude BETWEEN %s AND %s AND longitude BETWEEN %s AND %s))",
			arg(filters.Center.Latitude-latDelta),
			arg(filters.Center.Latitude+latDelta),
			arg(filters.Center.Longitude-lonDelta(filters.Center.Latitude, filters.RadiusKm)),
			arg(filters.Center.Longitude+lonDelta(filters.Center.Latitude, filters.RadiusKm)),
		))
	}

	query := `SELECT ` + activityColumns + ` FROM activities WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY scheduled_at ASC`
	if filters.Limit > 0 {
		query += " LIMIT " + arg(filters.Limit)
	}

	var rows []activityRow
	err := withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return activityRowsToRecords(rows), nil
}

func (s *PostgresActivityStore) ListByParticipant(ctx context.Context, userID string) ([]*ActivityRecord, error) {
	var rows []activityRow
	err := withRetry(ctx, func() error {
		return s.db.SelectContext(ctx, &rows,
			`SELECT `+activityColumns+` FROM activities WHERE organizer_id = $1 OR $1 = ANY(participant_ids) ORDER BY scheduled_at DESC`,
			userID,
		)
	})
	if err != nil {
		return nil, err
	}
	return activityRowsToRecords(rows), nil
}

func activityRowsToRecords(rows []activityRow) []*ActivityRecord {
	out := make([]*ActivityRecord, 0, len(rows))
	for _, r := range rows {
		act := &ActivityRecord{
			ID:             r.ID,
			Category:       r.Category,
			Tags:           []string(r.Tags),
			ScheduledAt:    r.ScheduledAt,
			OrganizerID:    r.OrganizerID,
			ParticipantIDs: []string(r.ParticipantIDs),
		}
		if r.Latitude.Valid && r.Longitude.Valid {
			act.Location = &Location{
				Latitude:  r.Latitude.Float64,
				Longitude: r.Longitude.Float64,
				City:      r.City.String,
			}
		}
		out = append(out, act)
	}
	return out
}

func lonDelta(lat, radiusKm float64) float64 {
	cos := math.Abs(math.Cos(lat * math.Pi / 180))
	if cos < 0.01 {
		cos = 0.01
	}
	return radiusKm / (latDegreeKm * cos)
}

// withRetry runs fn and retries once after a short backoff on transient
// failure. A second failure is reported as an upstream outage.
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || errors.Is(err, sql.ErrNoRows) || ctx.Err() != nil {
		return err
	}

	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err = fn(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return err
}
