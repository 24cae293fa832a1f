package recommend

import (
	"context"
	"time"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
)

const defaultJanitorInterval = 1 * time.Minute

// Janitor periodically sweeps expired entries out of the result caches.
// Expiry is otherwise lazy, so without the janitor stale entries for idle
// users would sit in memory until their next request.
type Janitor struct {
	people   *RecommendationCache[*Recommendations]
	events   *RecommendationCache[*ActivityRecommendations]
	interval time.Duration
	log      logger.Logger
}

func NewJanitor(people *RecommendationCache[*Recommendations], events *RecommendationCache[*ActivityRecommendations], interval time.Duration, log logger.Logger) *Janitor {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Janitor{people: people, events: events, interval: interval, log: log}
}

// Start runs the sweep loop until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dropped := j.people.Sweep() + j.events.Sweep()
			if dropped > 0 {
				j.log.Debug("cache sweep completed", map[string]interface{}{"dropped": dropped})
			}
		case <-ctx.Done():
			return
		}
	}
}
