package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/database"
	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
	"github.com/ashishbhardwaj21/onetime-backend/internal/common/utils"
	"github.com/ashishbhardwaj21/onetime-backend/internal/config"
	"github.com/ashishbhardwaj21/onetime-backend/internal/recommend"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zl.Sync()
	log := logger.NewZapAdapter(zl)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration", nil)
		os.Exit(1)
	}

	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Error("database connection failed", nil)
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional: without it single-profile reads skip the
	// snapshot cache and go straight to Postgres.
	redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, profile snapshots disabled", nil)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	profiles := recommend.NewPostgresProfileStore(db, redisClient, cfg.ProfileCacheTTL, log)
	interactions := recommend.NewPostgresInteractionStore(db)
	activities := recommend.NewPostgresActivityStore(db)

	peopleModel, err := recommend.NewScoringModel(recommend.PersonFeatureWeights(), cfg.MLBlendWeight, nil, log)
	if err != nil {
		log.WithError(err).Error("person scoring model rejected", nil)
		os.Exit(1)
	}
	activityModel, err := recommend.NewScoringModel(recommend.ActivityFeatureWeights(), cfg.MLBlendWeight, nil, log)
	if err != nil {
		log.WithError(err).Error("activity scoring model rejected", nil)
		os.Exit(1)
	}

	retrieval := recommend.NewCandidateRetrieval(profiles, cfg.PoolMultiplier, log)
	pipeline := recommend.NewRankingPipeline(
		interactions,
		activities,
		retrieval,
		recommend.NewFeatureExtractor(),
		peopleModel,
		activityModel,
		recommend.NewDiversityFilter(),
		cfg.WorkerCount,
		log,
	)

	peopleCache := recommend.NewRecommendationCache[*recommend.Recommendations](cfg.CacheTTL)
	activityCache := recommend.NewRecommendationCache[*recommend.ActivityRecommendations](cfg.CacheTTL)

	svc := recommend.NewService(profiles, interactions, pipeline, peopleCache, activityCache, cfg.ScoringTimeout, cfg.DefaultMinScore, log)
	handler := recommend.NewHandler(svc, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recommend.NewJanitor(peopleCache, activityCache, cfg.JanitorInterval, log).Start(ctx)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	recommend.RegisterRoutes(router, handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", map[string]interface{}{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed", nil)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed", nil)
	}
	log.Info("server stopped", nil)
}
