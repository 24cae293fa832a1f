package recommend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ashishbhardwaj21/onetime-backend/internal/common/logger"
	"github.com/ashishbhardwaj21/onetime-backend/internal/common/utils"
)

// userIDHeader carries the authenticated user's ID, set by the edge proxy.
const userIDHeader = "X-User-ID"

// maxAgeCeiling closes an open-ended age range from the query string.
const maxAgeCeiling = 120

type Handler struct {
	svc Service
	log logger.Logger
}

func NewHandler(svc Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{svc: svc, log: log}
}

// GetPeople handles GET /people.
func (h *Handler) GetPeople(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.GetPersonRecommendations(r.Context(), userID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, RecommendationsResponse{
		Recommendations: rec.Results,
		Count:           len(rec.Results),
		Partial:         rec.Partial,
		GeneratedAt:     rec.GeneratedAt,
	})
}

// GetActivities handles GET /activities.
func (h *Handler) GetActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Category = r.URL.Query().Get("category")

	rec, err := h.svc.GetActivityRecommendations(r.Context(), userID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, ActivityRecommendationsResponse{
		Recommendations: rec.Results,
		Count:           len(rec.Results),
		Partial:         rec.Partial,
		GeneratedAt:     rec.GeneratedAt,
	})
}

// Explain handles GET /explain/{candidateId}.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	candidateID := mux.Vars(r)["candidateId"]
	if candidateID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "candidate id is required")
		return
	}

	exp, err := h.svc.Explain(r.Context(), userID, candidateID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, exp)
}

// SubmitFeedback handles POST /feedback.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SubmitFeedback(r.Context(), userID, req.TargetID, InteractionType(req.Action), req.Confidence); err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, StatusResponse{Status: "recorded"})
}

// Refresh handles POST /refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RefreshRecommendations(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, StatusResponse{Status: "refreshed"})
}

func (h *Handler) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidOptions), errors.Is(err, ErrInvalidFeedback):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, "recommendations temporarily unavailable")
	default:
		h.log.WithError(err).Error("recommendation request failed", nil)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseOptions(r *http.Request) (Options, error) {
	q := r.URL.Query()
	var opts Options

	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		return opts, errors.New("limit must be an integer")
	}
	if opts.MaxDistanceKm, err = floatParam(q.Get("max_distance_km")); err != nil {
		return opts, errors.New("max_distance_km must be a number")
	}
	if opts.MinScore, err = floatParam(q.Get("min_score")); err != nil {
		return opts, errors.New("min_score must be a number")
	}

	minAge, err := intParam(q.Get("min_age"))
	if err != nil {
		return opts, errors.New("min_age must be an integer")
	}
	maxAge, err := intParam(q.Get("max_age"))
	if err != nil {
		return opts, errors.New("max_age must be an integer")
	}
	if minAge > 0 || maxAge > 0 {
		if maxAge == 0 {
			maxAge = maxAgeCeiling
		}
		opts.AgeRange = &AgeRange{Min: minAge, Max: maxAge}
	}

	opts.ForceRefresh = q.Get("force_refresh") == "true"
	return opts, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func floatParam(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
