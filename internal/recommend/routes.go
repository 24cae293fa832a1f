package recommend

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the recommendation endpoints under /api/v1.
func RegisterRoutes(router *mux.Router, h *Handler) {
	api := router.PathPrefix("/api/v1/recommendations").Subrouter()

	api.HandleFunc("/people", h.GetPeople).Methods(http.MethodGet)
	api.HandleFunc("/activities", h.GetActivities).Methods(http.MethodGet)
	api.HandleFunc("/explain/{candidateId}", h.Explain).Methods(http.MethodGet)
	api.HandleFunc("/feedback", h.SubmitFeedback).Methods(http.MethodPost)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
}
