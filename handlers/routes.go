package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type HealthResponse struct {
	Status      string `json:"status"`
	ActiveForms int    `json:"active_forms"`
	Uptime      string `json:"uptime"`
}

// RegisterRoutes mounts the form API on api, which is expected to be the
// /api/v1 subrouter.
func RegisterRoutes(api *mux.Router, h *FormHandler) {
	started := time.Now()

	api.HandleFunc("/forms", h.CreateForm).Methods("POST")
	api.HandleFunc("/forms/{id}", h.GetForm).Methods("GET")
	api.HandleFunc("/forms/{id}", h.DeleteForm).Methods("DELETE")
	api.HandleFunc("/forms/{id}/selection/{level}", h.SelectLevel).Methods("PUT")
	api.HandleFunc("/forms/{id}/options/{level}/refresh", h.RefreshLevel).Methods("POST")
	api.HandleFunc("/forms/{id}/submit", h.SubmitForm).Methods("POST")
	api.HandleFunc("/forms/{id}/acknowledge", h.AcknowledgeForm).Methods("POST")

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:      "ok",
			ActiveForms: h.store.Count(),
			Uptime:      time.Since(started).Round(time.Second).String(),
		})
	}).Methods("GET")
}
