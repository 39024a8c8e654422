package handlers

import (
	"errors"
	"net/http"

	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/services"
)

type LifecycleHandler struct {
	lifecycleService services.LifecycleService
}

func NewLifecycleHandler(ls services.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleService: ls}
}

// GetHandler handles GET /tournaments/{tournamentID}/lifecycle.
func (h *LifecycleHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.lifecycleService.GetLifecycle(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"lifecycle": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TransitionHandler handles POST /tournaments/{tournamentID}/lifecycle/transition.
func (h *LifecycleHandler) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Target models.TournamentStatus `json:"target"`
		Reason string                  `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Target == "" {
		badRequestResponse(w, r, errors.New("target state is required"))
		return
	}

	view, err := h.lifecycleService.Transition(r.Context(), id, input.Target, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"lifecycle": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
