package handlers

import (
	"errors"
	"net/http"

	"github.com/riftline/tournament-engine/services"
)

type SwissHandler struct {
	swissService services.SwissService
}

func NewSwissHandler(ss services.SwissService) *SwissHandler {
	return &SwissHandler{swissService: ss}
}

// GeneratePairingsHandler handles POST /tournaments/{tournamentID}/swiss/pairings.
func (h *SwissHandler) GeneratePairingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Round int `json:"round"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Round < 1 {
		badRequestResponse(w, r, errors.New("round must be a positive integer"))
		return
	}

	matches, err := h.swissService.GeneratePairings(r.Context(), id, input.Round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler handles GET /tournaments/{tournamentID}/swiss/standings.
func (h *SwissHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.swissService.Standings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
