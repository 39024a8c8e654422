package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/riftline/tournament-engine/models"
	"github.com/riftline/tournament-engine/services"
)

type SeedingHandler struct {
	seedingService services.SeedingService
}

func NewSeedingHandler(ss services.SeedingService) *SeedingHandler {
	return &SeedingHandler{seedingService: ss}
}

// RandomizeHandler handles POST /tournaments/{tournamentID}/seeding/randomize.
func (h *SeedingHandler) RandomizeHandler(w http.ResponseWriter, r *http.Request) {
	h.reseed(w, r, h.seedingService.Randomize)
}

// ByRankHandler handles POST /tournaments/{tournamentID}/seeding/by-rank.
func (h *SeedingHandler) ByRankHandler(w http.ResponseWriter, r *http.Request) {
	h.reseed(w, r, h.seedingService.ByRank)
}

// SetSeedHandler handles PUT /tournaments/{tournamentID}/seeding.
func (h *SeedingHandler) SetSeedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ParticipantID string `json:"participant_id"`
		Seed          int    `json:"seed"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ParticipantID == "" {
		badRequestResponse(w, r, errors.New("participant_id is required"))
		return
	}

	participants, err := h.seedingService.SetSeed(r.Context(), id, input.ParticipantID, input.Seed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SwapSeedsHandler handles POST /tournaments/{tournamentID}/seeding/swap.
func (h *SeedingHandler) SwapSeedsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ParticipantA string `json:"participant_a"`
		ParticipantB string `json:"participant_b"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ParticipantA == "" || input.ParticipantB == "" {
		badRequestResponse(w, r, errors.New("participant_a and participant_b are required"))
		return
	}

	participants, err := h.seedingService.SwapSeeds(r.Context(), id, input.ParticipantA, input.ParticipantB)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SeedingHandler) reseed(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, tournamentID string) ([]*models.Participant, error),
) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := fn(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
