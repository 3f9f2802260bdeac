package handlers

import (
	"errors"
	"net/http"

	"github.com/svleague/swiss-system/live"
	"github.com/svleague/swiss-system/services"
)

type MatchHandler struct {
	resultService services.ResultService
	metaService   services.MetaService
	hub           *live.Hub
}

func NewMatchHandler(rs services.ResultService, ms services.MetaService, hub *live.Hub) *MatchHandler {
	return &MatchHandler{
		resultService: rs,
		metaService:   ms,
		hub:           hub,
	}
}

type reportResultInput struct {
	TournamentID int                 `json:"tournament_id"`
	Winner       services.WinnerSide `json:"winner"`
}

// ReportResultHandler handles POST /matches/{matchID}/result.
// A lost race against another reporter returns 200 with applied=false, the
// winning result attached; it is not an error.
func (h *MatchHandler) ReportResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input reportResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Winner != services.SideP1 && input.Winner != services.SideP2 {
		badRequestResponse(w, r, errors.New("winner must be \"p1\" or \"p2\""))
		return
	}

	outcome, err := h.resultService.RecordResult(r.Context(), matchID, input.Winner)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if outcome.Applied && input.TournamentID > 0 {
		h.hub.BroadcastToTournament(input.TournamentID, live.EventMatchReported, outcome)
		if outcome.RoundCompleted {
			h.hub.BroadcastToTournament(input.TournamentID, live.EventRoundCompleted, outcome)
			h.hub.BroadcastToTournament(input.TournamentID, live.EventStandingsUpdated, nil)
		}
		if outcome.Finished {
			h.hub.BroadcastToTournament(input.TournamentID, live.EventTournamentFinished, outcome.Placements)
		}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type classPickInput struct {
	PlayerID int    `json:"player_id"`
	Slot     int    `json:"slot"`
	Class    string `json:"class"`
}

// RecordPickHandler handles POST /matches/{matchID}/picks
func (h *MatchHandler) RecordPickHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input classPickInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	meta, err := h.metaService.RecordPick(r.Context(), matchID, input.PlayerID, input.Slot, input.Class)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type actualClassInput struct {
	PlayerID int    `json:"player_id"`
	Class    string `json:"class"`
}

// RecordActualHandler handles POST /matches/{matchID}/actual
func (h *MatchHandler) RecordActualHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input actualClassInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	meta, err := h.metaService.RecordActual(r.Context(), matchID, input.PlayerID, input.Class)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type resetPicksInput struct {
	PlayerID int `json:"player_id"`
}

// ResetPicksHandler handles DELETE /matches/{matchID}/picks
func (h *MatchHandler) ResetPicksHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input resetPicksInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.metaService.ResetPicks(r.Context(), matchID, input.PlayerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reset": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MetaHandler handles GET /matches/{matchID}/meta
func (h *MatchHandler) MetaHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	meta, err := h.metaService.MatchMeta(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
