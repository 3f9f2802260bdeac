package handlers

import (
	"net/http"

	"github.com/svleague/swiss-system/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
	statsService     services.StatsService
}

func NewStandingsHandler(ss services.StandingsService, stats services.StatsService) *StandingsHandler {
	return &StandingsHandler{
		standingsService: ss,
		statsService:     stats,
	}
}

// GetStandingsHandler handles GET /tournaments/{tournamentID}/standings
func (h *StandingsHandler) GetStandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	query := r.URL.Query()
	activeOnly := query.Get("active") == "true"
	swissOnly := query.Get("swiss_only") == "true"

	var rows interface{}
	if swissOnly {
		rows, err = h.standingsService.ComputeSwissStandings(r.Context(), id, activeOnly)
	} else {
		rows, err = h.standingsService.ComputeStandings(r.Context(), id, activeOnly)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": rows}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ClassStatsHandler handles GET /tournaments/{tournamentID}/stats/classes
func (h *StandingsHandler) ClassStatsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.statsService.ClassStats(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"class_stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
