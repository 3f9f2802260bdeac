package handlers

import (
	"net/http"

	"github.com/svleague/swiss-system/live"
	"github.com/svleague/swiss-system/services"
)

type AdminHandler struct {
	adminService  services.AdminService
	exportService services.ExportService
	hub           *live.Hub
}

func NewAdminHandler(as services.AdminService, es services.ExportService, hub *live.Hub) *AdminHandler {
	return &AdminHandler{
		adminService:  as,
		exportService: es,
		hub:           hub,
	}
}

// OverrideResultHandler handles POST /admin/matches/{matchID}/override
func (h *AdminHandler) OverrideResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req services.OverrideResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	req.MatchID = matchID

	match, err := h.adminService.OverrideResult(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToTournament(match.TournamentID, live.EventStandingsUpdated, nil)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SwapTablesHandler handles POST /admin/matches/swap
func (h *AdminHandler) SwapTablesHandler(w http.ResponseWriter, r *http.Request) {
	var req services.SwapTablesRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.adminService.SwapTables(r.Context(), req); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"swapped": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BanPlayerHandler handles POST /admin/players/ban
func (h *AdminHandler) BanPlayerHandler(w http.ResponseWriter, r *http.Request) {
	var req services.BanPlayerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.adminService.BanPlayer(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PurgeTournamentHandler handles DELETE /admin/tournaments/{tournamentID}
func (h *AdminHandler) PurgeTournamentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req services.PurgeTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	req.TournamentID = id

	if err := h.adminService.PurgeTournament(r.Context(), req); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"purged": id}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportHandler handles POST /admin/tournaments/{tournamentID}/export
func (h *AdminHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.exportService.ExportTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"export": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ArchivePreviewHandler handles GET /admin/tournaments/{tournamentID}/archive
func (h *AdminHandler) ArchivePreviewHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	archive, err := h.exportService.BuildArchive(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"archive": archive}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
