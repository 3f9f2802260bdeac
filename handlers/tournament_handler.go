package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/svleague/swiss-system/live"
	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	standingsService  services.StandingsService
	hub               *live.Hub
}

func NewTournamentHandler(ts services.TournamentService, ss services.StandingsService, hub *live.Hub) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		standingsService:  ss,
		hub:               hub,
	}
}

// CreateHandler handles POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments?community_id=&limit=&offset=
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	communityID, err := strconv.ParseInt(query.Get("community_id"), 10, 64)
	if err != nil || communityID < 1 {
		badRequestResponse(w, r, errors.New("invalid community_id query parameter"))
		return
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), communityID, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddPlayerHandler handles POST /tournaments/{tournamentID}/players
func (h *TournamentHandler) AddPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AddPlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, player, err := h.tournamentService.AddPlayer(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome == models.RegistrationNew {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"outcome": outcome, "player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DropPlayerHandler handles DELETE /tournaments/{tournamentID}/players/{externalID}
func (h *TournamentHandler) DropPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	externalID := getStringFromURL(r, "externalID")
	if externalID == "" {
		badRequestResponse(w, r, errors.New("invalid externalID URL parameter"))
		return
	}

	if err := h.tournamentService.DropPlayer(r.Context(), id, externalID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dropped": externalID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPlayersHandler handles GET /tournaments/{tournamentID}/players
func (h *TournamentHandler) ListPlayersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	players, err := h.tournamentService.ListPlayers(r.Context(), id, activeOnly)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /tournaments/{tournamentID}/start
func (h *TournamentHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	start, err := h.tournamentService.StartFirstRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToTournament(id, live.EventRoundStarted, start)
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"round": start}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceHandler handles POST /tournaments/{tournamentID}/advance
func (h *TournamentHandler) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	start, err := h.tournamentService.AdvanceRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToTournament(id, live.EventRoundStarted, start)
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"round": start}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CutHandler handles POST /tournaments/{tournamentID}/cut
func (h *TournamentHandler) CutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	finals, err := h.tournamentService.CutToFinals(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToTournament(id, live.EventFinalsStarted, finals)
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"finals": finals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CurrentRoundHandler handles GET /tournaments/{tournamentID}/rounds/current
func (h *TournamentHandler) CurrentRoundHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, matches, err := h.tournamentService.CurrentRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round, "matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
