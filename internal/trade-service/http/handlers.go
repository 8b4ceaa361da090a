package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/trade-service/dto"
	"github.com/radieske/sports-trade-engine/internal/trade-service/feed"
)

func (s *Server) placeTrade(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req dto.PlaceTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.EventID == "" || req.SelectedTeam == "" {
		writeError(w, http.StatusBadRequest, "eventId and selectedTeam are required")
		return
	}

	st, err := s.engine.PlaceStake(detached(r), id.UserID, req.EventID, req.SelectedTeam, req.BetAmount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PlaceTradeResponse{Message: "Trade placed successfully", Trade: st})
}

func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	out, err := s.engine.ListUserStakes(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" {
		writeError(w, http.StatusBadRequest, "eventId is required")
		return
	}
	res, err := s.engine.SettleEvent(detached(r), req.EventID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.ListEvents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) eventScore(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("eventName"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "eventName is required")
		return
	}
	out, err := s.engine.GetEventScoreByName(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) eventStakes(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.ListEventStakes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// fetchEvent busca um evento mock no simulador e grava na store
func (s *Server) fetchEvent(w http.ResponseWriter, r *http.Request) {
	if s.feedCli == nil {
		writeError(w, http.StatusServiceUnavailable, "event simulator not configured")
		return
	}
	ctx := detached(r)
	upd, err := s.feedCli.FetchMockEvent(ctx)
	if err != nil {
		s.log.Warn("fetch mock event", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not fetch mock event")
		return
	}
	saved, err := s.updater.Upsert(ctx, feed.EventFromFeed(upd))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EventResponse{Message: "Mock event stored successfully", Event: saved})
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	saved, err := s.updater.UpdateStatus(detached(r), chi.URLParam(r, "id"), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	winner := saved.Winner
	if winner == "" {
		winner = "Not decided"
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Message: "Event status updated to " + status, Winner: winner})
}

func (s *Server) updateScores(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateScoresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Scores) == 0 {
		writeError(w, http.StatusBadRequest, "scores are required")
		return
	}
	saved, err := s.updater.UpdateScores(detached(r), chi.URLParam(r, "id"), req.Scores, req.Odds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EventResponse{Message: "Scores updated", Event: saved})
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	acct, err := s.engine.GetAccount(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId and amount are required")
		return
	}
	acct, err := s.engine.Deposit(detached(r), req.UserID, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}
