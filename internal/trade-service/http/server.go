package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/sports-trade-engine/internal/trade-service/dto"
	"github.com/radieske/sports-trade-engine/internal/trade-service/engine"
	"github.com/radieske/sports-trade-engine/internal/trade-service/feed"
	"github.com/radieske/sports-trade-engine/internal/trade-service/repo"
)

// Server expõe o trade engine por HTTP. WS atende /ws (assinaturas por evento).
type Server struct {
	log     *zap.Logger
	engine  *engine.Engine
	updater *feed.Updater
	feedCli *feed.Client
	ws      http.Handler
	secret  []byte
}

func NewServer(log *zap.Logger, eng *engine.Engine, upd *feed.Updater, fc *feed.Client, ws http.Handler, jwtSecret string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, engine: eng, updater: upd, feedCli: fc, ws: ws, secret: []byte(jwtSecret)}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}

	// leitura pública de eventos
	r.Get("/events/all", s.listEvents)
	r.Get("/events/scores", s.eventScore)
	r.Get("/events/{id}", s.getEvent)

	r.Group(func(r chi.Router) {
		r.Use(Authenticated(s.secret))
		r.Post("/trade", s.placeTrade)
		r.Get("/trade", s.listTrades)
		r.Get("/wallet", s.getWallet)

		r.Group(func(r chi.Router) {
			r.Use(OperatorOnly)
			r.Post("/trade/settle", s.settle)
			r.Get("/events/{id}/stakes", s.eventStakes)
			r.Post("/events/fetch", s.fetchEvent)
			r.Post("/events/{id}/status", s.updateStatus)
			r.Post("/events/{id}/scores", s.updateScores)
			r.Post("/wallet/deposit", s.deposit)
		})
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method), zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()), zap.Duration("took", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())))
	})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// statusFor traduz erros de domínio em status HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrAccountNotFound),
		errors.Is(err, engine.ErrEventNotFound),
		errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrTransactionConflict):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrBettingClosed),
		errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInvalidSelection),
		errors.Is(err, engine.ErrEventNotSettleable),
		errors.Is(err, feed.ErrInvalidStatus),
		errors.Is(err, repo.ErrInvalidEvent),
		errors.Is(err, repo.ErrEventCompleted):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	}
	writeError(w, status, msg)
}

// detached: a escrita não pode ser cancelada pela queda do cliente
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
