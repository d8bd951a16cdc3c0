package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru"

	"github.com/noxhaven/world-engine/worldengine/database/models"
	"github.com/noxhaven/world-engine/worldengine/database/repositories"
	"github.com/noxhaven/world-engine/worldengine/debt"
	"github.com/noxhaven/world-engine/worldengine/ecosystem"
	"github.com/noxhaven/world-engine/worldengine/reputation"
	"github.com/noxhaven/world-engine/worldengine/surveillance"
)

const (
	districtCacheSize = 256
	districtCacheTTL  = 30 * time.Second
)

// Server exposes the world state read-only over HTTP. All writes go through
// the game action layer; this surface exists for dashboards and debugging.
type Server struct {
	ecosystem    *ecosystem.Service
	surveillance *surveillance.Service
	reputation   *reputation.Service
	debts        *debt.Service
	log          *slog.Logger

	districtCache *lru.Cache
	httpServer    *http.Server
}

type cachedDistrict struct {
	district *models.District
	fetched  time.Time
}

func NewServer(addr string, eco *ecosystem.Service, surv *surveillance.Service, rep *reputation.Service, debts *debt.Service, log *slog.Logger) (*Server, error) {
	cache, err := lru.New(districtCacheSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		ecosystem:     eco,
		surveillance:  surv,
		reputation:    rep,
		debts:         debts,
		log:           log,
		districtCache: cache,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/districts/{id}", s.handleGetDistrict)
	r.Get("/players/{id}/reputations", s.handleGetReputations)
	r.Get("/players/{id}/debts", s.handleGetDebtSummary)
	r.Get("/players/{id}/pursuit", s.handleGetPursuit)
	r.Get("/debts/overdue", s.handleGetOverdueDebts)
	r.Get("/offers", s.handleGetOffers)

	return r
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("API listening", slog.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetDistrict(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid district id")
		return
	}

	if v, ok := s.districtCache.Get(id); ok {
		entry := v.(cachedDistrict)
		if time.Since(entry.fetched) < districtCacheTTL {
			writeJSON(w, http.StatusOK, entry.district)
			return
		}
		s.districtCache.Remove(id)
	}

	district, err := s.ecosystem.GetDistrictState(r.Context(), id)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	s.districtCache.Add(id, cachedDistrict{district: district, fetched: time.Now()})
	writeJSON(w, http.StatusOK, district)
}

func (s *Server) handleGetReputations(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "id")
	relType := models.RelationType(r.URL.Query().Get("type"))

	views, err := s.reputation.GetPlayerReputations(r.Context(), playerID, relType)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetDebtSummary(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "id")

	summary, err := s.debts.GetPlayerDebtSummary(r.Context(), playerID)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetPursuit(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "id")

	pursuit, err := s.surveillance.GetPursuitStatus(r.Context(), playerID)
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pursuit)
}

func (s *Server) handleGetOverdueDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.debts.GetOverdueDebts(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) handleGetOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.debts.GetOpenOffers(r.Context())
	if err != nil {
		s.writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *repositories.ValidationError
	switch {
	case repositories.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	default:
		s.log.Error("Request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
