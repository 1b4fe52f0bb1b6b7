package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"erepbot/internal/bot"
	"erepbot/internal/game"
	"erepbot/internal/journal"
)

// JournalReader lists the most recent journal events, newest first.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Event, error)
}

// Server is the read-only status API of a running bot.
type Server struct {
	log     *slog.Logger
	bot     *bot.Scheduler
	hub     *Hub
	journal JournalReader
	mux     *chi.Mux
	start   time.Time
}

func New(logger *slog.Logger, scheduler *bot.Scheduler, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{
		log:   logger,
		bot:   scheduler,
		hub:   hub,
		mux:   chi.NewRouter(),
		start: time.Now(),
	}
	s.routes()
	return s
}

// WithJournal serves journal reads from r. Without it the journal route
// answers 404.
func (s *Server) WithJournal(r JournalReader) *Server {
	s.journal = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "uptime": time.Since(s.start).Truncate(time.Second).String()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/status", s.handleStatus)
			r.Get("/tasks", s.handleTasks)
			r.Get("/battles", s.handleBattles)
			r.Get("/decision", s.handleDecision)
			r.Get("/journal", s.handleJournal)
		})
		r.Get("/stream", s.hub.ServeHTTP)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bot.Snapshot())
}

type taskView struct {
	Name  bot.TaskName `json:"name"`
	DueAt time.Time    `json:"due_at"`
	In    string       `json:"in"`
}

func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	snap := s.bot.Snapshot()
	out := make([]taskView, 0, len(snap.Tasks))
	for name, at := range snap.Tasks {
		out = append(out, taskView{Name: name, DueAt: at, In: at.Sub(snap.At).Truncate(time.Second).String()})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].Name < out[j].Name
	})
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

type candidateView struct {
	BattleID     int64  `json:"battle_id"`
	Region       string `json:"region"`
	Division     int    `json:"division"`
	Air          bool   `json:"air"`
	Epic         bool   `json:"epic"`
	Side         int    `json:"side"`
	Defending    bool   `json:"defending"`
	TravelNeeded bool   `json:"travel_needed"`
	Summary      string `json:"summary"`
}

func (s *Server) handleBattles(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.bot.Fighter().Candidates(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]candidateView, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateView{
			BattleID:     c.Battle.ID,
			Region:       c.Battle.Region,
			Division:     c.Division.Number,
			Air:          c.Division.IsAir(),
			Epic:         c.Division.Epic,
			Side:         c.Side.Country,
			Defending:    c.Side.IsDefender,
			TravelNeeded: c.TravelNeeded,
			Summary:      c.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": out})
}

func (s *Server) handleDecision(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]any{
		"decision":      s.bot.Decisions().ShouldFight(now),
		"should_travel": s.bot.Decisions().ShouldTravel(now),
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal not configured")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("journal read failed", "err", err)
		writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrTransient):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, game.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrGateTimeout):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, game.ErrBattleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
