package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/internal/positionid"
	"github.com/yourusername/bgtutor/internal/store"
	"github.com/yourusername/bgtutor/pkg/coach"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/game"
)

type ctxKey int

const sessionKey ctxKey = iota

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// intentError classifies an intent failure.
func intentError(err error) (status int, code string) {
	switch {
	case errors.Is(err, game.ErrInvalidIntent):
		return http.StatusConflict, "INVALID_INTENT"
	case errors.Is(err, errUnknownIntent):
		return http.StatusNotFound, "UNKNOWN_INTENT"
	}
	return http.StatusInternalServerError, "ENGINE_ERROR"
}

func intentErrorCode(err error) string {
	_, code := intentError(err)
	return code
}

func writeIntentError(w http.ResponseWriter, err error) {
	status, code := intentError(err)
	writeError(w, status, err.Error(), code)
}

func sessionFrom(ctx context.Context) *Session {
	return ctx.Value(sessionKey).(*Session)
}

// withSession resolves the {id} route parameter.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "no such match", "NOT_FOUND")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Health handles GET /api/health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	stats := s.deps.Pool.Stats()
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Sessions: s.sessions.len(),
		Pool:     &stats,
	}
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		h, err := s.deps.Health.Health(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.EvaluatorInfo = err.Error()
		} else {
			resp.EvaluatorUp = h.Ready
			resp.EvaluatorInfo = h.Version
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Plays handles POST /api/plays
func (s *Server) Plays(w http.ResponseWriter, r *http.Request) {
	var req PlaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if !req.Dice.Valid() {
		writeError(w, http.StatusBadRequest, "dice must be 1-6", "INVALID_DICE")
		return
	}

	var b engine.Board
	switch {
	case req.Board != nil:
		b = *req.Board
		if b.Cube.Value == 0 {
			b.Cube = engine.CenteredCube()
		}
	case req.Position != "":
		if req.Turn == engine.NoPlayer {
			req.Turn = engine.White
		}
		var err error
		b, err = positionid.Decode(req.Position, req.Turn)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_POSITION")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "board or position is required", "MISSING_POSITION")
		return
	}
	if b.Turn != engine.White && b.Turn != engine.Black {
		writeError(w, http.StatusBadRequest, "turn must be white or black", "INVALID_POSITION")
		return
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_POSITION")
		return
	}

	list := engine.GenerateMoves(b, req.Dice)
	resp := PlaysResponse{Dice: req.Dice, MaxMoves: list.MaxMoves, Plays: make([]PlayResponse, len(list.Plays))}
	for i, p := range list.Plays {
		resp.Plays[i] = PlayResponse{
			Play:       p,
			Notation:   p.String(),
			Result:     list.Results[i],
			PositionID: positionid.Encode(list.Results[i]),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateMatch handles POST /api/matches
func (s *Server) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
			return
		}
	}

	cfg, err := s.sessionConfig(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CONFIG")
		return
	}

	sess, err := s.newSession(cfg, req.Seed)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CONFIG")
		return
	}
	if err := sess.Apply(r.Context(), "start", IntentRequest{}); err != nil {
		sess.Engine.Close()
		writeIntentError(w, err)
		return
	}
	s.sessions.add(sess)
	s.log.Info("match created",
		zap.String("session", sess.ID),
		zap.Int("length", cfg.Match.Length),
		zap.Stringer("difficulty", cfg.Difficulty),
		zap.Stringer("computer", cfg.Computer),
	)
	writeJSON(w, http.StatusCreated, s.matchResponse(sess))
}

// sessionConfig applies the request, and the user's saved preferences for
// whatever the request leaves unset, to the base configuration.
func (s *Server) sessionConfig(ctx context.Context, req CreateMatchRequest) (game.Config, error) {
	cfg := s.deps.Base
	if req.User != "" && s.deps.Preferences != nil {
		p, err := s.deps.Preferences.Preferences(ctx, req.User)
		if err != nil {
			s.log.Warn("preferences unavailable", zap.String("user", req.User), zap.Error(err))
		} else {
			if d, err := game.ParseDifficulty(p.Difficulty); err == nil {
				cfg.Difficulty = d
			}
			if c, err := engine.ParsePlayer(p.Computer); err == nil {
				cfg.Computer = c
			}
			cfg.Match.Length = p.MatchLength
			cfg.AutoRoll = p.AutoRoll
			cfg.CoachThreshold = p.CoachThreshold
		}
	}

	if req.Length != nil {
		cfg.Match.Length = *req.Length
	}
	cfg.Match.Jacoby = req.Jacoby
	cfg.Match.Beaver = req.Beaver
	if req.Difficulty != nil {
		cfg.Difficulty = *req.Difficulty
	}
	if req.Computer != nil {
		c, err := engine.ParsePlayer(*req.Computer)
		if err != nil {
			return cfg, err
		}
		cfg.Computer = c
	}
	if req.Players[0] != "" {
		cfg.Players[0] = req.Players[0]
	}
	if req.Players[1] != "" {
		cfg.Players[1] = req.Players[1]
	}
	if req.AutoRoll != nil {
		cfg.AutoRoll = *req.AutoRoll
	}
	if req.Threshold != nil {
		cfg.CoachThreshold = *req.Threshold
	}
	return cfg, cfg.Validate()
}

func (s *Server) newSession(cfg game.Config, seed uint64) (*Session, error) {
	opts := []game.Option{
		game.WithPool(s.deps.Pool),
		game.WithMET(s.deps.MET),
		game.WithDice(s.deps.NewDice(seed)),
	}
	if s.deps.Evaluator != nil {
		opts = append(opts, game.WithEvaluator(s.deps.Evaluator))
	}
	if s.deps.Coach != nil {
		opts = append(opts, game.WithCoach(s.deps.Coach))
	}
	if s.deps.Stats != nil {
		opts = append(opts, game.WithRecorder(s.deps.Stats))
	}
	if s.deps.Archive != nil {
		opts = append(opts, game.WithArchiver(s.deps.Archive))
	}

	id := uuid.NewString()
	logger := s.deps.Logger.With(zap.String("session", id))
	e, err := game.New(cfg, append(opts, game.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}
	return newSession(id, e), nil
}

func (s *Server) matchResponse(sess *Session) MatchResponse {
	return MatchResponse{
		ID:       sess.ID,
		Config:   sess.Engine.Config(),
		Snapshot: sess.Engine.Snapshot(),
	}
}

// GetMatch handles GET /api/matches/{id}
func (s *Server) GetMatch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.matchResponse(sessionFrom(r.Context())))
}

// DeleteMatch handles DELETE /api/matches/{id}
func (s *Server) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if _, ok := s.sessions.remove(sess.ID); ok {
		sess.Engine.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Intent handles POST /api/matches/{id}/{intent}
func (s *Server) Intent(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	intent := chi.URLParam(r, "intent")

	var req IntentRequest
	if intent == "move" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
			return
		}
	}
	if err := sess.Apply(r.Context(), intent, req); err != nil {
		writeIntentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.matchResponse(sess))
}

// MatchGames handles GET /api/matches/{id}/games
func (s *Server) MatchGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Engine.Games())
}

// PatternCoach comments on recurring weaknesses across games.
// *coach.Client implements it.
type PatternCoach interface {
	Patterns(ctx context.Context, stats []coach.GameStats) (*coach.Patterns, error)
}

// Patterns handles GET /api/matches/{id}/patterns?player=
// The player defaults to the human side. Commentary is omitted when no coach
// is configured or it does not answer.
func (s *Server) Patterns(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	p := engine.White
	if sess.Engine.Config().Computer == engine.White {
		p = engine.Black
	}
	if q := r.URL.Query().Get("player"); q != "" {
		var err error
		p, err = engine.ParsePlayer(q)
		if err != nil || p == engine.NoPlayer {
			writeError(w, http.StatusBadRequest, "player must be white or black", "INVALID_PLAYER")
			return
		}
	}

	resp := PatternsResponse{Player: p, Games: sess.Engine.GameStats(p)}
	if pc, ok := s.deps.Coach.(PatternCoach); ok && len(resp.Games) > 0 {
		err := s.deps.Pool.Do(r.Context(), pool.LaneCoach, func(ctx context.Context) error {
			var err error
			resp.Patterns, err = pc.Patterns(ctx, resp.Games)
			return err
		})
		if err != nil {
			s.log.Warn("pattern commentary unavailable", zap.String("session", sess.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportMAT handles GET /api/matches/{id}/record.mat
func (s *Server) ExportMAT(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.ID+".mat"))
	if err := sess.Engine.ExportMAT(w); err != nil {
		s.log.Warn("mat export failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

// Stats handles GET /api/stats?difficulty=
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		writeError(w, http.StatusNotImplemented, "statistics are not kept", "NO_STORE")
		return
	}

	names := []string{game.Beginner.String(), game.Intermediate.String(), game.Expert.String()}
	if q := r.URL.Query().Get("difficulty"); q != "" {
		d, err := game.ParseDifficulty(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_DIFFICULTY")
			return
		}
		names = []string{d.String()}
	}

	out := make([]store.Stats, 0, len(names))
	for _, name := range names {
		st, err := s.deps.Stats.Stats(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "STORE_ERROR")
			return
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPreferences handles GET /api/preferences/{user}
func (s *Server) GetPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		writeError(w, http.StatusNotImplemented, "preferences are not kept", "NO_STORE")
		return
	}
	p, err := s.deps.Preferences.Preferences(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPreferences handles PUT /api/preferences/{user}
func (s *Server) PutPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		writeError(w, http.StatusNotImplemented, "preferences are not kept", "NO_STORE")
		return
	}
	p := store.DefaultPreferences()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if _, err := game.ParseDifficulty(p.Difficulty); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_DIFFICULTY")
		return
	}
	if _, err := engine.ParsePlayer(p.Computer); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PLAYER")
		return
	}
	if p.MatchLength < 0 || p.CoachThreshold < 0 {
		writeError(w, http.StatusBadRequest, "match length and threshold must not be negative", "INVALID_PREFERENCES")
		return
	}
	if err := s.deps.Preferences.SavePreferences(r.Context(), chi.URLParam(r, "user"), p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ArchivedGame handles GET /api/games/{id}
func (s *Server) ArchivedGame(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil {
		writeError(w, http.StatusNotImplemented, "games are not archived", "NO_STORE")
		return
	}
	rec, err := s.deps.Archive.Game(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such game", "NOT_FOUND")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "STORE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
