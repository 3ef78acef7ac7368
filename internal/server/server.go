// Package server exposes the HTTP API for career coaching: profile and
// onboarding, industry insights, interview prep, and resume endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"careerpilot/internal/app"
	"careerpilot/internal/ratelimit"
	"careerpilot/internal/util"
	"careerpilot/pkg/ai"
	"careerpilot/pkg/domain"
)

// CareerService is the application surface the HTTP layer depends on.
type CareerService interface {
	SyncUser(ctx context.Context, externalID, email, name string) (domain.User, error)
	GetOnboardingStatus(ctx context.Context, externalID string) (bool, error)
	UpdateProfile(ctx context.Context, externalID string, input app.ProfileInput) (app.ProfileResult, error)
	GetIndustryInsights(ctx context.Context, externalID string) (domain.IndustryInsight, error)
	GenerateQuiz(ctx context.Context, externalID string) ([]domain.QuizQuestion, error)
	SaveQuizResult(ctx context.Context, externalID string, questions []domain.QuizQuestion, answers []string, score float64) (domain.Assessment, error)
	GetAssessments(ctx context.Context, externalID string) ([]domain.Assessment, error)
	SaveResume(ctx context.Context, externalID, content string) (domain.Resume, error)
	GetResume(ctx context.Context, externalID string) (domain.Resume, bool, error)
	ImproveWithAI(ctx context.Context, externalID, current, entryType string) (string, error)
}

// Sweeper triggers one insight refresh sweep on demand.
type Sweeper interface {
	RunOnce(ctx context.Context) (int, error)
}

// TokenVerifier validates a bearer token and returns the caller's
// external user ID.
type TokenVerifier interface {
	VerifySubject(token string) (string, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           CareerService
	TokenVerifier TokenVerifier
	Sweeper       Sweeper
	SweepToken    string

	RedisAddr     string
	RedisPassword string

	QuizRateLimit  int
	QuizRateWindow time.Duration
	AIRateLimit    int
	AIRateWindow   time.Duration

	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the backend.
type Server struct {
	app           CareerService
	tokenVerifier TokenVerifier
	sweeper       Sweeper
	sweepToken    string
	mux           *http.ServeMux
	trustedProxy  *util.TrustedProxies
	quizLimiter   *ratelimit.FixedWindowLimiter
	aiLimiter     *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires the application service")
	}
	quizLimit := cfg.QuizRateLimit
	if quizLimit <= 0 {
		quizLimit = 10
	}
	aiLimit := cfg.AIRateLimit
	if aiLimit <= 0 {
		aiLimit = 10
	}
	quizWindow := cfg.QuizRateWindow
	if quizWindow <= 0 {
		quizWindow = time.Minute
	}
	aiWindow := cfg.AIRateWindow
	if aiWindow <= 0 {
		aiWindow = time.Minute
	}
	newLimiter := func(name string, limit int, window time.Duration) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "careerpilot:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, window)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	quizLimiter, err := newLimiter("quiz", quizLimit, quizWindow)
	if err != nil {
		return nil, err
	}
	aiLimiter, err := newLimiter("ai", aiLimit, aiWindow)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:           cfg.App,
		tokenVerifier: cfg.TokenVerifier,
		sweeper:       cfg.Sweeper,
		sweepToken:    strings.TrimSpace(cfg.SweepToken),
		mux:           http.NewServeMux(),
		trustedProxy:  cfg.TrustedProxies,
		quizLimiter:   quizLimiter,
		aiLimiter:     aiLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// user & profile
	s.mux.Handle("/api/users/sync", s.authenticated(s.handleSyncUser))
	s.mux.Handle("/api/onboarding/status", s.authenticated(s.handleOnboardingStatus))
	s.mux.Handle("/api/profile", s.authenticated(s.handleProfile))

	// insights
	s.mux.Handle("/api/insights", s.authenticated(s.handleInsights))

	// interview prep
	s.mux.Handle("/api/interview/quiz", s.authenticated(s.handleQuiz))
	s.mux.Handle("/api/interview/assessments", s.authenticated(s.handleAssessments))

	// resume
	s.mux.Handle("/api/resume", s.authenticated(s.handleResume))
	s.mux.Handle("/api/resume/improve", s.authenticated(s.handleImproveResume))

	// ops
	s.mux.HandleFunc("/api/admin/insights/refresh", s.handleSweep)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authHandler receives the verified external user ID of the caller.
type authHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		externalID, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, externalID)
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "token.verify", "fail", "reason", "missing_token")
		return "", false
	}
	if s.tokenVerifier == nil {
		s.audit(r, "token.verify", "fail", "reason", "verifier_unconfigured")
		return "", false
	}
	subject, err := s.tokenVerifier.VerifySubject(token)
	if err != nil {
		s.audit(r, "token.verify", "fail", "reason", "invalid_signature_or_claims")
		return "", false
	}
	return subject, true
}

func (s *Server) handleSyncUser(w http.ResponseWriter, r *http.Request, externalID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req syncUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.SyncUser(r.Context(), externalID, req.Email, req.Name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request, externalID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	onboarded, err := s.app.GetOnboardingStatus(r.Context(), externalID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isOnboarded": onboarded})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, externalID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req app.ProfileInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Industry) == "" {
		writeError(w, http.StatusBadRequest, "industry is required")
		return
	}
	result, err := s.app.UpdateProfile(r.Context(), externalID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, externalID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	insight, err := s.app.GetIndustryInsights(r.Context(), externalID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request, externalID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.quizLimiter, externalID, "too many quiz requests") {
		s.audit(r, "quiz.generate", "rate_limited", "user", externalID)
		return
	}
	questions, err := s.app.GenerateQuiz(r.Context(), externalID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleAssessments(w http.ResponseWriter, r *http.Request, externalID string) {
	switch r.Method {
	case http.MethodGet:
		assessments, err := s.app.GetAssessments(r.Context(), externalID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if assessments == nil {
			assessments = []domain.Assessment{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": assessments,
			"count": len(assessments),
		})
	case http.MethodPost:
		var req saveQuizResultRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Questions) == 0 || len(req.Questions) != len(req.Answers) {
			writeError(w, http.StatusBadRequest, "questions and answers must align")
			return
		}
		assessment, err := s.app.SaveQuizResult(r.Context(), externalID, req.Questions, req.Answers, req.Score)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, assessment)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request, externalID string) {
	switch r.Method {
	case http.MethodGet:
		resume, ok, err := s.app.GetResume(r.Context(), externalID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "resume not found")
			return
		}
		writeJSON(w, http.StatusOK, resume)
	case http.MethodPut:
		var req saveResumeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		resume, err := s.app.SaveResume(r.Context(), externalID, req.Content)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resume)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleImproveResume(w http.ResponseWriter, r *http.Request, externalID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.aiLimiter, externalID, "too many improvement requests") {
		s.audit(r, "resume.improve", "rate_limited", "user", externalID)
		return
	}
	var req improveResumeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Current) == "" {
		writeError(w, http.StatusBadRequest, "current is required")
		return
	}
	improved, err := s.app.ImproveWithAI(r.Context(), externalID, req.Current, req.Type)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": improved})
}

// handleSweep triggers a full insight refresh outside the weekly cron.
// It is an operator endpoint guarded by a shared secret, not a user token.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.sweeper == nil || s.sweepToken == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	provided := strings.TrimSpace(r.Header.Get("X-Sweep-Token"))
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.sweepToken)) != 1 {
		s.audit(r, "insights.sweep", "fail", "reason", "bad_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	refreshed, err := s.sweeper.RunOnce(r.Context())
	if err != nil {
		s.audit(r, "insights.sweep", "fail", "reason", err.Error())
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	s.audit(r, "insights.sweep", "success", "refreshed", refreshed)
	writeJSON(w, http.StatusOK, map[string]int{"refreshed": refreshed})
}

type syncUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type saveQuizResultRequest struct {
	Questions []domain.QuizQuestion `json:"questions"`
	Answers   []string              `json:"answers"`
	Score     float64               `json:"score"`
}

type saveResumeRequest struct {
	Content string `json:"content"`
}

type improveResumeRequest struct {
	Current string `json:"current"`
	Type    string `json:"type"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors to HTTP statuses. Upstream model
// failures surface as 502 so callers can distinguish them from our own
// faults.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, app.ErrQuizGenerationFailed),
		errors.Is(err, ai.ErrNoResponse),
		errors.Is(err, ai.ErrMalformedResponse):
		writeError(w, http.StatusBadGateway, "generation failed")
	case errors.Is(err, app.ErrProfileUpdateFailed):
		writeError(w, http.StatusInternalServerError, "profile update failed")
	case errors.Is(err, app.ErrSaveFailed):
		writeError(w, http.StatusInternalServerError, "save failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, externalID, msg string) bool {
	key := r.URL.Path + "|" + externalID
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxy),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}
