package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/domain/catalog"
	"github.com/quickai/quickai/internal/domain/entitlement"
	"github.com/quickai/quickai/internal/domain/preferences"
	"github.com/quickai/quickai/internal/domain/quota"
	logpkg "github.com/quickai/quickai/internal/logger"
	engineuc "github.com/quickai/quickai/internal/usecase/engine"
	healthuc "github.com/quickai/quickai/internal/usecase/health"
	relayuc "github.com/quickai/quickai/internal/usecase/relay"
)

// maxBodyBytes bounds request bodies; prompts are capped well below this.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the relay HTTP API.
type Server struct {
	engine        *engineuc.Service
	relay         *relayuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	engine *engineuc.Service,
	relay *relayuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{engine: engine, relay: relay, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		deniedHandler,
		sentinelHandler(domain.ErrInvalidUser, http.StatusBadRequest, CodeInvalidUser),
		sentinelHandler(domain.ErrUnknownResource, http.StatusBadRequest, CodeUnknownResource),
		sentinelHandler(domain.ErrInvalidDuration, http.StatusBadRequest, CodeInvalidDuration),
		sentinelHandler(domain.ErrInvalidPrompt, http.StatusBadRequest, CodeInvalidPrompt),
		sentinelHandler(domain.ErrUnknownModel, http.StatusBadRequest, CodeUnknownModel),
		sentinelHandler(domain.ErrPremiumRequired, http.StatusPaymentRequired, CodePremiumModelRequired),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusTooManyRequests, CodeDailyLimitReached),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrStorageUnavailable, http.StatusServiceUnavailable, CodeStorageUnavailable),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, CodeGenerationFailed),
	}
	return s
}

// Routes registers the API on r. admin guards /v1/admin; nil leaves it unguarded.
func (s *Server) Routes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/generate/{kind}", s.Generate)
		r.Get("/models", s.ListModels)
		r.Get("/agents", s.ListAgents)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/status", s.GetStatus)
			r.Get("/preferences", s.GetPreferences)
			r.Patch("/preferences", s.PatchPreferences)
		})

		r.Route("/admin", func(r chi.Router) {
			if admin != nil {
				r.Use(admin)
			}
			r.Put("/entitlements/{userID}", s.GrantEntitlement)
			r.Delete("/entitlements/{userID}", s.RevokeEntitlement)
		})
	})
}

type generateRequest struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type generateResponse struct {
	ID        string `json:"id"`
	Model     string `json:"model"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	Remaining int64  `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
}

// Generate handles POST /v1/generate/{kind}.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseResource(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, CodeUnknownResource, "unknown generation kind")
		return
	}

	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.relay.Generate(r.Context(), req.UserID, kind, req.Prompt, req.Model)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		ID:        res.ID,
		Model:     res.Model,
		Text:      res.Text,
		URL:       res.URL,
		Remaining: res.Remaining,
		Unlimited: res.Remaining == quota.Unlimited,
	})
}

type usageJSON struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

type statusResponse struct {
	UserID        string               `json:"user_id"`
	IsPremium     bool                 `json:"is_premium"`
	Unlimited     bool                 `json:"unlimited"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	RemainingDays int                  `json:"remaining_days"`
	Day           string               `json:"day"`
	ResetsAt      time.Time            `json:"resets_at"`
	Usage         map[string]usageJSON `json:"usage"`
}

func usageOf(used, limit int64) usageJSON {
	u := usageJSON{Used: used, Limit: limit, Remaining: quota.Unlimited}
	if limit != quota.Unlimited {
		u.Remaining = quota.Remaining(limit, used)
	}
	return u
}

// GetStatus handles GET /v1/users/{userID}/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		UserID:        st.UserID,
		IsPremium:     st.IsPremium,
		Unlimited:     st.Unlimited,
		ExpiresAt:     st.ExpiresAt,
		RemainingDays: st.RemainingDays,
		Day:           st.Day.String(),
		ResetsAt:      st.ResetsAt,
		Usage: map[string]usageJSON{
			string(domain.ResourceText):  usageOf(st.TextUsedToday, st.TextLimit),
			string(domain.ResourceImage): usageOf(st.ImageUsedToday, st.ImageLimit),
		},
	})
}

type preferencesJSON struct {
	TextModel  string `json:"text_model"`
	ImageModel string `json:"image_model"`
	Agent      string `json:"agent"`
}

type preferencesPatchJSON struct {
	TextModel  *string `json:"text_model"`
	ImageModel *string `json:"image_model"`
	Agent      *string `json:"agent"`
}

func preferencesToJSON(p preferences.Preferences) preferencesJSON {
	return preferencesJSON{TextModel: p.TextModel, ImageModel: p.ImageModel, Agent: p.Agent}
}

// GetPreferences handles GET /v1/users/{userID}/preferences.
func (s *Server) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetPreferences(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesToJSON(p))
}

// PatchPreferences handles PATCH /v1/users/{userID}/preferences.
func (s *Server) PatchPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesPatchJSON
	if !decodeBody(w, r, &req) {
		return
	}

	patch := preferences.Patch{TextModel: req.TextModel, ImageModel: req.ImageModel, Agent: req.Agent}
	p, err := s.relay.UpdatePreferences(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesToJSON(p))
}

type modelJSON struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Premium     bool   `json:"premium"`
}

func modelsToJSON(r domain.Resource, models []catalog.Model) []modelJSON {
	out := make([]modelJSON, len(models))
	for i, m := range models {
		out[i] = modelJSON{Name: m.Name, Type: string(r), Description: m.Description, Premium: m.Premium}
	}
	return out
}

// ListModels handles GET /v1/models?type=text|image. Without type both lists are returned.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	kinds := domain.Resources()
	if t := r.URL.Query().Get("type"); t != "" {
		kind, err := domain.ParseResource(t)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		kinds = []domain.Resource{kind}
	}

	items := make([]modelJSON, 0)
	for _, k := range kinds {
		items = append(items, modelsToJSON(k, s.relay.Catalog().Models(k))...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type agentJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListAgents handles GET /v1/agents.
func (s *Server) ListAgents(w http.ResponseWriter, _ *http.Request) {
	agents := s.relay.Catalog().Agents()
	items := make([]agentJSON, len(agents))
	for i, a := range agents {
		items[i] = agentJSON{Name: a.Name, Description: a.Description}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type grantRequest struct {
	Duration string `json:"duration"`
}

type entitlementResponse struct {
	UserID        string     `json:"user_id"`
	GrantedAt     time.Time  `json:"granted_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Unlimited     bool       `json:"unlimited"`
	RemainingDays int        `json:"remaining_days"`
}

// GrantEntitlement handles PUT /v1/admin/entitlements/{userID}.
func (s *Server) GrantEntitlement(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := entitlement.ParseDuration(req.Duration)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	e, err := s.engine.GrantEntitlement(r.Context(), chi.URLParam(r, "userID"), d)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := entitlementResponse{
		UserID:        e.UserID(),
		GrantedAt:     e.GrantedAt(),
		Unlimited:     e.IsUnlimited(),
		RemainingDays: e.RemainingDays(e.GrantedAt()),
	}
	if exp, ok := e.ExpiresAt(); ok {
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}

// RevokeEntitlement handles DELETE /v1/admin/entitlements/{userID}.
func (s *Server) RevokeEntitlement(w http.ResponseWriter, r *http.Request) {
	existed, err := s.engine.RevokeEntitlement(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, CodeNotFound, "no entitlement for user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Debug("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// deniedHandler reports quota denials with the remaining budget and free alternatives.
func deniedHandler(w http.ResponseWriter, err error, msg string) bool {
	var denied *relayuc.DeniedError
	if !errors.As(err, &denied) {
		return false
	}

	status, code := http.StatusTooManyRequests, CodeDailyLimitReached
	if denied.Decision.Reason == quota.ReasonPremiumModelRequired {
		status, code = http.StatusPaymentRequired, CodePremiumModelRequired
	}
	resp := errorResponse{Code: code, Message: msg, Remaining: &denied.Decision.Remaining}
	if len(denied.FreeModels) > 0 {
		resp.FreeModels = modelsToJSON(denied.Resource, denied.FreeModels)
	}
	writeJSON(w, status, resp)
	return true
}
