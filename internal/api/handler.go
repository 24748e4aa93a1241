package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/tutorgw/internal/admission"
	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/tutor"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DefaultRequestTimeout is how long a caller waits for any tutoring
// operation.
const DefaultRequestTimeout = 120 * time.Second

// Deps holds the collaborators of the HTTP surface.
type Deps struct {
	Tutor     *tutor.Service
	Admission *admission.Controller
	// RequestTimeout bounds how long a caller waits. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
	// Token, when set, is required as a bearer token on /api routes.
	Token string
	// History serves /api/history when set.
	History History
	// TrustedProxies may set X-Forwarded-For for admission. Empty means
	// clients are keyed by their connection address only.
	TrustedProxies []netip.Prefix
}

type handler struct {
	tutor    *tutor.Service
	timeout  time.Duration
	validate *validator.Validate
}

// NewHandler returns the gateway's HTTP API.
func NewHandler(d Deps) http.Handler {
	h := &handler{
		tutor:    d.Tutor,
		timeout:  d.RequestTimeout,
		validate: newValidator(),
	}
	if h.timeout <= 0 {
		h.timeout = DefaultRequestTimeout
	}
	adm := d.Admission
	if adm == nil {
		adm = admission.NewController(admission.DefaultWindow, admission.DefaultMaxRequests)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if d.Token != "" {
			r.Use(BearerAuth(d.Token))
		}
		r.Get("/models", h.handleModels)
		if d.History != nil {
			hh := &historyHandler{store: d.History}
			r.Get("/history", hh.handleRecent)
			r.Get("/history/summary", hh.handleSummary)
		}

		r.Group(func(r chi.Router) {
			r.Use(Admit(adm, d.TrustedProxies))
			r.Post("/doubt", h.handleDoubt)
			r.Post("/generate", h.handleGenerate)
			r.Post("/teaching-content", h.handleTeaching)
			r.Post("/teaching-content/prompt", h.handleTeachingPrompt)
			r.Post("/quiz", h.handleQuiz)
		})
	})

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"providers":       h.tutor.Availability(),
		"defaultProvider": h.tutor.DefaultProvider(),
	})
}

func (h *handler) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tutor.Availability())
}

func (h *handler) handleDoubt(w http.ResponseWriter, r *http.Request) {
	var body doubtBody
	if !h.decode(w, r, &body) {
		return
	}
	req := tutor.DoubtRequest{
		Question:   body.Question,
		Context:    body.Context,
		Curriculum: body.CurriculumContext,
		Provider:   identity(body.Provider),
	}
	race(h, w, r, func(ctx context.Context) (any, error) {
		return h.tutor.ResolveDoubt(ctx, req)
	})
}

func (h *handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body contentBody
	if !h.decode(w, r, &body) {
		return
	}
	req := tutor.ContentRequest{
		Prompt:     body.Prompt,
		Context:    body.Context,
		Curriculum: body.CurriculumContext,
		Provider:   identity(body.Provider),
	}
	race(h, w, r, func(ctx context.Context) (any, error) {
		return h.tutor.GenerateContent(ctx, req)
	})
}

func (h *handler) handleTeaching(w http.ResponseWriter, r *http.Request) {
	var body teachingBody
	if !h.decode(w, r, &body) {
		return
	}
	req := tutor.TeachingRequest{
		Topic:      body.Topic,
		Context:    body.Context,
		Curriculum: body.CurriculumContext,
		Provider:   identity(body.Provider),
	}
	race(h, w, r, func(ctx context.Context) (any, error) {
		return h.tutor.GenerateTeachingContent(ctx, req)
	})
}

func (h *handler) handleTeachingPrompt(w http.ResponseWriter, r *http.Request) {
	var body promptBody
	if !h.decode(w, r, &body) {
		return
	}
	req := tutor.PromptRequest{Prompt: body.Prompt, Provider: identity(body.Provider)}
	race(h, w, r, func(ctx context.Context) (any, error) {
		return h.tutor.GenerateTeachingContentFromPrompt(ctx, req)
	})
}

func (h *handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var body quizBody
	if !h.decode(w, r, &body) {
		return
	}
	req := tutor.QuizRequest{
		Topic:        body.Topic,
		NumQuestions: body.NumQuestions,
		Difficulty:   body.Difficulty,
		Context:      body.Context,
		Curriculum:   body.CurriculumContext,
		Provider:     identity(body.Provider),
	}
	race(h, w, r, func(ctx context.Context) (any, error) {
		return h.tutor.GenerateQuiz(ctx, req)
	})
}

// decode reads and struct-validates a request body. It writes the error
// response and returns false on failure.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, tutor.CodeValidation, "invalid request body: %v", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpError(w, http.StatusBadRequest, tutor.CodeValidation, "%s", validationMessage(err))
		return false
	}
	return true
}

// race runs fn on a context detached from the client and waits at most the
// request timeout. On expiry the caller gets a 504 and fn keeps running; its
// result is dropped.
func race[T any](h *handler, w http.ResponseWriter, r *http.Request, fn func(context.Context) (T, error)) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			writeServiceError(w, r, res.err)
			return
		}
		writeJSON(w, http.StatusOK, res.v)
	case <-timer.C:
		slog.Warn("request deadline exceeded",
			"request_id", tutor.RequestID(r.Context()),
			"path", r.URL.Path,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		httpError(w, http.StatusGatewayTimeout, tutor.CodeTimeout, "request timed out after %s", h.timeout)
	case <-r.Context().Done():
		slog.Debug("client went away", "request_id", tutor.RequestID(r.Context()), "path", r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func identity(s string) provider.Identity {
	id, _ := provider.ParseIdentity(s)
	return id
}
