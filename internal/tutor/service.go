// Package tutor implements the tutoring operations: each validates its
// input, builds a prompt, dispatches it to a provider under the retry policy
// and normalizes the answer.
package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/tutorgw/internal/metrics"
	"github.com/kalambet/tutorgw/internal/normalize"
	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/retry"
	"github.com/kalambet/tutorgw/internal/storage"
	"github.com/kalambet/tutorgw/internal/validate"
)

// Quiz request bounds.
const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = 20
	DefaultDifficulty   = "medium"
)

// Difficulties lists the accepted quiz difficulty levels.
var Difficulties = []string{"easy", "medium", "hard"}

type DoubtRequest struct {
	Question   string
	Context    string
	Curriculum *CurriculumContext
	Provider   provider.Identity
}

type ContentRequest struct {
	Prompt     string
	Context    string
	Curriculum *CurriculumContext
	Provider   provider.Identity
}

type TeachingRequest struct {
	Topic      string
	Context    string
	Curriculum *CurriculumContext
	Provider   provider.Identity
}

// PromptRequest carries a prompt the caller already assembled. It is sent
// to the provider without templating.
type PromptRequest struct {
	Prompt   string
	Provider provider.Identity
}

type QuizRequest struct {
	Topic        string
	NumQuestions int
	Difficulty   string
	Context      string
	Curriculum   *CurriculumContext
	Provider     provider.Identity
}

const (
	opDoubt          = "doubt"
	opContent        = "content"
	opTeaching       = "teaching"
	opTeachingPrompt = "teaching_prompt"
	opQuiz           = "quiz"
)

// Service is safe for concurrent use.
type Service struct {
	providers *provider.Set
	retry     *retry.Orchestrator
	avail     *provider.AvailabilityCache
	journal   Journal
}

// Journal stores one record per finished operation.
type Journal interface {
	SaveInteraction(storage.Interaction) error
}

// NewService wires the façade. orch is copied per call, so callers must not
// mutate it afterwards.
func NewService(providers *provider.Set, orch *retry.Orchestrator) *Service {
	return &Service{
		providers: providers,
		retry:     orch,
		avail:     provider.NewAvailabilityCache(provider.DefaultAvailabilityTTL, providers.Availability),
	}
}

// SetJournal enables request journaling. Call it before serving requests.
func (s *Service) SetJournal(j Journal) {
	s.journal = j
}

// DefaultProvider returns the provider used when a request names none.
func (s *Service) DefaultProvider() provider.Identity {
	return s.providers.Default()
}

// Availability reports which providers are configured. The answer may be up
// to five minutes old.
func (s *Service) Availability() provider.Availability {
	return s.avail.Get()
}

func (s *Service) ResolveDoubt(ctx context.Context, req DoubtRequest) (normalize.DoubtResolution, error) {
	tr := s.begin(ctx, opDoubt)
	if err := firstErr(validate.Prompt("question", req.Question), validate.Context(req.Context), checkProvider(req.Provider)); err != nil {
		return normalize.DoubtResolution{}, s.fail(ctx, tr, err)
	}

	raw, err := s.dispatch(ctx, tr, req.Provider, doubtPrompt(req))
	if err != nil {
		return normalize.DoubtResolution{}, s.fail(ctx, tr, err)
	}

	logState(ctx, opDoubt, "normalizing")
	d := normalize.Doubt(raw)
	if d.Degraded {
		metrics.RecordDegraded(opDoubt)
	}
	s.done(ctx, tr)
	return d, nil
}

func (s *Service) GenerateContent(ctx context.Context, req ContentRequest) (normalize.GeneratedContent, error) {
	tr := s.begin(ctx, opContent)
	if err := firstErr(validate.Prompt("prompt", req.Prompt), validate.Context(req.Context), checkProvider(req.Provider)); err != nil {
		return normalize.GeneratedContent{}, s.fail(ctx, tr, err)
	}

	raw, err := s.dispatch(ctx, tr, req.Provider, contentPrompt(req))
	if err != nil {
		return normalize.GeneratedContent{}, s.fail(ctx, tr, err)
	}

	logState(ctx, opContent, "normalizing")
	c := normalize.Content(raw)
	if c.Degraded {
		metrics.RecordDegraded(opContent)
	}
	s.done(ctx, tr)
	return c, nil
}

func (s *Service) GenerateTeachingContent(ctx context.Context, req TeachingRequest) (normalize.TeachingContent, error) {
	tr := s.begin(ctx, opTeaching)
	if err := firstErr(validate.Topic("topic", req.Topic), validate.Context(req.Context), checkProvider(req.Provider)); err != nil {
		return normalize.TeachingContent{}, s.fail(ctx, tr, err)
	}
	return s.teaching(ctx, tr, req.Provider, teachingPrompt(req))
}

// GenerateTeachingContentFromPrompt skips templating and sends req.Prompt
// as is.
func (s *Service) GenerateTeachingContentFromPrompt(ctx context.Context, req PromptRequest) (normalize.TeachingContent, error) {
	tr := s.begin(ctx, opTeachingPrompt)
	if err := firstErr(validate.Prompt("prompt", req.Prompt), checkProvider(req.Provider)); err != nil {
		return normalize.TeachingContent{}, s.fail(ctx, tr, err)
	}
	return s.teaching(ctx, tr, req.Provider, req.Prompt)
}

func (s *Service) teaching(ctx context.Context, tr *trace, id provider.Identity, prompt string) (normalize.TeachingContent, error) {
	raw, err := s.dispatch(ctx, tr, id, prompt)
	if err != nil {
		return normalize.TeachingContent{}, s.fail(ctx, tr, err)
	}

	logState(ctx, tr.op, "normalizing")
	tc, err := normalize.Teaching(raw)
	if err != nil {
		slog.Warn("tutor: unusable teaching content", "request_id", RequestID(ctx), "error", err, "response", raw)
		return normalize.TeachingContent{}, s.fail(ctx, tr, err)
	}
	s.done(ctx, tr)
	return tc, nil
}

func (s *Service) GenerateQuiz(ctx context.Context, req QuizRequest) (normalize.Quiz, error) {
	tr := s.begin(ctx, opQuiz)
	if req.NumQuestions == 0 {
		req.NumQuestions = DefaultNumQuestions
	}
	req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	if req.Difficulty == "" {
		req.Difficulty = DefaultDifficulty
	}
	if err := firstErr(
		validate.Topic("topic", req.Topic),
		validate.Range("numQuestions", req.NumQuestions, 1, MaxNumQuestions),
		validate.OneOf("difficulty", req.Difficulty, Difficulties...),
		validate.Context(req.Context),
		checkProvider(req.Provider),
	); err != nil {
		return normalize.Quiz{}, s.fail(ctx, tr, err)
	}

	raw, err := s.dispatch(ctx, tr, req.Provider, quizPrompt(req))
	if err != nil {
		return normalize.Quiz{}, s.fail(ctx, tr, err)
	}

	logState(ctx, opQuiz, "normalizing")
	q, err := normalize.QuizOf(raw, strings.TrimSpace(req.Topic))
	if err != nil {
		slog.Warn("tutor: unusable quiz", "request_id", RequestID(ctx), "error", err, "response", raw)
		return normalize.Quiz{}, s.fail(ctx, tr, err)
	}
	s.done(ctx, tr)
	return q, nil
}

// dispatch selects the provider once and runs it under the retry policy.
// The provider is never swapped between attempts.
func (s *Service) dispatch(ctx context.Context, tr *trace, requested provider.Identity, prompt string) (string, error) {
	p := s.providers.Select(requested)
	id := string(p.ID())
	tr.provider = id
	reqID := RequestID(ctx)

	o := *s.retry
	o.Observer = func(a retry.Attempt) {
		tr.attempts = a.Index + 1
		metrics.RecordAttempt(id, string(a.Outcome), a.Elapsed)
		if a.Outcome == retry.Success {
			return
		}
		slog.Warn("tutor: provider attempt failed",
			"request_id", reqID,
			"operation", tr.op,
			"provider", id,
			"attempt", a.Index,
			"outcome", a.Outcome,
			"elapsed_ms", a.Elapsed.Milliseconds(),
			"error", a.Err,
		)
		if a.Outcome == retry.Retryable && a.Index < o.MaxRetries {
			logState(ctx, tr.op, "retrying")
		}
	}

	logState(ctx, tr.op, "dispatching", "provider", id)
	return o.Execute(ctx, func(ctx context.Context) (string, error) {
		return p.Complete(ctx, prompt, systemPrompt)
	})
}

// trace follows one operation from validation to its outcome.
type trace struct {
	op       string
	start    time.Time
	provider string
	attempts int
}

func (s *Service) begin(ctx context.Context, op string) *trace {
	logState(ctx, op, "validating")
	return &trace{op: op, start: time.Now()}
}

func (s *Service) fail(ctx context.Context, tr *trace, err error) error {
	code := Classify(err)
	logState(ctx, tr.op, "failed", "code", code, "error", err)
	metrics.RecordRequest(tr.op, string(code))
	s.record(ctx, tr, string(code), err)
	return err
}

func (s *Service) done(ctx context.Context, tr *trace) {
	logState(ctx, tr.op, "done")
	metrics.RecordRequest(tr.op, "ok")
	s.record(ctx, tr, "ok", nil)
}

// record writes the outcome to the journal. Journal failures are logged and
// never change the result returned to the caller.
func (s *Service) record(ctx context.Context, tr *trace, result string, err error) {
	if s.journal == nil {
		return
	}
	in := storage.Interaction{
		RequestID:  RequestID(ctx),
		CreatedAt:  tr.start,
		Operation:  tr.op,
		Provider:   tr.provider,
		Result:     result,
		Attempts:   tr.attempts,
		DurationMS: time.Since(tr.start).Milliseconds(),
	}
	if err != nil {
		in.Error = err.Error()
	}
	if jerr := s.journal.SaveInteraction(in); jerr != nil {
		slog.Warn("tutor: failed to record interaction", "request_id", in.RequestID, "error", jerr)
	}
}

func logState(ctx context.Context, op, state string, args ...any) {
	attrs := append([]any{"request_id", RequestID(ctx), "operation", op, "state", state}, args...)
	slog.DebugContext(ctx, "tutor: state", attrs...)
}

func checkProvider(id provider.Identity) error {
	if id == "" {
		return nil
	}
	return validate.OneOf("provider", string(id), string(provider.General), string(provider.Native))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
