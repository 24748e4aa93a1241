package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/retry"
	"github.com/kalambet/tutorgw/internal/storage"
	"github.com/kalambet/tutorgw/internal/validate"
)

// stubProvider records every prompt it is asked to complete.
type stubProvider struct {
	id         provider.Identity
	configured bool
	reply      string
	err        error

	mu      sync.Mutex
	prompts []string
	systems []string
}

func (s *stubProvider) ID() provider.Identity { return s.id }
func (s *stubProvider) Configured() bool      { return s.configured }

func (s *stubProvider) Complete(_ context.Context, prompt, system string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, system)
	return s.reply, s.err
}

func (s *stubProvider) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newService(t *testing.T, general, nativ provider.Provider) *Service {
	t.Helper()
	set, err := provider.NewSet(provider.General, general, nativ)
	if err != nil {
		t.Fatal(err)
	}
	o := retry.NewOrchestrator(retry.MinTimeout)
	o.InitialDelay = time.Millisecond
	return NewService(set, o)
}

const doubtReply = `Here you go:
{"explanation":"Inertia is the resistance of an object to changes in its motion.",
 "examples":["Passengers lurch forward when a bus brakes"],
 "quizQuestion":{"question":"Which property measures inertia?","options":["Mass","Volume","Colour","Charge"],"correctAnswer":0,"explanation":"More mass, more inertia."}}`

func TestResolveDoubt_DefaultProvider(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, reply: doubtReply}
	nativ := &stubProvider{id: provider.Native, configured: true}
	svc := newService(t, general, nativ)

	d, err := svc.ResolveDoubt(context.Background(), DoubtRequest{Question: "What is inertia?", Context: "Physics"})
	if err != nil {
		t.Fatalf("ResolveDoubt: %v", err)
	}
	if d.Explanation == "" {
		t.Error("empty explanation")
	}
	if d.Examples == nil {
		t.Error("examples is nil, want an array")
	}
	if d.QuizQuestion != nil && len(d.QuizQuestion.Options) != 4 {
		t.Errorf("quizQuestion options = %v", d.QuizQuestion.Options)
	}
	if general.calls() != 1 || nativ.calls() != 0 {
		t.Errorf("calls general=%d native=%d", general.calls(), nativ.calls())
	}
	if !strings.Contains(general.prompts[0], "What is inertia?") || !strings.Contains(general.prompts[0], "Physics") {
		t.Errorf("prompt = %q", general.prompts[0])
	}
	if general.systems[0] == "" {
		t.Error("system prompt not sent")
	}
}

func TestValidationFailure_NoProviderCall(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, reply: "{}"}
	svc := newService(t, general, &stubProvider{id: provider.Native})
	ctx := context.Background()

	calls := []func() error{
		func() error { _, err := svc.ResolveDoubt(ctx, DoubtRequest{Question: "   "}); return err },
		func() error {
			_, err := svc.ResolveDoubt(ctx, DoubtRequest{Question: strings.Repeat("a", validate.MaxPromptLen+1)})
			return err
		},
		func() error { _, err := svc.GenerateContent(ctx, ContentRequest{Prompt: ""}); return err },
		func() error { _, err := svc.GenerateTeachingContent(ctx, TeachingRequest{Topic: strings.Repeat("t", 501)}); return err },
		func() error { _, err := svc.GenerateTeachingContentFromPrompt(ctx, PromptRequest{Prompt: "\n\t"}); return err },
		func() error { _, err := svc.GenerateQuiz(ctx, QuizRequest{Topic: ""}); return err },
		func() error { _, err := svc.GenerateQuiz(ctx, QuizRequest{Topic: "Algebra", NumQuestions: 21}); return err },
		func() error { _, err := svc.GenerateQuiz(ctx, QuizRequest{Topic: "Algebra", Difficulty: "extreme"}); return err },
		func() error { _, err := svc.ResolveDoubt(ctx, DoubtRequest{Question: "q", Provider: "openai"}); return err },
		func() error {
			_, err := svc.ResolveDoubt(ctx, DoubtRequest{Question: "q", Context: strings.Repeat("c", validate.MaxPromptLen+1)})
			return err
		},
		func() error {
			_, err := svc.GenerateContent(ctx, ContentRequest{Prompt: "p", Context: strings.Repeat("c", validate.MaxPromptLen+1)})
			return err
		},
		func() error {
			_, err := svc.GenerateTeachingContent(ctx, TeachingRequest{Topic: "t", Context: strings.Repeat("c", validate.MaxPromptLen+1)})
			return err
		},
		func() error {
			_, err := svc.GenerateQuiz(ctx, QuizRequest{Topic: "t", Context: strings.Repeat("c", validate.MaxPromptLen+1)})
			return err
		},
	}
	for i, call := range calls {
		err := call()
		if Classify(err) != CodeValidation {
			t.Errorf("call %d: err = %v, want validation error", i, err)
		}
	}
	if n := general.calls(); n != 0 {
		t.Errorf("provider called %d times, want 0", n)
	}
}

func TestBothUnconfigured_NotConfigured(t *testing.T) {
	svc := newService(t, provider.NewGeneral(provider.GeneralConfig{}), provider.NewNative(provider.NativeConfig{}))
	ctx := context.Background()

	errs := []error{}
	_, err := svc.ResolveDoubt(ctx, DoubtRequest{Question: "What is inertia?"})
	errs = append(errs, err)
	_, err = svc.GenerateContent(ctx, ContentRequest{Prompt: "Write a poem"})
	errs = append(errs, err)
	_, err = svc.GenerateTeachingContent(ctx, TeachingRequest{Topic: "Optics"})
	errs = append(errs, err)
	_, err = svc.GenerateQuiz(ctx, QuizRequest{Topic: "Optics"})
	errs = append(errs, err)

	for i, err := range errs {
		if !errors.Is(err, provider.ErrNotConfigured) {
			t.Errorf("call %d: err = %v, want ErrNotConfigured", i, err)
		}
		if Classify(err) != CodeNotConfigured {
			t.Errorf("call %d: code = %s", i, Classify(err))
		}
	}
}

func TestFallbackToOtherProvider(t *testing.T) {
	general := &stubProvider{id: provider.General}
	nativ := &stubProvider{id: provider.Native, configured: true, reply: "plain text"}
	svc := newService(t, general, nativ)

	c, err := svc.GenerateContent(context.Background(), ContentRequest{Prompt: "Explain gravity"})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if c.Content != "plain text" {
		t.Errorf("content = %q", c.Content)
	}
	if general.calls() != 0 || nativ.calls() != 1 {
		t.Errorf("calls general=%d native=%d", general.calls(), nativ.calls())
	}
}

func TestExplicitProviderNotSwapped(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, err: errors.New("upstream 500")}
	nativ := &stubProvider{id: provider.Native, configured: true, reply: doubtReply}
	svc := newService(t, general, nativ)

	_, err := svc.ResolveDoubt(context.Background(), DoubtRequest{Question: "q", Provider: provider.General})
	if err == nil {
		t.Fatal("expected error")
	}
	if general.calls() != 3 {
		t.Errorf("general calls = %d, want 3", general.calls())
	}
	if nativ.calls() != 0 {
		t.Errorf("native called %d times after dispatch began", nativ.calls())
	}
	if Classify(err) != CodeUpstream {
		t.Errorf("code = %s", Classify(err))
	}
}

func TestGenerateQuiz(t *testing.T) {
	reply := `{"questions":[{"question":"2+3?","options":["4","5","6","7"],"correctAnswer":"B","explanation":"add"}]}`
	general := &stubProvider{id: provider.General, configured: true, reply: reply}
	svc := newService(t, general, &stubProvider{id: provider.Native})

	q, err := svc.GenerateQuiz(context.Background(), QuizRequest{Topic: " Addition "})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if q.Topic != "Addition" || len(q.Questions) != 1 || q.Questions[0].CorrectAnswerIndex != 1 {
		t.Errorf("quiz = %+v", q)
	}
	if p := general.prompts[0]; !strings.Contains(p, "exactly 5 questions") || !strings.Contains(p, "medium") {
		t.Errorf("prompt = %q", p)
	}
}

func TestGenerateTeachingContent_NormalizationFailure(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, reply: "I cannot help with that."}
	svc := newService(t, general, &stubProvider{id: provider.Native})

	_, err := svc.GenerateTeachingContent(context.Background(), TeachingRequest{Topic: "Optics"})
	if Classify(err) != CodeNormalization {
		t.Errorf("err = %v, want normalization failure", err)
	}
}

func TestGenerateTeachingContentFromPrompt_PassesPromptThrough(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, reply: `{"title":"Waves"}`}
	svc := newService(t, general, &stubProvider{id: provider.Native})

	prompt := "Build a five-section lesson on waves for grade 9."
	tc, err := svc.GenerateTeachingContentFromPrompt(context.Background(), PromptRequest{Prompt: prompt})
	if err != nil {
		t.Fatalf("GenerateTeachingContentFromPrompt: %v", err)
	}
	if tc.Title != "Waves" {
		t.Errorf("title = %q", tc.Title)
	}
	if general.prompts[0] != prompt {
		t.Errorf("prompt = %q, want it unchanged", general.prompts[0])
	}
}

func TestAvailability(t *testing.T) {
	svc := newService(t,
		&stubProvider{id: provider.General, configured: true},
		&stubProvider{id: provider.Native},
	)
	a := svc.Availability()
	if !a.General || a.Native {
		t.Errorf("Availability() = %+v", a)
	}
}

type memJournal struct {
	mu      sync.Mutex
	records []storage.Interaction
	err     error
}

func (j *memJournal) SaveInteraction(in storage.Interaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, in)
	return j.err
}

func TestJournal_RecordsOutcomes(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, err: errors.New("upstream 500")}
	nativ := &stubProvider{id: provider.Native, configured: true, reply: doubtReply}
	svc := newService(t, general, nativ)
	j := &memJournal{}
	svc.SetJournal(j)

	ctx := WithRequestID(context.Background(), "req-42")
	if _, err := svc.ResolveDoubt(ctx, DoubtRequest{Question: "q", Provider: provider.Native}); err != nil {
		t.Fatalf("native: %v", err)
	}
	svc.ResolveDoubt(ctx, DoubtRequest{Question: "q", Provider: provider.General})
	svc.ResolveDoubt(ctx, DoubtRequest{Question: "  "})

	if len(j.records) != 3 {
		t.Fatalf("records = %d, want 3", len(j.records))
	}

	ok := j.records[0]
	if ok.RequestID != "req-42" || ok.Operation != "doubt" || ok.Provider != "native" || ok.Result != "ok" || ok.Attempts != 1 {
		t.Errorf("success record = %+v", ok)
	}

	failed := j.records[1]
	if failed.Provider != "general" || failed.Result != string(CodeUpstream) || failed.Attempts != 3 || failed.Error == "" {
		t.Errorf("failure record = %+v", failed)
	}

	invalid := j.records[2]
	if invalid.Result != string(CodeValidation) || invalid.Provider != "" || invalid.Attempts != 0 {
		t.Errorf("validation record = %+v", invalid)
	}
}

func TestJournal_FailureDoesNotFailRequest(t *testing.T) {
	general := &stubProvider{id: provider.General, configured: true, reply: "plain text"}
	svc := newService(t, general, &stubProvider{id: provider.Native})
	svc.SetJournal(&memJournal{err: errors.New("disk full")})

	c, err := svc.GenerateContent(context.Background(), ContentRequest{Prompt: "write"})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if c.Content != "plain text" {
		t.Errorf("content = %q", c.Content)
	}
}

func TestJournal_SQLite(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	reply := `{"questions":[{"question":"2+3?","options":["4","5"],"correctAnswerIndex":1}]}`
	general := &stubProvider{id: provider.General, configured: true, reply: reply}
	svc := newService(t, general, &stubProvider{id: provider.Native})
	svc.SetJournal(store)

	ctx := WithRequestID(context.Background(), "quiz-1")
	if _, err := svc.GenerateQuiz(ctx, QuizRequest{Topic: "Addition"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetInteraction("quiz-1")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.Operation != "quiz" || got.Result != "ok" || got.Provider != "general" {
		t.Errorf("stored = %+v", got)
	}
}
