package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		kind Kind
	}{
		{"ok", "What is inertia?", MaxPromptLen, ""},
		{"empty", "", MaxPromptLen, Empty},
		{"whitespace only", " \n\t ", MaxPromptLen, Empty},
		{"exactly max", strings.Repeat("a", MaxTopicLen), MaxTopicLen, ""},
		{"max after trim", "  " + strings.Repeat("a", MaxTopicLen) + "  ", MaxTopicLen, ""},
		{"one over", strings.Repeat("a", MaxPromptLen+1), MaxPromptLen, TooLong},
		{"runes not bytes", strings.Repeat("é", MaxTopicLen), MaxTopicLen, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Text("question", tt.in, tt.max)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("Text() = %v, want nil", err)
				}
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Text() = %v, want *Error", err)
			}
			if verr.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", verr.Kind, tt.kind)
			}
		})
	}
}

func TestError_MentionsLimit(t *testing.T) {
	err := Topic("topic", strings.Repeat("x", 501))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want it to mention the 500 limit", err.Error())
	}
	if !strings.Contains(err.Error(), "topic") {
		t.Errorf("error = %q, want it to name the field", err.Error())
	}
}

func TestRange(t *testing.T) {
	if err := Range("numQuestions", 5, 1, 20); err != nil {
		t.Errorf("Range(5) = %v", err)
	}
	err := Range("numQuestions", 21, 1, 20)
	if err == nil || !strings.Contains(err.Error(), "between 1 and 20") {
		t.Errorf("Range(21) = %v", err)
	}
}

func TestOneOf(t *testing.T) {
	if err := OneOf("difficulty", "hard", "easy", "medium", "hard"); err != nil {
		t.Errorf("OneOf(hard) = %v", err)
	}
	err := OneOf("difficulty", "extreme", "easy", "medium", "hard")
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != NotAllowed {
		t.Errorf("OneOf(extreme) = %v", err)
	}
}

func TestContext(t *testing.T) {
	for _, s := range []string{"", "   ", "Physics, chapter 3", strings.Repeat("é", MaxPromptLen)} {
		if err := Context(s); err != nil {
			t.Errorf("Context(%d runes) = %v, want nil", len([]rune(s)), err)
		}
	}

	err := Context(strings.Repeat("a", MaxPromptLen+1))
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != TooLong || verr.Field != "context" {
		t.Errorf("Context(too long) = %v, want context TooLong", err)
	}
}
