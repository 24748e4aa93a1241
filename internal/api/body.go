package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/tutorgw/internal/tutor"
)

// Request bodies. Tags check shape only; text length bounds are enforced by
// the tutor service so every entry point shares them.

type doubtBody struct {
	Question          string                   `json:"question"`
	Context           string                   `json:"context" validate:"max=32000"`
	CurriculumContext *tutor.CurriculumContext `json:"curriculumContext"`
	Provider          string                   `json:"provider" validate:"omitempty,oneof=general native"`
}

type contentBody struct {
	Prompt            string                   `json:"prompt"`
	Context           string                   `json:"context" validate:"max=32000"`
	CurriculumContext *tutor.CurriculumContext `json:"curriculumContext"`
	Provider          string                   `json:"provider" validate:"omitempty,oneof=general native"`
}

type teachingBody struct {
	Topic             string                   `json:"topic"`
	Context           string                   `json:"context" validate:"max=32000"`
	CurriculumContext *tutor.CurriculumContext `json:"curriculumContext"`
	Provider          string                   `json:"provider" validate:"omitempty,oneof=general native"`
}

type promptBody struct {
	Prompt   string `json:"prompt"`
	Provider string `json:"provider" validate:"omitempty,oneof=general native"`
}

type quizBody struct {
	Topic             string                   `json:"topic"`
	NumQuestions      int                      `json:"numQuestions" validate:"omitempty,min=1,max=20"`
	Difficulty        string                   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Context           string                   `json:"context" validate:"max=32000"`
	CurriculumContext *tutor.CurriculumContext `json:"curriculumContext"`
	Provider          string                   `json:"provider" validate:"omitempty,oneof=general native"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
