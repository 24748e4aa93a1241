package tutor

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a patient, accurate tutor for school and exam students. Explain concepts step by step in clear language suited to the student's level. When asked for JSON, your output must be ONLY a single valid JSON object with the requested fields. Do not include any other text or markdown.`

const doubtInstructions = `Resolve the student's doubt. Respond with a JSON object:
{"explanation": string, "examples": [string], "quizQuestion": {"question": string, "options": [4 strings], "correctAnswer": index 0-3, "explanation": string}}
quizQuestion may be null when a check question would not help.`

const teachingInstructions = `Write a structured lesson on the topic. Respond with a JSON object:
{"title": string, "introduction": string, "sections": [{"title": string, "content": string, "examples": [string]}], "keyPoints": [string], "summary": string, "practiceQuestions": [string]}`

const quizInstructions = `Write a multiple-choice quiz with exactly %d questions at %s difficulty. Every question has exactly 4 options and one correct answer. Respond with a JSON object:
{"topic": string, "questions": [{"question": string, "options": [4 strings], "correctAnswer": index 0-3, "explanation": string}]}`

// CurriculumContext locates a request within a syllabus. Every field is
// optional.
type CurriculumContext struct {
	Board   string `json:"board,omitempty"`
	Grade   string `json:"grade,omitempty"`
	Exam    string `json:"exam,omitempty"`
	Subject string `json:"subject,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

// write appends one line per present field. Absent fields leave no trace.
func (c *CurriculumContext) write(sb *strings.Builder) {
	if c == nil {
		return
	}
	fields := []struct{ label, value string }{
		{"Board", c.Board},
		{"Grade", c.Grade},
		{"Exam", c.Exam},
		{"Subject", c.Subject},
		{"Topic", c.Topic},
	}
	header := false
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		if !header {
			sb.WriteString("\n\n[Curriculum]")
			header = true
		}
		fmt.Fprintf(sb, "\n%s: %s", f.label, v)
	}
}

func writeContext(sb *strings.Builder, context string) {
	if c := strings.TrimSpace(context); c != "" {
		fmt.Fprintf(sb, "\n\n[Context]\n%s", c)
	}
}

func doubtPrompt(r DoubtRequest) string {
	var sb strings.Builder
	sb.WriteString(doubtInstructions)
	fmt.Fprintf(&sb, "\n\n[Question]\n%s", strings.TrimSpace(r.Question))
	writeContext(&sb, r.Context)
	r.Curriculum.write(&sb)
	return sb.String()
}

func contentPrompt(r ContentRequest) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(r.Prompt))
	writeContext(&sb, r.Context)
	r.Curriculum.write(&sb)
	return sb.String()
}

func teachingPrompt(r TeachingRequest) string {
	var sb strings.Builder
	sb.WriteString(teachingInstructions)
	fmt.Fprintf(&sb, "\n\n[Topic]\n%s", strings.TrimSpace(r.Topic))
	writeContext(&sb, r.Context)
	r.Curriculum.write(&sb)
	return sb.String()
}

func quizPrompt(r QuizRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, quizInstructions, r.NumQuestions, r.Difficulty)
	fmt.Fprintf(&sb, "\n\n[Topic]\n%s", strings.TrimSpace(r.Topic))
	writeContext(&sb, r.Context)
	r.Curriculum.write(&sb)
	return sb.String()
}
