package normalize

import (
	"math"
	"strconv"
	"strings"
)

// QuizQuestion is a multiple-choice question with exactly four options.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// DoubtResolution answers a student's question.
type DoubtResolution struct {
	Explanation  string        `json:"explanation"`
	Examples     []string      `json:"examples"`
	QuizQuestion *QuizQuestion `json:"quizQuestion"`

	// Degraded is set when no JSON could be recovered and the raw text was
	// used as the explanation.
	Degraded bool `json:"-"`
}

// GeneratedContent is free-form generated text.
type GeneratedContent struct {
	Content string `json:"content"`

	Degraded bool `json:"-"`
}

// Section is one titled part of a lesson.
type Section struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Examples []string `json:"examples"`
}

// TeachingContent is a structured lesson.
type TeachingContent struct {
	Title             string    `json:"title"`
	Introduction      string    `json:"introduction"`
	Sections          []Section `json:"sections"`
	KeyPoints         []string  `json:"keyPoints"`
	Summary           string    `json:"summary"`
	PracticeQuestions []string  `json:"practiceQuestions"`
}

// Quiz is a set of multiple-choice questions on a topic.
type Quiz struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
}

// Doubt never fails. Without a recoverable object the raw text becomes the
// explanation.
func Doubt(raw string) DoubtResolution {
	obj, err := ExtractObject(raw)
	if err != nil {
		return DoubtResolution{Explanation: raw, Examples: []string{}, Degraded: true}
	}

	d := DoubtResolution{
		Explanation: str(obj, "explanation"),
		Examples:    strs(obj, "examples"),
	}
	if q, ok := obj["quizQuestion"].(map[string]any); ok {
		if qq, ok := quizQuestion(q); ok {
			d.QuizQuestion = &qq
		}
	}
	if strings.TrimSpace(d.Explanation) == "" {
		d.Explanation = raw
		d.Degraded = true
	}
	return d
}

// Content never fails. A "content" string field is used when the model
// answered with JSON; otherwise the trimmed text is returned as is.
func Content(raw string) GeneratedContent {
	if obj, err := ExtractObject(raw); err == nil {
		if c := str(obj, "content"); strings.TrimSpace(c) != "" {
			return GeneratedContent{Content: c}
		}
	}
	return GeneratedContent{Content: strings.TrimSpace(raw), Degraded: true}
}

// Teaching fails when no object is recoverable or the object carries none of
// title, introduction and sections.
func Teaching(raw string) (TeachingContent, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return TeachingContent{}, &Error{Shape: "teaching content", Reason: "unparsable response", Err: err}
	}

	tc := TeachingContent{
		Title:             str(obj, "title"),
		Introduction:      str(obj, "introduction"),
		Sections:          []Section{},
		KeyPoints:         strs(obj, "keyPoints"),
		Summary:           str(obj, "summary"),
		PracticeQuestions: strs(obj, "practiceQuestions"),
	}
	for _, s := range objects(obj, "sections") {
		sec := Section{
			Title:    str(s, "title"),
			Content:  str(s, "content"),
			Examples: strs(s, "examples"),
		}
		if sec.Title == "" && sec.Content == "" {
			continue
		}
		tc.Sections = append(tc.Sections, sec)
	}

	if tc.Title == "" && tc.Introduction == "" && len(tc.Sections) == 0 {
		return TeachingContent{}, &Error{Shape: "teaching content", Reason: "no usable fields"}
	}
	return tc, nil
}

// QuizOf fails when no object is recoverable or no question survives
// validation. topic is used when the model omitted one.
func QuizOf(raw, topic string) (Quiz, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return Quiz{}, &Error{Shape: "quiz", Reason: "unparsable response", Err: err}
	}

	q := Quiz{Topic: str(obj, "topic"), Questions: []QuizQuestion{}}
	if strings.TrimSpace(q.Topic) == "" {
		q.Topic = topic
	}
	for _, m := range objects(obj, "questions") {
		if qq, ok := quizQuestion(m); ok {
			q.Questions = append(q.Questions, qq)
		}
	}
	if len(q.Questions) == 0 {
		return Quiz{}, &Error{Shape: "quiz", Reason: "no valid questions"}
	}
	return q, nil
}

func quizQuestion(m map[string]any) (QuizQuestion, bool) {
	q := QuizQuestion{
		Question:    strings.TrimSpace(str(m, "question")),
		Explanation: str(m, "explanation"),
	}
	if q.Question == "" {
		return QuizQuestion{}, false
	}

	arr, ok := m["options"].([]any)
	if !ok || len(arr) != 4 {
		return QuizQuestion{}, false
	}
	for _, v := range arr {
		s, ok := v.(string)
		if !ok {
			return QuizQuestion{}, false
		}
		q.Options = append(q.Options, s)
	}

	v, ok := m["correctAnswerIndex"]
	if !ok {
		v = m["correctAnswer"]
	}
	idx, ok := answerIndex(v, q.Options)
	if !ok {
		return QuizQuestion{}, false
	}
	q.CorrectAnswerIndex = idx
	return q, true
}

// answerIndex accepts a 0-based index, a letter A-D, or the option text.
func answerIndex(v any, options []string) (int, bool) {
	switch a := v.(type) {
	case float64:
		if a != math.Trunc(a) || a < 0 || a >= float64(len(options)) {
			return 0, false
		}
		return int(a), true
	case string:
		s := strings.TrimSpace(a)
		if len(s) == 1 {
			c := s[0] | 0x20
			if c >= 'a' && c < 'a'+byte(len(options)) {
				return int(c - 'a'), true
			}
		}
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(options) {
			return n, true
		}
		for i, o := range options {
			if strings.EqualFold(strings.TrimSpace(o), s) {
				return i, true
			}
		}
	}
	return 0, false
}
