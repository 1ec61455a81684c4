package domain

import (
	"errors"
	"testing"
)

func TestQuestionDraftValidate(t *testing.T) {
	cases := []struct {
		name  string
		draft QuestionDraft
		field string
	}{
		{"valid", QuestionDraft{Text: "2+2?", Options: []string{"3", "4", "5"}, CorrectOption: 1}, ""},
		{"empty text", QuestionDraft{Text: "  ", Options: []string{"a", "b"}}, "question"},
		{"one option", QuestionDraft{Text: "q", Options: []string{"a"}}, "options"},
		{"empty option", QuestionDraft{Text: "q", Options: []string{"a", " "}}, "options"},
		{"duplicate options", QuestionDraft{Text: "q", Options: []string{"yes", "yes"}}, "options"},
		{"duplicate after trim", QuestionDraft{Text: "q", Options: []string{"yes", " yes "}}, "options"},
		{"negative correct", QuestionDraft{Text: "q", Options: []string{"a", "b"}, CorrectOption: -1}, "correctOption"},
		{"correct out of range", QuestionDraft{Text: "q", Options: []string{"a", "b"}, CorrectOption: 2}, "correctOption"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected valid draft, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidQuestion) {
				t.Fatalf("expected ErrInvalidQuestion, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestNewQuestionPayloadHidesCorrectOption(t *testing.T) {
	q := Question{Ref: "r1", Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1}

	hidden := NewQuestionPayload(q, false)
	if hidden.CorrectOption != nil {
		t.Fatalf("expected correct option hidden, got %d", *hidden.CorrectOption)
	}
	shown := NewQuestionPayload(q, true)
	if shown.CorrectOption == nil || *shown.CorrectOption != 1 {
		t.Fatalf("expected correct option 1, got %v", shown.CorrectOption)
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole("Teacher") != RoleTeacher {
		t.Fatalf("expected teacher role")
	}
	if ParseRole("") != RoleStudent || ParseRole("admin") != RoleStudent {
		t.Fatalf("expected student fallback")
	}
}
