package domain

import (
	"strings"
	"time"
)

// Role distinguishes the presenter from the audience.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole maps a raw role string, defaulting to student.
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleTeacher)) {
		return RoleTeacher
	}
	return RoleStudent
}

// Participant is a connected student or teacher.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// State is the lifecycle state of the session's question.
type State string

const (
	StateIdle   State = "idle"
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// QuestionDraft is what a presenter submits before validation.
type QuestionDraft struct {
	Text          string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correctOption" yaml:"correctOption"`
}

// Validate checks the draft and returns a *ValidationError on failure.
func (d QuestionDraft) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	if len(d.Options) < 2 {
		return &ValidationError{Field: "options", Reason: "need at least two options"}
	}
	seen := make(map[string]struct{}, len(d.Options))
	for _, opt := range d.Options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" {
			return &ValidationError{Field: "options", Reason: "must not contain empty options"}
		}
		if _, dup := seen[trimmed]; dup {
			return &ValidationError{Field: "options", Reason: "must be unique"}
		}
		seen[trimmed] = struct{}{}
	}
	if d.CorrectOption < 0 || d.CorrectOption >= len(d.Options) {
		return &ValidationError{Field: "correctOption", Reason: "out of range"}
	}
	return nil
}

// Question is a published, immutable multiple-choice question.
type Question struct {
	Ref           string    `json:"ref"`
	Text          string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correctOption"`
	PublishedAt   time.Time `json:"publishedAt"`
}

// AnswerSubmission is an answer attempt from a participant.
type AnswerSubmission struct {
	Option      int
	StudentName string
	// QuestionRef is optional; when set it must match the active question.
	QuestionRef string
}

// AnswerRecord is an accepted answer. Never mutated.
type AnswerRecord struct {
	ParticipantID string    `json:"participantId"`
	QuestionRef   string    `json:"questionRef"`
	Option        int       `json:"option"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// AnswerReceipt tells the submitter how their answer landed.
type AnswerReceipt struct {
	QuestionRef string         `json:"questionRef"`
	Option      int            `json:"option"`
	Correct     bool           `json:"correct"`
	Snapshot    ResultSnapshot `json:"snapshot"`
}

// OptionResult is the aggregate for one option.
type OptionResult struct {
	Text       string  `json:"text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Correct    bool    `json:"correct"`
}

// ResultSnapshot is the derived aggregate of a question's answers.
type ResultSnapshot struct {
	QuestionRef    string         `json:"questionRef"`
	Question       string         `json:"question"`
	State          State          `json:"state"`
	OptionCounts   []int          `json:"optionCounts"`
	TotalResponses int            `json:"totalResponses"`
	Options        []OptionResult `json:"options"`
}

// HistoryEntry is a superseded question with its final results.
type HistoryEntry struct {
	Question     Question       `json:"question"`
	Results      ResultSnapshot `json:"results"`
	SupersededAt time.Time      `json:"supersededAt"`
}

// ChatMessage is a relayed chat line.
type ChatMessage struct {
	Sender  string    `json:"sender"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// SessionView is what a joining participant sees.
type SessionView struct {
	SessionID    string           `json:"sessionId"`
	Participant  Participant      `json:"participant"`
	State        State            `json:"state"`
	Question     *QuestionPayload `json:"question,omitempty"`
	Results      *ResultSnapshot  `json:"results,omitempty"`
	Participants int              `json:"participants"`
}

// BankQuestion is a stored question that can be published by id.
type BankQuestion struct {
	ID            string   `json:"id" yaml:"id"`
	Text          string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption int      `json:"correctOption" yaml:"correctOption"`
}

// Draft converts the stored question into a publishable draft.
func (b BankQuestion) Draft() QuestionDraft {
	return QuestionDraft{Text: b.Text, Options: append([]string(nil), b.Options...), CorrectOption: b.CorrectOption}
}
