package domain

// EventType names an event pushed from the session to every subscriber.
type EventType string

const (
	EventNewQuestion EventType = "newQuestion"
	EventPollResults EventType = "pollResults"
	EventChatMessage EventType = "chatMessage"
)

// QuestionPayload is the wire form of a published question.
// CorrectOption is nil when the session hides the answer until results arrive.
type QuestionPayload struct {
	Ref           string   `json:"ref"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correctOption,omitempty"`
}

// NewQuestionPayload builds the broadcast form of q.
func NewQuestionPayload(q Question, discloseCorrect bool) QuestionPayload {
	payload := QuestionPayload{
		Ref:      q.Ref,
		Question: q.Text,
		Options:  append([]string(nil), q.Options...),
	}
	if discloseCorrect {
		correct := q.CorrectOption
		payload.CorrectOption = &correct
	}
	return payload
}

// AllValues carries the submission that triggered a result broadcast.
// Option and StudentName are empty for broadcasts not caused by an answer (e.g. manual close).
type AllValues struct {
	Option       *int            `json:"option,omitempty"`
	StudentName  string          `json:"studentName,omitempty"`
	QuestionData QuestionPayload `json:"questionData"`
}

// PollResults is the `pollResults` event payload.
type PollResults struct {
	AllValues   AllValues      `json:"allValues"`
	PollResults []int          `json:"pollResults"`
	Snapshot    ResultSnapshot `json:"snapshot"`
}

// Event is a single ordered broadcast. Exactly one of the payload pointers is set.
type Event struct {
	Seq      uint64
	Type     EventType
	Question *QuestionPayload
	Results  *PollResults
	Chat     *ChatMessage
}

// Payload returns the payload matching Type.
func (e Event) Payload() any {
	switch e.Type {
	case EventNewQuestion:
		return e.Question
	case EventPollResults:
		return e.Results
	case EventChatMessage:
		return e.Chat
	}
	return nil
}
