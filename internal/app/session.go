package app

import (
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"live-poll-service/internal/domain"
)

const subscriberBuffer = 64

// errSessionRetired is returned by a session the repository has already
// dropped; callers fetch the live session and retry.
var errSessionRetired = errors.New("session retired")

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithClock overrides time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithClosePolicy sets when open questions close. Defaults to FirstAnswerPolicy.
func WithClosePolicy(p ClosePolicy) SessionOption {
	return func(s *Session) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithDiscloseCorrect controls whether newQuestion events carry the correct option.
func WithDiscloseCorrect(disclose bool) SessionOption {
	return func(s *Session) { s.discloseCorrect = disclose }
}

// Session is the authoritative state of one poll: registry, active question,
// answers, history and subscribers. Every mutation happens under mu.
type Session struct {
	id              string
	createdAt       time.Time
	now             func() time.Time
	policy          ClosePolicy
	discloseCorrect bool

	mu           sync.Mutex
	seq          uint64
	retired      bool
	state        domain.State
	question     *domain.Question
	answers      *aggregator
	history      []domain.HistoryEntry
	participants map[string]*domain.Participant
	conns        map[string]int
	subscribers  map[chan domain.Event]struct{}
}

// NewSession is exported for infrastructure layers that create sessions.
func NewSession(id string, opts ...SessionOption) *Session {
	s := &Session{
		id:              id,
		now:             time.Now,
		policy:          FirstAnswerPolicy{},
		discloseCorrect: true,
		state:           domain.StateIdle,
		participants:    make(map[string]*domain.Participant),
		conns:           make(map[string]int),
		subscribers:     make(map[chan domain.Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsEmpty reports whether nobody is registered or subscribed and nothing was
// ever asked, i.e. dropping the session loses no state.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emptyLocked()
}

// RetireIfEmpty marks an empty session as retired and reports whether it did.
// Repositories call it under their own lock before dropping the session, so a
// caller still holding the old pointer cannot register into it.
func (s *Session) RetireIfEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return true
	}
	if !s.emptyLocked() {
		return false
	}
	s.retired = true
	return true
}

func (s *Session) emptyLocked() bool {
	return len(s.participants) == 0 && len(s.subscribers) == 0 &&
		s.question == nil && len(s.history) == 0
}

// ParticipantCount returns the number of registered participants.
func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// join counts one more connection for the participant.
func (s *Session) join(participantID, displayName string, role domain.Role) (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return domain.SessionView{}, errSessionRetired
	}
	return s.joinLocked(participantID, displayName, role), nil
}

// connect joins and subscribes under one lock hold: every event after the
// returned view reaches the channel, and nothing before it does.
func (s *Session) connect(participantID, displayName string, role domain.Role) (domain.SessionView, <-chan domain.Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return domain.SessionView{}, nil, nil, errSessionRetired
	}
	view := s.joinLocked(participantID, displayName, role)
	ch, cancel := s.subscribeLocked()
	return view, ch, cancel, nil
}

func (s *Session) joinLocked(participantID, displayName string, role domain.Role) domain.SessionView {
	p := s.registerLocked(participantID, displayName, role)
	s.conns[participantID]++
	view := domain.SessionView{
		SessionID:    s.id,
		Participant:  *p,
		State:        s.state,
		Participants: len(s.participants),
	}
	if s.question != nil {
		q := domain.NewQuestionPayload(*s.question, s.discloseLocked())
		view.Question = &q
		snap := s.visibleSnapshotLocked()
		view.Results = &snap
	}
	return view
}

// registerLocked creates or refreshes a participant. Role is only upgraded, never
// downgraded, so a presenter stays a presenter when chatting.
func (s *Session) registerLocked(participantID, displayName string, role domain.Role) *domain.Participant {
	if p, ok := s.participants[participantID]; ok {
		if displayName != "" {
			p.DisplayName = displayName
		}
		if role == domain.RoleTeacher {
			p.Role = role
		}
		return p
	}
	p := &domain.Participant{
		ID:          participantID,
		DisplayName: displayName,
		Role:        role,
		JoinedAt:    s.now(),
	}
	s.participants[participantID] = p
	return p
}

// leave drops one connection; the participant is unregistered with the last.
func (s *Session) leave(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[participantID]; !ok {
		return
	}
	if s.conns[participantID] > 1 {
		s.conns[participantID]--
		return
	}
	delete(s.conns, participantID)
	delete(s.participants, participantID)
	// A departure can complete a quorum.
	if s.applyPolicyLocked() {
		s.broadcastLocked(s.resultsEventLocked(nil, ""))
	}
}

func (s *Session) participantList() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Session) requirePresenterLocked(participantID string) error {
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.Role != domain.RoleTeacher {
		return domain.ErrNotPresenter
	}
	return nil
}

func (s *Session) publish(presenterID string, draft domain.QuestionDraft) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		return domain.Question{}, errSessionRetired
	}
	if err := s.requirePresenterLocked(presenterID); err != nil {
		return domain.Question{}, err
	}
	if s.state == domain.StateOpen {
		return domain.Question{}, domain.ErrQuestionInProgress
	}
	if err := draft.Validate(); err != nil {
		return domain.Question{}, err
	}

	now := s.now()
	s.supersedeLocked(now)

	options := make([]string, len(draft.Options))
	for i, opt := range draft.Options {
		options[i] = strings.TrimSpace(opt)
	}
	q := domain.Question{
		Ref:           uuid.NewString(),
		Text:          strings.TrimSpace(draft.Text),
		Options:       options,
		CorrectOption: draft.CorrectOption,
		PublishedAt:   now,
	}
	s.question = &q
	s.answers = newAggregator(len(options))
	s.state = domain.StateOpen

	payload := domain.NewQuestionPayload(q, s.discloseCorrect)
	s.broadcastLocked(domain.Event{Type: domain.EventNewQuestion, Question: &payload})
	return q, nil
}

// supersedeLocked archives the outgoing question. Entries are keyed by question
// text: a repeated wording keeps the first entry.
func (s *Session) supersedeLocked(at time.Time) {
	if s.question == nil {
		return
	}
	for _, entry := range s.history {
		if entry.Question.Text == s.question.Text {
			return
		}
	}
	s.history = append(s.history, domain.HistoryEntry{
		Question:     *s.question,
		Results:      s.snapshotLocked(),
		SupersededAt: at,
	})
}

func (s *Session) submit(participantID string, sub domain.AnswerSubmission) (domain.AnswerReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		return domain.AnswerReceipt{}, errSessionRetired
	}
	if s.question == nil {
		return domain.AnswerReceipt{}, domain.ErrNoActiveQuestion
	}
	if s.state == domain.StateClosed && !s.policy.AcceptsAfterClose() {
		return domain.AnswerReceipt{}, domain.ErrNoActiveQuestion
	}
	if sub.QuestionRef != "" && sub.QuestionRef != s.question.Ref {
		return domain.AnswerReceipt{}, domain.ErrStaleQuestion
	}
	if sub.Option < 0 || sub.Option >= len(s.question.Options) {
		return domain.AnswerReceipt{}, domain.ErrOptionOutOfRange
	}

	if s.answers.answered(participantID) {
		return domain.AnswerReceipt{}, domain.ErrDuplicateSubmission
	}

	p, ok := s.participants[participantID]
	if !ok {
		if strings.TrimSpace(sub.StudentName) == "" {
			return domain.AnswerReceipt{}, domain.ErrParticipantNotFound
		}
		p = s.registerLocked(participantID, strings.TrimSpace(sub.StudentName), domain.RoleStudent)
	}

	rec := domain.AnswerRecord{
		ParticipantID: participantID,
		QuestionRef:   s.question.Ref,
		Option:        sub.Option,
		SubmittedAt:   s.now(),
	}
	if err := s.answers.record(rec); err != nil {
		return domain.AnswerReceipt{}, err
	}

	s.applyPolicyLocked()

	// The registered name wins over whatever the payload claims.
	option := sub.Option
	ev := s.resultsEventLocked(&option, p.DisplayName)
	s.broadcastLocked(ev)

	return domain.AnswerReceipt{
		QuestionRef: s.question.Ref,
		Option:      sub.Option,
		Correct:     sub.Option == s.question.CorrectOption,
		Snapshot:    ev.Results.Snapshot,
	}, nil
}

// applyPolicyLocked moves Open to Closed when the policy says so and reports
// whether it did. Broadcasting is left to the caller.
func (s *Session) applyPolicyLocked() bool {
	if s.state != domain.StateOpen {
		return false
	}
	if !s.policy.ShouldClose(s.progressLocked()) {
		return false
	}
	s.state = domain.StateClosed
	return true
}

// progressLocked counts currently registered students; answers from students
// who already left stay in the tally but not in the quorum.
func (s *Session) progressLocked() Progress {
	var p Progress
	for id, participant := range s.participants {
		if participant.Role != domain.RoleStudent {
			continue
		}
		p.Expected++
		if s.answers != nil && s.answers.answered(id) {
			p.Answered++
		}
	}
	if s.answers != nil {
		p.Total = len(s.answers.records)
	}
	return p
}

// resultsEventLocked builds a pollResults event for the active question. option
// and name identify the triggering answer and are empty for closes.
func (s *Session) resultsEventLocked(option *int, name string) domain.Event {
	snap := s.visibleSnapshotLocked()
	return domain.Event{Type: domain.EventPollResults, Results: &domain.PollResults{
		AllValues: domain.AllValues{
			Option:       option,
			StudentName:  name,
			QuestionData: domain.NewQuestionPayload(*s.question, s.discloseLocked()),
		},
		PollResults: snap.OptionCounts,
		Snapshot:    snap,
	}}
}

func (s *Session) close(presenterID string) (domain.ResultSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		return domain.ResultSnapshot{}, errSessionRetired
	}
	if err := s.requirePresenterLocked(presenterID); err != nil {
		return domain.ResultSnapshot{}, err
	}
	if s.state != domain.StateOpen {
		return domain.ResultSnapshot{}, domain.ErrNoActiveQuestion
	}
	s.state = domain.StateClosed
	ev := s.resultsEventLocked(nil, "")
	s.broadcastLocked(ev)
	return ev.Results.Snapshot, nil
}

func (s *Session) results() (domain.ResultSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.question == nil {
		return domain.ResultSnapshot{}, false
	}
	return s.visibleSnapshotLocked(), true
}

func (s *Session) historyList() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryEntry(nil), s.history...)
}

func (s *Session) chat(participantID, sender, message string, maxLen int) (domain.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}
	if maxLen > 0 && len([]rune(message)) > maxLen {
		return domain.ChatMessage{}, domain.ErrMessageTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		return domain.ChatMessage{}, errSessionRetired
	}
	sender = strings.TrimSpace(sender)
	if p, ok := s.participants[participantID]; ok {
		if sender == "" {
			sender = p.DisplayName
		}
	} else {
		if sender == "" {
			return domain.ChatMessage{}, domain.ErrParticipantNotFound
		}
		s.registerLocked(participantID, sender, domain.RoleStudent)
	}

	msg := domain.ChatMessage{Sender: sender, Message: message, SentAt: s.now()}
	s.broadcastLocked(domain.Event{Type: domain.EventChatMessage, Chat: &msg})
	return msg, nil
}

func (s *Session) subscribe() (<-chan domain.Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return nil, nil, errSessionRetired
	}
	ch, cancel := s.subscribeLocked()
	return ch, cancel, nil
}

func (s *Session) subscribeLocked() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)
	s.subscribers[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLocked stamps ev with the next sequence number and hands it to every
// subscriber. A subscriber that cannot keep up is evicted instead of skipping
// events, so everyone still connected has seen the same sequence.
func (s *Session) broadcastLocked(ev domain.Event) {
	s.seq++
	ev.Seq = s.seq
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			delete(s.subscribers, ch)
			close(ch)
			log.Printf("session %s: evicted slow subscriber at seq %d", s.id, ev.Seq)
		}
	}
}

// discloseLocked reports whether the correct option may be shown right now.
// Hidden answers are revealed once the question closes.
func (s *Session) discloseLocked() bool {
	return s.discloseCorrect || s.state != domain.StateOpen
}

// visibleSnapshotLocked is the snapshot as participants see it.
func (s *Session) visibleSnapshotLocked() domain.ResultSnapshot {
	snap := s.snapshotLocked()
	if !s.discloseLocked() {
		for i := range snap.Options {
			snap.Options[i].Correct = false
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.ResultSnapshot {
	if s.question == nil {
		return domain.ResultSnapshot{State: s.state}
	}
	return computeSnapshot(*s.question, s.answers.counts, s.state)
}
