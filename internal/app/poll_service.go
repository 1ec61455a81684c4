package app

import (
	"context"
	"errors"
	"fmt"

	"live-poll-service/internal/domain"
)

// DefaultSessionID names the single classroom session.
const DefaultSessionID = "classroom"

// SessionRepository abstracts how poll sessions are held (in-memory, Redis-marked, etc).
// DeleteIfEmpty must only drop a session whose RetireIfEmpty returned true.
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
	DeleteIfEmpty(sessionID string)
}

// QuestionBank loads stored questions that presenters can publish by id.
type QuestionBank interface {
	GetQuestion(ctx context.Context, questionID string) (domain.BankQuestion, error)
}

// Options tunes the service. Zero values select defaults.
type Options struct {
	SessionID     string
	ChatMaxLength int
}

// PollService contains the poll use cases for the classroom session.
type PollService struct {
	sessions SessionRepository
	bank     QuestionBank
	opts     Options
}

func NewPollService(store SessionRepository, bank QuestionBank, opts Options) *PollService {
	if opts.SessionID == "" {
		opts.SessionID = DefaultSessionID
	}
	return &PollService{sessions: store, bank: bank, opts: opts}
}

// SessionID returns the id of the session this service drives.
func (s *PollService) SessionID() string {
	return s.opts.SessionID
}

func (s *PollService) session() *Session {
	return s.sessions.GetOrCreate(s.opts.SessionID)
}

// onSession runs fn on the live session. A session retired between
// GetOrCreate and fn has already left the repository, so the retry gets its
// replacement.
func onSession[T any](s *PollService, fn func(*Session) (T, error)) (T, error) {
	for {
		v, err := fn(s.session())
		if !errors.Is(err, errSessionRetired) {
			return v, err
		}
	}
}

// Join registers a participant connection and returns what they should see.
// Each Join is balanced by one Leave.
func (s *PollService) Join(_ context.Context, participantID, displayName string, role domain.Role) (domain.SessionView, error) {
	if participantID == "" {
		return domain.SessionView{}, domain.ErrParticipantNotFound
	}
	return onSession(s, func(session *Session) (domain.SessionView, error) {
		return session.join(participantID, displayName, role)
	})
}

// Connection is a joined participant with its event stream.
type Connection struct {
	View   domain.SessionView
	Events <-chan domain.Event
	cancel func()
}

// Connect joins and subscribes atomically, so the view plus the events cover
// everything the participant is entitled to see. Close must be called once.
func (s *PollService) Connect(_ context.Context, participantID, displayName string, role domain.Role) (*Connection, error) {
	if participantID == "" {
		return nil, domain.ErrParticipantNotFound
	}
	return onSession(s, func(session *Session) (*Connection, error) {
		view, events, cancel, err := session.connect(participantID, displayName, role)
		if err != nil {
			return nil, err
		}
		return &Connection{
			View:   view,
			Events: events,
			cancel: func() {
				cancel()
				s.Leave(context.Background(), participantID)
			},
		}, nil
	})
}

// Close unsubscribes and leaves.
func (c *Connection) Close() {
	c.cancel()
}

// Leave removes a participant connection and drops the session if nothing is left in it.
func (s *PollService) Leave(_ context.Context, participantID string) {
	session, ok := s.sessions.Get(s.opts.SessionID)
	if !ok {
		return
	}
	session.leave(participantID)
	s.sessions.DeleteIfEmpty(s.opts.SessionID)
}

// Participants lists registered participants in join order.
func (s *PollService) Participants(_ context.Context) []domain.Participant {
	session, ok := s.sessions.Get(s.opts.SessionID)
	if !ok {
		return nil
	}
	return session.participantList()
}

// PublishQuestion validates the draft and opens it as the active question.
func (s *PollService) PublishQuestion(_ context.Context, presenterID string, draft domain.QuestionDraft) (domain.Question, error) {
	return onSession(s, func(session *Session) (domain.Question, error) {
		return session.publish(presenterID, draft)
	})
}

// PublishPreset publishes a question from the bank.
func (s *PollService) PublishPreset(ctx context.Context, presenterID, questionID string) (domain.Question, error) {
	if s.bank == nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	stored, err := s.bank.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("load preset %s: %w", questionID, err)
	}
	return onSession(s, func(session *Session) (domain.Question, error) {
		return session.publish(presenterID, stored.Draft())
	})
}

// SubmitAnswer records one answer for the active question and broadcasts the new results.
func (s *PollService) SubmitAnswer(_ context.Context, participantID string, submission domain.AnswerSubmission) (domain.AnswerReceipt, error) {
	return onSession(s, func(session *Session) (domain.AnswerReceipt, error) {
		return session.submit(participantID, submission)
	})
}

// CloseQuestion finalizes the active question on presenter request.
func (s *PollService) CloseQuestion(_ context.Context, presenterID string) (domain.ResultSnapshot, error) {
	return onSession(s, func(session *Session) (domain.ResultSnapshot, error) {
		return session.close(presenterID)
	})
}

// Results returns the snapshot of the active question, if any.
func (s *PollService) Results(_ context.Context) (domain.ResultSnapshot, bool) {
	session, ok := s.sessions.Get(s.opts.SessionID)
	if !ok {
		return domain.ResultSnapshot{}, false
	}
	return session.results()
}

// History returns superseded questions with their final results, oldest first.
func (s *PollService) History(_ context.Context) []domain.HistoryEntry {
	session, ok := s.sessions.Get(s.opts.SessionID)
	if !ok {
		return nil
	}
	return session.historyList()
}

// SendChat relays a chat message to everyone, the sender included.
func (s *PollService) SendChat(_ context.Context, participantID, sender, message string) (domain.ChatMessage, error) {
	return onSession(s, func(session *Session) (domain.ChatMessage, error) {
		return session.chat(participantID, sender, message, s.opts.ChatMaxLength)
	})
}

// Subscribe returns a channel receiving every session event in order.
// The caller must invoke the returned cancel function to avoid leaks. The
// channel is closed if the subscriber falls too far behind.
func (s *PollService) Subscribe(_ context.Context) (<-chan domain.Event, func(), error) {
	type subscription struct {
		ch     <-chan domain.Event
		cancel func()
	}
	sub, err := onSession(s, func(session *Session) (subscription, error) {
		ch, cancel, err := session.subscribe()
		return subscription{ch: ch, cancel: cancel}, err
	})
	if err != nil {
		return nil, nil, err
	}
	return sub.ch, sub.cancel, nil
}
