package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"live-poll-service/internal/domain"
)

// QuestionLoader fetches stored questions from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.BankQuestion, error)
}

// QuestionBank caches bank questions with TTL to avoid repeated DB hits.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.BankQuestion
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (b *QuestionBank) GetQuestion(ctx context.Context, questionID string) (domain.BankQuestion, error) {
	if q, ok := b.cached(questionID); ok {
		return q, nil
	}

	result, err, _ := b.sf.Do(questionID, func() (interface{}, error) {
		if q, ok := b.cached(questionID); ok {
			return q, nil
		}

		q, err := b.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.BankQuestion{}, err
		}

		expiresAt := b.clock().Add(b.ttlWithJitter())
		b.mu.Lock()
		b.cache[questionID] = cachedQuestion{question: q, expiresAt: expiresAt}
		b.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.BankQuestion{}, err
	}
	return result.(domain.BankQuestion), nil
}

func (b *QuestionBank) cached(questionID string) (domain.BankQuestion, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.cache[questionID]
	if !ok || !entry.expiresAt.After(b.clock()) {
		return domain.BankQuestion{}, false
	}
	return entry.question, true
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by an in-memory map (tests, demos, YAML files).
type StaticQuestionLoader struct {
	questions map[string]domain.BankQuestion
}

func NewStaticQuestionLoader(questions []domain.BankQuestion) *StaticQuestionLoader {
	m := make(map[string]domain.BankQuestion, len(questions))
	for _, q := range questions {
		m[q.ID] = q
	}
	return &StaticQuestionLoader{questions: m}
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, questionID string) (domain.BankQuestion, error) {
	if q, ok := l.questions[questionID]; ok {
		return q, nil
	}
	return domain.BankQuestion{}, domain.ErrQuestionNotFound
}

// QuestionFile is the YAML layout of a question bank file.
type QuestionFile struct {
	Questions []domain.BankQuestion `yaml:"questions"`
}

// LoadQuestionFile reads and validates a YAML question bank.
func LoadQuestionFile(path string) ([]domain.BankQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file QuestionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(file.Questions))
	for i, q := range file.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question #%d: missing id", i+1)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := q.Draft().Validate(); err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
	}
	return file.Questions, nil
}
