package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"live-poll-service/internal/domain"
)

// QuestionLoader fetches stored questions from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.BankQuestion, error)
}

// QuestionBank caches bank questions in Redis and falls back to a loader on miss.
// Each question is stored as JSON: SET poll:question:{id} {json} EX ttl
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) GetQuestion(ctx context.Context, questionID string) (domain.BankQuestion, error) {
	if q, ok := b.cached(ctx, questionID); ok {
		return q, nil
	}

	result, err, _ := b.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := b.cached(ctx, questionID); ok {
			return q, nil
		}

		q, err := b.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.BankQuestion{}, err
		}

		if raw, err := json.Marshal(q); err == nil {
			_ = b.client.Set(ctx, b.key(questionID), raw, b.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.BankQuestion{}, err
	}
	return result.(domain.BankQuestion), nil
}

// Invalidate drops a cached question, e.g. after an import rewrote it.
func (b *QuestionBank) Invalidate(ctx context.Context, questionID string) error {
	return b.client.Del(ctx, b.key(questionID)).Err()
}

func (b *QuestionBank) cached(ctx context.Context, questionID string) (domain.BankQuestion, bool) {
	raw, err := b.client.Get(ctx, b.key(questionID)).Bytes()
	if err != nil {
		return domain.BankQuestion{}, false
	}
	var q domain.BankQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		// corrupt entry; let the loader replace it
		_ = b.client.Del(ctx, b.key(questionID)).Err()
		return domain.BankQuestion{}, false
	}
	return q, true
}

func (b *QuestionBank) key(questionID string) string {
	return "poll:question:" + questionID
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
