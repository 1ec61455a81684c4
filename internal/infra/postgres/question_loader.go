package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-poll-service/internal/domain"
)

// QuestionLoader loads bank questions stored as JSONB in Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, questionID string) (domain.BankQuestion, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id=$1`, questionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BankQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.BankQuestion{}, fmt.Errorf("load question: %w", err)
	}
	var q domain.BankQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.BankQuestion{}, fmt.Errorf("unmarshal question: %w", err)
	}
	q.ID = questionID
	return q, nil
}
