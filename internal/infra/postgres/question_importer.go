package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"live-poll-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID        string              `bun:"id,pk"`
	Data      domain.BankQuestion `bun:"data,type:jsonb"`
	UpdatedAt time.Time           `bun:"updated_at"`
}

// QuestionImporter upserts bank questions.
type QuestionImporter struct {
	db  *bun.DB
	now func() time.Time
}

func NewQuestionImporter(db *bun.DB) *QuestionImporter {
	return &QuestionImporter{db: db, now: time.Now}
}

// Import validates every question and rejects repeated ids, then upserts them
// in one statement.
func (i *QuestionImporter) Import(ctx context.Context, questions []domain.BankQuestion) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	now := i.now()
	rows := make([]questionRow, 0, len(questions))
	seen := make(map[string]struct{}, len(questions))
	for idx, q := range questions {
		if q.ID == "" {
			return 0, fmt.Errorf("question #%d: missing id", idx+1)
		}
		// one upsert cannot touch the same row twice
		if _, dup := seen[q.ID]; dup {
			return 0, fmt.Errorf("question %s: duplicate id in batch", q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := q.Draft().Validate(); err != nil {
			return 0, fmt.Errorf("question %s: %w", q.ID, err)
		}
		rows = append(rows, questionRow{ID: q.ID, Data: q, UpdatedAt: now})
	}
	if _, err := i.upsertQuery(&rows).Exec(ctx); err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	return len(rows), nil
}

func (i *QuestionImporter) upsertQuery(rows *[]questionRow) *bun.InsertQuery {
	return i.db.NewInsert().
		Model(rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at")
}
