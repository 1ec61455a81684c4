package app

import (
	"math"

	"live-poll-service/internal/domain"
)

// aggregator holds the answers for a single question.
type aggregator struct {
	counts  []int
	records map[string]domain.AnswerRecord
}

func newAggregator(options int) *aggregator {
	return &aggregator{
		counts:  make([]int, options),
		records: make(map[string]domain.AnswerRecord),
	}
}

func (a *aggregator) record(rec domain.AnswerRecord) error {
	if rec.Option < 0 || rec.Option >= len(a.counts) {
		return domain.ErrOptionOutOfRange
	}
	if _, ok := a.records[rec.ParticipantID]; ok {
		return domain.ErrDuplicateSubmission
	}
	a.records[rec.ParticipantID] = rec
	a.counts[rec.Option]++
	return nil
}

func (a *aggregator) answered(participantID string) bool {
	_, ok := a.records[participantID]
	return ok
}

// computeSnapshot derives the aggregate view; it has no side effects.
func computeSnapshot(q domain.Question, counts []int, state domain.State) domain.ResultSnapshot {
	total := 0
	for _, c := range counts {
		total += c
	}
	options := make([]domain.OptionResult, len(q.Options))
	for i, text := range q.Options {
		count := 0
		if i < len(counts) {
			count = counts[i]
		}
		options[i] = domain.OptionResult{
			Text:       text,
			Count:      count,
			Percentage: percentage(count, total),
			Correct:    i == q.CorrectOption,
		}
	}
	return domain.ResultSnapshot{
		QuestionRef:    q.Ref,
		Question:       q.Text,
		State:          state,
		OptionCounts:   append([]int(nil), counts...),
		TotalResponses: total,
		Options:        options,
	}
}

// percentage is count/total*100 rounded to two decimals, 0 when nobody answered.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(total)) / 100
}
