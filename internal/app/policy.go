package app

import (
	"fmt"
	"strings"
)

// Progress is the answer coverage of the active question. Answered and Expected
// only count currently registered students; Total counts every accepted answer.
type Progress struct {
	Answered int
	Expected int
	Total    int
}

// ClosePolicy decides when an open question is closed.
type ClosePolicy interface {
	Name() string
	// ShouldClose is evaluated after every accepted answer and every departure.
	ShouldClose(p Progress) bool
	// AcceptsAfterClose reports whether answers are still taken once the question is closed.
	AcceptsAfterClose() bool
}

const (
	PolicyFirstAnswer = "first-answer"
	PolicyQuorum      = "quorum"
	PolicyManual      = "manual"
)

// FirstAnswerPolicy closes on the first accepted answer. Closing only unlocks the
// presenter; later answers keep counting until the question is superseded.
type FirstAnswerPolicy struct{}

func (FirstAnswerPolicy) Name() string                { return PolicyFirstAnswer }
func (FirstAnswerPolicy) ShouldClose(p Progress) bool { return p.Total > 0 }
func (FirstAnswerPolicy) AcceptsAfterClose() bool     { return true }

// QuorumPolicy waits until every registered student has answered.
type QuorumPolicy struct{}

func (QuorumPolicy) Name() string { return PolicyQuorum }
func (QuorumPolicy) ShouldClose(p Progress) bool {
	return p.Expected > 0 && p.Answered >= p.Expected
}
func (QuorumPolicy) AcceptsAfterClose() bool { return false }

// ManualPolicy only closes on an explicit presenter request.
type ManualPolicy struct{}

func (ManualPolicy) Name() string              { return PolicyManual }
func (ManualPolicy) ShouldClose(Progress) bool { return false }
func (ManualPolicy) AcceptsAfterClose() bool   { return false }

// ParseClosePolicy maps a config value to a policy; empty selects first-answer.
func ParseClosePolicy(name string) (ClosePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFirstAnswer:
		return FirstAnswerPolicy{}, nil
	case PolicyQuorum:
		return QuorumPolicy{}, nil
	case PolicyManual:
		return ManualPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown close policy %q", name)
}
