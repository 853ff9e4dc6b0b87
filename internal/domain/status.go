package domain

import "fmt"

// ClaimStatus is the lifecycle state of a Claim.
type ClaimStatus string

const (
	StatusPending    ClaimStatus = "pending"
	StatusProcessing ClaimStatus = "processing"
	StatusCompleted  ClaimStatus = "completed"
	StatusFailed     ClaimStatus = "failed"
)

// transitions lists, for each status, the statuses it may move to.
var transitions = map[ClaimStatus][]ClaimStatus{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  nil,
	StatusFailed:     nil,
}

func ParseClaimStatus(s string) (ClaimStatus, error) {
	st := ClaimStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown claim status %q", s)
	}
	return st, nil
}

func (s ClaimStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s ClaimStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s ClaimStatus) CanTransitionTo(to ClaimStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedSources returns the statuses from which a claim may move to `to`.
// Storage backends use it to guard status updates with a single conditional write.
func AllowedSources(to ClaimStatus) []ClaimStatus {
	var from []ClaimStatus
	for _, s := range []ClaimStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		if s.CanTransitionTo(to) {
			from = append(from, s)
		}
	}
	return from
}

func (s ClaimStatus) String() string {
	return string(s)
}
