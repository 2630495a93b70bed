package models

import "time"

// WaitingListState represents the lifecycle of a waiting-list entry.
type WaitingListState string

// Possible waiting-list states. LEFT is terminal.
const (
	WaitingListStateWaiting    WaitingListState = "WAITING"
	WaitingListStateClaimed    WaitingListState = "CLAIMED"
	WaitingListStateInTraining WaitingListState = "IN_TRAINING"
	WaitingListStateLeft       WaitingListState = "LEFT"
)

// WaitingListEntry captures a trainee's position in a course queue.
// CLAIMED and IN_TRAINING entries always carry a claimant.
type WaitingListEntry struct {
	ID         string           `db:"id" json:"id"`
	TraineeID  string           `db:"trainee_id" json:"trainee_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	State      WaitingListState `db:"state" json:"state"`
	ClaimantID *string          `db:"claimant_id" json:"claimant_id,omitempty"`
	Remarks    string           `db:"remarks" json:"remarks"`
	JoinedAt   time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt     *time.Time       `db:"left_at" json:"left_at,omitempty"`
}

// Terminal reports whether the entry can no longer change state.
func (e *WaitingListEntry) Terminal() bool {
	return e.State == WaitingListStateLeft
}

// ClaimedBy reports whether actorID currently holds the claim.
func (e *WaitingListEntry) ClaimedBy(actorID string) bool {
	return e.ClaimantID != nil && *e.ClaimantID == actorID
}

// WaitingListFilter provides filters for listing waiting-list entries.
type WaitingListFilter struct {
	TraineeID  string
	CourseID   string
	ClaimantID string
	State      WaitingListState
	Page       int
	PageSize   int
}
