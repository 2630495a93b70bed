package service

import (
	"time"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
)

// endorsementSnapshot is the audit payload for endorsement transitions.
type endorsementSnapshot struct {
	State           models.EndorsementState `json:"state"`
	ActivityMinutes int                     `json:"activity_minutes"`
	LastWarnedAt    *time.Time              `json:"last_warned_at,omitempty"`
	RemovedAt       *time.Time              `json:"removed_at,omitempty"`
}

func snapshotEndorsement(e *models.Endorsement) endorsementSnapshot {
	return endorsementSnapshot{
		State:           e.State,
		ActivityMinutes: e.ActivityMinutes,
		LastWarnedAt:    e.LastWarnedAt,
		RemovedAt:       e.RemovedAt,
	}
}

// waitingListSnapshot is the audit payload for waiting-list transitions.
type waitingListSnapshot struct {
	State      models.WaitingListState `json:"state"`
	ClaimantID *string                 `json:"claimant_id,omitempty"`
	Remarks    string                  `json:"remarks,omitempty"`
}

func snapshotWaitingList(e *models.WaitingListEntry) waitingListSnapshot {
	return waitingListSnapshot{
		State:      e.State,
		ClaimantID: e.ClaimantID,
		Remarks:    e.Remarks,
	}
}
