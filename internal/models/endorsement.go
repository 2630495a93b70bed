package models

import "time"

// EndorsementTier distinguishes primary and supplementary endorsements.
type EndorsementTier string

// Supported endorsement tiers.
const (
	TierOne EndorsementTier = "TIER1"
	TierTwo EndorsementTier = "TIER2"
)

// EndorsementState represents the lifecycle of an endorsement.
type EndorsementState string

// Possible endorsement states. REMOVED is terminal.
const (
	EndorsementStateActive  EndorsementState = "ACTIVE"
	EndorsementStateWarned  EndorsementState = "WARNED"
	EndorsementStateRemoved EndorsementState = "REMOVED"
)

// Endorsement authorizes a controller to staff a position. The activity
// record lives on the same row because it shares the endorsement's lifetime.
type Endorsement struct {
	ID           string           `db:"id" json:"id"`
	ControllerID string           `db:"controller_id" json:"controller_id"`
	Position     string           `db:"position" json:"position"`
	Tier         EndorsementTier  `db:"tier" json:"tier"`
	State        EndorsementState `db:"state" json:"state"`
	GrantedAt    time.Time        `db:"granted_at" json:"granted_at"`
	LastWarnedAt *time.Time       `db:"last_warned_at" json:"last_warned_at,omitempty"`
	RemovedAt    *time.Time       `db:"removed_at" json:"removed_at,omitempty"`

	// Rolling activity figure over the configured lookback window.
	ActivityMinutes int        `db:"activity_minutes" json:"activity_minutes"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	LastActiveAt    *time.Time `db:"last_active_at" json:"last_active_at,omitempty"`
}

// Terminal reports whether no further lifecycle changes may be applied.
func (e *Endorsement) Terminal() bool {
	return e.State == EndorsementStateRemoved
}

// EndorsementFilter provides filters for listing endorsements.
type EndorsementFilter struct {
	ControllerID string
	Position     string
	Tier         EndorsementTier
	State        EndorsementState
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// EndorsementTransition names a lifecycle change applied by the policy
// evaluator or the activity sync.
type EndorsementTransition string

// Transitions carried by audit entries and notifications.
const (
	TransitionWarned      EndorsementTransition = "warned"
	TransitionRemoved     EndorsementTransition = "removed"
	TransitionReactivated EndorsementTransition = "reactivated"
)
