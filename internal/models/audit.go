package models

import "time"

// SubjectKind identifies the entity class an audit entry refers to. The
// reference is weak: entries stay queryable after the subject is removed.
type SubjectKind string

// Auditable subject kinds.
const (
	SubjectEndorsement      SubjectKind = "endorsement"
	SubjectWaitingListEntry SubjectKind = "waitinglistentry"
)

// AuditAction constants form the closed action vocabulary. Every lifecycle
// transition emits exactly one of these; routine activity refreshes that do
// not change state are not audited.
const (
	AuditActionEndorsementGranted     = "endorsement.granted"
	AuditActionEndorsementWarned      = "endorsement.warned"
	AuditActionEndorsementRemoved     = "endorsement.removed"
	AuditActionEndorsementReactivated = "endorsement.reactivated"

	AuditActionWaitingListCreated         = "waitinglistentry.created"
	AuditActionWaitingListClaimed         = "waitinglistentry.claimed"
	AuditActionWaitingListReleased        = "waitinglistentry.released"
	AuditActionWaitingListTrainingStarted = "waitinglistentry.training_started"
	AuditActionWaitingListLeft            = "waitinglistentry.left"
	AuditActionWaitingListRemarksUpdated  = "waitinglistentry.remarks_updated"
)

// AuditLog is an append-only record of one domain state change. A nil
// ActorID means the change was applied by the system itself.
type AuditLog struct {
	ID          string      `db:"id" json:"id"`
	ActorID     *string     `db:"actor_id" json:"actor_id,omitempty"`
	Action      string      `db:"action" json:"action"`
	SubjectKind SubjectKind `db:"subject_kind" json:"subject_kind"`
	SubjectID   string      `db:"subject_id" json:"subject_id"`
	OldValues   []byte      `db:"old_values" json:"old_values,omitempty"`
	NewValues   []byte      `db:"new_values" json:"new_values,omitempty"`
	Description string      `db:"description" json:"description"`
	IPAddress   string      `db:"ip_address" json:"ip_address"`
	UserAgent   string      `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// AuditLogFilter provides filters for querying the audit trail.
type AuditLogFilter struct {
	ActorID     string
	SubjectKind SubjectKind
	SubjectID   string
	Action      string
	Page        int
	PageSize    int
}
