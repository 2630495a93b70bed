package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
)

type auditLogRepoStub struct {
	created []models.AuditLog
	err     error
}

func (r *auditLogRepoStub) Create(ctx context.Context, entry *models.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, *entry)
	return nil
}

func (r *auditLogRepoStub) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	return r.created, len(r.created), nil
}

func (r *auditLogRepoStub) ListBySubject(ctx context.Context, kind models.SubjectKind, subjectID string) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, e := range r.created {
		if e.SubjectKind == kind && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *auditLogRepoStub) ListByActor(ctx context.Context, actorID string) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, e := range r.created {
		if e.ActorID != nil && *e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestAuditRecordMarshalsSnapshots(t *testing.T) {
	repo := &auditLogRepoStub{}
	svc := NewAuditService(repo, nil)

	old := waitingListSnapshot{State: models.WaitingListStateWaiting}
	claimant := "mentor-1"
	updated := waitingListSnapshot{State: models.WaitingListStateClaimed, ClaimantID: &claimant}

	err := svc.Record(context.Background(), RecordParams{
		Actor:       models.Actor{ID: "mentor-1", Role: models.RoleMentor, IPAddress: "10.0.0.1", UserAgent: "test"},
		Action:      models.AuditActionWaitingListClaimed,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   "wl-1",
		Old:         old,
		New:         updated,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	entry := repo.created[0]
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "mentor-1", *entry.ActorID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)

	var oldDecoded, newDecoded waitingListSnapshot
	require.NoError(t, json.Unmarshal(entry.OldValues, &oldDecoded))
	require.NoError(t, json.Unmarshal(entry.NewValues, &newDecoded))
	assert.Equal(t, models.WaitingListStateWaiting, oldDecoded.State)
	require.NotNil(t, newDecoded.ClaimantID)
	assert.Equal(t, "mentor-1", *newDecoded.ClaimantID)
}

func TestAuditRecordSystemActorHasNilReference(t *testing.T) {
	repo := &auditLogRepoStub{}
	svc := NewAuditService(repo, nil)

	err := svc.Record(context.Background(), RecordParams{
		Actor:       models.System,
		Action:      models.AuditActionEndorsementRemoved,
		SubjectKind: models.SubjectEndorsement,
		SubjectID:   "e1",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].ActorID)
	assert.Equal(t, "system performed endorsement.removed on endorsement e1", repo.created[0].Description)
}

func TestAuditRecordStorageFailureSurfaces(t *testing.T) {
	repo := &auditLogRepoStub{err: fmt.Errorf("disk full")}
	svc := NewAuditService(repo, nil)

	err := svc.Record(context.Background(), RecordParams{
		Actor:       models.System,
		Action:      models.AuditActionEndorsementWarned,
		SubjectKind: models.SubjectEndorsement,
		SubjectID:   "e1",
	})
	require.Error(t, err)
}

func TestAuditListBySubjectSurvivesSubjectRemoval(t *testing.T) {
	repo := &auditLogRepoStub{}
	svc := NewAuditService(repo, nil)

	for _, action := range []string{
		models.AuditActionEndorsementWarned,
		models.AuditActionEndorsementRemoved,
	} {
		require.NoError(t, svc.Record(context.Background(), RecordParams{
			Actor:       models.System,
			Action:      action,
			SubjectKind: models.SubjectEndorsement,
			SubjectID:   "e1",
		}))
	}

	trail, err := svc.ListBySubject(context.Background(), models.SubjectEndorsement, "e1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.AuditActionEndorsementWarned, trail[0].Action)
	assert.Equal(t, models.AuditActionEndorsementRemoved, trail[1].Action)
}
