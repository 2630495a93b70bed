package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

type exportStorageStub struct {
	saved map[string][]byte
}

func newExportStorageStub() *exportStorageStub {
	return &exportStorageStub{saved: make(map[string][]byte)}
}

func (s *exportStorageStub) Save(filename string, data []byte) (string, error) {
	s.saved[filename] = data
	return filename, nil
}

func (s *exportStorageStub) Read(filename string) ([]byte, error) {
	data, ok := s.saved[filename]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return data, nil
}

type signerStub struct {
	tokens map[string]string
}

func newSignerStub() *signerStub {
	return &signerStub{tokens: make(map[string]string)}
}

func (s *signerStub) Generate(exportID, relPath string) (string, time.Time, error) {
	token := "tok-" + exportID
	s.tokens[token] = relPath
	return token, time.Now().Add(time.Hour), nil
}

func (s *signerStub) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	relPath, ok := s.tokens[token]
	if !ok {
		return "", "", time.Time{}, fmt.Errorf("signature mismatch")
	}
	return strings.TrimPrefix(token, "tok-"), relPath, time.Now().Add(time.Hour), nil
}

func seededAuditReader() *auditLogRepoStub {
	actor := "mentor-1"
	return &auditLogRepoStub{created: []models.AuditLog{
		{
			ID:          "a1",
			ActorID:     &actor,
			Action:      models.AuditActionWaitingListClaimed,
			SubjectKind: models.SubjectWaitingListEntry,
			SubjectID:   "wl-1",
			Description: "user mentor-1 performed waitinglistentry.claimed on waitinglistentry wl-1",
			CreatedAt:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:          "a2",
			Action:      models.AuditActionEndorsementRemoved,
			SubjectKind: models.SubjectEndorsement,
			SubjectID:   "e1",
			Description: "system performed endorsement.removed on endorsement e1",
			CreatedAt:   time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
		},
	}}
}

func TestExportAuditTrailCSVRoundTrip(t *testing.T) {
	store := newExportStorageStub()
	signer := newSignerStub()
	svc := NewExportService(seededAuditReader(), store, signer, nil)

	result, err := svc.ExportAuditTrail(context.Background(), models.AuditLogFilter{}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.NotEmpty(t, result.Token)

	data, relPath, err := svc.Download(result.Token)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(relPath, ".csv"))

	content := string(data)
	assert.Contains(t, content, "Timestamp,Actor,Action,Subject,Description")
	assert.Contains(t, content, "mentor-1")
	assert.Contains(t, content, "system")
	assert.Contains(t, content, "endorsement/e1")
}

func TestExportAuditTrailPDF(t *testing.T) {
	store := newExportStorageStub()
	svc := NewExportService(seededAuditReader(), store, newSignerStub(), nil)

	result, err := svc.ExportAuditTrail(context.Background(), models.AuditLogFilter{}, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	require.Len(t, store.saved, 1)
	for path, data := range store.saved {
		assert.True(t, strings.HasSuffix(path, ".pdf"))
		assert.True(t, strings.HasPrefix(string(data), "%PDF"))
	}
}

func TestExportAuditTrailRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(seededAuditReader(), newExportStorageStub(), newSignerStub(), nil)

	_, err := svc.ExportAuditTrail(context.Background(), models.AuditLogFilter{}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportDownloadRejectsBadToken(t *testing.T) {
	svc := NewExportService(seededAuditReader(), newExportStorageStub(), newSignerStub(), nil)

	_, _, err := svc.Download("forged")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
