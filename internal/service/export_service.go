package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
	"github.com/noah-isme/atc-endorsement-api/pkg/export"
)

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type urlSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

type auditTrailReader interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

// Supported export formats.
const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult describes a stored export and its signed download token.
type ExportResult struct {
	ExportID  string    `json:"export_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Rows      int       `json:"rows"`
}

// ExportService renders audit trail extracts to CSV or PDF and stores them
// behind signed download tokens for the admin UI.
type ExportService struct {
	audit   auditTrailReader
	storage exportStorage
	signer  urlSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(audit auditTrailReader, storage exportStorage, signer urlSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		audit:   audit,
		storage: storage,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportAuditTrail renders the filtered audit trail and returns a signed
// download token.
func (s *ExportService) ExportAuditTrail(ctx context.Context, filter models.AuditLogFilter, format ExportFormat) (*ExportResult, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	entries, _, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := auditDataset(entries)
	var payload []byte
	switch format {
	case FormatCSV:
		payload, err = s.csv.Render(dataset)
	case FormatPDF:
		payload, err = s.pdf.Render(dataset, "Audit Trail")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	relPath := fmt.Sprintf("audit/%s.%s", exportID, format)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export token")
	}

	s.logger.Info("audit trail exported",
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.Int("rows", len(entries)))

	return &ExportResult{ExportID: exportID, Token: token, ExpiresAt: expiresAt, Rows: len(entries)}, nil
}

// Download validates the token and returns the stored bytes.
func (s *ExportService) Download(token string) ([]byte, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	data, err := s.storage.Read(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
	}
	return data, relPath, nil
}

func auditDataset(entries []models.AuditLog) export.Dataset {
	headers := []string{"Timestamp", "Actor", "Action", "Subject", "Description"}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		actor := "system"
		if e.ActorID != nil {
			actor = *e.ActorID
		}
		rows = append(rows, map[string]string{
			"Timestamp":   e.CreatedAt.Format(time.RFC3339),
			"Actor":       actor,
			"Action":      e.Action,
			"Subject":     fmt.Sprintf("%s/%s", e.SubjectKind, e.SubjectID),
			"Description": e.Description,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
