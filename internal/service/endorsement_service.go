package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/internal/repository"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

type endorsementRepository interface {
	FindByID(ctx context.Context, id string) (*models.Endorsement, error)
	List(ctx context.Context, filter models.EndorsementFilter) ([]models.Endorsement, int, error)
	Create(ctx context.Context, endorsement *models.Endorsement) error
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GrantEndorsementRequest describes a new endorsement grant.
type GrantEndorsementRequest struct {
	ControllerID string                 `json:"controller_id" validate:"required"`
	Position     string                 `json:"position" validate:"required"`
	Tier         models.EndorsementTier `json:"tier" validate:"required,oneof=TIER1 TIER2"`
}

type rosterPage struct {
	Endorsements []models.Endorsement `json:"endorsements"`
	Total        int                  `json:"total"`
}

// EndorsementService exposes the endorsement roster to the admin UI and
// handles grants. Lifecycle state is otherwise owned by the removal
// evaluator and the activity sync.
type EndorsementService struct {
	repo      endorsementRepository
	cache     rosterCache
	cacheTTL  time.Duration
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEndorsementService constructs EndorsementService. The cache may be nil.
func NewEndorsementService(repo endorsementRepository, cache rosterCache, cacheTTL time.Duration, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *EndorsementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EndorsementService{repo: repo, cache: cache, cacheTTL: cacheTTL, audit: audit, validator: validate, logger: logger}
}

// List returns endorsements with pagination metadata, served from cache
// when a fresh copy exists.
func (s *EndorsementService) List(ctx context.Context, filter models.EndorsementFilter) ([]models.Endorsement, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	key := rosterCacheKey(filter, page, size)
	if s.cache != nil {
		var cached rosterPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Endorsements, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
		} else if err != repository.ErrCacheMiss {
			s.logger.Warn("roster cache read failed", zap.Error(err))
		}
	}

	endorsements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list endorsements")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rosterPage{Endorsements: endorsements, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("roster cache write failed", zap.Error(err))
		}
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return endorsements, pagination, nil
}

// Get returns one endorsement by ID.
func (s *EndorsementService) Get(ctx context.Context, id string) (*models.Endorsement, error) {
	endorsement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "endorsement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load endorsement")
	}
	return endorsement, nil
}

// Grant creates a new ACTIVE endorsement and audits the grant.
func (s *EndorsementService) Grant(ctx context.Context, actor models.Actor, req GrantEndorsementRequest) (*models.Endorsement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}

	endorsement := &models.Endorsement{
		ControllerID: req.ControllerID,
		Position:     req.Position,
		Tier:         req.Tier,
		State:        models.EndorsementStateActive,
	}
	if err := s.repo.Create(ctx, endorsement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create endorsement")
	}

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionEndorsementGranted,
		SubjectKind: models.SubjectEndorsement,
		SubjectID:   endorsement.ID,
		New:         snapshotEndorsement(endorsement),
	}); err != nil {
		return nil, err
	}

	s.invalidateRoster(ctx)
	return endorsement, nil
}

func (s *EndorsementService) invalidateRoster(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "roster:*"); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.Error(err))
	}
}

func rosterCacheKey(filter models.EndorsementFilter, page, size int) string {
	return fmt.Sprintf("roster:%s:%s:%s:%s:%d:%d:%s:%s",
		filter.ControllerID, filter.Position, filter.Tier, filter.State, page, size, filter.SortBy, filter.SortOrder)
}
