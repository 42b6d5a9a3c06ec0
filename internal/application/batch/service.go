package batch

import (
	"context"
	"fmt"

	"github.com/go-batchform-api/internal/domain"
	"github.com/go-batchform-api/internal/pkg/clock"
	"github.com/go-batchform-api/internal/pkg/id"
	"github.com/go-batchform-api/internal/pkg/validate"
)

// Service manages batch forms. Every mutating operation checks ownership:
// a form can only be changed or removed by the user that created it.
type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateBatchFormRequest) (*domain.BatchForm, error)
	List(ctx context.Context) ([]domain.BatchForm, error)
	ListByUser(ctx context.Context, userID string) ([]domain.BatchForm, error)
	Get(ctx context.Context, batchFormID string) (*domain.BatchForm, error)
	Update(ctx context.Context, userID, batchFormID string, req domain.UpdateBatchFormRequest) (*domain.BatchForm, error)
	Delete(ctx context.Context, userID, batchFormID string) error
}

type batchStore interface {
	Put(ctx context.Context, b *domain.BatchForm) error
	Get(ctx context.Context, batchFormID string) (*domain.BatchForm, error)
	Scan(ctx context.Context) ([]domain.BatchForm, error)
	ListByUser(ctx context.Context, userID string) ([]domain.BatchForm, error)
	Update(ctx context.Context, batchFormID string, updates map[string]interface{}) (*domain.BatchForm, error)
	Delete(ctx context.Context, batchFormID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	batchRepo batchStore
	userRepo  userStore
	clk       clock.Clock
}

type ServiceDeps struct {
	BatchRepo batchStore
	UserRepo  userStore
	Clock     clock.Clock
}

func NewService(deps ServiceDeps) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &service{batchRepo: deps.BatchRepo, userRepo: deps.UserRepo, clk: clk}
}

func (s *service) Create(ctx context.Context, userID string, req domain.CreateBatchFormRequest) (*domain.BatchForm, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	if _, err := s.userRepo.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("owner not found: %w", domain.ErrNotFound)
	}
	now := s.clk.Now()
	b := &domain.BatchForm{
		BatchFormID: id.New(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.batchRepo.Put(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context) ([]domain.BatchForm, error) {
	return s.batchRepo.Scan(ctx)
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.BatchForm, error) {
	return s.batchRepo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, batchFormID string) (*domain.BatchForm, error) {
	return s.batchRepo.Get(ctx, batchFormID)
}

func (s *service) Update(ctx context.Context, userID, batchFormID string, req domain.UpdateBatchFormRequest) (*domain.BatchForm, error) {
	existing, err := s.batchRepo.Get(ctx, batchFormID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("batch form does not belong to user: %w", domain.ErrForbidden)
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		return existing, nil
	}
	updates["updated_at"] = s.clk.Now()
	return s.batchRepo.Update(ctx, batchFormID, updates)
}

func (s *service) Delete(ctx context.Context, userID, batchFormID string) error {
	existing, err := s.batchRepo.Get(ctx, batchFormID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return fmt.Errorf("batch form does not belong to user: %w", domain.ErrForbidden)
	}
	return s.batchRepo.Delete(ctx, batchFormID)
}
