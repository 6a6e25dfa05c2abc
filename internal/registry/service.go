package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/predictpay/backend/internal/models"
)

// ErrModelNotFound is returned when a model id resolves to nothing usable.
var ErrModelNotFound = errors.New("model not found")

// Service is the prediction-model catalog. Each model carries a fixed
// per-call cost in cents; inactive models are hidden and not billable.
type Service interface {
	CreateModel(ctx context.Context, name, description string, costPerPrediction int64) (*models.Model, error)
	GetModel(ctx context.Context, id int32) (*models.Model, error)
	ListModels(ctx context.Context) ([]*models.Model, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) CreateModel(ctx context.Context, name, description string, costPerPrediction int64) (*models.Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("model name is required")
	}
	if costPerPrediction < 0 {
		return nil, errors.New("cost must not be negative")
	}
	return s.repo.Create(ctx, name, description, costPerPrediction)
}

func (s *service) GetModel(ctx context.Context, id int32) (*models.Model, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active {
		return nil, ErrModelNotFound
	}
	return m, nil
}

func (s *service) ListModels(ctx context.Context) ([]*models.Model, error) {
	return s.repo.ListActive(ctx)
}
