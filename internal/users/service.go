package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/predictpay/backend/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type Service interface {
	Register(ctx context.Context, name, email string) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAny(ctx context.Context, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) Register(ctx context.Context, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	return s.repo.Create(ctx, name, email)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *service) GetAny(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.repo.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
