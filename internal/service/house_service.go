package service

import (
	"context"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"

	"github.com/rs/zerolog"
)

type houseService struct {
	houses ports.HouseRepository
	log    zerolog.Logger
}

// NewHouseService creates a new house registry service.
func NewHouseService(houses ports.HouseRepository, log zerolog.Logger) ports.HouseService {
	return &houseService{houses: houses, log: log}
}

func (s *houseService) Register(ctx context.Context, req ports.RegisterHouseRequest) (*domain.House, error) {
	now := time.Now().UTC()
	house := &domain.House{
		Address:    req.Address,
		Name:       req.Name,
		WebhookURL: req.WebhookURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.houses.Create(ctx, house)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if !created {
		return nil, apperror.ErrHouseAlreadyRegistered()
	}

	s.log.Info().Str("house", req.Address.String()).Str("name", req.Name).Msg("house registered")
	return house, nil
}

func (s *houseService) GetProfile(ctx context.Context, address domain.Address) (*domain.House, error) {
	house, err := s.houses.Get(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if house == nil {
		return nil, apperror.ErrNotFound("house")
	}
	return house, nil
}

// UpdateWebhookURL sets the URL notifications go to. A nil URL turns them off.
func (s *houseService) UpdateWebhookURL(ctx context.Context, address domain.Address, webhookURL *string) error {
	house, err := s.houses.Get(ctx, address)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if house == nil {
		return apperror.ErrNotFound("house")
	}

	if err := s.houses.UpdateWebhookURL(ctx, address, webhookURL); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	return nil
}
