package service

import (
	"context"
	"errors"
	"testing"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHouseService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	_, addr := testKey(1)
	url := "https://house.example.com/hook"

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, h *domain.House) (bool, error) {
			assert.Equal(t, addr, h.Address)
			assert.Equal(t, "Lucky One", h.Name)
			assert.Equal(t, &url, h.WebhookURL)
			assert.False(t, h.CreatedAt.IsZero())
			return true, nil
		})

	house, err := svc.Register(context.Background(), ports.RegisterHouseRequest{
		Address:    addr,
		Name:       "Lucky One",
		WebhookURL: &url,
	})
	require.NoError(t, err)
	assert.Equal(t, addr, house.Address)
	assert.True(t, house.HasWebhook())
}

func TestHouseService_Register_AlreadyRegistered(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(false, nil)

	_, addr := testKey(1)
	_, err := svc.Register(context.Background(), ports.RegisterHouseRequest{Address: addr, Name: "Dup"})
	assertAppError(t, err, "HOUSE_001")
}

func TestHouseService_Register_DBError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	_, addr := testKey(1)
	_, err := svc.Register(context.Background(), ports.RegisterHouseRequest{Address: addr, Name: "X"})
	assertAppError(t, err, "SYS_001")
}

func TestHouseService_GetProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	_, addr := testKey(2)
	repo.EXPECT().Get(gomock.Any(), addr).Return(&domain.House{Address: addr, Name: "Two"}, nil)

	house, err := svc.GetProfile(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "Two", house.Name)
}

func TestHouseService_GetProfile_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, addr := testKey(2)
	_, err := svc.GetProfile(context.Background(), addr)
	assertAppError(t, err, "LEDGER_004")
}

func TestHouseService_UpdateWebhookURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	_, addr := testKey(3)
	url := "https://new.example.com/hook"
	repo.EXPECT().Get(gomock.Any(), addr).Return(&domain.House{Address: addr}, nil)
	repo.EXPECT().UpdateWebhookURL(gomock.Any(), addr, &url).Return(nil)

	assert.NoError(t, svc.UpdateWebhookURL(context.Background(), addr, &url))
}

func TestHouseService_UpdateWebhookURL_NotRegistered(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHouseRepository(ctrl)
	svc := NewHouseService(repo, zerolog.Nop())

	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, addr := testKey(3)
	err := svc.UpdateWebhookURL(context.Background(), addr, nil)
	assertAppError(t, err, "LEDGER_004")
}
