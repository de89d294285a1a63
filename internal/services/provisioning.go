package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qrverify/internal/models"
	"qrverify/pkg/utils"
)

var (
	ErrEmptyDescription = errors.New("description cannot be empty")
	ErrIDSpaceExhausted = errors.New("could not find a free qr id")
)

const maxIDAttempts = 10

type RegistryWriter interface {
	Exists(ctx context.Context, qrID string) (bool, error)
	Create(ctx context.Context, code *models.QRCode) error
}

// ProvisioningService mints identifiers and registers them.
type ProvisioningService struct {
	registry    RegistryWriter
	idGenerator func() string
}

func NewProvisioningService(registry RegistryWriter) *ProvisioningService {
	return &ProvisioningService{
		registry:    registry,
		idGenerator: utils.GenerateQRID,
	}
}

func (s *ProvisioningService) CreateQRCode(ctx context.Context, description string) (*models.QRCode, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	var qrID string
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			return nil, ErrIDSpaceExhausted
		}
		candidate := s.idGenerator()
		taken, err := s.registry.Exists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !taken {
			qrID = candidate
			break
		}
	}

	code := &models.QRCode{
		QRID:        qrID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.registry.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to register qr code: %w", err)
	}
	return code, nil
}
