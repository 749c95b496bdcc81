package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
)

type ServiceRequestService struct {
	repo   ports.ServiceRequestRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewServiceRequestService(repo ports.ServiceRequestRepository, logger zerolog.Logger) *ServiceRequestService {
	return &ServiceRequestService{repo: repo, logger: logger, now: time.Now}
}

// Create opens a service request under a fresh protocol number.
func (s *ServiceRequestService) Create(ctx context.Context, input ports.CreateServiceRequestInput) (*domain.ServiceRequest, error) {
	now := s.now().UTC()
	sr := &domain.ServiceRequest{
		Protocol:         generateProtocol(),
		CustomerName:     strings.TrimSpace(input.CustomerName),
		CustomerDocument: strings.TrimSpace(input.CustomerDocument),
		Description:      input.Description,
		Type:             input.Type,
		Attendant:        input.Attendant,
		OpenedAt:         now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, sr); err != nil {
		s.logger.Error().Err(err).Msg("failed to create service request")
		return nil, fmt.Errorf("create service request: %w", err)
	}

	s.logger.Info().Str("protocol", sr.Protocol).Str("attendant", sr.Attendant).Msg("service request created")
	return sr, nil
}

func (s *ServiceRequestService) GetByProtocol(ctx context.Context, protocol string) (*domain.ServiceRequest, error) {
	return s.repo.FindByProtocol(ctx, protocol)
}

// UpdateDescription rewrites the description of an existing request.
func (s *ServiceRequestService) UpdateDescription(ctx context.Context, protocol, description string) (*domain.ServiceRequest, error) {
	sr, err := s.repo.UpdateDescription(ctx, protocol, description)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("protocol", protocol).Msg("service request description updated")
	return sr, nil
}

// generateProtocol returns a random UUID string used as the public reference.
func generateProtocol() string {
	return uuid.NewString()
}
