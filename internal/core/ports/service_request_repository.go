package ports

import (
	"context"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// ServiceRequestRepository defines persistence operations for service requests.
type ServiceRequestRepository interface {
	Create(ctx context.Context, sr *domain.ServiceRequest) error
	FindByProtocol(ctx context.Context, protocol string) (*domain.ServiceRequest, error)
	UpdateDescription(ctx context.Context, protocol, description string) (*domain.ServiceRequest, error)
}
