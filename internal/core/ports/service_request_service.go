package ports

import (
	"context"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// CreateServiceRequestInput carries the data needed to open a service request.
type CreateServiceRequestInput struct {
	CustomerName     string
	CustomerDocument string
	Description      string
	Type             string
	Attendant        string
}

type ServiceRequestService interface {
	Create(ctx context.Context, input CreateServiceRequestInput) (*domain.ServiceRequest, error)
	GetByProtocol(ctx context.Context, protocol string) (*domain.ServiceRequest, error)
	UpdateDescription(ctx context.Context, protocol, description string) (*domain.ServiceRequest, error)
}
