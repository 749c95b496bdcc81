package handler

import (
	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createServiceRequestRequest, attendant string) ports.CreateServiceRequestInput {
	return ports.CreateServiceRequestInput{
		CustomerName:     req.CustomerName,
		CustomerDocument: req.CustomerDocument,
		Description:      req.Description,
		Type:             req.Type,
		Attendant:        attendant,
	}
}

// --- Service result → HTTP response ---

func toServiceRequestResponse(sr *domain.ServiceRequest) serviceRequestResponse {
	return serviceRequestResponse{
		Protocol:         sr.Protocol,
		CustomerName:     sr.CustomerName,
		CustomerDocument: sr.CustomerDocument,
		Description:      sr.Description,
		Type:             sr.Type,
		Attendant:        sr.Attendant,
		OpenedAt:         sr.OpenedAt.UTC(),
		UpdatedAt:        sr.UpdatedAt.UTC(),
		Links: serviceRequestLinks{
			Self: "/service-requests/protocol/" + sr.Protocol,
		},
	}
}
