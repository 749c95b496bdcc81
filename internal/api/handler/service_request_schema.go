package handler

import "time"

// --- Request / Response types ---

type createServiceRequestRequest struct {
	CustomerName     string `json:"customerName" validate:"required,max=120"`
	CustomerDocument string `json:"customerDocument" validate:"required,max=20"`
	Description      string `json:"description" validate:"required,max=2000"`
	Type             string `json:"type" validate:"required,max=50"`
}

type updateDescriptionRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

type serviceRequestLinks struct {
	Self string `json:"self"`
}

// Response-only type owned by the transport layer so the JSON contract is not
// coupled to the stored document.
type serviceRequestResponse struct {
	Protocol         string              `json:"protocol"`
	CustomerName     string              `json:"customerName"`
	CustomerDocument string              `json:"customerDocument"`
	Description      string              `json:"description"`
	Type             string              `json:"type"`
	Attendant        string              `json:"attendant"`
	OpenedAt         time.Time           `json:"openedAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	Links            serviceRequestLinks `json:"_links"`
}
