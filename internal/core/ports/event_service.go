package ports

import "github.com/atendimento/servicedesk/internal/core/domain"

// AuthEventRecorder accepts audit events without blocking the caller.
type AuthEventRecorder interface {
	Record(event domain.AuthEvent)
}
