package ports

import (
	"context"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// IdentityResolver rebuilds the principal for an authenticated subject from
// authoritative storage.
type IdentityResolver interface {
	Resolve(ctx context.Context, subject string) (*domain.Principal, error)
	Invalidate(ctx context.Context, subject string)
}

// IdentityCache holds short-lived principal snapshots keyed by subject.
// A miss is reported as (nil, gen, false, nil). gen is the subject's
// invalidation generation at read time; Set stores p only if no Delete has
// happened since, so a snapshot read before an invalidation cannot be written
// back after it.
type IdentityCache interface {
	Get(ctx context.Context, subject string) (p *domain.Principal, gen int64, ok bool, err error)
	Set(ctx context.Context, p *domain.Principal, gen int64) error
	Delete(ctx context.Context, subject string) error
}
