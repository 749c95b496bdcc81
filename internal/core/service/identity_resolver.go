package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/atendimento/servicedesk/internal/core/domain"
	"github.com/atendimento/servicedesk/internal/core/ports"
	"github.com/atendimento/servicedesk/internal/pkg/metrics"
)

// IdentityResolver loads the current principal for a subject, consulting an
// optional short-lived cache before the credential store. Cache failures
// degrade to a store read and never fail the request.
type IdentityResolver struct {
	repo  ports.AuthRepository
	cache ports.IdentityCache
	log   zerolog.Logger
}

// NewIdentityResolver returns a resolver. cache may be nil.
func NewIdentityResolver(repo ports.AuthRepository, cache ports.IdentityCache, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{repo: repo, cache: cache, log: log}
}

// Resolve returns domain.ErrUserNotFound for unknown subjects. Locked
// principals are returned as such; refusing them is the caller's decision.
func (r *IdentityResolver) Resolve(ctx context.Context, subject string) (*domain.Principal, error) {
	var (
		gen       int64
		cacheable bool
	)
	if r.cache != nil {
		p, g, ok, err := r.cache.Get(ctx, subject)
		switch {
		case err != nil:
			metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
			r.log.Warn().Err(err).Str("subject", subject).Msg("identity cache read failed")
		case ok:
			metrics.IdentityCacheTotal.WithLabelValues("hit").Inc()
			return p, nil
		default:
			metrics.IdentityCacheTotal.WithLabelValues("miss").Inc()
			gen, cacheable = g, true
		}
	}

	user, err := r.repo.FindByUsername(ctx, subject)
	if err != nil {
		return nil, err
	}
	p := user.Principal()

	if cacheable {
		if err := r.cache.Set(ctx, p, gen); err != nil {
			r.log.Warn().Err(err).Str("subject", subject).Msg("identity cache write failed")
		}
	}
	return p, nil
}

// Invalidate drops any cached principal for subject.
func (r *IdentityResolver) Invalidate(ctx context.Context, subject string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, subject); err != nil {
		r.log.Error().Err(err).Str("subject", subject).Msg("identity cache invalidation failed")
	}
}
