// Package service holds the use cases behind the HTTP routes. Handlers pass
// validated input in and get a result or a domain error back.
package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/domain"
)

// cache keys
const (
	keyAdminStats   = "stats:admin"
	keyFundingTotal = "funding:total"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Caller is the verified identity behind a request.
type Caller struct {
	Email string
	Role  domain.Role
}

func (c Caller) IsAdmin() bool { return c.Role == domain.RoleAdmin }

// Page is one slice of a createdAt-ordered listing.
type Page[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// notifier fans a committed write out to the event bus and drops the cached
// aggregates it affects. Neither step can fail the write.
type notifier struct {
	events domain.EventPublisher
	cache  *cache.Cache
	log    *zap.Logger
	now    func() time.Time
}

func newNotifier(events domain.EventPublisher, c *cache.Cache, log *zap.Logger) notifier {
	if events == nil {
		events = noopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return notifier{events: events, cache: c, log: log, now: time.Now}
}

func (n notifier) emit(ctx context.Context, typ, subject string, data any) {
	e := domain.Event{Type: typ, SubjectID: subject, Data: data, OccurredAt: n.now().UTC()}
	if err := n.events.Publish(ctx, e); err != nil {
		n.log.Warn("publish event failed", zap.String("type", typ), zap.String("subject", subject), zap.Error(err))
	}
}

func (n notifier) invalidate(ctx context.Context, keys ...string) {
	if err := n.cache.Invalidate(ctx, keys...); err != nil {
		n.log.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) error { return nil }

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// trimmed returns nil for a nil pointer and the trimmed value otherwise.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
