// Package ctxkeys carries request-scoped values set by middleware.
package ctxkeys

import (
	"context"

	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/model"
)

// key is typed so each value reads back without a failed assertion path.
type key[T any] struct{ name string }

func (k key[T]) get(ctx context.Context) T {
	v, _ := ctx.Value(k).(T)
	return v
}

func (k key[T]) with(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

var (
	agentKey        = key[*model.Agent]{"agent"}
	subscriptionKey = key[*model.Subscription]{"subscription"}
	configKey       = key[*config.Config]{"config"}
	csrfTokenKey    = key[string]{"csrf_token"}
	authMethodKey   = key[string]{"auth_method"}
)

// Authentication methods recorded by the auth middleware.
const (
	AuthMethodCookie = "cookie"
	AuthMethodBearer = "bearer"
)

func Agent(ctx context.Context) *model.Agent { return agentKey.get(ctx) }

func WithAgent(ctx context.Context, agent *model.Agent) context.Context {
	return agentKey.with(ctx, agent)
}

func Subscription(ctx context.Context) *model.Subscription { return subscriptionKey.get(ctx) }

func WithSubscription(ctx context.Context, subscription *model.Subscription) context.Context {
	return subscriptionKey.with(ctx, subscription)
}

func Config(ctx context.Context) *config.Config { return configKey.get(ctx) }

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return configKey.with(ctx, cfg)
}

func CSRFToken(ctx context.Context) string { return csrfTokenKey.get(ctx) }

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return csrfTokenKey.with(ctx, token)
}

// AuthMethod reports how the current agent authenticated, or "" for anonymous requests.
func AuthMethod(ctx context.Context) string { return authMethodKey.get(ctx) }

func WithAuthMethod(ctx context.Context, method string) context.Context {
	return authMethodKey.with(ctx, method)
}
