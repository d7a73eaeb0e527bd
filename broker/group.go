package broker

import (
	"context"
	"time"
)

// Group registers and calls handlers under a shared dotted prefix.
type Group struct {
	app    *App
	prefix string
}

func (a *App) Group(prefix string) *Group {
	return &Group{app: a, prefix: prefix}
}

func (g *Group) sub(name string) string {
	if g.prefix == "" || name == "" {
		if name == "" {
			return g.prefix
		}
		return name
	}
	return g.prefix + "." + name
}

func (g *Group) Group(suffix string) *Group {
	return &Group{app: g.app, prefix: g.sub(suffix)}
}

func (g *Group) OnEvent(channel string, h HandlerFunc)   { g.app.OnEvent(g.sub(channel), h) }
func (g *Group) OnRequest(name string, h RPCHandlerFunc) { g.app.OnRequest(g.sub(name), h) }

func (g *Group) Publish(ctx context.Context, channel string, payload any) error {
	return g.app.Publish(ctx, g.sub(channel), payload)
}
func (g *Group) Request(ctx context.Context, name string, payload any, timeout time.Duration) ([]byte, error) {
	return g.app.Request(ctx, g.sub(name), payload, timeout)
}
func (g *Group) CallStateless(ctx context.Context, name string, payload any, target StatelessTarget) (string, error) {
	return g.app.CallStateless(ctx, g.sub(name), payload, target)
}
