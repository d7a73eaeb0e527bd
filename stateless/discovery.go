package stateless

import (
	"fmt"

	"go.uber.org/zap"
)

// CallbackHandlerTag is the tag under which the host environment lists
// callback handler components.
const CallbackHandlerTag = "callback-handler"

// ComponentSource is the host environment's component container.
type ComponentSource interface {
	Components(tag string) ([]Component, error)
}

// Discovery finds routable callback handlers. It keeps no state between
// passes; every ForEach enumerates the source again.
type Discovery struct {
	source ComponentSource
	logger *zap.Logger
}

type DiscoveryOption func(*Discovery)

func WithDiscoveryLogger(l *zap.Logger) DiscoveryOption {
	return func(d *Discovery) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDiscovery(source ComponentSource, opts ...DiscoveryOption) *Discovery {
	d := &Discovery{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ForEach calls visit for every component that exposes a routable stateless
// callback. Only the first stateless capability of a component is looked at;
// if it lacks routing metadata the component is skipped with a warning.
func (d *Discovery) ForEach(visit func(Handler)) error {
	components, err := d.source.Components(CallbackHandlerTag)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEnumeration, err)
	}
	for _, c := range components {
		if h, ok := d.inspect(c); ok {
			visit(h)
		}
	}
	return nil
}

func (d *Discovery) inspect(c Component) (Handler, bool) {
	for _, capability := range c.Capabilities() {
		if !capability.Stateless {
			continue
		}
		if capability.UsedBy == "" {
			d.logger.Warn("stateless callback capability has no routing metadata, skipping component",
				zap.String("component", c.Name()),
				zap.String("capability", capability.Type),
			)
			return Handler{}, false
		}
		cb, ok := c.Instance().(Callback)
		if !ok {
			d.logger.Warn("component does not implement a stateless callback, skipping",
				zap.String("component", c.Name()),
				zap.String("capability", capability.Type),
				zap.String("instance", fmt.Sprintf("%T", c.Instance())),
			)
			return Handler{}, false
		}
		return Handler{Component: c.Name(), Capability: capability, Callback: cb}, true
	}
	return Handler{}, false
}
