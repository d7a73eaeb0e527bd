package broker

import (
	"github.com/mrjvadi/go-broker/stateless"
)

// RegisterCallback adds a callback handler component to the node's own
// container. It becomes routable after the next Discover.
func (a *App) RegisterCallback(c stateless.Component) {
	a.container.Add(stateless.CallbackHandlerTag, c)
}

// RegisterCallbackHandler is RegisterCallback for a handler value and its
// generated capability list.
func (a *App) RegisterCallbackHandler(name string, cb stateless.Callback, caps ...stateless.Capability) {
	a.RegisterCallback(stateless.StaticComponent{ComponentName: name, Value: cb, Caps: caps})
}
