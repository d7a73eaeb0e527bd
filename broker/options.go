package broker

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mrjvadi/go-broker/stateless"
)

type Option func(*App)

func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMaxJobs(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.maxJobs = n
			a.sem = make(chan struct{}, a.maxJobs)
		}
	}
}

func WithStreamLength(n int64) Option {
	return func(a *App) {
		if n >= 0 {
			a.streamMaxLen = n
		}
	}
}

// WithEndpointID sets the endpoint identity used in every participant id.
// All nodes that should handle each other's stateless replies share it.
func WithEndpointID(id string) Option {
	return func(a *App) {
		a.endpointID = id
	}
}

// WithComponentSource replaces the node's own callback handler container.
// RegisterCallback keeps adding to the built-in container, which is then
// no longer consulted.
func WithComponentSource(src stateless.ComponentSource) Option {
	return func(a *App) {
		if src != nil {
			a.source = src
		}
	}
}

// WithRediscoveryLimit bounds how often an unknown participant id may
// trigger a fresh discovery pass.
func WithRediscoveryLimit(every time.Duration, burst int) Option {
	return func(a *App) {
		if every > 0 && burst > 0 {
			a.rediscover = rate.NewLimiter(rate.Every(every), burst)
		}
	}
}

// WithDiscoveryRetry sets how many times Run attempts the startup discovery
// pass before giving up. Zero disables the startup pass.
func WithDiscoveryRetry(tries uint) Option {
	return func(a *App) {
		a.discoveryTries = tries
	}
}

func withPollBlock(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.pollBlock = d
		}
	}
}
