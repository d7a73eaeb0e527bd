package broker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mrjvadi/go-broker/stateless"
)

type App struct {
	rdb    *redis.Client
	stream string
	group  string

	// handler registries
	mu            sync.RWMutex
	eventHandlers map[string]HandlerFunc
	rpcHandlers   map[string]RPCHandlerFunc
	eventSubs     map[string]*redis.PubSub

	// execution
	startOnce    sync.Once
	started      bool
	wg           sync.WaitGroup
	sem          chan struct{} // caps concurrent handlers
	maxJobs      int
	pollBlock    time.Duration
	streamMaxLen int64

	logger *zap.Logger

	consumerID string

	// stateless callbacks
	endpointID     string
	container      *stateless.StaticSource
	source         stateless.ComponentSource
	discovery      *stateless.Discovery
	correlations   *stateless.Registry
	callbacks      sync.Map // stateless callback id -> stateless.Handler
	rediscover     *rate.Limiter
	discoveryTries uint

	rediscoverMu    sync.Mutex
	discoveryPasses atomic.Uint64
}

func New(client *redis.Client, stream, group string, options ...Option) *App {
	container := stateless.NewStaticSource()
	a := &App{
		rdb:            client,
		stream:         stream,
		group:          group,
		eventHandlers:  make(map[string]HandlerFunc),
		rpcHandlers:    make(map[string]RPCHandlerFunc),
		eventSubs:      make(map[string]*redis.PubSub),
		maxJobs:        10,
		pollBlock:      2 * time.Second,
		streamMaxLen:   0,
		logger:         zap.NewNop(),
		consumerID:     defaultConsumerID(),
		container:      container,
		source:         container,
		rediscover:     rate.NewLimiter(rate.Every(time.Second), 1),
		discoveryTries: 5,
	}
	a.sem = make(chan struct{}, a.maxJobs)
	for _, opt := range options {
		opt(a)
	}
	a.discovery = stateless.NewDiscovery(a.source, stateless.WithDiscoveryLogger(a.logger))
	a.correlations = stateless.NewRegistry(stateless.WithRegistryLogger(a.logger))
	return a
}

func (a *App) OnEvent(channel string, h HandlerFunc) {
	a.mu.Lock()
	a.eventHandlers[channel] = h
	started := a.started
	a.mu.Unlock()
	if started {
		a.startEventSubscriber(channel, h)
	}
}

func (a *App) OnRequest(name string, h RPCHandlerFunc) {
	a.mu.Lock()
	a.rpcHandlers[name] = h
	a.mu.Unlock()
}

// Run blocks until ctx is cancelled. On a node with an endpoint identity it
// first discovers the registered callback handlers, retrying with backoff,
// and returns the error if discovery never succeeds. A failed Run leaves the
// app unstarted, so Run may be called again.
func (a *App) Run(ctx context.Context) error {
	a.mu.RLock()
	started := a.started
	a.mu.RUnlock()
	if !started && a.endpointID != "" {
		if err := a.discoverOnStartup(ctx); err != nil {
			return err
		}
	}

	a.startOnce.Do(func() {
		a.mu.Lock()
		a.started = true
		providers := len(a.rpcHandlers)
		a.mu.Unlock()

		// A node without providers must not join the request group, or it
		// would ack requests it cannot answer.
		if providers > 0 {
			if err := a.rdb.XGroupCreateMkStream(ctx, a.stream, a.group, "0").Err(); err != nil && !isGroupExists(err) {
				a.logger.Warn("create consumer group", zap.String("stream", a.stream), zap.Error(err))
			}
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.consumeStream(ctx, a.stream, a.routeMessage)
			}()
		}

		if a.endpointID != "" {
			replies := a.replyStream()
			if err := a.rdb.XGroupCreateMkStream(ctx, replies, a.group, "0").Err(); err != nil && !isGroupExists(err) {
				a.logger.Warn("create consumer group", zap.String("stream", replies), zap.Error(err))
			}
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.consumeStream(ctx, replies, a.routeReply)
			}()
		}

		a.mu.RLock()
		for ch, h := range a.eventHandlers {
			a.startEventSubscriber(ch, h)
		}
		a.mu.RUnlock()
		a.logger.Info("worker app started",
			zap.String("stream", a.stream),
			zap.String("group", a.group),
			zap.String("endpoint_id", a.endpointID),
		)
	})

	<-ctx.Done()

	a.closeEventSubs()
	a.wg.Wait()
	a.logger.Info("worker app has shut down")
	return nil
}

func (a *App) Close() error {
	a.closeEventSubs()
	a.wg.Wait()
	return nil
}

func (a *App) discoverOnStartup(ctx context.Context) error {
	if err := stateless.ValidateEndpointID(a.endpointID); err != nil {
		return err
	}
	if a.discoveryTries == 0 {
		return nil
	}
	n, err := backoff.Retry(ctx, a.Discover,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(a.discoveryTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Warn("callback discovery failed, retrying", zap.Error(err), zap.Duration("next", next))
		}),
	)
	if err != nil {
		return fmt.Errorf("startup callback discovery: %w", err)
	}
	a.logger.Info("callback handlers discovered", zap.Int("handlers", n))
	return nil
}

func isGroupExists(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (a *App) withConcurrency(fn func()) {
	a.sem <- struct{}{}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() { <-a.sem }()
		fn()
	}()
}

func defaultConsumerID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "host"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
