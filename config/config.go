// Package config loads node settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrjvadi/go-broker/broker"
	"github.com/mrjvadi/go-broker/stateless"
)

// Node holds everything a broker node needs at startup.
//
// EndpointID must stay the same for the life of the process and be shared by
// every node that should handle the same stateless replies. Changing it
// starts a new generation of participant ids; replies addressed to the old
// ones are dropped.
type Node struct {
	EndpointID string `env:"GMF_ENDPOINT_ID"`

	RedisAddr string `env:"GMF_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"GMF_REDIS_DB" envDefault:"0"`

	Stream       string `env:"GMF_STREAM" envDefault:"task_queue"`
	Group        string `env:"GMF_GROUP" envDefault:"main_processing_group"`
	MaxJobs      int    `env:"GMF_MAX_JOBS" envDefault:"10"`
	StreamMaxLen int64  `env:"GMF_STREAM_MAX_LEN" envDefault:"0"`

	LogLevel  string `env:"GMF_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GMF_LOG_FORMAT" envDefault:"json"`

	RediscoveryInterval time.Duration `env:"GMF_REDISCOVERY_INTERVAL" envDefault:"1s"`
	DiscoveryMaxTries   uint          `env:"GMF_DISCOVERY_MAX_TRIES" envDefault:"5"`
}

// Load parses the environment. An endpoint identity, when set, must be
// valid UTF-8 text.
func Load() (Node, error) {
	var n Node
	if err := env.Parse(&n); err != nil {
		return Node{}, fmt.Errorf("parse env: %w", err)
	}
	if n.EndpointID != "" {
		if err := stateless.ValidateEndpointID(n.EndpointID); err != nil {
			return Node{}, err
		}
	}
	return n, nil
}

// Logger builds the node logger: JSON production output, or console
// development output when LogFormat is "console".
func (n Node) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(n.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", n.LogLevel, err)
	}
	cfg := zap.NewProductionConfig()
	if n.LogFormat == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// RedisOptions returns the client options for the node.
func (n Node) RedisOptions() *redis.Options {
	return &redis.Options{Addr: n.RedisAddr, DB: n.RedisDB}
}

// BrokerOptions maps the node settings onto broker options.
func (n Node) BrokerOptions(logger *zap.Logger) []broker.Option {
	opts := []broker.Option{
		broker.WithLogger(logger),
		broker.WithMaxJobs(n.MaxJobs),
		broker.WithStreamLength(n.StreamMaxLen),
		broker.WithDiscoveryRetry(n.DiscoveryMaxTries),
	}
	if n.EndpointID != "" {
		opts = append(opts, broker.WithEndpointID(n.EndpointID))
	}
	if n.RediscoveryInterval > 0 {
		opts = append(opts, broker.WithRediscoveryLimit(n.RediscoveryInterval, 1))
	}
	return opts
}
