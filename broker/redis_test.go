package broker_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrjvadi/go-broker/broker"
	"github.com/mrjvadi/go-broker/stateless"
)

func newRedisClient(addr string, db int, poolSize, minIdle int, readTimeout time.Duration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: minIdle,
		ReadTimeout:  readTimeout, // 0 for pub/sub clients
		WriteTimeout: 200 * time.Millisecond,
	})
}

// redisOrSkip connects to REDIS_ADDR (db REDIS_DB, default 15) or skips.
func redisOrSkip(tb testing.TB) *redis.Client {
	tb.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		tb.Skip("REDIS_ADDR not set")
	}
	db := 15
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	rdb := newRedisClient(addr, db, 64, 8, 0)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		tb.Fatalf("redis ping failed: %v", err)
	}
	tb.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s:%d", prefix, time.Now().UnixNano())
}

type readingsCallback struct {
	useCase string
	got     chan string
}

func (c *readingsCallback) UseCase() string { return c.useCase }

var onReading = stateless.Method{
	Interface:   "com.example.TemperatureSensor",
	Name:        "OnReading",
	Correlation: "onReading",
	Invoke: func(_ context.Context, cb stateless.Callback, r stateless.Reply) error {
		cb.(*readingsCallback).got <- string(r.Payload)
		return nil
	},
}

var readingsCapability = stateless.Capability{
	Type:      "TemperatureSensorStatelessAsyncCallback",
	Stateless: true,
	UsedBy:    "com.example.TemperatureSensor",
	Methods:   stateless.MustMethodSet(onReading),
}

func startApp(tb testing.TB, a *broker.App) {
	tb.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Run(ctx); err != nil {
			tb.Errorf("Run: %v", err)
		}
	}()
	tb.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	time.Sleep(200 * time.Millisecond)
}

func TestStatelessReplyReachesAnyNodeOfEndpoint(t *testing.T) {
	rdb := redisOrSkip(t)
	stream, group, endpoint := uniq("requests"), uniq("group"), uniq("node")

	provider := broker.New(rdb, stream, group)
	provider.OnRequest("sensor.read", func(c *broker.Context) ([]byte, error) {
		return []byte("21.5"), nil
	})
	startApp(t, provider)

	// The caller sends and goes away; a second node with the same endpoint
	// identity receives the reply.
	caller := broker.New(rdb, stream, uniq("caller-group"), broker.WithEndpointID(endpoint))
	rrid, err := caller.CallStateless(context.Background(), "sensor.read", nil, broker.StatelessTarget{
		UseCase: "dashboard-1",
		Method:  onReading,
	})
	if err != nil {
		t.Fatalf("CallStateless: %v", err)
	}
	if corr, _ := stateless.ExtractMethodCorrelationID(rrid); corr != "onReading" {
		t.Fatalf("request/reply id %q", rrid)
	}

	cb := &readingsCallback{useCase: "dashboard-1", got: make(chan string, 1)}
	receiver := broker.New(rdb, stream, uniq("receiver-group"), broker.WithEndpointID(endpoint))
	receiver.RegisterCallbackHandler("dashboard", cb, readingsCapability)
	startApp(t, receiver)

	select {
	case got := <-cb.got:
		if got != "21.5" {
			t.Fatalf("reading = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stateless reply not delivered")
	}
}

func TestStatefulRequest(t *testing.T) {
	rdb := redisOrSkip(t)
	stream, group := uniq("requests"), uniq("group")

	provider := broker.New(rdb, stream, group)
	provider.Group("users").OnRequest("GET_INFO", func(c *broker.Context) ([]byte, error) {
		var req struct {
			ID int `json:"id"`
		}
		if err := c.Bind(&req); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("user%d@example.com", req.ID)), nil
	})
	startApp(t, provider)

	caller := broker.New(rdb, stream, group)
	resp, err := caller.Group("users").Request(context.Background(), "GET_INFO", map[string]int{"id": 7}, 5*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(resp) != "user7@example.com" {
		t.Fatalf("resp = %q", resp)
	}
}

func BenchmarkStatelessRoundTrip(b *testing.B) {
	rdb := redisOrSkip(b)
	stream, group, endpoint := uniq("bench_requests"), uniq("bench_group"), uniq("bench_node")

	provider := broker.New(rdb, stream, group, broker.WithMaxJobs(64), broker.WithStreamLength(100_000))
	provider.OnRequest("GET_INFO", func(c *broker.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	startApp(b, provider)

	cb := &readingsCallback{useCase: "bench", got: make(chan string, 1<<16)}
	node := broker.New(rdb, stream, uniq("bench_reply_group"),
		broker.WithEndpointID(endpoint),
		broker.WithMaxJobs(64),
		broker.WithStreamLength(100_000),
	)
	node.RegisterCallbackHandler("bench", cb, readingsCapability)
	startApp(b, node)

	target := broker.StatelessTarget{UseCase: "bench", Method: onReading}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := node.CallStateless(ctx, "GET_INFO", []byte(`{"id":101}`), target); err != nil {
				b.Errorf("CallStateless: %v", err)
				return
			}
			<-cb.got
		}
	})
	b.StopTimer()
}
