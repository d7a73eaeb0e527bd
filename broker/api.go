package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func (a *App) Publish(ctx context.Context, channel string, payload any) error {
	b, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return a.rdb.Publish(ctx, channel, b).Err()
}

// Request is a stateful RPC: the caller subscribes to a private reply channel
// before sending and waits on it, so the reply only reaches this process.
func (a *App) Request(ctx context.Context, name string, payload any, timeout time.Duration) ([]byte, error) {
	if name == "" {
		return nil, errors.New("empty request name")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	// 1) subscribe to the reply channel before the request is visible
	corrID := nextID()
	replyTo := replyChannelPrefix + corrID
	sub := a.rdb.Subscribe(ctx, replyTo)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	// 2) send
	args := &redis.XAddArgs{
		Stream: a.stream,
		Values: map[string]any{
			fieldType:    typRPC,
			fieldName:    name,
			fieldPayload: b,
			fieldReplyTo: replyTo,
			fieldCorrID:  corrID,
		},
	}
	a.trim(args)

	ctxRW, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := a.rdb.XAdd(ctxRW, args).Result(); err != nil {
		return nil, fmt.Errorf("enqueue request: %w", err)
	}

	// 3) wait
	msg, err := sub.ReceiveMessage(ctxRW)
	if err != nil {
		return nil, err
	}

	var env rpcEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, errors.New(env.Error)
	}
	return env.Body, nil
}

// encodePayload sends []byte and string as is and JSON-encodes anything else.
func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	}
}

func (a *App) trim(args *redis.XAddArgs) {
	if a.streamMaxLen > 0 {
		args.MaxLen = a.streamMaxLen
		args.Approx = true
	}
}
