package broker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-broker/stateless"
)

// consumeStream reads stream as a member of the app's consumer group and
// hands every message to route under the concurrency cap.
func (a *App) consumeStream(ctx context.Context, stream string, route func(context.Context, redis.XMessage)) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := a.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    a.group,
			Consumer: a.consumerID,
			Streams:  []string{stream, ">"},
			Count:    int64(cap(a.sem)),
			Block:    a.pollBlock,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// transient error, back off briefly
			time.Sleep(150 * time.Millisecond)
			continue
		}

		for _, str := range res {
			for _, msg := range str.Messages {
				m := msg
				a.withConcurrency(func() {
					defer func() {
						_ = a.rdb.XAck(ctx, stream, a.group, m.ID).Err()
					}()
					route(ctx, m)
				})
			}
		}
	}
}

func (a *App) routeMessage(ctx context.Context, m redis.XMessage) {
	typ, _ := m.Values[fieldType].(string)
	if typ != typRPC {
		a.logger.Debug("dropping message of unknown type", zap.String("id", m.ID), zap.String("type", typ))
		return
	}
	raw, _ := m.Values[fieldPayload].(string)
	name, _ := m.Values[fieldName].(string)
	replyTo, _ := m.Values[fieldReplyTo].(string)
	corrID, _ := m.Values[fieldCorrID].(string)
	pid, _ := m.Values[fieldParticipantID].(string)
	a.handleRPC(ctx, name, []byte(raw), replyTo, corrID, pid, m.ID)
}

// handleRPC runs the provider for name and answers on replyTo: a pub/sub
// channel for stateful requests or the caller's reply stream for stateless
// ones. Participant and correlation ids are echoed untouched.
func (a *App) handleRPC(ctx context.Context, name string, body []byte, replyTo, corrID, participantID, msgID string) {
	a.mu.RLock()
	h := a.rpcHandlers[name]
	a.mu.RUnlock()
	if h == nil {
		a.logger.Warn("no rpc handler", zap.String("name", name))
		return
	}

	resp, err := h(&Context{ctx: ctx, payload: body, msgID: msgID, correlationID: corrID})
	errText := ""
	if err != nil {
		errText = err.Error()
		resp = nil
	}

	switch {
	case strings.HasPrefix(replyTo, replyStreamPrefix):
		args := &redis.XAddArgs{
			Stream: replyTo,
			Values: map[string]any{
				fieldParticipantID: participantID,
				fieldCorrID:        corrID,
				fieldPayload:       resp,
				fieldError:         errText,
			},
		}
		a.trim(args)
		if err := a.rdb.XAdd(ctx, args).Err(); err != nil {
			a.logger.Error("send stateless reply",
				zap.String("reply_to", replyTo),
				zap.String("participant_id", participantID),
				zap.String("request_reply_id", corrID),
				zap.Error(err),
			)
		}
	case replyTo != "":
		b, _ := json.Marshal(rpcEnvelope{CorrelationID: corrID, Body: resp, Error: errText})
		if err := a.rdb.Publish(ctx, replyTo, b).Err(); err != nil {
			a.logger.Error("publish reply", zap.String("reply_to", replyTo), zap.Error(err))
		}
	}
}

// routeReply dispatches one message of the endpoint reply stream. Replies
// that cannot be routed are logged and dropped; the node keeps running.
func (a *App) routeReply(ctx context.Context, m redis.XMessage) {
	in := inboundReply{}
	in.ParticipantID, _ = m.Values[fieldParticipantID].(string)
	in.RequestReplyID, _ = m.Values[fieldCorrID].(string)
	in.Error, _ = m.Values[fieldError].(string)
	raw, _ := m.Values[fieldPayload].(string)
	in.Payload = []byte(raw)

	if err := a.dispatchReply(ctx, in); err != nil {
		fields := []zap.Field{
			zap.String("id", m.ID),
			zap.String("participant_id", in.ParticipantID),
			zap.String("request_reply_id", in.RequestReplyID),
			zap.Error(err),
		}
		switch {
		case errors.Is(err, ErrUndeliverableReply),
			errors.Is(err, ErrUnknownMethod),
			errors.Is(err, stateless.ErrMalformedRequestReplyID):
			a.logger.Warn("dropping stateless reply", fields...)
		default:
			a.logger.Error("stateless callback failed", fields...)
		}
	}
}
