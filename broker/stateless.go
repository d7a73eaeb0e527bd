package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-broker/stateless"
)

// Discover runs one discovery pass and makes every handler found routable:
// its participant id is recorded and the handler is bound by stateless
// callback id. It returns the number of handlers visited.
func (a *App) Discover() (int, error) {
	if a.endpointID == "" {
		return 0, ErrNoEndpoint
	}
	n := 0
	err := a.discovery.ForEach(func(h stateless.Handler) {
		scid := h.StatelessCallbackID()
		pid := stateless.ParticipantID(a.endpointID, scid)
		a.correlations.Record(pid, scid)
		if prev, loaded := a.callbacks.LoadOrStore(scid, h); loaded && prev.(stateless.Handler).Component != h.Component {
			a.logger.Warn("two components serve the same stateless callback, keeping first",
				zap.String("stateless_callback_id", scid),
				zap.String("component", prev.(stateless.Handler).Component),
				zap.String("ignored_component", h.Component),
			)
		}
		n++
	})
	a.discoveryPasses.Add(1)
	return n, err
}

// ParticipantID returns the participant id of the stateless callback
// (interfaceName, useCase) on this node and records it.
func (a *App) ParticipantID(interfaceName, useCase string) (string, error) {
	if a.endpointID == "" {
		return "", ErrNoEndpoint
	}
	scid := stateless.StatelessCallbackID(interfaceName, useCase)
	pid := stateless.ParticipantID(a.endpointID, scid)
	a.correlations.Record(pid, scid)
	return pid, nil
}

// CallStateless sends an RPC whose reply is delivered to target's method on
// whichever node sharing this endpoint identity reads it first. It returns
// the request/reply id carried by the call.
func (a *App) CallStateless(ctx context.Context, name string, payload any, target StatelessTarget) (string, error) {
	iface := target.Interface
	if iface == "" {
		iface = target.Method.Interface
	}
	pid, err := a.ParticipantID(iface, target.UseCase)
	if err != nil {
		return "", err
	}
	rrid, err := stateless.NewRequestReplyID(target.Method)
	if err != nil {
		return "", err
	}
	b, err := encodePayload(payload)
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: a.stream,
		Values: map[string]any{
			fieldType:          typRPC,
			fieldName:          name,
			fieldPayload:       b,
			fieldReplyTo:       a.replyStream(),
			fieldCorrID:        rrid,
			fieldParticipantID: pid,
		},
	}
	a.trim(args)
	if _, err := a.rdb.XAdd(ctx, args).Result(); err != nil {
		return "", fmt.Errorf("enqueue stateless request %s: %w", rrid, err)
	}
	return rrid, nil
}

// inboundReply is a stateless reply read from the endpoint reply stream.
type inboundReply struct {
	ParticipantID  string
	RequestReplyID string
	Payload        []byte
	Error          string
}

// dispatchReply routes one reply to its callback method.
func (a *App) dispatchReply(ctx context.Context, in inboundReply) error {
	h, err := a.resolveHandler(ctx, in.ParticipantID)
	if err != nil {
		return err
	}
	correlation, err := stateless.ExtractMethodCorrelationID(in.RequestReplyID)
	if err != nil {
		return err
	}
	m, ok := h.Capability.Methods.Lookup(correlation)
	if !ok || m.Invoke == nil {
		return fmt.Errorf("%w: %q on %s (request/reply id %q)", ErrUnknownMethod, correlation, h.StatelessCallbackID(), in.RequestReplyID)
	}

	reply := stateless.Reply{RequestReplyID: in.RequestReplyID, Payload: in.Payload}
	if in.Error != "" {
		reply.Err = errors.New(in.Error)
	}
	return m.Invoke(ctx, h.Callback, reply)
}

// resolveHandler finds the handler bound to participantID. A miss always
// gets a discovery pass before the reply is given up: passes are serialized,
// a caller that waited on another pass re-checks first, and the limiter only
// delays a pass. The wait is bounded by ctx.
func (a *App) resolveHandler(ctx context.Context, participantID string) (stateless.Handler, error) {
	seen := a.discoveryPasses.Load()
	h, err := a.lookupHandler(participantID)
	if err == nil {
		return h, nil
	}

	a.rediscoverMu.Lock()
	defer a.rediscoverMu.Unlock()
	if a.discoveryPasses.Load() != seen {
		if h, err = a.lookupHandler(participantID); err == nil {
			return h, nil
		}
	}
	if werr := a.rediscover.Wait(ctx); werr != nil {
		return stateless.Handler{}, fmt.Errorf("%w: %w (rediscovery: %v)", ErrUndeliverableReply, err, werr)
	}
	if _, derr := a.Discover(); derr != nil {
		a.logger.Warn("rediscovery failed", zap.String("participant_id", participantID), zap.Error(derr))
	}
	h, err = a.lookupHandler(participantID)
	if err != nil {
		return stateless.Handler{}, fmt.Errorf("%w: %w", ErrUndeliverableReply, err)
	}
	return h, nil
}

func (a *App) lookupHandler(participantID string) (stateless.Handler, error) {
	scid, err := a.correlations.Resolve(participantID)
	if err != nil {
		return stateless.Handler{}, err
	}
	v, ok := a.callbacks.Load(scid)
	if !ok {
		return stateless.Handler{}, fmt.Errorf("no handler for stateless callback %q (participant id %q)", scid, participantID)
	}
	return v.(stateless.Handler), nil
}

func (a *App) replyStream() string {
	return replyStreamPrefix + a.endpointID
}
