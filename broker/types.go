package broker

import (
	"errors"

	"github.com/mrjvadi/go-broker/stateless"
)

type HandlerFunc func(c *Context) error
type RPCHandlerFunc func(c *Context) ([]byte, error)

const (
	fieldType          = "type"           // "rpc"
	fieldName          = "name"           // RPC name
	fieldPayload       = "payload"        // []byte (json-encoded if not []byte)
	fieldReplyTo       = "reply_to"       // pub/sub channel or reply stream
	fieldCorrID        = "correlation_id" // stateful correlation id or stateless request/reply id
	fieldParticipantID = "participant_id" // stateless callbacks only
	fieldError         = "error"

	typRPC = "rpc"

	// replyChannelPrefix marks a per-request pub/sub channel (stateful RPC).
	replyChannelPrefix = "reply:"
	// replyStreamPrefix marks the shared reply stream of an endpoint (stateless RPC).
	replyStreamPrefix = "replies:"
)

var (
	// ErrNoEndpoint is returned by stateless operations on an App built
	// without WithEndpointID.
	ErrNoEndpoint = errors.New("broker: endpoint identity not configured")

	// ErrUndeliverableReply is returned when a stateless reply cannot be
	// routed to a local handler even after a rediscovery pass.
	ErrUndeliverableReply = errors.New("broker: undeliverable stateless reply")

	// ErrUnknownMethod is returned when the resolved handler has no method
	// for the reply's correlation id.
	ErrUnknownMethod = errors.New("broker: no callback method for correlation id")
)

// rpcEnvelope is the pub/sub reply body of a stateful request.
type rpcEnvelope struct {
	CorrelationID string `json:"correlation_id"`
	Body          []byte `json:"body"` // json encodes this as base64
	Error         string `json:"error"`
}

// StatelessTarget addresses the callback that will receive the reply of a
// stateless call.
type StatelessTarget struct {
	// Interface defaults to Method.Interface.
	Interface string
	UseCase   string
	Method    stateless.Method
}
