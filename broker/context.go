package broker

import (
	"context"
	"encoding/json"
)

// Context carries one inbound message to a handler.
type Context struct {
	ctx           context.Context
	payload       []byte
	msgID         string
	correlationID string
}

// Bind decodes the JSON payload into v.
func (c *Context) Bind(v any) error {
	return json.Unmarshal(c.payload, v)
}

func (c *Context) Ctx() context.Context {
	return c.ctx
}

func (c *Context) Payload() []byte { return c.payload }

// MessageID is the stream entry id; empty for pub/sub events.
func (c *Context) MessageID() string { return c.msgID }

// CorrelationID is the id the caller will correlate the reply with. For a
// stateless call it is the request/reply id.
func (c *Context) CorrelationID() string { return c.correlationID }
