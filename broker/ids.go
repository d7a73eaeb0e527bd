package broker

import (
	"github.com/google/uuid"
)

// nextID returns the correlation id of a stateful request. Stateless calls
// use stateless.NewRequestReplyID instead.
func nextID() string {
	return uuid.NewString()
}
