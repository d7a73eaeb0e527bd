package stateless

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry caches participant id -> stateless callback id for one node.
// Construct it once at startup; it only grows and is safe for concurrent use.
type Registry struct {
	entries sync.Map // map[string]string
	size    atomic.Int64
	logger  *zap.Logger
}

type RegistryOption func(*Registry)

func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores the mapping unless participantID is already known. The first
// stored value stays authoritative; a differing later value is a participant
// id collision and is only logged.
func (r *Registry) Record(participantID, statelessCallbackID string) {
	actual, loaded := r.entries.LoadOrStore(participantID, statelessCallbackID)
	if !loaded {
		r.size.Add(1)
		return
	}
	if prev := actual.(string); prev != statelessCallbackID {
		r.logger.Warn("participant id collision, keeping first entry",
			zap.String("participant_id", participantID),
			zap.String("stateless_callback_id", prev),
			zap.String("rejected_stateless_callback_id", statelessCallbackID),
		)
	}
}

// Resolve returns the stateless callback id recorded for participantID.
func (r *Registry) Resolve(participantID string) (string, error) {
	v, ok := r.entries.Load(participantID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownParticipant, participantID)
	}
	return v.(string), nil
}

func (r *Registry) Len() int { return int(r.size.Load()) }

// Range calls fn for every entry until fn returns false.
func (r *Registry) Range(fn func(participantID, statelessCallbackID string) bool) {
	r.entries.Range(func(k, v any) bool {
		return fn(k.(string), v.(string))
	})
}
