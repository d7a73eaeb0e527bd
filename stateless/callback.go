package stateless

import (
	"context"
	"fmt"
)

// Callback is implemented by every stateless async callback handler.
type Callback interface {
	// UseCase distinguishes independent consumers of the same interface on
	// one node. It must not change once the handler is constructed.
	UseCase() string
}

// Reply is what a stateless callback method receives.
type Reply struct {
	RequestReplyID string
	Payload        []byte
	// Err is set when the provider answered with an error instead of a payload.
	Err error
}

// Invoker delivers a reply to one method of cb.
type Invoker func(ctx context.Context, cb Callback, reply Reply) error

// Method is the static, generated description of one callback method.
type Method struct {
	Interface   string
	Name        string
	Correlation string
	Invoke      Invoker
}

func (m Method) String() string {
	if m.Interface == "" {
		return m.Name
	}
	return m.Interface + "." + m.Name
}

// MethodSet indexes the methods of one callback interface by correlation id.
type MethodSet struct {
	byCorrelation map[string]Method
}

// NewMethodSet builds a MethodSet. Every method must carry a correlation tag
// and tags must be unique within the set.
func NewMethodSet(methods ...Method) (MethodSet, error) {
	set := MethodSet{byCorrelation: make(map[string]Method, len(methods))}
	for _, m := range methods {
		correlation, err := MethodCorrelationID(m)
		if err != nil {
			return MethodSet{}, err
		}
		if prev, ok := set.byCorrelation[correlation]; ok {
			return MethodSet{}, fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateCorrelation, correlation, prev, m)
		}
		set.byCorrelation[correlation] = m
	}
	return set, nil
}

// MustMethodSet is NewMethodSet for generated package-level tables.
func MustMethodSet(methods ...Method) MethodSet {
	set, err := NewMethodSet(methods...)
	if err != nil {
		panic(err)
	}
	return set
}

// Lookup returns the method tagged with correlation.
func (s MethodSet) Lookup(correlation string) (Method, bool) {
	m, ok := s.byCorrelation[correlation]
	return m, ok
}

func (s MethodSet) Len() int { return len(s.byCorrelation) }

// Capability describes one callback contract implemented by a component.
type Capability struct {
	// Type names the contract in diagnostics.
	Type string
	// Stateless marks the contract as a stateless async callback.
	Stateless bool
	// UsedBy is the routing metadata: the interface name whose proxy sends
	// the calls this callback answers. Empty means the contract is not routable.
	UsedBy  string
	Methods MethodSet
}

// Component is one entry of the host environment's component container.
type Component interface {
	Name() string
	Capabilities() []Capability
	Instance() any
}

// Handler is a routable callback found by Discovery.
type Handler struct {
	Component  string
	Capability Capability
	Callback   Callback
}

func (h Handler) InterfaceName() string { return h.Capability.UsedBy }

func (h Handler) UseCase() string { return h.Callback.UseCase() }

func (h Handler) StatelessCallbackID() string {
	return StatelessCallbackID(h.InterfaceName(), h.UseCase())
}
