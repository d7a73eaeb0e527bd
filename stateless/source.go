package stateless

import "sync"

// StaticSource is an in-memory, tagged component container.
type StaticSource struct {
	mu    sync.RWMutex
	byTag map[string][]Component
}

func NewStaticSource() *StaticSource {
	return &StaticSource{byTag: make(map[string][]Component)}
}

// Add registers c under tag. Components are listed in registration order.
func (s *StaticSource) Add(tag string, c Component) {
	s.mu.Lock()
	s.byTag[tag] = append(s.byTag[tag], c)
	s.mu.Unlock()
}

func (s *StaticSource) Components(tag string) ([]Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Component, len(s.byTag[tag]))
	copy(out, s.byTag[tag])
	return out, nil
}

// StaticComponent adapts a handler value and its generated capability list
// to Component.
type StaticComponent struct {
	ComponentName string
	Value         any
	Caps          []Capability
}

func (c StaticComponent) Name() string               { return c.ComponentName }
func (c StaticComponent) Capabilities() []Capability { return c.Caps }
func (c StaticComponent) Instance() any              { return c.Value }
