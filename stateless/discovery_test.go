package stateless

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sensorCallback struct{ useCase string }

func (c *sensorCallback) UseCase() string { return c.useCase }

type failingSource struct{ err error }

func (s failingSource) Components(string) ([]Component, error) { return nil, s.err }

var sensorMethods = MustMethodSet(onReading)

func sensorCapability(usedBy string) Capability {
	return Capability{
		Type:      "TemperatureSensorStatelessAsyncCallback",
		Stateless: true,
		UsedBy:    usedBy,
		Methods:   sensorMethods,
	}
}

func TestDiscoveryVisitsRoutableHandlers(t *testing.T) {
	src := NewStaticSource()
	src.Add(CallbackHandlerTag, StaticComponent{
		ComponentName: "dashboard",
		Value:         &sensorCallback{useCase: sensorUseCase},
		Caps: []Capability{
			{Type: "io.Closer"},
			sensorCapability(sensorInterface),
			sensorCapability("com.example.Other"),
		},
	})
	src.Add("provider", StaticComponent{
		ComponentName: "not-a-callback-handler",
		Value:         &sensorCallback{useCase: "x"},
		Caps:          []Capability{sensorCapability(sensorInterface)},
	})

	var got []Handler
	if err := NewDiscovery(src).ForEach(func(h Handler) { got = append(got, h) }); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("visited %d handlers, want 1", len(got))
	}
	h := got[0]
	if h.InterfaceName() != sensorInterface || h.UseCase() != sensorUseCase {
		t.Fatalf("handler = (%q,%q)", h.InterfaceName(), h.UseCase())
	}
	if h.StatelessCallbackID() != "com.example.TemperatureSensor#dashboard-1" {
		t.Fatalf("StatelessCallbackID = %q", h.StatelessCallbackID())
	}
	if _, ok := h.Capability.Methods.Lookup("onReading"); !ok {
		t.Fatal("handler lost its method set")
	}
}

func TestDiscoverySkipsUnroutableAndContinues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	src := NewStaticSource()
	src.Add(CallbackHandlerTag, StaticComponent{
		ComponentName: "untagged",
		Value:         &sensorCallback{useCase: "a"},
		// A later routable capability does not rescue the component.
		Caps: []Capability{sensorCapability(""), sensorCapability(sensorInterface)},
	})
	src.Add(CallbackHandlerTag, StaticComponent{
		ComponentName: "no-callback",
		Value:         struct{}{},
		Caps:          []Capability{sensorCapability(sensorInterface)},
	})
	src.Add(CallbackHandlerTag, StaticComponent{
		ComponentName: "good",
		Value:         &sensorCallback{useCase: "b"},
		Caps:          []Capability{sensorCapability(sensorInterface)},
	})

	var visited []string
	d := NewDiscovery(src, WithDiscoveryLogger(zap.New(core)))
	if err := d.ForEach(func(h Handler) { visited = append(visited, h.Component) }); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(visited) != 1 || visited[0] != "good" {
		t.Fatalf("visited = %v, want [good]", visited)
	}
	warnings := logs.All()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].ContextMap()["capability"] != "TemperatureSensorStatelessAsyncCallback" ||
		warnings[0].ContextMap()["component"] != "untagged" {
		t.Fatalf("first warning fields = %v", warnings[0].ContextMap())
	}
}

func TestDiscoveryEnumerationFailure(t *testing.T) {
	boom := errors.New("container unavailable")
	called := false
	err := NewDiscovery(failingSource{err: boom}).ForEach(func(Handler) { called = true })
	if !errors.Is(err, ErrEnumeration) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrEnumeration wrapping cause", err)
	}
	if called {
		t.Fatal("visitor called after enumeration failure")
	}
}

func TestRegistryRebuiltFromDiscoveryIsIdentical(t *testing.T) {
	src := NewStaticSource()
	for _, uc := range []string{"dashboard-1", "dashboard-2", "archiver"} {
		src.Add(CallbackHandlerTag, StaticComponent{
			ComponentName: uc,
			Value:         &sensorCallback{useCase: uc},
			Caps:          []Capability{sensorCapability(sensorInterface)},
		})
	}
	build := func() map[string]string {
		reg := NewRegistry()
		err := NewDiscovery(src).ForEach(func(h Handler) {
			scid := h.StatelessCallbackID()
			reg.Record(ParticipantID("node-7", scid), scid)
		})
		if err != nil {
			t.Fatalf("ForEach: %v", err)
		}
		out := make(map[string]string)
		reg.Range(func(pid, scid string) bool {
			out[pid] = scid
			return true
		})
		return out
	}

	first, second := build(), build()
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("sizes = %d, %d, want 3", len(first), len(second))
	}
	for pid, scid := range first {
		if second[pid] != scid {
			t.Fatalf("rebuilt registry differs at %q: %q vs %q", pid, scid, second[pid])
		}
	}
	if first[sensorParticipant] != "com.example.TemperatureSensor#dashboard-1" {
		t.Fatalf("registry missing dashboard-1 entry: %v", first)
	}
}
