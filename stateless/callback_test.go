package stateless

import (
	"errors"
	"testing"
)

func TestNewMethodSet(t *testing.T) {
	set, err := NewMethodSet(onReading, Method{Name: "OnAlarm", Correlation: "onAlarm"})
	if err != nil {
		t.Fatalf("NewMethodSet: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len = %d", set.Len())
	}
	m, ok := set.Lookup("onReading")
	if !ok || m.Name != "OnReading" {
		t.Fatalf("Lookup(onReading) = (%v,%v)", m, ok)
	}
	if _, ok := set.Lookup("onMissing"); ok {
		t.Fatal("Lookup of unknown correlation succeeded")
	}
}

func TestNewMethodSetRejects(t *testing.T) {
	cases := []struct {
		name    string
		methods []Method
		want    error
	}{
		{"missing_tag", []Method{onReading, {Name: "OnAlarm"}}, ErrMissingCorrelationMetadata},
		{"duplicate_tag", []Method{onReading, {Name: "OnReadingAgain", Correlation: "onReading"}}, ErrDuplicateCorrelation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMethodSet(tc.methods...); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMustMethodSetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustMethodSet(Method{Name: "OnAlarm"})
}
