package participant

import (
	"context"
	"testing"
)

type stubParticipant struct {
	name string
}

func (s *stubParticipant) Name() string { return s.name }

func (s *stubParticipant) Vote(context.Context, Request) (Vote, error) {
	return Vote{}, nil
}

func TestRegisterAndNew(t *testing.T) {
	Register("stub", func(name string, _ map[string]string) (Participant, error) {
		return &stubParticipant{name: name}, nil
	})

	p, err := New("stub", "tester", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "tester" {
		t.Errorf("name = %s, want tester", p.Name())
	}

	found := false
	for _, kind := range Available() {
		if kind == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("Available() = %v, missing stub", Available())
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("does-not-exist", "x", nil); err == nil {
		t.Error("no error for unknown kind")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	Register("dup", func(name string, _ map[string]string) (Participant, error) {
		return &stubParticipant{name: name}, nil
	})
	Register("dup", func(name string, _ map[string]string) (Participant, error) {
		return &stubParticipant{name: name}, nil
	})
}
