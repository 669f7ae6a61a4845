package core

import (
	"testing"
)

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	if a.IsEmpty() || b.IsEmpty() {
		t.Fatal("generated IDs must not be empty")
	}
	if a == b {
		t.Error("consecutive IDs must be unique")
	}
	if len(a.String()) != 36 {
		t.Errorf("expected canonical UUID length 36, got %d", len(a.String()))
	}
}

func TestParseRunID(t *testing.T) {
	id, err := ParseRunID("0190a1b2-c3d4-7000-8000-000000000001")
	if err != nil {
		t.Fatalf("ParseRunID failed: %v", err)
	}
	if id.String() != "0190a1b2-c3d4-7000-8000-000000000001" {
		t.Errorf("unexpected run ID: %s", id)
	}

	if _, err := ParseRunID("   "); err == nil {
		t.Error("expected error for blank run ID")
	}
}
