package featureflags

import (
	"testing"

	"devfolio/internal/models"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", "u1") || !m.Enabled("c", "u1") || !m.Enabled("e", "u1") {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", "u1") || m.Enabled("d", "u1") || m.Enabled("f", "u1") {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", "u1") {
		t.Fatal("unknown flags must be disabled")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	if !m.Enabled("always", "u1") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", "u1") {
		t.Fatal("0% rollout should always be disabled")
	}
	if m.Enabled("junk", "u1") {
		t.Fatal("malformed percentage should be disabled")
	}

	first := m.Enabled("canary", "auth0|42")
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", "auth0|42"); got != first {
			t.Fatal("rollout evaluation must be deterministic per account")
		}
	}

	if m.Enabled("canary", "") {
		t.Fatal("percentage rollout requires an account id")
	}
}

func TestRequire(t *testing.T) {
	m := NewManager("uploads=on,ai_descriptions=off")

	if err := m.Require(Uploads, "u1"); err != nil {
		t.Fatalf("uploads should be enabled: %v", err)
	}
	err := m.Require(AIDescriptions, "u1")
	if !models.HasCode(err, models.CodeFeatureDisabled) {
		t.Fatalf("expected FEATURE_DISABLED, got %v", err)
	}

	var nilManager *Manager
	if err := nilManager.Require(SearchIndex, "u1"); err != nil {
		t.Fatalf("nil manager should allow everything: %v", err)
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 100% ,z=off,=on,w= ")

	snap := m.Snapshot("u1")
	if len(snap) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d: %v", len(snap), snap)
	}
	if !snap["x"] || !snap["y"] || snap["z"] {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
}
