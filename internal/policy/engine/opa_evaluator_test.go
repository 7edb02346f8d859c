package engine

import (
	"context"
	"testing"
)

func newEvaluator(t *testing.T, policy string) *OPAEvaluator {
	t.Helper()
	e, err := NewOPAEvaluator(context.Background(), policy)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	return e
}

func TestAllowRole(t *testing.T) {
	e := newEvaluator(t, "")
	ctx := context.Background()
	cases := []struct {
		role    string
		allowed []string
		want    bool
	}{
		{"admin", []string{"admin"}, true},
		{"user", []string{"admin", "user"}, true},
		{"user", []string{"admin"}, false},
		{"admin", nil, false},
		{"", []string{""}, false},
	}
	for _, tc := range cases {
		got, err := e.AllowRole(ctx, tc.role, tc.allowed)
		if err != nil {
			t.Fatalf("AllowRole(%q, %v): %v", tc.role, tc.allowed, err)
		}
		if got != tc.want {
			t.Errorf("AllowRole(%q, %v) = %v, want %v", tc.role, tc.allowed, got, tc.want)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	if err := newEvaluator(t, "").HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestCustomPolicy(t *testing.T) {
	// Admins pass everywhere regardless of the allowed set.
	policy := `package cuidame.authz

default allow := false

allow if input.role == "admin"

allow if {
	some r in input.allowed_roles
	r == input.role
}
`
	e := newEvaluator(t, policy)
	got, err := e.AllowRole(context.Background(), "admin", []string{"user"})
	if err != nil || !got {
		t.Fatalf("admin override: %v, %v", got, err)
	}
}

func TestNewOPAEvaluator_BadPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\nallow if {"); err == nil {
		t.Fatal("expected compile error")
	}
}
