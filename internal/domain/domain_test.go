package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"ROLE_ADMIN", RoleAdmin},
		{"role_admin", RoleAdmin},
		{"  Role_Admin ", RoleAdmin},
		{"ROE_ADMIN", RoleUser},
		{"ROLE_USER", RoleUser},
		{"", RoleNone},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("delete: %w", RequestNotExists("ITEM REQUESTED TO DELETE IS INVALID"))
	if !errors.Is(err, ErrRequestNotExists) {
		t.Fatal("expected errors.Is to match by kind")
	}
	if errors.Is(err, ErrNoRequestFound) {
		t.Fatal("kinds must not cross-match")
	}
	if KindOf(err) != KindRequestNotExists {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
	if err.Error() != "delete: ITEM REQUESTED TO DELETE IS INVALID" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatal("plain errors have no kind")
	}
}
