package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUser(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain user error", User("bad flag"), true},
		{"formatted user error", Userf("bad %s", "flag"), true},
		{"wrapped user error", fmt.Errorf("ctx: %w", User("x")), true},
		{"other error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUser(tt.err); got != tt.want {
				t.Fatalf("IsUser(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestShape_WrapsSentinel(t *testing.T) {
	err := Shape("y_true/y_pred", 3, 2)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if err.Error() != "y_true/y_pred [3 2]: input length mismatch" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
