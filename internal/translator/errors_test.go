package translator

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{401, ClassAuth},
		{403, ClassAuth},
		{429, ClassQuota},
		{404, ClassUnsupportedLanguage},
		{400, ClassInvalidRequest},
		{500, ClassService},
		{503, ClassService},
		{418, ClassUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyHTTP(tt.status); got != tt.want {
			t.Errorf("ClassifyHTTP(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassOf(t *testing.T) {
	if got := ClassOf(&Error{Class: ClassQuota}); got != ClassQuota {
		t.Errorf("ClassOf(*Error) = %q, want quota", got)
	}

	wrapped := fmt.Errorf("call failed: %w", &Error{Class: ClassAuth})
	if got := ClassOf(wrapped); got != ClassAuth {
		t.Errorf("ClassOf(wrapped *Error) = %q, want auth", got)
	}

	if got := ClassOf(context.DeadlineExceeded); got != ClassNetwork {
		t.Errorf("ClassOf(deadline) = %q, want network", got)
	}

	if got := ClassOf(errors.New("boom")); got != ClassUnknown {
		t.Errorf("ClassOf(plain) = %q, want unknown", got)
	}
}

func TestFormatUserError(t *testing.T) {
	msg := FormatUserError(&Error{Class: ClassNetwork})
	if !IsErrorString(msg) {
		t.Errorf("FormatUserError result %q is not bracket-wrapped", msg)
	}
	if msg != "["+UserMessage(ClassNetwork)+"]" {
		t.Errorf("Unexpected message %q", msg)
	}
}

func TestIsErrorString(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"[Erreur réseau. Vérifiez votre connexion.]", true},
		{"Hello", false},
		{"", false},
		{"[", false},
		{"[]", true},
		{"Hello (approximatif)", false},
	}

	for _, tt := range tests {
		if got := IsErrorString(tt.input); got != tt.want {
			t.Errorf("IsErrorString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
