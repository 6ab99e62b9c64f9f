package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "error with cause",
			err:      Wrap(KindTransport, "search", "failed to retrieve similar images", errors.New("connection refused")),
			contains: []string{"search: failed to retrieve similar images: connection refused (transport)"},
		},
		{
			name:     "error without cause",
			err:      New(KindMalformed, "decode", "bad body"),
			contains: []string{"decode: bad body (malformed)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := New(KindMalformed, "decode", "bad body")
	outer := Wrap(KindTransport, "search", "failed", fmt.Errorf("ctx: %w", inner))

	if !IsKind(outer, KindMalformed) {
		t.Fatalf("expected malformed kind, got %s", KindOf(outer))
	}
	if Wrap(KindTransport, "op", "msg", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{"direct match", New(KindTransport, "t", "m"), KindTransport, true},
		{"wrapped match", fmt.Errorf("outer: %w", New(KindConfig, "t", "m")), KindConfig, true},
		{"mismatch", New(KindTransport, "t", "m"), KindMalformed, false},
		{"plain error", errors.New("plain"), KindTransport, false},
		{"nil", nil, KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKind(tt.err, tt.kind); got != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	err := Wrap(KindTransport, "search", "failed to retrieve similar images", errors.New("503"))
	if got := Message(err); got != "failed to retrieve similar images" {
		t.Fatalf("Message() = %q", got)
	}
	if got := Message(errors.New("plain")); got != "plain" {
		t.Fatalf("Message() = %q", got)
	}
}
