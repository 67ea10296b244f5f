package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidEntry(t *testing.T) {
	data := []byte(`{"id":"e1","timestamp":"2024-03-10T09:30:00Z","kind":"schedule","summary":"schedule \"x\"","action":{"title":"x"}}`)
	if err := Validate(SubjectSchedule, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	// Unknown subjects should pass.
	data := []byte(`{"foo":"bar"}`)
	if err := Validate("unknown.subject", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    string
		want    string
	}{
		{"invalid JSON", SubjectPool, `{not valid json`, "invalid JSON"},
		{"wrong shape", SubjectPool, `"just a string"`, "schema validation failed"},
		{"missing id", SubjectPool, `{"kind":"pool"}`, "missing id"},
		{"kind mismatch", SubjectActivate, `{"id":"e1","kind":"complete"}`, "does not match subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got: %v", tt.want, err)
			}
		})
	}
}

func TestSubjectFor(t *testing.T) {
	for kind, want := range map[string]string{
		"schedule": SubjectSchedule,
		"pool":     SubjectPool,
		"complete": SubjectComplete,
		"activate": SubjectActivate,
	} {
		if got := SubjectFor(kind); got != want {
			t.Errorf("SubjectFor(%q) = %q, want %q", kind, got, want)
		}
	}
}
