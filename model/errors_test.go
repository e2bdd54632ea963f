package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorReport_Error(t *testing.T) {
	e := &ErrorReport{Category: CategoryNotFound, Message: "workflow not found"}
	want := "NOT_FOUND: workflow not found"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorReport_implements_error(t *testing.T) {
	var _ error = (*ErrorReport)(nil)
}

func TestCategories_unique(t *testing.T) {
	seen := make(map[Category]bool)
	for _, c := range Categories() {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
	if len(seen) != 9 {
		t.Errorf("Categories() = %d entries, want 9", len(seen))
	}
}

func TestJoinFieldErrors(t *testing.T) {
	got := JoinFieldErrors([]FieldError{
		{Field: "workflowId", Code: ViolationInvalidIdentifier, Message: "must be a UUID"},
		{Field: "status", Code: ViolationInvalidEnum, Message: "must be one of RUNNING"},
	})
	want := "workflowId: must be a UUID; status: must be one of RUNNING"
	if got != want {
		t.Errorf("JoinFieldErrors() = %q, want %q", got, want)
	}
}

func TestAsFailure(t *testing.T) {
	if AsFailure(nil) != nil {
		t.Error("AsFailure(nil) should be nil")
	}

	f := AsFailure(fmt.Errorf("wrapped: %w", TimeoutFailure{Budget: time.Second}))
	if _, ok := f.(TimeoutFailure); !ok {
		t.Errorf("AsFailure(wrapped timeout) = %T, want TimeoutFailure", f)
	}

	f = AsFailure(errors.New("  boom \n"))
	other, ok := f.(OtherFailure)
	if !ok {
		t.Fatalf("AsFailure(plain) = %T, want OtherFailure", f)
	}
	if other.Message != "boom" {
		t.Errorf("OtherFailure.Message = %q, want boom", other.Message)
	}
}

func TestValidationFailure_Error(t *testing.T) {
	f := ValidationFailure{
		Operation:  "pause_workflow",
		Violations: []FieldError{{Field: "workflowId", Code: ViolationRequired, Message: "is required"}},
	}
	if !strings.Contains(f.Error(), "pause_workflow") || !strings.Contains(f.Error(), "workflowId") {
		t.Errorf("Error() = %q, missing operation or field", f.Error())
	}
}
