package model

import (
	"context"
	"testing"
)

func TestInvocationContext_roundTrip(t *testing.T) {
	ictx := &InvocationContext{InvocationID: "inv-1", Operation: "get_workflow_status"}
	ctx := WithInvocationContext(context.Background(), ictx)

	got := InvocationContextFrom(ctx)
	if got != ictx {
		t.Fatalf("InvocationContextFrom() = %p, want %p", got, ictx)
	}
}

func TestInvocationContextFrom_missing(t *testing.T) {
	if got := InvocationContextFrom(context.Background()); got != nil {
		t.Errorf("InvocationContextFrom(empty) = %+v, want nil", got)
	}
}
