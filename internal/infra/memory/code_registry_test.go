package memory

import (
	"context"
	"testing"
)

func TestCodeRegistryReserveRelease(t *testing.T) {
	ctx := context.Background()
	reg := NewCodeRegistry()

	if ok, _ := reg.Reserve(ctx, "AB12CD"); !ok {
		t.Fatalf("expected first reservation to win")
	}
	if ok, _ := reg.Reserve(ctx, "AB12CD"); ok {
		t.Fatalf("expected second reservation to lose")
	}
	_ = reg.Release(ctx, "AB12CD")
	if ok, _ := reg.Reserve(ctx, "AB12CD"); !ok {
		t.Fatalf("expected reservation after release")
	}
}
