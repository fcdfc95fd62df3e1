package services_test

import (
	"context"
	"testing"

	"docbatch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, "part-0001.jsonl")
	ctx = services.WithStage(ctx, "inference")
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithPartition(ctx, "1/3")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "part-0001.jsonl" {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "inference" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if part, ok := services.PartitionFromContext(ctx); !ok || part != "1/3" {
		t.Fatalf("unexpected partition: %v %v", part, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithItemID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id value")
	}
}
