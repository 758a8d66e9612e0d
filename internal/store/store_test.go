package store_test

import (
	"context"
	"testing"

	"snatch/internal/store"
	"snatch/internal/testsupport"
)

func TestSetGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	type record struct {
		ID    string  `json:"id"`
		Count float64 `json:"count"`
	}
	in := []record{{ID: "a", Count: 1.5}, {ID: "b"}}
	if err := blobs.Set(ctx, store.KeyDownloads, in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out []record
	found, err := blobs.Get(ctx, store.KeyDownloads, &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected key to exist")
	}
	if len(out) != 2 || out[0].ID != "a" || out[0].Count != 1.5 {
		t.Fatalf("unexpected round trip result: %#v", out)
	}
}

func TestGetMissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)

	var out map[string]any
	found, err := blobs.Get(context.Background(), "absent", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("expected missing key to report found=false")
	}
}

func TestSetReplacesWholeValue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := blobs.Set(ctx, store.KeySettings, map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := blobs.Set(ctx, store.KeySettings, map[string]any{"c": 3}); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	var out map[string]any
	if _, err := blobs.Get(ctx, store.KeySettings, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected whole-replace semantics, got %#v", out)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := blobs.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
	if err := blobs.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := blobs.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	var out string
	found, err := blobs.Get(ctx, "k", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("expected key to be gone after delete")
	}
}
