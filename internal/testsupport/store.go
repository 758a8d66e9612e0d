package testsupport

import (
	"context"
	"testing"

	"snatch/internal/config"
	"snatch/internal/download"
	"snatch/internal/store"
)

// MustOpenStore opens a blob store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	blobs, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		blobs.Close()
	})
	return blobs
}

// NewRegistry builds a loaded download registry backed by a fresh store.
func NewRegistry(t testing.TB, cfg *config.Config) *download.Registry {
	t.Helper()

	blobs := MustOpenStore(t, cfg)
	registry := download.NewRegistry(blobs, nil, download.NewHub(0))
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return registry
}

// NewDownload creates a queued job for tests using the provided registry.
func NewDownload(t testing.TB, registry *download.Registry, title, url string) download.Download {
	t.Helper()

	job, err := registry.Create(context.Background(), title, url, "bestvideo", false)
	if err != nil {
		t.Fatalf("registry.Create: %v", err)
	}
	return job
}
