package testutil

import (
	"testing"

	"github.com/dalemusser/waffle/pantry/storage"
)

// SetupTestStorage returns a content store rooted in a per-test temporary
// directory. The directory is removed with the test's temp dirs.
func SetupTestStorage(t *testing.T) storage.Store {
	t.Helper()

	store, err := storage.NewLocal(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "/media",
	})
	if err != nil {
		t.Fatalf("failed to create local test storage: %v", err)
	}
	return store
}
