package storage

import (
	"path/filepath"
	"testing"
)

func TestPageCache(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "pages.db")

	cache, err := NewPageCache(dbPath)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	t.Run("Put and Get", func(t *testing.T) {
		if err := cache.Put("https://a.test", "# Heading\n\nsome markdown"); err != nil {
			t.Fatalf("Failed to put: %v", err)
		}

		got, found := cache.Get("https://a.test")
		if !found {
			t.Fatal("Expected to find cached page")
		}
		if got != "# Heading\n\nsome markdown" {
			t.Errorf("Unexpected content: %q", got)
		}
	})

	t.Run("Get non-existent", func(t *testing.T) {
		_, found := cache.Get("https://missing.test")
		if found {
			t.Error("Expected not to find uncached page")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		cache.Put("https://b.test", "old")
		cache.Put("https://b.test", "new")

		got, _ := cache.Get("https://b.test")
		if got != "new" {
			t.Errorf("Expected overwritten content, got %q", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		cache.Put("https://c.test", "content")

		if err := cache.Delete("https://c.test"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}

		_, found := cache.Get("https://c.test")
		if found {
			t.Error("Expected not to find deleted page")
		}
	})
}
