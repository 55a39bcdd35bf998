package compile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/texforge/core/cache"
	"github.com/FocuswithJustin/texforge/core/cas"
)

func TestBuildCacheStoreAndLookup(t *testing.T) {
	dir := t.TempDir()
	bc, err := OpenBuildCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	source := cas.Digest([]byte(`\documentclass{article}`))

	if _, ok := bc.Lookup(source); ok {
		t.Fatal("Lookup() hit on an empty cache")
	}

	pdfDigest, err := bc.Store(source, []byte("%PDF one"))
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if pdfDigest != cas.Digest([]byte("%PDF one")) {
		t.Errorf("Store() = %s", pdfDigest)
	}

	got, ok := bc.Lookup(source)
	if !ok || string(got) != "%PDF one" {
		t.Errorf("Lookup() = %q, %v", got, ok)
	}
	if s := bc.Stats(); s.Hits != 1 {
		t.Errorf("Stats().Hits = %d, want 1", s.Hits)
	}
}

func TestBuildCachePersists(t *testing.T) {
	dir := t.TempDir()
	source := cas.Digest([]byte("source"))

	first, err := OpenBuildCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Store(source, []byte("%PDF persisted")); err != nil {
		t.Fatal(err)
	}

	store, err := cas.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	second := NewBuildCache(store, cache.Config{MaxSize: 1})
	got, ok := second.Lookup(source)
	if !ok || string(got) != "%PDF persisted" {
		t.Errorf("Lookup() from a fresh index = %q, %v", got, ok)
	}
}

func TestBuildCacheDropsCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	bc, err := OpenBuildCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	source := cas.Digest([]byte("source"))
	pdfDigest, err := bc.Store(source, []byte("%PDF good"))
	if err != nil {
		t.Fatal(err)
	}

	blob := filepath.Join(dir, "blobs", pdfDigest[:2], pdfDigest)
	if err := os.WriteFile(blob, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := bc.Lookup(source); ok {
		t.Fatal("Lookup() should miss on a corrupt blob")
	}
	if _, err := os.Stat(filepath.Join(dir, "refs", source[:2], source+".json")); !os.IsNotExist(err) {
		t.Errorf("ref should be removed after a corrupt hit, stat err = %v", err)
	}
}
