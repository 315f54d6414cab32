package wikiextract

import (
	"os"
	"path/filepath"
	"testing"
)

const testIndexData = `499:10:AccessibleComputing
499:12:Anarchism
499:13:AfghanistanHistory
1499:14:AfghanistanGeography
1499:15:AfghanistanPeople
3200:18:AfghanistanCommunications
`

func TestLoadOffsets(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "enwiki-20240101-index.txt.bz2")
	cachePath := filepath.Join(dir, "offsets.txt")
	writeBzip2File(t, indexPath, testIndexData)

	offsets, err := LoadOffsets(indexPath, cachePath)
	if err != nil {
		t.Fatalf("Error loading offsets: %v", err)
	}
	expected := []int64{499, 1499, 3200}
	if len(offsets) != len(expected) {
		t.Fatalf("Expected %d offsets, got %v", len(expected), offsets)
	}
	for i, want := range expected {
		if offsets[i] != want {
			t.Errorf("Offset %d: expected %d, got %d", i, want, offsets[i])
		}
	}

	raw, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("Error reading offsets cache: %v", err)
	}
	if string(raw) != "499\n1499\n3200\n" {
		t.Errorf("Unexpected cache contents %q", raw)
	}
}

func TestLoadOffsetsFromCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "offsets.txt")
	if err := os.WriteFile(cachePath, []byte("499\n1499\n"), 0644); err != nil {
		t.Fatalf("Error writing cache: %v", err)
	}

	// The index path does not exist; the cache must be enough.
	offsets, err := LoadOffsets(filepath.Join(dir, "missing.bz2"), cachePath)
	if err != nil {
		t.Fatalf("Error loading cached offsets: %v", err)
	}
	if len(offsets) != 2 || offsets[0] != 499 || offsets[1] != 1499 {
		t.Errorf("Unexpected offsets %v", offsets)
	}
}

func TestLoadOffsetsBadRecord(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data string
	}{
		{"no colon", "just a line without separator\n"},
		{"bad offset", "notanumber:10:Title\n"},
	}
	for _, test := range tests {
		indexPath := filepath.Join(dir, test.name+".bz2")
		writeBzip2File(t, indexPath, test.data)
		if _, err := LoadOffsets(indexPath, filepath.Join(dir, test.name+"-offsets.txt")); err == nil {
			t.Errorf("%v: expected an error, got nil", test.name)
		}
	}
}

func TestLoadOffsetsBadCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "offsets.txt")
	if err := os.WriteFile(cachePath, []byte("499\nnope\n"), 0644); err != nil {
		t.Fatalf("Error writing cache: %v", err)
	}
	if _, err := LoadOffsets(filepath.Join(dir, "missing.bz2"), cachePath); err == nil {
		t.Fatal("Expected an error for an unparsable cache line, got nil")
	}
}
