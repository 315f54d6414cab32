package wikiextract

import (
	"bytes"
	"os"
	"testing"

	"github.com/dsnet/compress/bzip2"
)

// compressBlock bzip2-compresses one self-terminating stream.
func compressBlock(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestSpeed})
	if err != nil {
		t.Fatalf("Error creating bzip2 writer: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("Error compressing block: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Error closing bzip2 stream: %v", err)
	}
	return buf.Bytes()
}

func writeBzip2File(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, compressBlock(t, content), 0644); err != nil {
		t.Fatalf("Error writing %v: %v", path, err)
	}
}

// writeMultistreamFile concatenates independently compressed blocks
// into one file, the multistream dump layout, and returns the byte
// offset at which each block begins.
func writeMultistreamFile(t *testing.T, path string, blocks ...string) []int64 {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int64, 0, len(blocks))
	for _, block := range blocks {
		offsets = append(offsets, int64(buf.Len()))
		buf.Write(compressBlock(t, block))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Error writing %v: %v", path, err)
	}
	return offsets
}
