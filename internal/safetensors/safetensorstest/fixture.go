// Package safetensorstest writes minimal safetensors fixture files
// for tests.
package safetensorstest

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Entry mirrors one tensor descriptor in a safetensors header.
type Entry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Scalars lays out one 4-byte F32 scalar per name, packed sequentially.
func Scalars(names ...string) map[string]Entry {
	entries := make(map[string]Entry, len(names))
	for i, name := range names {
		off := int64(i) * 4
		entries[name] = Entry{DType: "F32", Shape: []int64{1}, DataOffsets: [2]int64{off, off + 4}}
	}
	return entries
}

// Write builds a valid safetensors file under dir and returns its path.
// meta may be nil.
func Write(t *testing.T, dir, name string, entries map[string]Entry, meta map[string]string) string {
	t.Helper()
	header := make(map[string]any, len(entries)+1)
	for k, e := range entries {
		header[k] = e
	}
	if meta != nil {
		header["__metadata__"] = meta
	}
	hdr, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	var dataLen int64
	for _, e := range entries {
		if e.DataOffsets[1] > dataLen {
			dataLen = e.DataOffsets[1]
		}
	}
	buf := make([]byte, 8+len(hdr)+int(dataLen))
	binary.LittleEndian.PutUint64(buf, uint64(len(hdr)))
	copy(buf[8:], hdr)
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}
