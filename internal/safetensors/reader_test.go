package safetensors_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xloractl/internal/safetensors"
	"xloractl/internal/safetensors/safetensorstest"
)

func TestOpenListsSortedKeys(t *testing.T) {
	d := t.TempDir()
	p := safetensorstest.Write(t, d, "ckpt.safetensors",
		safetensorstest.Scalars("inner.1.w", "outer.x", "inner.0.w"), nil)
	r, err := safetensors.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	keys := r.Keys()
	want := []string{"inner.0.w", "inner.1.w", "outer.x"}
	if len(keys) != len(want) {
		t.Fatalf("keys=%v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d]=%q want %q", i, keys[i], want[i])
		}
	}
	if r.NumTensors() != 3 {
		t.Fatalf("num tensors=%d", r.NumTensors())
	}
}

func TestTensorInfo(t *testing.T) {
	d := t.TempDir()
	p := safetensorstest.Write(t, d, "ckpt.safetensors", safetensorstest.Scalars("a", "b"), nil)
	r, err := safetensors.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	ti, ok := r.TensorInfo("a")
	if !ok {
		t.Fatalf("tensor a not found")
	}
	if ti.DType != "F32" || len(ti.Shape) != 1 || ti.Shape[0] != 1 {
		t.Fatalf("unexpected info: %+v", ti)
	}
	if _, ok := r.TensorInfo("missing"); ok {
		t.Fatalf("expected missing tensor")
	}
}

func TestOpenEmptyContainer(t *testing.T) {
	d := t.TempDir()
	p := safetensorstest.Write(t, d, "empty.safetensors", nil, nil)
	r, err := safetensors.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if len(r.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", r.Keys())
	}
}

func TestMetadataExcludedFromKeys(t *testing.T) {
	d := t.TempDir()
	p := safetensorstest.Write(t, d, "meta.safetensors",
		safetensorstest.Scalars("w"), map[string]string{"format": "pt"})
	r, err := safetensors.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if keys := r.Keys(); len(keys) != 1 || keys[0] != "w" {
		t.Fatalf("keys=%v", keys)
	}
	if r.Metadata()["format"] != "pt" {
		t.Fatalf("metadata=%v", r.Metadata())
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := safetensors.Open(filepath.Join(t.TempDir(), "nope.safetensors")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestOpenTruncatedFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "short.safetensors")
	if err := os.WriteFile(p, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := safetensors.Open(p); err == nil {
		t.Fatalf("expected error for truncated file")
	}
}

func TestOpenInvalidHeaderJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.safetensors")
	body := []byte("not json at all")
	buf := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint64(buf, uint64(len(body)))
	copy(buf[8:], body)
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := safetensors.Open(p); err == nil {
		t.Fatalf("expected error for invalid header")
	}
}

func TestOpenHeaderLengthBeyondFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lying.safetensors")
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf, 1<<30)
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := safetensors.Open(p); err == nil {
		t.Fatalf("expected error for oversized header length")
	}
}

func TestOpenOffsetsOutOfRange(t *testing.T) {
	d := t.TempDir()
	entries := map[string]safetensorstest.Entry{
		"w": {DType: "F32", Shape: []int64{1}, DataOffsets: [2]int64{0, 4}},
	}
	p := safetensorstest.Write(t, d, "ok.safetensors", entries, nil)
	// Rewrite with a descriptor pointing past the end of the file.
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	bad := filepath.Join(d, "bad.safetensors")
	if err := os.WriteFile(bad, b[:len(b)-4], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := safetensors.Open(bad); err == nil {
		t.Fatalf("expected error for out-of-range offsets")
	}
}

// countProcFDs returns the number of open file descriptors, skipping
// the test where procfs is unavailable.
func countProcFDs(t *testing.T) int {
	t.Helper()
	ents, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("cannot read /proc/self/fd: %v", err)
	}
	return len(ents)
}

func countProcMaps(t *testing.T) int {
	t.Helper()
	b, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		t.Skipf("cannot read /proc/self/maps: %v", err)
	}
	return strings.Count(string(b), "\n")
}

func TestOpenReleasesHandleOnPartialHeader(t *testing.T) {
	// Valid first entry, malformed second: the failure hits after the
	// container is already mapped, so Open must unmap on the way out.
	hdr := []byte(`{"inner.0.w":{"dtype":"F32","shape":[1],"data_offsets":[0,4]},"inner.1.w":"bogus"}`)
	buf := make([]byte, 8+len(hdr)+4)
	binary.LittleEndian.PutUint64(buf, uint64(len(hdr)))
	copy(buf[8:], hdr)
	p := filepath.Join(t.TempDir(), "broken.safetensors")
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := safetensors.Open(p); err == nil {
		t.Fatalf("expected error for malformed tensor entry")
	}

	fdsBefore := countProcFDs(t)
	mapsBefore := countProcMaps(t)
	for i := 0; i < 200; i++ {
		if _, err := safetensors.Open(p); err == nil {
			t.Fatalf("expected error for malformed tensor entry")
		}
	}
	if fdsAfter := countProcFDs(t); fdsAfter != fdsBefore {
		t.Fatalf("file handles leaked: before=%d after=%d", fdsBefore, fdsAfter)
	}
	// The runtime may grow a few mappings of its own; 200 leaked
	// containers would add one mapping each.
	if mapsAfter := countProcMaps(t); mapsAfter-mapsBefore > 50 {
		t.Fatalf("mappings leaked: before=%d after=%d", mapsBefore, mapsAfter)
	}
}

func TestCloseTwice(t *testing.T) {
	d := t.TempDir()
	p := safetensorstest.Write(t, d, "ckpt.safetensors", safetensorstest.Scalars("w"), nil)
	r, err := safetensors.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
