// Package safetensors provides read-only, memory-mapped access to the
// header of a safetensors weights container.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/exp/mmap"
)

// The format caps the JSON header at 100 MB.
const maxHeaderBytes = 100 << 20

// TensorInfo describes one tensor entry from the container header.
// DataOffsets are byte positions relative to the start of the data
// section (the byte after the header).
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Reader provides access to tensor names and descriptors of a
// safetensors file via memory mapping. Tensor payloads are never read.
type Reader struct {
	path     string
	mmap     *mmap.ReaderAt
	tensors  map[string]TensorInfo
	metadata map[string]string
	dataOff  int64
}

// Open memory-maps the file at path and parses its safetensors header.
// The returned Reader must be closed by the caller.
func Open(path string) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open safetensors: %w", err)
	}
	r := &Reader{path: path, mmap: m}
	if err := r.parse(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Close unmaps the file. Safe to call more than once.
func (r *Reader) Close() error {
	if r.mmap == nil {
		return nil
	}
	err := r.mmap.Close()
	r.mmap = nil
	return err
}

// parse reads the 8-byte header length, then the JSON header mapping
// tensor names to descriptors. The reserved "__metadata__" entry is
// kept separately and never listed as a tensor.
func (r *Reader) parse() error {
	size := int64(r.mmap.Len())
	if size < 8 {
		return fmt.Errorf("%s: file too small for safetensors header", r.path)
	}
	var lenBuf [8]byte
	if _, err := r.mmap.ReadAt(lenBuf[:], 0); err != nil {
		return fmt.Errorf("%s: read header length: %w", r.path, err)
	}
	headerLen := int64(binary.LittleEndian.Uint64(lenBuf[:]))
	if headerLen <= 0 || headerLen > maxHeaderBytes || headerLen > size-8 {
		return fmt.Errorf("%s: invalid safetensors header length %d", r.path, headerLen)
	}

	hdr := make([]byte, headerLen)
	if _, err := r.mmap.ReadAt(hdr, 8); err != nil {
		return fmt.Errorf("%s: read header: %w", r.path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(hdr, &raw); err != nil {
		return fmt.Errorf("%s: parse safetensors header: %w", r.path, err)
	}

	r.dataOff = 8 + headerLen
	dataLen := size - r.dataOff
	r.tensors = make(map[string]TensorInfo, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			if err := json.Unmarshal(msg, &r.metadata); err != nil {
				return fmt.Errorf("%s: parse __metadata__: %w", r.path, err)
			}
			continue
		}
		var ti TensorInfo
		if err := json.Unmarshal(msg, &ti); err != nil {
			return fmt.Errorf("%s: tensor %q: %w", r.path, name, err)
		}
		if ti.DataOffsets[0] < 0 || ti.DataOffsets[1] < ti.DataOffsets[0] || ti.DataOffsets[1] > dataLen {
			return fmt.Errorf("%s: tensor %q: data offsets out of range", r.path, name)
		}
		r.tensors[name] = ti
	}
	return nil
}

// Keys returns all tensor names in the container, sorted lexicographically.
func (r *Reader) Keys() []string {
	keys := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// TensorInfo returns the descriptor for the named tensor.
func (r *Reader) TensorInfo(name string) (TensorInfo, bool) {
	ti, ok := r.tensors[name]
	return ti, ok
}

// NumTensors reports the number of tensors in the container.
func (r *Reader) NumTensors() int { return len(r.tensors) }

// Metadata returns the optional "__metadata__" string map, or nil.
func (r *Reader) Metadata() map[string]string { return r.metadata }
