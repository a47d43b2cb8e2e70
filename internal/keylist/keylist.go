// Package keylist lists tensor keys from a safetensors container,
// filtered by a name prefix.
package keylist

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"xloractl/internal/safetensors"
)

// Filter returns the keys that start with prefix, sorted
// lexicographically. An empty prefix matches every key.
func Filter(keys []string, prefix string) []string {
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// List opens the container at path, enumerates its tensor keys and
// returns those matching prefix. The container handle is released
// before returning, on both success and failure.
func List(path, prefix string) ([]string, error) {
	r, err := safetensors.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Filter(r.Keys(), prefix), nil
}

// Render writes a count line followed by one two-space-indented line
// per key.
func Render(w io.Writer, keys []string, prefix string) {
	fmt.Fprintf(w, "Found %d keys with prefix %q:\n", len(keys), prefix)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", k)
	}
}
