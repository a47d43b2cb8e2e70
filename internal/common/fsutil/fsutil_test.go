package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// empty path
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	// ~ expansion
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	// ~/subdir
	exp, err := ExpandHome("~/ckpt")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if runtime.GOOS != "windows" {
		if want := filepath.Join(home, "ckpt"); exp != want {
			t.Fatalf("expected %q, got %q", want, exp)
		}
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "f")
	if PathExists(p) {
		t.Fatalf("expected missing path")
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(p) {
		t.Fatalf("expected existing path")
	}
}
