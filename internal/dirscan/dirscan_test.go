package dirscan

import (
	"testing"

	"github.com/dg1yfe/openrs/internal/hostfs"
)

func TestBeginEmptyDirFails(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	s := New(fs)
	if _, ok, err := s.Begin("/wd"); ok || err != nil {
		t.Fatalf("Begin on empty dir: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
	if s.Active() {
		t.Fatal("scan left active after empty-directory Begin")
	}
}

func TestBeginThenNextExhausts(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	fs.Seed("a.txt", []byte("a"))
	fs.Seed("b.txt", []byte("bb"))
	s := New(fs)

	first, ok, err := s.Begin("/wd")
	if err != nil || !ok {
		t.Fatalf("Begin: ok=%v err=%v", ok, err)
	}
	if first.Name != "a.txt" {
		t.Fatalf("first entry = %q, want a.txt", first.Name)
	}
	second, ok, err := s.Next()
	if err != nil || !ok || second.Name != "b.txt" {
		t.Fatalf("Next: entry=%+v ok=%v err=%v", second, ok, err)
	}
	_, ok, err = s.Next()
	if ok || err != nil {
		t.Fatalf("Next at end: ok=%v err=%v, want false/nil", ok, err)
	}
	if s.Active() {
		t.Fatal("scan still active after exhaustion")
	}
}

func TestAtMostOneScan(t *testing.T) {
	fs := hostfs.NewMem("/wd")
	fs.Seed("a.txt", nil)
	fs.Seed("b.txt", nil)
	s := New(fs)

	if _, ok, _ := s.Begin("/wd"); !ok {
		t.Fatal("first Begin failed")
	}
	if !s.Active() {
		t.Fatal("expected scan active after first Begin")
	}
	// A second Begin must close the first scan before opening the new one.
	if _, ok, _ := s.Begin("/wd"); !ok {
		t.Fatal("second Begin failed")
	}
	if !s.Active() {
		t.Fatal("expected scan active after second Begin")
	}
}
