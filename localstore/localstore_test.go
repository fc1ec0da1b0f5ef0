package localstore

import (
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	if err := s.Put("k", []byte(`[{"quantity":2}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[{"quantity":2}]` {
		t.Fatalf("unexpected value: %s", got)
	}

	// overwrite
	if err := s.Put("k", []byte("[]")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = s.Get("k")
	if string(got) != "[]" {
		t.Fatalf("overwrite lost: %s", got)
	}

	// delete is idempotent
	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Fatalf("key survived delete")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put("device", []byte("lines")); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, err := s2.Get("device")
	if err != nil || !ok || string(got) != "lines" {
		t.Fatalf("value lost across reopen: %s ok=%v err=%v", got, ok, err)
	}
}
